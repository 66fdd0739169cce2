//go:build linux

package mount

import (
	"bufio"
	"os"
	"strings"
)

// mostSpecificMountType parses /proc/mounts and returns the filesystem
// type of the longest mount-point prefix covering path. The fstype
// string (e.g. "fuse.sshfs") is the only place that distinguishes an
// SSHFS mount from any other FUSE filesystem; statfs magic numbers
// cannot make that distinction, so this must read the mount table's
// text form rather than call statfs.
func mostSpecificMountType(path string) (string, bool) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return "", false
	}
	defer f.Close()

	bestLen := -1
	bestType := ""
	found := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint := fields[1]
		fsType := fields[2]

		if mountPoint == path || strings.HasPrefix(path, strings.TrimSuffix(mountPoint, "/")+"/") || mountPoint == "/" {
			if len(mountPoint) > bestLen {
				bestLen = len(mountPoint)
				bestType = fsType
				found = true
			}
		}
	}

	return bestType, found
}
