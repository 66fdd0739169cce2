// Package mount implements the network-mount predicate: a path is a
// network mount iff it lies under /mnt/, /media/, or /net/ and the
// most specific mount entry covering it has a filesystem type that
// indicates a remote protocol.
package mount

import "strings"

var networkPrefixes = []string{"/mnt/", "/media/", "/net/"}

var networkFSTypes = map[string]struct{}{
	"nfs": {}, "nfs4": {}, "cifs": {}, "smb": {}, "smbfs": {}, "fuse.sshfs": {},
}

// IsNetworkMount reports whether path is on a network-mounted
// filesystem. On systems without a readable mount table, it returns
// false.
func IsNetworkMount(path string) bool {
	underNetworkPrefix := false
	for _, p := range networkPrefixes {
		if strings.HasPrefix(path, p) {
			underNetworkPrefix = true
			break
		}
	}
	if !underNetworkPrefix {
		return false
	}

	fstype, ok := mostSpecificMountType(path)
	if !ok {
		return false
	}
	_, isNetwork := networkFSTypes[fstype]
	return isNetwork
}
