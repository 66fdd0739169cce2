//go:build !linux

package mount

// mostSpecificMountType has no portable mount-table source on
// non-Linux systems; per the predicate's own "systems without a mount
// table" carve-out, it always reports not-found.
func mostSpecificMountType(path string) (string, bool) {
	return "", false
}
