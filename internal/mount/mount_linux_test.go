//go:build linux

package mount

import "testing"

func TestIsNetworkMountFalseOutsideNetworkPrefixes(t *testing.T) {
	// /proc/mounts on the test host is read but not controlled by the
	// test, so this only asserts the prefix short-circuit, which needs
	// no mount-table knowledge.
	if IsNetworkMount("/home/user/docs") {
		t.Fatal("path outside /mnt, /media, /net must never be a network mount")
	}
}
