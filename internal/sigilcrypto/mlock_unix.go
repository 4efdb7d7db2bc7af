//go:build !windows

package sigilcrypto

import (
	"golang.org/x/sys/unix"
)

// mlock pins the pages backing data so key material is not swapped out.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}
