//go:build !windows

package state

import "syscall"

// lockFD blocks until an exclusive flock is held on fd.
func lockFD(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX)
}

// unlockFD releases the flock on fd.
func unlockFD(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
