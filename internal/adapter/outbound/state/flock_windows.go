//go:build windows

package state

import "golang.org/x/sys/windows"

// lockFD blocks until an exclusive LockFileEx lock is held on fd,
// matching the Unix flock behavior.
func lockFD(fd uintptr) error {
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(fd), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol)
}

// unlockFD releases the lock taken by lockFD.
func unlockFD(fd uintptr) error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, &ol)
}
