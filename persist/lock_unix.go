//go:build unix

package persist

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock takes a non-blocking advisory lock on f. A lock held elsewhere
// reports errBusy.
func tryLock(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return errBusy
	}
	return err
}

func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// inUse reports whether err is the operating system's "resource busy" class
// of failure.
func inUse(err error) bool {
	return errors.Is(err, errBusy) ||
		errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.ETXTBSY) ||
		errors.Is(err, unix.EWOULDBLOCK)
}
