//go:build !unix && !windows

package persist

import (
	"errors"
	"os"
)

func tryLock(*os.File, bool) error { return nil }

func unlock(*os.File) error { return nil }

func inUse(err error) bool {
	return errors.Is(err, errBusy)
}
