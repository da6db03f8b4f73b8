package store

import "sync"

// upgradeableLock provides three sections over one RWMutex.
//
// Readers share the RWMutex. Every writer first takes admit, so at most one
// goroutine can be between the check and the mutation of an upgradeable
// section, and no other writer can run while it moves from the shared hold
// to the exclusive hold. Plain readers may still run during that move; they
// see the state as it was before the mutation.
type upgradeableLock struct {
	admit sync.Mutex
	rw    sync.RWMutex
}

func (l *upgradeableLock) read(fn func() error) error {
	l.rw.RLock()
	defer l.rw.RUnlock()
	return fn()
}

// upgradeable runs check under a shared hold and, if it succeeds, mutate
// under an exclusive hold. A failed check returns before anything changes.
func (l *upgradeableLock) upgradeable(check func() error, mutate func()) error {
	l.admit.Lock()
	defer l.admit.Unlock()

	l.rw.RLock()
	err := check()
	l.rw.RUnlock()
	if err != nil {
		return err
	}

	l.rw.Lock()
	defer l.rw.Unlock()
	mutate()
	return nil
}

func (l *upgradeableLock) write(fn func() error) error {
	l.admit.Lock()
	defer l.admit.Unlock()
	l.rw.Lock()
	defer l.rw.Unlock()
	return fn()
}
