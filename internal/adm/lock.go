package adm

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is the working-copy admin lock handle: spec.md §5 calls this
// "adm_access" and says the editor only ever asserts possession of it,
// never acquires or releases it itself. The CLI driver acquires one Lock
// per working-copy root before constructing an EditContext and releases it
// after close_edit (or on early abort), exactly like the teacher's
// Registry.withFileLock wraps registry mutations in a single exclusive
// gofrs/flock section.
type Lock struct {
	fl   *flock.Flock
	root string
}

// Acquire takes an exclusive lock on the working-copy root's admin area.
// It blocks until the lock is available.
func Acquire(root string) (*Lock, error) {
	if err := Ensure(root); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(Dir(root), "lock")
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("adm: lock %s: %w", root, err)
	}
	return &Lock{fl: fl, root: root}, nil
}

// TryAcquire is the non-blocking variant; ok is false if another process
// (or another Lock in this process) already holds the lock.
func TryAcquire(root string) (lock *Lock, ok bool, err error) {
	if err := Ensure(root); err != nil {
		return nil, false, err
	}
	lockPath := filepath.Join(Dir(root), "lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("adm: trylock %s: %w", root, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{fl: fl, root: root}, true, nil
}

// Release unlocks the admin area. Safe to call on a nil *Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Root returns the working-copy root this lock guards.
func (l *Lock) Root() string { return l.root }
