// Package lock provides the single-writer guard for a snapshot.
//
// A reconciliation pass holds the guard for the whole load-diff-apply-save
// sequence. The guard is an OS advisory lock (flock, or LockFileEx on
// Windows) on a file beside the snapshot. The holder writes its PID into
// the file so a losing pass can say who is running. The OS drops the lock
// when the holder exits, so a file left by a crashed pass is simply reused.
package lock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
)

// errLocked is returned by tryLock when another open file holds the lock.
var errLocked = errors.New("file is locked")

// maxReopen bounds how often Acquire retries after locking a file that a
// releasing holder unlinked underneath it.
const maxReopen = 5

// PIDGuard prevents two passes from running against the same snapshot.
// The zero value is not usable; use NewPIDGuard.
type PIDGuard struct {
	path string
	f    *os.File
}

// NewPIDGuard creates a guard using the lock file at path.
func NewPIDGuard(path string) *PIDGuard {
	return &PIDGuard{path: path}
}

// Path returns the lock file path.
func (g *PIDGuard) Path() string {
	return g.path
}

// Check reports whether some other holder has the lock, without taking it.
// It returns nil when the lock is free and *AlreadyRunningError otherwise.
// It never modifies the file.
func (g *PIDGuard) Check() error {
	f, err := os.Open(g.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch err := tryLock(f); {
	case errors.Is(err, errLocked):
		return &AlreadyRunningError{PID: readPID(f)}
	case err != nil:
		return fmt.Errorf("test lock: %w", err)
	}
	_ = unlock(f)
	return nil
}

// Acquire takes the guard for the current process. A guard held elsewhere
// is reported as a PASS_RUNNING error. Acquiring a guard this value already
// holds is a no-op.
func (g *PIDGuard) Acquire() error {
	if g.f != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	for range maxReopen {
		f, err := os.OpenFile(g.path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("open lock file: %w", err)
		}

		if err := tryLock(f); err != nil {
			pid := readPID(f)
			_ = f.Close()
			if errors.Is(err, errLocked) {
				running := &AlreadyRunningError{PID: pid}
				return syncerrors.ErrPassRunning(pid).WithCause(running)
			}
			return fmt.Errorf("lock %s: %w", g.path, err)
		}

		// A releasing holder unlinks the file while still locked. If that
		// happened between our open and our lock, we hold a dead inode.
		if !isCurrent(f, g.path) {
			_ = unlock(f)
			_ = f.Close()
			continue
		}

		if err := writePID(f); err != nil {
			_ = unlock(f)
			_ = f.Close()
			return fmt.Errorf("write pid: %w", err)
		}
		g.f = f
		return nil
	}
	return syncerrors.ErrPassRunning(0)
}

// Release drops the guard if this value holds it. Safe to call more than
// once, and on a guard whose Acquire failed.
func (g *PIDGuard) Release() {
	if g.f == nil {
		return
	}
	f := g.f
	g.f = nil

	// Unlink while still locked; a waiter that opened the old file sees it
	// is no longer current and reopens. Windows refuses to remove an open
	// file, which only leaves an unlocked file for the next pass to reuse.
	_ = os.Remove(g.path)
	_ = unlock(f)
	_ = f.Close()
}

// AlreadyRunningError indicates another pass holds the guard. PID is 0 when
// the holder had not yet recorded itself.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	if e.PID <= 0 {
		return "reconciliation pass already running"
	}
	return fmt.Sprintf("reconciliation pass already running (pid %d)", e.PID)
}

// isCurrent reports whether f is still the file at path.
func isCurrent(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}
	return f.Sync()
}

// readPID returns the PID recorded in f, or 0 if it is empty, unreadable or
// garbage.
func readPID(f *os.File) int {
	data, err := io.ReadAll(io.NewSectionReader(f, 0, 64))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
