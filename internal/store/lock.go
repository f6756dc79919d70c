package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	lockTimeout   = 10 * time.Second
	lockPollEvery = 50 * time.Millisecond
	// A lock whose owner cannot be identified is broken after this age.
	lockStaleAfter = 5 * time.Minute
)

// Lock is an exclusive advisory lock on a database file, held via a sidecar
// lock file created with O_EXCL. The owner PID is recorded in the file so a
// lock left behind by a crashed process can be broken.
type Lock struct {
	path string
}

// AcquireLock blocks until the lock file for dbPath can be created, or fails
// after the default timeout.
func AcquireLock(dbPath string) (*Lock, error) {
	return AcquireLockTimeout(dbPath, lockTimeout)
}

// AcquireLockTimeout is AcquireLock with an explicit timeout. Stale locks
// (dead owner PID, or unreadable owner and an old mtime) are removed and
// re-contended instead of blocking forever.
func AcquireLockTimeout(dbPath string, timeout time.Duration) (*Lock, error) {
	lockPath := dbPath + ".lock"
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
		}
		if breakStaleLock(lockPath) {
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock %s: timed out after %s", lockPath, timeout)
		}
		time.Sleep(lockPollEvery)
	}
}

// breakStaleLock removes the lock file when its owner is provably gone.
// Reports whether the caller should retry immediately.
func breakStaleLock(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Already released by the owner.
		return os.IsNotExist(err)
	}
	if pid, perr := strconv.Atoi(strings.TrimSpace(string(raw))); perr == nil && pid > 0 {
		if processAlive(pid) {
			return false
		}
		return os.Remove(path) == nil
	}
	// No recorded owner: fall back to file age.
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	if time.Since(info.ModTime()) > lockStaleAfter {
		return os.Remove(path) == nil
	}
	return false
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, os.ErrPermission)
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.path == "" {
		return
	}
	_ = os.Remove(l.path)
	l.path = ""
}
