package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// fileLock is an exclusive flock(2) held on a dedicated lock file.
//
// flock is advisory and tied to the open file description; closing the
// file releases it. The lock file itself is never removed.
type fileLock struct {
	file *os.File
}

const lockMaxBackoff = 25 * time.Millisecond

// acquireLock takes an exclusive lock on path, polling until timeout.
// timeout <= 0 tries exactly once.
func acquireLock(path string, timeout time.Duration) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	backoff := time.Millisecond

	for {
		err = flockRetryEINTR(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{file: file}, nil
		}

		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = file.Close()

			return nil, fmt.Errorf("flock: %w", err)
		}

		remaining := time.Until(deadline)
		if timeout <= 0 || remaining <= 0 {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}

		time.Sleep(min(backoff, remaining))

		backoff = min(backoff*2, lockMaxBackoff)
	}
}

// release unlocks and closes the lock file. Safe to call more than once.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	return releaseError(unlockErr, closeErr)
}

// releaseError reports every failure of release; nil when both succeeded.
func releaseError(unlockErr, closeErr error) error {
	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("close lock file: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

func flockRetryEINTR(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
