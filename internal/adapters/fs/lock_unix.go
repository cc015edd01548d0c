//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package fs

import (
	"context"
	"errors"
	"os"
	"time"

	"go.trai.ch/keg/internal/core/domain"
	"golang.org/x/sys/unix"
)

const lockPollInterval = 50 * time.Millisecond

// lockFile takes an exclusive flock on path, polling until ctx is done.
func lockFile(ctx context.Context, path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, domain.PrivateFilePerm) //nolint:gosec // Path is derived from a hash
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd()) //nolint:gosec // File descriptors fit in int

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return func() {
				_ = unix.Flock(fd, unix.LOCK_UN)
				_ = f.Close()
			}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			return nil, err
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
