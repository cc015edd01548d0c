//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package fs

import (
	"context"
	"sync"
)

// locks serialises placement within this process where flock is unavailable.
var locks sync.Map

func lockFile(ctx context.Context, path string) (func(), error) {
	v, _ := locks.LoadOrStore(path, make(chan struct{}, 1))
	sem, _ := v.(chan struct{})

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
