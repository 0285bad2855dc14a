package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrLocked - ключ уже захвачен другим вызывающим
var ErrLocked = errors.New("resource is locked")

// Locker захватывает и освобождает именованные блокировки с TTL
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Release освобождает набор ключей, захваченный AcquireAll
type Release func(ctx context.Context)

// AcquireAll захватывает все ключи в отсортированном порядке.
// Если хотя бы один ключ занят, уже захваченные освобождаются и возвращается ErrLocked.
func AcquireAll(ctx context.Context, l Locker, keys []string, ttl time.Duration) (Release, error) {
	sorted := uniqueSorted(keys)
	acquired := make([]string, 0, len(sorted))

	release := func(ctx context.Context) {
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = l.Unlock(ctx, acquired[i])
		}
	}

	for _, key := range sorted {
		ok, err := l.Lock(ctx, key, ttl)
		if err != nil {
			release(ctx)
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if !ok {
			release(ctx)
			return nil, fmt.Errorf("lock %s: %w", key, ErrLocked)
		}
		acquired = append(acquired, key)
	}

	return release, nil
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
