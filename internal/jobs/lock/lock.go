// Package lock provides named, non-blocking mutual exclusion for periodic jobs.
package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/yungbote/catalog-metrics/internal/pkg/errors"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendLocal    = "local"
)

// Locker hands out leases on named locks. TryAcquire never waits: when another holder
// owns the name it returns an error wrapping ErrLockHeld.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Name() string
	Release(ctx context.Context) error
}

func held(name string) error {
	return fmt.Errorf("lock %q: %w", name, apperrors.ErrLockHeld)
}

func normalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("lock name: %w", apperrors.ErrInvalidArgument)
	}
	return name, nil
}
