package lock

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/catalog-metrics/internal/data/repos/testutil"
	apperrors "github.com/yungbote/catalog-metrics/internal/pkg/errors"
)

func exerciseLocker(t *testing.T, l Locker, name string) {
	t.Helper()
	ctx := context.Background()

	lease, err := l.TryAcquire(ctx, name, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, lease)
	assert.Equal(t, name, lease.Name())

	_, err = l.TryAcquire(ctx, name, 5*time.Second)
	assert.ErrorIs(t, err, apperrors.ErrLockHeld)

	other, err := l.TryAcquire(ctx, name+"-other", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))

	again, err := l.TryAcquire(ctx, name, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLocker(t *testing.T) {
	exerciseLocker(t, NewLocalLocker(), "catalog-metrics-refresh")
}

func TestLocalLocker_DoubleReleaseIsSafe(t *testing.T) {
	l := NewLocalLocker()
	lease, err := l.TryAcquire(context.Background(), "x", 0)
	require.NoError(t, err)
	require.NoError(t, lease.Release(context.Background()))
	require.NoError(t, lease.Release(context.Background()))
}

func TestLocker_RejectsEmptyName(t *testing.T) {
	_, err := NewLocalLocker().TryAcquire(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestAdvisoryKeyIsStable(t *testing.T) {
	assert.Equal(t, AdvisoryKey("catalog-metrics-refresh"), AdvisoryKey("catalog-metrics-refresh"))
	assert.NotEqual(t, AdvisoryKey("catalog-metrics-refresh"), AdvisoryKey("catalog-lookup-backfill"))
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	exerciseLocker(t, NewRedisLocker(rdb), "test-"+time.Now().Format("150405.000000"))
}

func TestPostgresLocker(t *testing.T) {
	if os.Getenv("TEST_POSTGRES_DSN") == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	exerciseLocker(t, NewPostgresLocker(testutil.DB(t)), "test-advisory")
}
