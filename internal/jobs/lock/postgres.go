package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"gorm.io/gorm"
)

// PostgresLocker uses session-level advisory locks. Each lease pins one pooled
// connection until released, since the lock belongs to the session.
type PostgresLocker struct {
	db *gorm.DB
}

func NewPostgresLocker(db *gorm.DB) *PostgresLocker {
	return &PostgresLocker{db: db}
}

// AdvisoryKey maps a lock name onto the bigint key space of pg_try_advisory_lock.
func AdvisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

func (l *PostgresLocker) TryAcquire(ctx context.Context, name string, _ time.Duration) (Lease, error) {
	if l == nil || l.db == nil {
		return nil, fmt.Errorf("postgres locker not initialized")
	}
	name, err := normalize(name)
	if err != nil {
		return nil, err
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %q: %w", name, err)
	}

	key := AdvisoryKey(name)
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire lock %q: %w", name, err)
	}
	if !ok {
		_ = conn.Close()
		return nil, held(name)
	}
	return &postgresLease{name: name, key: key, conn: conn}, nil
}

type postgresLease struct {
	name string
	key  int64
	conn *sql.Conn
	once sync.Once
	err  error
}

func (l *postgresLease) Name() string { return l.name }

func (l *postgresLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		defer l.conn.Close()
		var ok bool
		if err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&ok); err != nil {
			l.err = fmt.Errorf("release lock %q: %w", l.name, err)
		}
	})
	return l.err
}
