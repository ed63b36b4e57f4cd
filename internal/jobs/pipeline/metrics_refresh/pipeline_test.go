package metrics_refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	"github.com/yungbote/catalog-metrics/internal/data/repos/testutil"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/jobs/lock"
	jobrt "github.com/yungbote/catalog-metrics/internal/jobs/runtime"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	"github.com/yungbote/catalog-metrics/internal/observability"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
)

func setup(t *testing.T, locker lock.Locker) (*jobrt.Runner, repos.Set, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.New(db, log)
	uc := catalogmetrics.New(catalogmetrics.UsecasesDeps{
		Log:            log,
		Products:       set.Products,
		OrderLines:     set.OrderLines,
		ProductMetrics: set.ProductMetrics,
		Lookup:         set.Lookup,
		Now:            testutil.Clock(testutil.Day),
	})
	reg := jobrt.NewRegistry()
	require.NoError(t, reg.Register(New(log, Config{BatchLimit: 10, StaleAfter: time.Hour}, locker, observability.NewMetrics(), uc)))
	return jobrt.NewRunner(log, reg, set.Runs), set, db
}

func TestPipeline_RefreshesStaleProducts(t *testing.T) {
	r, set, db := setup(t, lock.NewLocalLocker())
	ctx := context.Background()

	a := testutil.SeedProduct(t, ctx, db, types.ProductTypeSimple, testutil.WithStock(4))
	b := testutil.SeedProduct(t, ctx, db, types.ProductTypeSimple, testutil.WithStock(9))

	jc, err := r.Run(ctx, JobType)
	require.NoError(t, err)

	run, err := set.Runs.GetByID(dbctx.Context{Ctx: ctx}, jc.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, run.Status)
	assert.Equal(t, 2, run.Selected)
	assert.Equal(t, 2, run.Updated)

	for _, p := range []*types.Product{a, b} {
		m, err := set.ProductMetrics.Get(dbctx.Context{Ctx: ctx}, p.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		require.NotNil(t, m.SalesDataUpdated)
		assert.Equal(t, testutil.Day.Unix(), *m.SalesDataUpdated)
	}

	// Everything is fresh now, so the next run selects nothing.
	jc, err = r.Run(ctx, JobType)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, jc.Run.Status)
	assert.Zero(t, jc.Run.Selected)
}

func TestPipeline_SkipsWhenLockHeld(t *testing.T) {
	locker := lock.NewLocalLocker()
	r, _, db := setup(t, locker)
	ctx := context.Background()
	testutil.SeedProduct(t, ctx, db, types.ProductTypeSimple)

	lease, err := locker.TryAcquire(ctx, LockName, time.Minute)
	require.NoError(t, err)

	jc, err := r.Run(ctx, JobType)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSkipped, jc.Run.Status)
	assert.Equal(t, "lock held", jc.Run.Error)

	require.NoError(t, lease.Release(ctx))
	jc, err = r.Run(ctx, JobType)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, jc.Run.Status)
	assert.Equal(t, 1, jc.Run.Updated)
}

// cancellingLocker stands in for a shutdown that lands while the job holds its lock.
type cancellingLocker struct {
	cancel     context.CancelFunc
	released   bool
	releaseErr error
}

func (l *cancellingLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (lock.Lease, error) {
	l.cancel()
	return &recordingLease{name: name, locker: l}, nil
}

type recordingLease struct {
	name   string
	locker *cancellingLocker
}

func (l *recordingLease) Name() string { return l.name }

func (l *recordingLease) Release(ctx context.Context) error {
	l.locker.released = true
	l.locker.releaseErr = ctx.Err()
	return ctx.Err()
}

func TestPipeline_ReleasesLockAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	locker := &cancellingLocker{cancel: cancel}
	r, _, db := setup(t, locker)
	testutil.SeedProduct(t, context.Background(), db, types.ProductTypeSimple)

	_, _ = r.Run(ctx, JobType)

	require.True(t, locker.released)
	assert.NoError(t, locker.releaseErr)
}
