package lookup_backfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	"github.com/yungbote/catalog-metrics/internal/data/repos/testutil"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	jobrt "github.com/yungbote/catalog-metrics/internal/jobs/runtime"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
)

func TestPipeline_BackfillsMissingRows(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.New(db, log)
	ctx := context.Background()

	testutil.SeedProduct(t, ctx, db, types.ProductTypeSimple)
	testutil.SeedProduct(t, ctx, db, types.ProductTypeVariable)

	uc := catalogmetrics.New(catalogmetrics.UsecasesDeps{
		Log:            log,
		Products:       set.Products,
		OrderLines:     set.OrderLines,
		ProductMetrics: set.ProductMetrics,
		Lookup:         set.Lookup,
	})
	reg := jobrt.NewRegistry()
	// Metrics are optional.
	require.NoError(t, reg.Register(New(log, nil, uc)))
	r := jobrt.NewRunner(log, reg, set.Runs)

	jc, err := r.Run(ctx, JobType)
	require.NoError(t, err)
	run, err := set.Runs.GetByID(dbctx.Context{Ctx: ctx}, jc.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusSucceeded, run.Status)
	assert.Equal(t, 2, run.Updated)
	assert.JSONEq(t, `{"inserted":2}`, string(run.Summary))

	jc, err = r.Run(ctx, JobType)
	require.NoError(t, err)
	assert.Zero(t, jc.Run.Updated)
}
