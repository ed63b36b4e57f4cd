package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	"github.com/yungbote/catalog-metrics/internal/data/repos/testutil"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/pointers"
)

type fixture struct {
	ctx  context.Context
	set  repos.Set
	deps RefreshDeps
}

func newFixture(t *testing.T) (*fixture, func() dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	set := repos.New(tx, log)
	f := &fixture{
		ctx: context.Background(),
		set: set,
		deps: RefreshDeps{
			Log:        log,
			Products:   set.Products,
			OrderLines: set.OrderLines,
			Metrics:    set.ProductMetrics,
			Lookup:     set.Lookup,
			Now:        testutil.Clock(testutil.Day),
		},
	}
	return f, func() dbctx.Context { return dbctx.Context{Ctx: f.ctx, Tx: tx} }
}

func TestRefresh_YoungSimpleProduct(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	p := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple,
		testutil.WithStock(50),
		testutil.PublishedAt(testutil.Day.AddDate(0, 0, -3)),
	)
	testutil.SeedOrder(t, f.ctx, tx, types.OrderStatusCompleted, testutil.Day.AddDate(0, 0, -2),
		testutil.Line{ProductID: p.ID, Qty: 2, Subtotal: 100.9, Cost: 30},
	)
	testutil.SeedOrder(t, f.ctx, tx, types.OrderStatusOnHold, testutil.Day.AddDate(0, 0, -20),
		testutil.Line{ProductID: p.ID, Qty: 3, Subtotal: 250, Cost: 20.5},
	)

	out, err := Refresh(f.ctx, f.deps, RefreshInput{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Selected)
	assert.Equal(t, 1, out.Updated)
	assert.Zero(t, out.Failed)

	m, err := f.set.ProductMetrics.Get(dbc(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, int64(2), m.Sales7)
	assert.Equal(t, int64(100), m.Total7)
	assert.Equal(t, int64(70), m.Profit7)
	assert.Equal(t, int64(5), m.Sales30)
	assert.Equal(t, int64(350), m.Total30)
	// 350.9 - 50.5 = 300.4
	assert.Equal(t, int64(300), m.Profit30)

	assert.Equal(t, int64(45), m.Overstock)
	// round(50/5) * min(3, 30)
	assert.Equal(t, int64(30), m.StockDays)
	assert.Equal(t, 1.0, m.AvailabilityScore)
	assert.Equal(t, Trending(TrendingInput{Age: 3, Profit7: 70, Profit30: 300, Availability: 1}), m.Trending)
	assert.Equal(t, int64(598), m.Trending)
	require.NotNil(t, m.SalesDataUpdated)
	assert.Equal(t, testutil.Day.Unix(), *m.SalesDataUpdated)

	row, err := f.set.Lookup.GetByProductID(dbc(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, types.LookupRow{
		ProductID: p.ID,
		Trending:  598,
		Sales7:    2,
		Sales30:   5,
		Total7:    100,
		Total30:   350,
		Profit7:   70,
		Profit30:  300,
	}, *row)
}

func TestRefresh_NoSalesOverstock(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	p := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple, testutil.WithStock(50))
	// Stale values from an earlier pass must be cleared.
	testutil.SeedMetrics(t, f.ctx, tx, &types.ProductMetrics{ProductID: p.ID, Sales7: 9, Sales30: 9, Profit30: 99})

	out, err := Refresh(f.ctx, f.deps, RefreshInput{ProductIDs: []int64{p.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Updated)

	m, err := f.set.ProductMetrics.Get(dbc(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, int64(50), m.Overstock)
	assert.Equal(t, int64(StockDaysUnbounded), m.StockDays)
	assert.Zero(t, m.Sales7)
	assert.Zero(t, m.Sales30)
	assert.Zero(t, m.Profit30)
	assert.Zero(t, m.Trending)
}

func TestRefresh_OutOfStockSimpleProduct(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	p := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple,
		testutil.WithStock(0),
		testutil.WithStockStatus(types.StockStatusOutOfStock),
	)
	res, err := RefreshProduct(f.ctx, f.deps, p.ID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.Derived.AvailabilityScore)
}

func TestRefresh_VariableProductAvailability(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	parent := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeVariable, testutil.WithoutPrice())
	inStock := testutil.SeedVariation(t, f.ctx, tx, parent, testutil.WithStock(5))
	soldOut := testutil.SeedVariation(t, f.ctx, tx, parent, testutil.WithStock(0), testutil.WithStockStatus(types.StockStatusOutOfStock))
	unpriced := testutil.SeedVariation(t, f.ctx, tx, parent, testutil.WithStock(4), testutil.WithoutPrice())

	at := testutil.Day.AddDate(0, 0, -4)
	testutil.SeedOrder(t, f.ctx, tx, types.OrderStatusCompleted, at,
		testutil.Line{ProductID: parent.ID, VariationID: inStock.ID, Qty: 1, Subtotal: 10, Cost: -1},
		testutil.Line{ProductID: parent.ID, VariationID: inStock.ID, Qty: 1, Subtotal: 10, Cost: -1},
		testutil.Line{ProductID: parent.ID, VariationID: inStock.ID, Qty: 1, Subtotal: 10, Cost: -1},
		testutil.Line{ProductID: parent.ID, VariationID: soldOut.ID, Qty: 1, Subtotal: 10, Cost: -1},
		testutil.Line{ProductID: parent.ID, VariationID: unpriced.ID, Qty: 1, Subtotal: 10, Cost: -1},
		testutil.Line{ProductID: parent.ID, VariationID: unpriced.ID, Qty: 1, Subtotal: 10, Cost: -1},
	)

	res, err := RefreshProduct(f.ctx, f.deps, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, res)

	// 3 of 6 sold lines belong to a variation that can be bought now.
	assert.Equal(t, 0.5, res.Derived.AvailabilityScore)
	assert.Equal(t, int64(6), res.Sales.Sales7)
	assert.Equal(t, int64(60), res.Sales.Profit7)
	// Own stock 0 plus 5 + 0 + 4 across variations.
	assert.Equal(t, int64(3), res.Derived.Overstock)
}

func TestRefresh_VariableProductWithoutSales(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	parent := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeVariable)
	testutil.SeedVariation(t, f.ctx, tx, parent, testutil.WithStockStatus(types.StockStatusOutOfStock))
	testutil.SeedVariation(t, f.ctx, tx, parent, testutil.WithStockStatus(types.StockStatusOutOfStock))

	res, err := RefreshProduct(f.ctx, f.deps, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1.0, res.Derived.AvailabilityScore)
}

func TestRefresh_MissingProductIsSkipped(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	p := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)
	out, err := Refresh(f.ctx, f.deps, RefreshInput{ProductIDs: []int64{p.ID + 999, p.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Selected)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 1, out.Updated)

	m, err := f.set.ProductMetrics.Get(dbc(), p.ID+999)
	require.NoError(t, err)
	assert.Nil(t, m)
	row, err := f.set.Lookup.GetByProductID(dbc(), p.ID+999)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRefresh_IsIdempotentForFixedClock(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	p := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple, testutil.WithStock(8))
	testutil.SeedOrder(t, f.ctx, tx, types.OrderStatusProcessing, testutil.Day.AddDate(0, 0, -1),
		testutil.Line{ProductID: p.ID, Qty: 1, Subtotal: 40, Cost: 15},
	)

	_, err := Refresh(f.ctx, f.deps, RefreshInput{ProductIDs: []int64{p.ID}})
	require.NoError(t, err)
	first, err := f.set.Lookup.GetByProductID(dbc(), p.ID)
	require.NoError(t, err)
	firstMetrics, err := f.set.ProductMetrics.Get(dbc(), p.ID)
	require.NoError(t, err)

	_, err = Refresh(f.ctx, f.deps, RefreshInput{ProductIDs: []int64{p.ID}})
	require.NoError(t, err)
	second, err := f.set.Lookup.GetByProductID(dbc(), p.ID)
	require.NoError(t, err)
	secondMetrics, err := f.set.ProductMetrics.Get(dbc(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
	firstMetrics.UpdatedAt, secondMetrics.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, *firstMetrics, *secondMetrics)

	var count int64
	require.NoError(t, tx.Model(&types.LookupRow{}).Where("product_id = ?", p.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRefresh_SelectionRespectsBoundAndFreshness(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	a := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)
	b := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)
	c := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)
	testutil.SeedMetrics(t, f.ctx, tx, &types.ProductMetrics{ProductID: a.ID, SalesDataUpdated: pointers.Ptr(testutil.Day.Add(-3 * time.Hour).Unix())})
	testutil.SeedMetrics(t, f.ctx, tx, &types.ProductMetrics{ProductID: c.ID, SalesDataUpdated: pointers.Ptr(testutil.Day.Add(-time.Hour).Unix())})

	out, err := Refresh(f.ctx, f.deps, RefreshInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Updated)

	// b had no marker so it went first.
	mb, err := f.set.ProductMetrics.Get(dbc(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, mb.SalesDataUpdated)
	assert.Equal(t, testutil.Day.Unix(), *mb.SalesDataUpdated)

	out, err = Refresh(f.ctx, f.deps, RefreshInput{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Selected)
	assert.Equal(t, 1, out.Updated)

	out, err = Refresh(f.ctx, f.deps, RefreshInput{Limit: 5})
	require.NoError(t, err)
	assert.True(t, out.Noop)
	assert.Zero(t, out.Selected)

	mc, err := f.set.ProductMetrics.Get(dbc(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Day.Add(-time.Hour).Unix(), *mc.SalesDataUpdated)
}

type flakyLookup struct {
	repos.LookupRepo
	failFor int64
}

func (l flakyLookup) Upsert(dbc dbctx.Context, row *types.LookupRow) error {
	if row != nil && row.ProductID == l.failFor {
		return errors.New("connection reset")
	}
	return l.LookupRepo.Upsert(dbc, row)
}

func TestRefresh_IsolatesProductFailures(t *testing.T) {
	f, dbc := newFixture(t)
	tx := dbc().Tx

	a := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)
	b := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)
	c := testutil.SeedProduct(t, f.ctx, tx, types.ProductTypeSimple)

	deps := f.deps
	deps.Lookup = flakyLookup{LookupRepo: f.set.Lookup, failFor: b.ID}

	out, err := Refresh(f.ctx, deps, RefreshInput{ProductIDs: []int64{a.ID, b.ID, c.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Updated)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "connection reset")

	for _, id := range []int64{a.ID, c.ID} {
		row, err := f.set.Lookup.GetByProductID(dbc(), id)
		require.NoError(t, err)
		assert.NotNil(t, row, "product %d", id)
	}
	// Earlier write-backs for the failing product stay in place.
	mb, err := f.set.ProductMetrics.Get(dbc(), b.ID)
	require.NoError(t, err)
	assert.NotNil(t, mb)
}

func TestRefresh_MissingDeps(t *testing.T) {
	_, err := Refresh(context.Background(), RefreshDeps{}, RefreshInput{})
	assert.EqualError(t, err, "metrics_refresh: missing deps")
}
