package catalog

import (
	"context"
	"testing"

	"github.com/yungbote/catalog-metrics/internal/data/repos/testutil"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/pointers"
)

func TestProductMetricsRepo_WriteBacks(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewProductMetricsRepo(db, testutil.Logger(t))

	got, err := repo.Get(dbc, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("Get: expected nil for missing record, got %+v", got)
	}

	if err := repo.UpsertSales(dbc, 7, types.SalesFields{Sales7: 2, Sales30: 9, Total7: 40, Total30: 180, Profit7: 10, Profit30: 45}); err != nil {
		t.Fatalf("UpsertSales: %v", err)
	}
	if err := repo.UpsertDerived(dbc, 7, types.DerivedFields{Overstock: 11, StockDays: 30, AvailabilityScore: 0.67, Trending: 123, SalesDataUpdated: 1700000000}); err != nil {
		t.Fatalf("UpsertDerived: %v", err)
	}
	// A second sales write must not clobber the derived fields.
	if err := repo.UpsertSales(dbc, 7, types.SalesFields{Sales7: 3, Sales30: 9, Total7: 40, Total30: 180, Profit7: 10, Profit30: 45}); err != nil {
		t.Fatalf("UpsertSales again: %v", err)
	}

	got, err = repo.Get(dbc, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatalf("Get: expected record")
	}
	if got.Sales7 != 3 || got.Sales30 != 9 || got.Profit30 != 45 {
		t.Fatalf("sales fields: unexpected %+v", got)
	}
	if got.Trending != 123 || got.Overstock != 11 || got.StockDays != 30 || got.AvailabilityScore != 0.67 {
		t.Fatalf("derived fields: unexpected %+v", got)
	}
	if got.SalesDataUpdated == nil || *got.SalesDataUpdated != 1700000000 {
		t.Fatalf("marker: unexpected %v", got.SalesDataUpdated)
	}
}

func TestProductMetricsRepo_EnsureDefaults(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewProductMetricsRepo(db, testutil.Logger(t))

	changed, err := repo.EnsureDefaults(dbc, 1, 1000)
	if err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if !changed {
		t.Fatalf("EnsureDefaults: expected insert")
	}

	changed, err = repo.EnsureDefaults(dbc, 1, 2000)
	if err != nil {
		t.Fatalf("EnsureDefaults again: %v", err)
	}
	if changed {
		t.Fatalf("EnsureDefaults again: marker must not move")
	}
	got, _ := repo.Get(dbc, 1)
	if got == nil || got.SalesDataUpdated == nil || *got.SalesDataUpdated != 1000 {
		t.Fatalf("EnsureDefaults: unexpected record %+v", got)
	}

	// Record without a marker gets one.
	testutil.SeedMetrics(t, ctx, tx, &types.ProductMetrics{ProductID: 2, Trending: 9})
	changed, err = repo.EnsureDefaults(dbc, 2, 3000)
	if err != nil {
		t.Fatalf("EnsureDefaults unmarked: %v", err)
	}
	if !changed {
		t.Fatalf("EnsureDefaults unmarked: expected marker set")
	}
	got, _ = repo.Get(dbc, 2)
	if got == nil || got.SalesDataUpdated == nil || *got.SalesDataUpdated != 3000 || got.Trending != 9 {
		t.Fatalf("EnsureDefaults unmarked: unexpected record %+v", got)
	}
}

func TestProductMetricsRepo_ResetForDuplicate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewProductMetricsRepo(db, testutil.Logger(t))
	testutil.SeedMetrics(t, ctx, tx, &types.ProductMetrics{
		ProductID:         5,
		Trending:          400,
		AvailabilityScore: 0.5,
		Sales7:            3,
		Sales30:           12,
		Total7:            90,
		Total30:           300,
		Profit7:           30,
		Profit30:          100,
		Overstock:         8,
		StockDays:         20,
		SalesDataUpdated:  pointers.Ptr(int64(1234)),
	})

	if err := repo.ResetForDuplicate(dbc, 5); err != nil {
		t.Fatalf("ResetForDuplicate: %v", err)
	}
	got, err := repo.Get(dbc, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	zeroed := got.Trending == 0 && got.AvailabilityScore == 0 &&
		got.Sales7 == 0 && got.Sales30 == 0 && got.Total7 == 0 && got.Total30 == 0 &&
		got.Profit7 == 0 && got.Profit30 == 0 && got.Overstock == 0 && got.StockDays == 0
	if !zeroed {
		t.Fatalf("ResetForDuplicate: expected zeroed metrics, got %+v", got)
	}
	if got.SalesDataUpdated == nil || *got.SalesDataUpdated != 1234 {
		t.Fatalf("ResetForDuplicate: marker changed to %v", got.SalesDataUpdated)
	}

	if err := repo.DeleteByProductIDs(dbc, []int64{5}); err != nil {
		t.Fatalf("DeleteByProductIDs: %v", err)
	}
	if got, _ := repo.Get(dbc, 5); got != nil {
		t.Fatalf("DeleteByProductIDs: record remains %+v", got)
	}
}
