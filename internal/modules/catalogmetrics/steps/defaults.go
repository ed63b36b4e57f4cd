package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

// NewProductHeadStart backdates a new product's marker so the next run picks it up.
const NewProductHeadStart = 6 * time.Hour

type ProductLifecycleDeps struct {
	Log     *logger.Logger
	Metrics repos.ProductMetricsRepo
	Lookup  repos.LookupRepo
	Now     func() time.Time
}

func (d ProductLifecycleDeps) ok() bool {
	return d.Log != nil && d.Metrics != nil && d.Lookup != nil
}

// EnsureProductDefaults is called when a product is saved. It also makes sure the
// product has a lookup row so sorted listings include it before its first refresh.
func EnsureProductDefaults(ctx context.Context, deps ProductLifecycleDeps, productID int64) (bool, error) {
	if !deps.ok() {
		return false, fmt.Errorf("product_defaults: missing deps")
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	marker := now().Add(-NewProductHeadStart).Unix()
	changed, err := deps.Metrics.EnsureDefaults(dbctx.Context{Ctx: ctx}, productID, marker)
	if err != nil {
		return false, fmt.Errorf("product_defaults: %w", err)
	}
	rowAdded, err := deps.Lookup.Ensure(dbctx.Context{Ctx: ctx}, productID)
	if err != nil {
		return changed, fmt.Errorf("product_defaults: lookup: %w", err)
	}
	if changed || rowAdded {
		deps.Log.Debug("product metrics defaults applied", "product_id", productID, "marker", marker)
	}
	return changed || rowAdded, nil
}

// ResetDuplicatedProduct clears inherited metrics from a copied product. Its lookup row
// is zeroed with it so the copy does not rank on the source's numbers.
func ResetDuplicatedProduct(ctx context.Context, deps ProductLifecycleDeps, productID int64) error {
	if !deps.ok() {
		return fmt.Errorf("product_duplicate: missing deps")
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := deps.Metrics.ResetForDuplicate(dbc, productID); err != nil {
		return fmt.Errorf("product_duplicate: %w", err)
	}
	if err := deps.Lookup.Upsert(dbc, &types.LookupRow{ProductID: productID}); err != nil {
		return fmt.Errorf("product_duplicate: lookup: %w", err)
	}
	return nil
}

// ForgetProducts drops metrics and lookup rows of deleted products.
func ForgetProducts(ctx context.Context, deps ProductLifecycleDeps, productIDs []int64) error {
	if !deps.ok() {
		return fmt.Errorf("product_delete: missing deps")
	}
	if len(productIDs) == 0 {
		return nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := deps.Lookup.DeleteByProductIDs(dbc, productIDs); err != nil {
		return fmt.Errorf("product_delete: lookup: %w", err)
	}
	if err := deps.Metrics.DeleteByProductIDs(dbc, productIDs); err != nil {
		return fmt.Errorf("product_delete: metrics: %w", err)
	}
	deps.Log.Debug("product metrics removed", "count", len(productIDs))
	return nil
}

type BackfillLookupOutput struct {
	Inserted int64 `json:"inserted"`
}

// BackfillLookup seeds lookup rows for every product that lacks one.
func BackfillLookup(ctx context.Context, deps ProductLifecycleDeps) (BackfillLookupOutput, error) {
	out := BackfillLookupOutput{}
	if !deps.ok() {
		return out, fmt.Errorf("lookup_backfill: missing deps")
	}
	n, err := deps.Lookup.Backfill(dbctx.Context{Ctx: ctx})
	if err != nil {
		return out, fmt.Errorf("lookup_backfill: %w", err)
	}
	out.Inserted = n
	deps.Log.Info("lookup backfill finished", "inserted", n)
	return out, nil
}
