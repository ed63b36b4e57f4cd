package steps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

// Trailing windows, in days.
const (
	ShortWindow = 7
	LongWindow  = 30
)

// SalesWindow is one product's totals over a trailing window.
type SalesWindow struct {
	Units   int64
	Revenue decimal.Decimal
	Cost    decimal.Decimal
}

func (w SalesWindow) Profit() decimal.Decimal { return w.Revenue.Sub(w.Cost) }

// Total is revenue floored to whole currency units.
func (w SalesWindow) Total() int64 { return w.Revenue.Floor().IntPart() }

// FlooredProfit is profit floored to whole currency units.
func (w SalesWindow) FlooredProfit() int64 { return w.Profit().Floor().IntPart() }

type windowResult struct {
	rows  map[int64]SalesWindow
	found bool
}

// SalesAggregator answers per-window sales questions for the lifetime of one refresh run.
// Each window is queried once; later calls reuse the result until Reset.
type SalesAggregator struct {
	orders repos.OrderLineRepo
	log    *logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	memo map[int]windowResult
}

func NewSalesAggregator(orders repos.OrderLineRepo, baseLog *logger.Logger, now func() time.Time) *SalesAggregator {
	if now == nil {
		now = time.Now
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &SalesAggregator{
		orders: orders,
		log:    baseLog.With("step", "sales_aggregate"),
		now:    now,
		memo:   map[int]windowResult{},
	}
}

// WindowStart is the start of the UTC day that lies days before now.
func WindowStart(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// Aggregate returns per-product totals for the trailing window. found is false when no
// qualifying order line falls inside the window.
func (a *SalesAggregator) Aggregate(ctx context.Context, days int) (map[int64]SalesWindow, bool, error) {
	if a == nil || a.orders == nil {
		return nil, false, fmt.Errorf("sales_aggregate: missing deps")
	}
	if days <= 0 {
		return nil, false, fmt.Errorf("sales_aggregate: window must be positive, got %d", days)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if res, ok := a.memo[days]; ok {
		return res.rows, res.found, nil
	}

	since := WindowStart(a.now(), days)
	rows, err := a.orders.AggregateSales(dbctx.Context{Ctx: ctx}, types.CountedOrderStatuses, since)
	if err != nil {
		return nil, false, fmt.Errorf("aggregate %dd sales: %w", days, err)
	}

	res := windowResult{rows: make(map[int64]SalesWindow, len(rows)), found: len(rows) > 0}
	for _, r := range rows {
		res.rows[r.ProductID] = SalesWindow{Units: r.Units, Revenue: r.Revenue, Cost: r.Cost}
	}
	a.memo[days] = res
	a.log.Debug("sales window loaded", "days", days, "since", since, "products", len(res.rows))
	return res.rows, res.found, nil
}

// Reset drops memoized windows so the next Aggregate re-reads storage.
func (a *SalesAggregator) Reset() {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.memo = map[int]windowResult{}
	a.mu.Unlock()
}

// SalesFieldsFor loads both windows and projects one product's write-back.
// Windows without data for the product yield zeros.
func (a *SalesAggregator) SalesFieldsFor(ctx context.Context, productID int64) (types.SalesFields, error) {
	out := types.SalesFields{}
	short, err := a.windowFor(ctx, ShortWindow, productID)
	if err != nil {
		return out, err
	}
	long, err := a.windowFor(ctx, LongWindow, productID)
	if err != nil {
		return out, err
	}
	out.Sales7, out.Total7, out.Profit7 = short.Units, short.Total(), short.FlooredProfit()
	out.Sales30, out.Total30, out.Profit30 = long.Units, long.Total(), long.FlooredProfit()
	return out, nil
}

func (a *SalesAggregator) windowFor(ctx context.Context, days int, productID int64) (SalesWindow, error) {
	rows, found, err := a.Aggregate(ctx, days)
	if err != nil {
		return SalesWindow{}, err
	}
	if !found {
		return SalesWindow{}, nil
	}
	return rows[productID], nil
}
