package metrics_refresh

import (
	"context"
	"errors"
	"time"

	jobrt "github.com/yungbote/catalog-metrics/internal/jobs/runtime"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	apperrors "github.com/yungbote/catalog-metrics/internal/pkg/errors"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	started := time.Now()
	defer func() {
		p.metrics.ObserveJob(JobType, jc.Run.Status, time.Since(started))
	}()

	if p.locker != nil {
		lease, err := p.locker.TryAcquire(jc.Ctx, LockName, p.cfg.LockTTL)
		if errors.Is(err, apperrors.ErrLockHeld) {
			jc.Skip("lock held", map[string]any{"lock": LockName})
			return nil
		}
		if err != nil {
			jc.Fail("lock", err)
			return nil
		}
		defer func() {
			// Shutdown cancels jc.Ctx; the lease must still be returned.
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(jc.Ctx), 5*time.Second)
			defer cancel()
			if err := lease.Release(relCtx); err != nil {
				p.log.Warn("lock release failed", "lock", LockName, "error", err)
			}
		}()
	}

	out, err := p.uc.Refresh(jc.Ctx, catalogmetrics.RefreshInput{
		Limit:      p.cfg.BatchLimit,
		StaleAfter: p.cfg.StaleAfter,
	})
	counts := jobrt.Counts{
		Selected: out.Selected,
		Updated:  out.Updated,
		Skipped:  out.Skipped,
		Failed:   out.Failed,
	}
	p.metrics.ObserveRefreshBatch(out.Selected, out.Updated, out.Skipped, out.Failed)
	if err != nil {
		jc.FailWithCounts("refresh", err, counts, out)
		return nil
	}

	jc.Succeed(counts, out)
	return nil
}
