package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	"github.com/yungbote/catalog-metrics/internal/pkg/ctxutil"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

// Runner executes registered handlers by job type.
type Runner struct {
	log      *logger.Logger
	registry *Registry
	runs     repos.MetricsRefreshRunRepo
	now      func() time.Time
}

func NewRunner(baseLog *logger.Logger, registry *Registry, runs repos.MetricsRefreshRunRepo) *Runner {
	return &Runner{
		log:      baseLog.With("component", "JobRunner"),
		registry: registry,
		runs:     runs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one invocation of jobType. Handler panics are recovered and recorded as
// failures. The returned context carries the final run row.
func (r *Runner) Run(ctx context.Context, jobType string) (jc *Context, err error) {
	h, ok := r.registry.Get(jobType)
	if !ok {
		return nil, &missingHandlerError{JobType: jobType}
	}
	jc, err = NewContext(ctxutil.Default(ctx), jobType, r.runs, r.log, r.now)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Job handler panic", "job_type", jobType, "run_id", jc.Run.ID, "panic", rec)
			err = errFromRecover(rec)
			jc.Fail("panic", err)
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		// Most pipelines call jc.Fail themselves; this is a safety net.
		jc.Fail("run", runErr)
		return jc, runErr
	}
	if !jc.Done() {
		jc.Succeed(Counts{}, nil)
	}
	return jc, nil
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
