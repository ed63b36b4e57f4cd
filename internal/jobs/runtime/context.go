package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

/*
Context is the execution handle of one job invocation.
It owns the metrics_refresh_run row for the invocation and is the only way a
pipeline reports its outcome:
	- Succeed records counts and a JSON summary
	- Skip records that the run did nothing on purpose (lock held, empty batch)
	- Fail records the failing stage and error
A run row is written at most once per terminal call; later calls are ignored.
*/
type Context struct {
	Ctx  context.Context
	Run  *types.MetricsRefreshRun
	Repo repos.MetricsRefreshRunRepo
	Log  *logger.Logger

	now  func() time.Time
	done bool
}

// Counts are the per-product tallies a pipeline reports.
type Counts struct {
	Selected int
	Updated  int
	Skipped  int
	Failed   int
}

// NewContext creates the run row. A nil repo keeps the run in memory only.
func NewContext(ctx context.Context, jobType string, repo repos.MetricsRefreshRunRepo, log *logger.Logger, now func() time.Time) (*Context, error) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = logger.Nop()
	}
	run := &types.MetricsRefreshRun{
		ID:        uuid.New(),
		JobType:   jobType,
		Status:    types.RunStatusRunning,
		StartedAt: now(),
	}
	c := &Context{Ctx: ctx, Run: run, Repo: repo, Log: log.With("job_type", jobType, "run_id", run.ID.String()), now: now}
	if repo != nil {
		if _, err := repo.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}
	return c, nil
}

func (c *Context) Done() bool { return c == nil || c.done }

func (c *Context) Succeed(counts Counts, summary any) {
	c.finish(types.RunStatusSucceeded, counts, summary, "")
}

func (c *Context) Skip(reason string, summary any) {
	c.finish(types.RunStatusSkipped, Counts{}, summary, reason)
}

func (c *Context) Fail(stage string, err error) {
	msg := stage
	if err != nil {
		msg = fmt.Sprintf("%s: %v", stage, err)
	}
	c.finish(types.RunStatusFailed, Counts{}, nil, msg)
}

// FailWithCounts keeps the tallies gathered before the failure.
func (c *Context) FailWithCounts(stage string, err error, counts Counts, summary any) {
	msg := stage
	if err != nil {
		msg = fmt.Sprintf("%s: %v", stage, err)
	}
	c.finish(types.RunStatusFailed, counts, summary, msg)
}

func (c *Context) finish(status string, counts Counts, summary any, errMsg string) {
	if c == nil || c.done {
		return
	}
	c.done = true

	finished := c.now()
	c.Run.Status = status
	c.Run.Selected = counts.Selected
	c.Run.Updated = counts.Updated
	c.Run.Skipped = counts.Skipped
	c.Run.Failed = counts.Failed
	c.Run.Error = errMsg
	c.Run.FinishedAt = &finished
	if summary != nil {
		if raw, err := json.Marshal(summary); err == nil {
			c.Run.Summary = datatypes.JSON(raw)
		} else {
			c.Log.Warn("run summary not serializable", "error", err)
		}
	}

	if status == types.RunStatusFailed {
		c.Log.Warn("job failed", "error", errMsg)
	} else {
		c.Log.Debug("job finished", "status", status, "selected", counts.Selected, "updated", counts.Updated)
	}

	if c.Repo == nil {
		return
	}
	updates := map[string]interface{}{
		"status":      status,
		"selected":    counts.Selected,
		"updated":     counts.Updated,
		"skipped":     counts.Skipped,
		"failed":      counts.Failed,
		"error":       errMsg,
		"finished_at": finished,
	}
	if len(c.Run.Summary) > 0 {
		updates["summary"] = c.Run.Summary
	}
	// The job's own context may already be cancelled; the outcome still gets recorded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Ctx), 5*time.Second)
	defer cancel()
	if err := c.Repo.UpdateFields(dbctx.Context{Ctx: ctx}, c.Run.ID, updates); err != nil {
		c.Log.Error("failed to record run outcome", "status", status, "error", err)
	}
}
