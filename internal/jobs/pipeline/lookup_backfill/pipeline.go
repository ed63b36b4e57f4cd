package lookup_backfill

import (
	"time"

	jobrt "github.com/yungbote/catalog-metrics/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	started := time.Now()
	defer func() {
		p.metrics.ObserveJob(JobType, jc.Run.Status, time.Since(started))
	}()

	out, err := p.uc.BackfillLookup(jc.Ctx)
	if err != nil {
		jc.Fail("backfill", err)
		return nil
	}
	p.metrics.AddBackfilledRows(out.Inserted)
	jc.Succeed(jobrt.Counts{Updated: int(out.Inserted)}, out)
	return nil
}
