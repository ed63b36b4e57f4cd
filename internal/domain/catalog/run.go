package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// MetricsRefreshRun records one invocation of the refresh job.
type MetricsRefreshRun struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobType string    `gorm:"column:job_type;not null;index" json:"job_type"`
	Status  string    `gorm:"column:status;not null;index" json:"status"`

	Selected int `gorm:"column:selected;not null;default:0" json:"selected"`
	Updated  int `gorm:"column:updated;not null;default:0" json:"updated"`
	Skipped  int `gorm:"column:skipped;not null;default:0" json:"skipped"`
	Failed   int `gorm:"column:failed;not null;default:0" json:"failed"`

	Error   string         `gorm:"column:error;not null;default:''" json:"error,omitempty"`
	Summary datatypes.JSON `gorm:"column:summary" json:"summary,omitempty"`

	StartedAt  time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (MetricsRefreshRun) TableName() string { return "metrics_refresh_run" }
