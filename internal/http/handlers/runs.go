package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	"github.com/yungbote/catalog-metrics/internal/http/response"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	apperrors "github.com/yungbote/catalog-metrics/internal/pkg/errors"
)

type RunHandler struct {
	runs repos.MetricsRefreshRunRepo
}

func NewRunHandler(runs repos.MetricsRefreshRunRepo) *RunHandler {
	return &RunHandler{runs: runs}
}

// GET /runs/:job_type/latest
func (h *RunHandler) Latest(c *gin.Context) {
	jobType := strings.TrimSpace(c.Param("job_type"))
	if jobType == "" {
		response.RespondErr(c, "load_run_failed", fmt.Errorf("job_type: %w", apperrors.ErrInvalidArgument))
		return
	}
	run, err := h.runs.GetLatest(dbctx.Context{Ctx: c.Request.Context()}, jobType)
	if err == nil && run == nil {
		err = fmt.Errorf("runs of %s: %w", jobType, apperrors.ErrNotFound)
	}
	if err != nil {
		response.RespondErr(c, "load_run_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}
