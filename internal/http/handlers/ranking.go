package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catalog-metrics/internal/http/response"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics/ordering"
)

type RankingHandler struct {
	uc catalogmetrics.Usecases
}

func NewRankingHandler(uc catalogmetrics.Usecases) *RankingHandler {
	return &RankingHandler{uc: uc}
}

// GET /ranking/options
func (h *RankingHandler) Options(c *gin.Context) {
	response.RespondOK(c, gin.H{"options": ordering.DropdownOptions(nil)})
}

// GET /ranking/:key?limit=20
func (h *RankingHandler) Rank(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.uc.Rank(c.Request.Context(), catalogmetrics.RankInput{
		Key:   c.Param("key"),
		Limit: limit,
	})
	if err != nil {
		response.RespondErr(c, "rank_failed", err)
		return
	}
	response.RespondOK(c, out)
}
