package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/distributor-bonus-ledger/internal/api_gateway/middleware"
	"github.com/distributor-bonus-ledger/internal/api_gateway/service"
)

// DistributorHandler serves the directory listings: distributor search and DPCs
type DistributorHandler struct {
	bonusService service.BonusService
	logger       *slog.Logger
}

// NewDistributorHandler creates a new distributor handler
func NewDistributorHandler(logger *slog.Logger, bonusService service.BonusService) *DistributorHandler {
	return &DistributorHandler{
		bonusService: bonusService,
		logger:       logger,
	}
}

// Search matches distributors by name or id
func (h *DistributorHandler) Search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	result, err := h.bonusService.SearchDistributors(c.Request.Context(), q.Term, q.Limit)
	if err != nil {
		RespondServiceError(c, h.logger, "search distributors", err)
		return
	}

	result = emptyIfNil(result)
	RespondWithList(c, result, len(result), q.Limit, false)
}

// Groups lists the DPCs of the caller's department
func (h *DistributorHandler) Groups(c *gin.Context) {
	groups, err := h.bonusService.ListGroups(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		RespondServiceError(c, h.logger, "list groups", err)
		return
	}

	groups = emptyIfNil(groups)
	RespondWithList(c, groups, len(groups), 0, false)
}
