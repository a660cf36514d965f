package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/distributor-bonus-ledger/internal/api_gateway/middleware"
	"github.com/distributor-bonus-ledger/internal/api_gateway/service"
	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/currency"
	"github.com/distributor-bonus-ledger/internal/reporting/export"
	reporting "github.com/distributor-bonus-ledger/internal/reporting/service"
)

// BonusHandler handles HTTP requests for bonus records, reports and status edits
type BonusHandler struct {
	bonusService service.BonusService
	converter    AmountConverter
	logger       *slog.Logger
}

// NewBonusHandler creates a new bonus handler
func NewBonusHandler(logger *slog.Logger, bonusService service.BonusService, converter AmountConverter) *BonusHandler {
	return &BonusHandler{
		bonusService: bonusService,
		converter:    converter,
		logger:       logger,
	}
}

// List returns the enriched records of a range sorted by distributor name, with totals
func (h *BonusHandler) List(c *gin.Context) {
	var q ListBonusesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.Warn("Invalid bonus query", "error", err)
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	cur := currency.ParseType(q.Currency)

	result, err := h.bonusService.FetchRecords(c.Request.Context(), reporting.Query{
		Start:         q.Start,
		End:           q.End,
		DistributorID: q.DistributorID,
		GroupKey:      q.GroupKey,
		Limit:         q.Limit,
	}, nil)
	if err != nil {
		RespondServiceError(c, h.logger, "list bonuses", err)
		return
	}

	records := make([]BonusResponse, len(result.Records))
	for i, r := range result.Records {
		records[i] = mapRecordToResponse(r, h.converter, cur)
	}
	response := BonusListResponse{
		Start:    result.Range.Start.Format(bonus.DateLayout),
		End:      result.Range.End.Format(bonus.DateLayout),
		Currency: string(cur),
		Records:  records,
		Summary: SummaryResponse{
			TotalPaid:   h.converter.Convert(result.Summary.TotalPaid, cur),
			TotalUnpaid: h.converter.Convert(result.Summary.TotalUnpaid, cur),
		},
		Groups: mapGroupsToResponse(result.Groups, h.converter, cur),
	}
	RespondWithList(c, response, len(records), q.Limit, result.Truncated)
}

// Summary returns the store-side per-DPC totals of the caller's department
func (h *BonusHandler) Summary(c *gin.Context) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	cur := currency.ParseType(q.Currency)

	rows, err := h.bonusService.FetchDepartmentSummary(c.Request.Context(), middleware.GetSession(c), q.Start, q.End)
	if err != nil {
		RespondServiceError(c, h.logger, "department summary", err)
		return
	}

	RespondOK(c, mapDepartmentSummaryToResponse(rows, h.converter, cur))
}

// Pivot returns the paid totals per payment date and DPC
func (h *BonusHandler) Pivot(c *gin.Context) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	cur := currency.ParseType(q.Currency)

	table, err := h.bonusService.FetchPivot(c.Request.Context(), middleware.GetSession(c), q.Start, q.End, q.Dense)
	if err != nil {
		RespondServiceError(c, h.logger, "pivot", err)
		return
	}

	converted := convertPivot(*table, h.converter, cur)
	RespondOK(c, PivotResponse{
		Currency: string(cur),
		Dates:    converted.Dates(),
		Columns:  converted.Columns(),
		Rows:     converted.Rows,
	})
}

// ExportPivot streams the pivot as an XLSX workbook
func (h *BonusHandler) ExportPivot(c *gin.Context) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	cur := currency.ParseType(q.Currency)

	table, err := h.bonusService.FetchPivot(c.Request.Context(), middleware.GetSession(c), q.Start, q.End, q.Dense)
	if err != nil {
		RespondServiceError(c, h.logger, "export pivot", err)
		return
	}

	var buf bytes.Buffer
	if err := export.PivotXLSX(convertPivot(*table, h.converter, cur), &buf); err != nil {
		h.logger.Error("Failed to render pivot workbook", "error", err)
		RespondInternalError(c)
		return
	}

	filename := fmt.Sprintf("bonus-pivot-%s-%s.xlsx", q.Start, q.End)
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// MarkPaid marks a record paid by the caller
func (h *BonusHandler) MarkPaid(c *gin.Context) {
	h.setStatus(c, bonus.StatusPaid)
}

// Revert sets a record back to unpaid
func (h *BonusHandler) Revert(c *gin.Context) {
	h.setStatus(c, bonus.StatusUnpaid)
}

func (h *BonusHandler) setStatus(c *gin.Context, target bonus.Status) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	rec, err := h.bonusService.SetStatus(c.Request.Context(), middleware.GetSession(c), id, target, nil)
	if err != nil {
		RespondServiceError(c, h.logger, "set bonus status", err)
		return
	}

	RespondOK(c, mapRecordToResponse(*rec, h.converter, currency.ParseType(c.Query("currency"))))
}

// History lists the status transitions of a record, newest first
func (h *BonusHandler) History(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	entries, err := h.bonusService.StatusHistory(c.Request.Context(), id, q.Limit)
	if err != nil {
		RespondServiceError(c, h.logger, "status history", err)
		return
	}

	RespondWithList(c, mapAuditToResponse(entries), len(entries), q.Limit, false)
}

func (h *BonusHandler) parseID(c *gin.Context) (int64, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Warn("Invalid bonus ID", "id", idParam)
		RespondBadRequest(c, "Invalid bonus ID")
		return 0, false
	}
	return id, true
}
