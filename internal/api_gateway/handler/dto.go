package handler

import (
	"time"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/currency"
	"github.com/distributor-bonus-ledger/internal/engine"
)

// ListBonusesQuery represents the query string of the bonus list
type ListBonusesQuery struct {
	Start         string `form:"start"`
	End           string `form:"end"`
	DistributorID string `form:"distributor_id"`
	GroupKey      string `form:"group"`
	Limit         int    `form:"limit" binding:"omitempty,min=1"`
	Currency      string `form:"currency"`
}

// RangeQuery represents the date bounds of summary and pivot endpoints
type RangeQuery struct {
	Start    string `form:"start"`
	End      string `form:"end"`
	Dense    bool   `form:"dense"`
	Currency string `form:"currency"`
}

// HistoryQuery bounds the status history listing
type HistoryQuery struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=500"`
}

// SearchQuery represents a distributor search
type SearchQuery struct {
	Term  string `form:"q"`
	Limit int    `form:"limit" binding:"omitempty,min=1"`
}

// BonusResponse represents an enriched bonus record in API responses
type BonusResponse struct {
	ID             int64   `json:"id"`
	DistributorID  string  `json:"distributor_id"`
	EntityName     string  `json:"entity_name"`
	EntityPosition string  `json:"entity_position"`
	GroupKey       *string `json:"group_key"`
	Date           string  `json:"date"`
	Amount         int64   `json:"amount"`
	Status         string  `json:"status"`
	PaymentDate    *string `json:"payment_date"`
	PaidBy         *string `json:"paid_by"`
	UserID         *string `json:"user_id,omitempty"`
}

// SummaryResponse holds paid and unpaid totals
type SummaryResponse struct {
	TotalPaid   int64 `json:"total_paid"`
	TotalUnpaid int64 `json:"total_unpaid"`
}

// GroupSummaryResponse holds the totals of one DPC
type GroupSummaryResponse struct {
	GroupKey    string `json:"group_key"`
	TotalPaid   int64  `json:"total_paid"`
	TotalUnpaid int64  `json:"total_unpaid"`
	Count       int    `json:"count,omitempty"`
}

// BonusListResponse represents a fetch result in API responses
type BonusListResponse struct {
	Start    string                 `json:"start"`
	End      string                 `json:"end"`
	Currency string                 `json:"currency"`
	Records  []BonusResponse        `json:"records"`
	Summary  SummaryResponse        `json:"summary"`
	Groups   []GroupSummaryResponse `json:"groups"`
}

// DepartmentSummaryResponse represents the per-DPC totals of a department
type DepartmentSummaryResponse struct {
	Currency string                 `json:"currency"`
	Groups   []GroupSummaryResponse `json:"groups"`
}

// PivotResponse represents a pivot table; Rows maps date to group totals
type PivotResponse struct {
	Currency string                      `json:"currency"`
	Dates    []string                    `json:"dates"`
	Columns  []string                    `json:"columns"`
	Rows     map[string]map[string]int64 `json:"rows"`
}

// StatusAuditResponse represents one status history entry
type StatusAuditResponse struct {
	AuditID       string `json:"audit_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	ActorID       string `json:"actor_id"`
	ActorName     string `json:"actor_name"`
	PaymentDate   string `json:"payment_date"`
	CorrelationID string `json:"correlation_id,omitempty"`
	RecordedAt    string `json:"recorded_at"`
}

// AmountConverter converts minor-unit amounts into the requested display currency
type AmountConverter interface {
	Convert(amount int64, to currency.Type) int64
}

func mapRecordToResponse(r bonus.EnrichedRecord, conv AmountConverter, cur currency.Type) BonusResponse {
	resp := BonusResponse{
		ID:             r.ID,
		DistributorID:  r.DistributorID,
		EntityName:     r.EntityName,
		EntityPosition: r.EntityPosition,
		GroupKey:       r.GroupKey,
		Date:           r.Date.Format(bonus.DateLayout),
		Amount:         conv.Convert(r.Amount, cur),
		Status:         string(r.Status),
		PaidBy:         r.PaidBy,
		UserID:         r.UserID,
	}
	if r.PaymentDate != nil {
		paid := r.PaymentDate.Format(time.RFC3339)
		resp.PaymentDate = &paid
	}
	return resp
}

func mapGroupsToResponse(groups []engine.GroupSummary, conv AmountConverter, cur currency.Type) []GroupSummaryResponse {
	out := make([]GroupSummaryResponse, len(groups))
	for i, g := range groups {
		out[i] = GroupSummaryResponse{
			GroupKey:    g.GroupKey,
			TotalPaid:   conv.Convert(g.TotalPaid, cur),
			TotalUnpaid: conv.Convert(g.TotalUnpaid, cur),
			Count:       g.Count,
		}
	}
	return out
}

func mapDepartmentSummaryToResponse(rows []bonus.DepartmentSummaryRow, conv AmountConverter, cur currency.Type) DepartmentSummaryResponse {
	groups := make([]GroupSummaryResponse, len(rows))
	for i, row := range rows {
		groups[i] = GroupSummaryResponse{
			GroupKey:    row.GroupKey,
			TotalPaid:   conv.Convert(row.TotalPaid, cur),
			TotalUnpaid: conv.Convert(row.TotalUnpaid, cur),
		}
	}
	return DepartmentSummaryResponse{Currency: string(cur), Groups: groups}
}

// convertPivot copies table with every cell converted to cur
func convertPivot(table engine.PivotTable, conv AmountConverter, cur currency.Type) engine.PivotTable {
	rows := make(map[string]map[string]int64, len(table.Rows))
	for date, row := range table.Rows {
		converted := make(map[string]int64, len(row))
		for key, total := range row {
			converted[key] = conv.Convert(total, cur)
		}
		rows[date] = converted
	}
	return engine.PivotTable{Rows: rows}
}

func mapAuditToResponse(entries []*bonus.StatusAudit) []StatusAuditResponse {
	out := make([]StatusAuditResponse, len(entries))
	for i, e := range entries {
		out[i] = StatusAuditResponse{
			AuditID:       e.AuditID,
			FromStatus:    string(e.FromStatus),
			ToStatus:      string(e.ToStatus),
			ActorID:       e.ActorID,
			ActorName:     e.ActorName,
			PaymentDate:   e.PaymentDate.Format(time.RFC3339),
			CorrelationID: e.CorrelationID,
			RecordedAt:    e.RecordedAt.Format(time.RFC3339),
		}
	}
	return out
}

func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
