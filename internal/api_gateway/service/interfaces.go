package service

import (
	"context"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
	"github.com/distributor-bonus-ledger/internal/engine"
	reporting "github.com/distributor-bonus-ledger/internal/reporting/service"
	"github.com/distributor-bonus-ledger/internal/reporting/session"
)

// BonusService defines the reporting operations exposed over HTTP.
// The gateway is stateless, so no live projection is ever passed in.
type BonusService interface {
	// FetchRecords returns the enriched, sorted records of a range with their totals
	FetchRecords(ctx context.Context, q reporting.Query, view *engine.Projection) (*reporting.FetchResult, error)

	// FetchPivot returns the paid-per-day pivot of the user's department
	// Returns ErrMissingContext without a department and ErrInvalidDateRange without explicit bounds
	FetchPivot(ctx context.Context, user session.User, start, end string, dense bool) (*engine.PivotTable, error)

	FetchDepartmentSummary(ctx context.Context, user session.User, start, end string) ([]bonus.DepartmentSummaryRow, error)

	// SetStatus marks a record paid or unpaid and returns the persisted row
	// Returns ErrRecordNotFound if no row has the id
	SetStatus(ctx context.Context, user session.User, id int64, target bonus.Status, view *engine.Projection) (*bonus.EnrichedRecord, error)

	StatusHistory(ctx context.Context, id int64, limit int) ([]*bonus.StatusAudit, error)

	SearchDistributors(ctx context.Context, term string, limit int) ([]distributor.Distributor, error)

	ListGroups(ctx context.Context, user session.User) ([]distributor.Group, error)
}

var _ BonusService = (*reporting.BonusService)(nil)
