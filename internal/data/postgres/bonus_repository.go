// Package postgres provides PostgreSQL implementations of the bonus store and the
// distributor directory. Every store failure is logged and wrapped in
// bonus.ErrRepository; nothing is retried here.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const recordColumns = "b.id, b.distributor_id, b.bonus_date, b.amount, b.status, b.payment_date, b.paid_by, b.user_id"

// BonusRepository implements the bonus.Repository interface for PostgreSQL
type BonusRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBonusRepository creates a new PostgreSQL bonus repository.
func NewBonusRepository(logger *slog.Logger, db *persistence.PostgresDB) bonus.Repository {
	return &BonusRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// FetchRecords reads one page of records. One row beyond limit is requested so
// that a truncated result can be told apart from an exact fit.
func (r *BonusRepository) FetchRecords(ctx context.Context, filter bonus.Filter, limit int) (*bonus.RecordPage, error) {
	query, args := buildFetchQuery(filter, limit)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to fetch bonus records", "range", filter.Range.String(), "error", err)
		return nil, bonus.ErrRepository{Op: "fetch bonus records", Cause: err}
	}
	defer rows.Close()

	records := make([]bonus.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan bonus record", "error", err)
			return nil, bonus.ErrRepository{Op: "scan bonus record", Cause: err}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over bonus records", "error", err)
		return nil, bonus.ErrRepository{Op: "iterate bonus records", Cause: err}
	}

	page := &bonus.RecordPage{Records: records, Limit: limit}
	if len(records) > limit {
		page.Records = records[:limit]
		page.Truncated = true
		r.logger.Warn("Bonus fetch truncated", "limit", limit, "range", filter.Range.String())
	}
	return page, nil
}

func buildFetchQuery(filter bonus.Filter, limit int) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(recordColumns)
	sb.WriteString(" FROM bonuses b WHERE b.bonus_date BETWEEN $1 AND $2")

	args := []interface{}{filter.Range.Start, filter.Range.End}
	if filter.DistributorID != "" {
		args = append(args, filter.DistributorID)
		fmt.Fprintf(&sb, " AND b.distributor_id = $%d", len(args))
	}
	if filter.GroupKey != "" {
		args = append(args, filter.GroupKey)
		fmt.Fprintf(&sb, " AND b.distributor_id IN (SELECT d.distributor_id FROM distributors d WHERE d.registered_dpc = $%d)", len(args))
	}
	args = append(args, limit+1)
	fmt.Fprintf(&sb, " ORDER BY b.bonus_date DESC, b.id DESC LIMIT $%d", len(args))

	return sb.String(), args
}

// FetchPivotTriples calls get_bonus_pivot_table. A row without a group is
// reported under bonus.UnknownLabel.
func (r *BonusRepository) FetchPivotTriples(ctx context.Context, rng bonus.DateRange, department string) ([]bonus.PivotTriple, error) {
	query := `SELECT payment_date, dpc, total_paid_bonus FROM get_bonus_pivot_table($1, $2, $3)`

	rows, err := r.querier.Query(ctx, query, rng.Start, rng.End, department)
	if err != nil {
		r.logger.Error("Failed to fetch pivot table", "department", department, "error", err)
		return nil, bonus.ErrRepository{Op: "fetch pivot table", Cause: err}
	}
	defer rows.Close()

	var triples []bonus.PivotTriple
	for rows.Next() {
		var (
			t   bonus.PivotTriple
			dpc *string
		)
		if err := rows.Scan(&t.Date, &dpc, &t.Total); err != nil {
			r.logger.Error("Failed to scan pivot row", "error", err)
			return nil, bonus.ErrRepository{Op: "scan pivot row", Cause: err}
		}
		t.GroupKey = groupOrUnknown(dpc)
		triples = append(triples, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over pivot rows", "error", err)
		return nil, bonus.ErrRepository{Op: "iterate pivot rows", Cause: err}
	}

	return triples, nil
}

// FetchDepartmentSummary calls get_bonus_summary
func (r *BonusRepository) FetchDepartmentSummary(ctx context.Context, rng bonus.DateRange, department string) ([]bonus.DepartmentSummaryRow, error) {
	query := `SELECT dpc, total_paid, total_unpaid FROM get_bonus_summary($1, $2, $3)`

	rows, err := r.querier.Query(ctx, query, rng.Start, rng.End, department)
	if err != nil {
		r.logger.Error("Failed to fetch department summary", "department", department, "error", err)
		return nil, bonus.ErrRepository{Op: "fetch department summary", Cause: err}
	}
	defer rows.Close()

	var summary []bonus.DepartmentSummaryRow
	for rows.Next() {
		var (
			row bonus.DepartmentSummaryRow
			dpc *string
		)
		if err := rows.Scan(&dpc, &row.TotalPaid, &row.TotalUnpaid); err != nil {
			r.logger.Error("Failed to scan summary row", "error", err)
			return nil, bonus.ErrRepository{Op: "scan summary row", Cause: err}
		}
		row.GroupKey = groupOrUnknown(dpc)
		summary = append(summary, row)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over summary rows", "error", err)
		return nil, bonus.ErrRepository{Op: "iterate summary rows", Cause: err}
	}

	return summary, nil
}

// UpdateStatus writes status, payment date, payer and user in a single statement.
// The self join exposes the pre-update status so callers can audit the transition.
func (r *BonusRepository) UpdateStatus(ctx context.Context, id int64, change bonus.StatusChange) (*bonus.StatusUpdate, error) {
	query := `UPDATE bonuses b SET status = $1, payment_date = $2, paid_by = $3, user_id = $4 ` +
		`FROM bonuses old WHERE b.id = old.id AND b.id = $5 ` +
		`RETURNING ` + recordColumns + `, old.status`

	var (
		rec      bonus.Record
		status   string
		previous string
	)
	err := r.querier.QueryRow(ctx, query,
		string(change.Status),
		change.PaymentDate,
		change.PaidBy,
		change.UserID,
		id,
	).Scan(
		&rec.ID,
		&rec.DistributorID,
		&rec.Date,
		&rec.Amount,
		&status,
		&rec.PaymentDate,
		&rec.PaidBy,
		&rec.UserID,
		&previous,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bonus.ErrRecordNotFound{ID: id}
		}
		r.logger.Error("Failed to update bonus status", "id", id, "status", string(change.Status), "error", err)
		return nil, bonus.ErrRepository{Op: "update bonus status", Cause: err}
	}
	rec.Status = bonus.ParseStatus(status)

	return &bonus.StatusUpdate{Record: rec, Previous: bonus.ParseStatus(previous)}, nil
}

func scanRecord(row pgx.Row) (bonus.Record, error) {
	var (
		rec    bonus.Record
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.DistributorID,
		&rec.Date,
		&rec.Amount,
		&status,
		&rec.PaymentDate,
		&rec.PaidBy,
		&rec.UserID,
	)
	if err != nil {
		return bonus.Record{}, err
	}
	rec.Status = bonus.ParseStatus(status)
	return rec, nil
}

func groupOrUnknown(dpc *string) string {
	if dpc == nil || *dpc == "" {
		return bonus.UnknownLabel
	}
	return *dpc
}
