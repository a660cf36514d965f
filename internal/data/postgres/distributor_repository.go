package postgres

import (
	"context"
	"log/slog"
	"strings"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
	"github.com/distributor-bonus-ledger/internal/platform/persistence"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DistributorRepository serves the distributor directory and the DPC catalog.
type DistributorRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewDistributorRepository creates a new PostgreSQL distributor repository.
func NewDistributorRepository(logger *slog.Logger, db *persistence.PostgresDB) *DistributorRepository {
	return &DistributorRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

var (
	_ distributor.Directory = (*DistributorRepository)(nil)
	_ distributor.Catalog   = (*DistributorRepository)(nil)
)

// GetByIDs resolves distributors in one round trip. Ids without a row are absent
// from the result.
func (r *DistributorRepository) GetByIDs(ctx context.Context, ids []string) ([]distributor.Distributor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT distributor_id, name, position, COALESCE(registered_dpc, '') FROM distributors WHERE distributor_id = ANY($1)`

	return r.queryDistributors(ctx, "get distributors", query, ids)
}

// Search matches the term against names and ids, case-insensitively.
func (r *DistributorRepository) Search(ctx context.Context, term string, limit int) ([]distributor.Distributor, error) {
	query := `SELECT distributor_id, name, position, COALESCE(registered_dpc, '') FROM distributors ` +
		`WHERE name ILIKE $1 OR distributor_id ILIKE $1 ORDER BY name, distributor_id LIMIT $2`

	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
	return r.queryDistributors(ctx, "search distributors", query, pattern, limit)
}

func (r *DistributorRepository) queryDistributors(ctx context.Context, op, query string, args ...interface{}) ([]distributor.Distributor, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query distributors", "op", op, "error", err)
		return nil, bonus.ErrRepository{Op: op, Cause: err}
	}
	defer rows.Close()

	var result []distributor.Distributor
	for rows.Next() {
		var d distributor.Distributor
		if err := rows.Scan(&d.ID, &d.Name, &d.Position, &d.GroupKey); err != nil {
			r.logger.Error("Failed to scan distributor", "error", err)
			return nil, bonus.ErrRepository{Op: "scan distributor", Cause: err}
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over distributors", "error", err)
		return nil, bonus.ErrRepository{Op: "iterate distributors", Cause: err}
	}

	return result, nil
}

// GroupsByDepartment lists the DPCs of a department ordered by code
func (r *DistributorRepository) GroupsByDepartment(ctx context.Context, department string) ([]distributor.Group, error) {
	query := `SELECT dpc_code, dpc_name, department FROM dpcs WHERE department = $1 ORDER BY dpc_code`

	rows, err := r.querier.Query(ctx, query, department)
	if err != nil {
		r.logger.Error("Failed to list groups", "department", department, "error", err)
		return nil, bonus.ErrRepository{Op: "list groups", Cause: err}
	}
	defer rows.Close()

	var groups []distributor.Group
	for rows.Next() {
		var g distributor.Group
		if err := rows.Scan(&g.Code, &g.Name, &g.Department); err != nil {
			r.logger.Error("Failed to scan group", "error", err)
			return nil, bonus.ErrRepository{Op: "scan group", Cause: err}
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over groups", "error", err)
		return nil, bonus.ErrRepository{Op: "iterate groups", Cause: err}
	}

	return groups, nil
}
