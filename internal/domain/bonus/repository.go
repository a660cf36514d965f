package bonus

import "context"

// StatusUpdate is the authoritative row after a status write plus the status it replaced.
type StatusUpdate struct {
	Record   Record
	Previous Status
}

// Repository is the bonus store. Implementations wrap every store failure in
// ErrRepository and never retry.
type Repository interface {
	// FetchRecords returns records in filter.Range, newest first, bounded by limit.
	// filter.GroupKey is resolved through the distributor's registered group.
	FetchRecords(ctx context.Context, filter Filter, limit int) (*RecordPage, error)

	// FetchPivotTriples returns paid totals per (payment date, group) for a department.
	FetchPivotTriples(ctx context.Context, rng DateRange, department string) ([]PivotTriple, error)

	// FetchDepartmentSummary returns paid and unpaid totals per group for a department.
	FetchDepartmentSummary(ctx context.Context, rng DateRange, department string) ([]DepartmentSummaryRow, error)

	// UpdateStatus writes all fields of change in one statement.
	// Returns ErrRecordNotFound when no row has the id.
	UpdateStatus(ctx context.Context, id int64, change StatusChange) (*StatusUpdate, error)
}
