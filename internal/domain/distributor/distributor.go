// Package distributor describes the read-only distributor directory that bonus
// records are joined against.
package distributor

import "context"

// Distributor is a directory entry. GroupKey is the registered DPC and may be empty.
type Distributor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	GroupKey string `json:"group_key"`
}

// Group is a DPC known to a department.
type Group struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

// Directory resolves distributors by id. Unknown ids are simply absent from the result.
type Directory interface {
	GetByIDs(ctx context.Context, ids []string) ([]Distributor, error)
}

// Catalog serves the listing queries of the directory
type Catalog interface {
	Search(ctx context.Context, term string, limit int) ([]Distributor, error)
	GroupsByDepartment(ctx context.Context, department string) ([]Group, error)
}
