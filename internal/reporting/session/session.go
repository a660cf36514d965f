// Package session describes the authenticated user as seen by the reporting
// service. Authentication itself happens upstream.
package session

import (
	"context"
	"strings"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
)

// User exposes the attributes of the current session. The boolean is false when
// the attribute is absent.
type User interface {
	CurrentDepartment() (string, bool)
	CurrentUserID() (string, bool)
	CurrentUsername() (string, bool)
}

// Static is a User with fixed attributes; blank values count as absent.
type Static struct {
	Department string
	UserID     string
	Username   string
}

func (s Static) CurrentDepartment() (string, bool) { return present(s.Department) }
func (s Static) CurrentUserID() (string, bool)     { return present(s.UserID) }
func (s Static) CurrentUsername() (string, bool)   { return present(s.Username) }

func present(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}

// RequireDepartment returns the department or bonus.ErrMissingContext.
func RequireDepartment(u User) (string, error) {
	if u == nil {
		return "", bonus.ErrMissingContext{Field: "department"}
	}
	dept, ok := u.CurrentDepartment()
	if !ok {
		return "", bonus.ErrMissingContext{Field: "department"}
	}
	return dept, nil
}

// RequireActor returns the acting user; both id and username must be present.
func RequireActor(u User) (bonus.Actor, error) {
	if u == nil {
		return bonus.Actor{}, bonus.ErrMissingContext{Field: "user id"}
	}
	id, ok := u.CurrentUserID()
	if !ok {
		return bonus.Actor{}, bonus.ErrMissingContext{Field: "user id"}
	}
	name, ok := u.CurrentUsername()
	if !ok {
		return bonus.Actor{}, bonus.ErrMissingContext{Field: "username"}
	}
	return bonus.Actor{ID: id, Username: name}, nil
}

type correlationKey struct{}

// WithCorrelationID attaches a request correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
