package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/distributor-bonus-ledger/internal/reporting/session"
)

const (
	UserIDHeader     = "X-User-ID"
	UsernameHeader   = "X-Username"
	DepartmentHeader = "X-Department"

	// SessionKey is the key used to store the session user in the context
	SessionKey = "session_user"
)

// Session reads the identity set by the upstream auth proxy. Absent headers are
// not rejected here; operations that need an attribute fail on their own.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := session.Static{
			Department: c.GetHeader(DepartmentHeader),
			UserID:     c.GetHeader(UserIDHeader),
			Username:   c.GetHeader(UsernameHeader),
		}
		c.Set(SessionKey, user)

		c.Next()
	}
}

// GetSession returns the session user, or an empty one when the middleware did not run
func GetSession(c *gin.Context) session.User {
	if v, exists := c.Get(SessionKey); exists {
		if user, ok := v.(session.User); ok {
			return user
		}
	}
	return session.Static{}
}
