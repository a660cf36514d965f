package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	envelope := func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          gin.H{"code": "INTERNAL_SERVER_ERROR"},
			"correlation_id": GetCorrelationID(c),
		})
	}

	t.Run("panic is logged with the session and answered by respond", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logs, nil))

		r := gin.New()
		r.Use(Recovery(logger, envelope), CorrelationID(), Session())
		r.POST("/api/v1/bonuses/:id/pay", func(c *gin.Context) {
			panic("nil directory")
		})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bonuses/7/pay", nil)
		req.Header.Set(CorrelationIDHeader, "corr-1")
		req.Header.Set(DepartmentHeader, "Sales")
		req.Header.Set(UserIDHeader, "u-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "corr-1", body["correlation_id"])
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body["error"].(map[string]interface{})["code"])

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
		assert.Equal(t, "Panic recovered", entry["msg"])
		assert.Equal(t, "nil directory", entry["error"])
		assert.Equal(t, "/api/v1/bonuses/:id/pay", entry["route"])
		assert.Equal(t, "/api/v1/bonuses/7/pay", entry["path"])
		assert.Equal(t, "corr-1", entry["correlation_id"])
		assert.Equal(t, "Sales", entry["department"])
		assert.Equal(t, "u-1", entry["user_id"])
		assert.NotEmpty(t, entry["stack"])
	})

	t.Run("nil respond sends the status only", func(t *testing.T) {
		r := gin.New()
		r.Use(Recovery(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)), nil))
		r.GET("/panic", func(c *gin.Context) { panic("boom") })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("no panic no log", func(t *testing.T) {
		var logs bytes.Buffer
		r := gin.New()
		r.Use(Recovery(slog.New(slog.NewJSONHandler(&logs, nil)), envelope))
		r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, logs.String())
	})
}
