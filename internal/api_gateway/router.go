package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/distributor-bonus-ledger/internal/api_gateway/handler"
	"github.com/distributor-bonus-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	bonusHandler *handler.BonusHandler,
	distributorHandler *handler.DistributorHandler,
) {
	r.Use(middleware.Recovery(logger, handler.RespondInternalError))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Session())

	v1 := r.Group("/api/v1")
	{
		bonuses := v1.Group("/bonuses")
		{
			bonuses.GET("", bonusHandler.List)
			bonuses.GET("/summary", bonusHandler.Summary)
			bonuses.GET("/pivot", bonusHandler.Pivot)
			bonuses.GET("/pivot/export", bonusHandler.ExportPivot)
			bonuses.POST("/:id/pay", bonusHandler.MarkPaid)
			bonuses.POST("/:id/revert", bonusHandler.Revert)
			bonuses.GET("/:id/history", bonusHandler.History)
		}

		v1.GET("/distributors", distributorHandler.Search)
		v1.GET("/groups", distributorHandler.Groups)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
