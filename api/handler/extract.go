package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealscout/dealscout/models"
	"github.com/dealscout/dealscout/pipeline"
)

// Extract returns a handler for POST /api/v1/extract.
//
// The pipeline always yields a product, so the only failure mode here is
// a malformed request body.
func Extract(orch *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(req.Timeout)*time.Second)
		defer cancel()

		var (
			rec    *models.ProductRecord
			cached bool
		)
		if req.NoCache {
			rec = orch.ExtractFresh(ctx, req.URL)
		} else {
			rec, cached = orch.Extract(ctx, req.URL)
		}

		status := "miss"
		if cached {
			status = "hit"
		}
		c.JSON(http.StatusOK, models.ExtractResponse{
			Success:     true,
			Product:     rec,
			CacheStatus: status,
			Timing: models.TimingInfo{
				TotalMs: time.Since(start).Milliseconds(),
			},
		})
	}
}
