package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/models"
)

// respondError writes the standard error body for err.
func respondError(c *gin.Context, err error) {
	scrapeErr := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized // 401
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeScoringFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
