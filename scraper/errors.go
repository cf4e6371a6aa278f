package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/eduminer/models"
)

// categorizeError maps a browser error to a ScrapeError, separating
// timeouts from other navigation failures.
func categorizeError(err error, code, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(code, msg, err)
	}
}
