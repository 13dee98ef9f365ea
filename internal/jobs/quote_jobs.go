package jobs

import (
	"context"

	"medequip-marketplace/internal/logger"
)

// ExpireQuotes moves pending quotes past their validUntil to expired.
func (jr *JobRunner) ExpireQuotes() error {
	return jr.runWithRecovery("ExpireQuotes", func(ctx context.Context) error {
		n, err := jr.services.Quotes.Expire(ctx)
		if err != nil {
			return err
		}
		logger.Info("Expired pending quotes", "count", n)
		return nil
	})
}
