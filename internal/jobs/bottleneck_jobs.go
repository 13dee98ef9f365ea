package jobs

import (
	"context"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
)

// ReportBottlenecks counts non-terminal requests untouched for longer than the
// bottleneck threshold and publishes the count as a gauge.
func (jr *JobRunner) ReportBottlenecks() error {
	return jr.runWithRecovery("ReportBottlenecks", func(ctx context.Context) error {
		cutoff := jr.now().Add(-domain.BottleneckThreshold)
		stale, err := jr.store.ServiceRequests().ListStale(ctx, cutoff, 0)
		if err != nil {
			return err
		}
		metrics.Bottlenecks(len(stale))
		logger.Info("Bottleneck report", "count", len(stale), "cutoff", cutoff)

		for _, sr := range stale {
			logger.Debug("Stale service request",
				"service_request_id", sr.ID,
				"organization_id", sr.OrganizationID,
				"status", sr.Status,
				"updated_at", sr.UpdatedAt)
		}
		return nil
	})
}
