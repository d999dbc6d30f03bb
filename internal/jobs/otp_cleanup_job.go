package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voucher-market/internal/logging"
)

// DefaultCleanupInterval is used when no positive interval is configured
const DefaultCleanupInterval = time.Hour

// CodeCleaner deletes stale login codes and reports how many were removed
type CodeCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// OTPCleanupJob periodically purges expired and consumed login codes
type OTPCleanupJob struct {
	cleaner  CodeCleaner
	interval time.Duration
	logger   *zap.Logger
}

// NewOTPCleanupJob creates the cleanup job
func NewOTPCleanupJob(cleaner CodeCleaner, interval time.Duration, logger *zap.Logger) *OTPCleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &OTPCleanupJob{
		cleaner:  cleaner,
		interval: interval,
		logger:   logging.OrNop(logger),
	}
}

// Run cleans up once immediately and then on every tick until ctx is cancelled.
// It always returns nil so it can run in an errgroup next to the server.
func (j *OTPCleanupJob) Run(ctx context.Context) error {
	j.logger.Info("OTP cleanup job started", zap.Duration("interval", j.interval))

	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runOnce(ctx)
		case <-ctx.Done():
			j.logger.Info("OTP cleanup job stopped")
			return nil
		}
	}
}

func (j *OTPCleanupJob) runOnce(ctx context.Context) {
	deleted, err := j.cleaner.Cleanup(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Error("OTP cleanup failed", zap.Error(err))
		}
		return
	}
	if deleted > 0 {
		j.logger.Info("Deleted stale login codes", zap.Int64("count", deleted))
	}
}
