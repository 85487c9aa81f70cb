package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/store"
)

// HousekeepingService periodically prunes import history older than
// Retention. Invite tokens are kept forever as an audit trail and are not
// touched here.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Clock     Clock

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// DefaultImportHistoryRetention is used when no retention is configured.
const DefaultImportHistoryRetention = 180 * 24 * time.Hour

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(
	store store.Store,
	logger *slog.Logger,
	interval, retention time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultImportHistoryRetention
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes import runs that finished before the retention cutoff.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := s.Clock.now().Add(-s.Retention)

	n, err := s.Store.ImportRuns().DeleteImportRunsBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune import history", "error", err)
		return
	}

	s.Logger.Info("housekeeping cleanup completed", "deleted_import_runs", n, "cutoff", cutoff)
}
