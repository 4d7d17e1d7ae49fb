package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/metrics"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
)

// HousekeepingService periodically reports unused invitations past their
// expiry. Invitations are kept as history; nothing is deleted.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start is non-blocking and should be called after migrations have run.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep counts expired unused invitations, publishes the count as a gauge
// and returns it.
func (s *HousekeepingService) Sweep(ctx context.Context) int {
	n, err := s.Store.Invitations().CountExpired(ctx, time.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to count expired invitations", "error", err)
		return 0
	}
	metrics.InvitationsExpired.Set(float64(n))
	if n > 0 {
		s.Logger.Info("expired invitations pending", "expired_invitations", n)
	}
	return n
}
