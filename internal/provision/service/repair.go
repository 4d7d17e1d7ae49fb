package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/metrics"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
)

const (
	DefaultRepairInterval    = time.Minute
	DefaultRepairMaxAttempts = 10
	repairBatchSize          = 50
	repairBaseDelay          = 30 * time.Second
	repairMaxDelay           = 6 * time.Hour
)

// RepairService replays profile and role writes that failed after their
// identity was created. Replays never overwrite rows written since. A task is closed when the replay succeeds or when
// its attempt budget is spent; the last error stays on the row.
type RepairService struct {
	Store       store.Store
	Logger      *slog.Logger
	Interval    time.Duration
	MaxAttempts int

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewRepairService(s store.Store, logger *slog.Logger, interval time.Duration, maxAttempts int) *RepairService {
	if interval <= 0 {
		interval = DefaultRepairInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultRepairMaxAttempts
	}
	return &RepairService{
		Store:       s,
		Logger:      logger,
		Interval:    interval,
		MaxAttempts: maxAttempts,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

func (s *RepairService) Start() {
	go s.run()
	s.Logger.Info("repair service started", "interval", s.Interval, "max_attempts", s.MaxAttempts)
}

// Stop blocks until an in-progress pass has finished.
func (s *RepairService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("repair service stopped")
}

func (s *RepairService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce processes every task due now and returns how many were repaired.
func (s *RepairService) RunOnce(ctx context.Context) int {
	now := time.Now().UTC()
	tasks, err := s.Store.RepairTasks().ListDue(ctx, now, repairBatchSize)
	if err != nil {
		s.Logger.Error("failed to list repair tasks", "error", err)
		return 0
	}

	repaired := 0
	for _, t := range tasks {
		if s.repair(ctx, t, now) {
			repaired++
		}
	}

	if open, err := s.Store.RepairTasks().CountOpen(ctx); err == nil {
		metrics.RepairTasksOpen.Set(float64(open))
	}
	if len(tasks) > 0 {
		s.Logger.Info("repair pass completed", "due", len(tasks), "repaired", repaired)
	}
	return repaired
}

func (s *RepairService) repair(ctx context.Context, t domain.RepairTask, now time.Time) bool {
	l := s.Logger.With("task_id", t.ID, "user_id", t.UserID, "kind", t.Kind)

	var p domain.RepairPayload
	err := json.Unmarshal(t.Payload, &p)
	if err == nil {
		err = replayProfileAndRole(ctx, s.Store, p.Profile, p.Assignment)
	}
	if err == nil {
		if err := s.Store.RepairTasks().MarkDone(ctx, t.ID, now); err != nil {
			l.Error("failed to close repaired task", "error", err)
		}
		metrics.RecordRepair(metrics.RepairRepaired)
		l.Info("profile and role repaired")
		return true
	}

	attempt := t.Attempts + 1
	next := now.Add(repairDelay(attempt))
	if rerr := s.Store.RepairTasks().RecordFailure(ctx, t.ID, err.Error(), next); rerr != nil {
		l.Error("failed to record repair failure", "error", rerr)
		return false
	}

	if attempt >= s.MaxAttempts {
		if derr := s.Store.RepairTasks().MarkDone(ctx, t.ID, now); derr != nil {
			l.Error("failed to abandon repair task", "error", derr)
		}
		metrics.RecordRepair(metrics.RepairAbandoned)
		l.Error("repair abandoned", "attempts", attempt, "error", err)
		return false
	}

	metrics.RecordRepair(metrics.RepairRetry)
	l.Warn("repair attempt failed", "attempts", attempt, "next_attempt_at", next, "error", err)
	return false
}

// repairDelay is the wait before the given attempt number, growing
// exponentially from repairBaseDelay and capped at repairMaxDelay.
func repairDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = repairBaseDelay
	b.MaxInterval = repairMaxDelay
	b.RandomizationFactor = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
