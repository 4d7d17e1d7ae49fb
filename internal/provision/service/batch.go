package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/metrics"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

const (
	DefaultRowTimeout   = 30 * time.Second
	DefaultMaxBatchSize = 500
	DefaultRatePerSec   = 5

	reasonTimeout   = "timeout"
	reasonCancelled = "cancelled"
)

// BatchService runs a bulk import: provision then notify, one row at a time.
type BatchService struct {
	Provisioner *Provisioner
	Dispatcher  *Dispatcher

	// Secrets fills blank passwords before any row is processed.
	Secrets func() (string, error)

	RowTimeout time.Duration
	MaxBatch   int

	// Limiter paces the start of each row. Nil disables pacing.
	Limiter *rate.Limiter
}

// Run processes users in order and returns one outcome per input row. An
// error means the batch was rejected before any row was touched. A nil
// users slice is a missing field; an empty one yields an empty result.
func (s *BatchService) Run(ctx context.Context, users []domain.AccountRequest, operatorID string) (domain.BatchResult, error) {
	l := slogx.FromContext(ctx)

	if users == nil {
		return domain.BatchResult{}, ErrMissingUsers
	}
	maxBatch := s.MaxBatch
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	if len(users) > maxBatch {
		return domain.BatchResult{}, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(users), maxBatch)
	}
	if strings.TrimSpace(operatorID) == "" {
		return domain.BatchResult{}, ErrMissingOperator
	}
	if len(users) == 0 {
		return domain.BatchResult{Results: []domain.RowOutcome{}}, nil
	}

	rows := slices.Clone(users)
	if err := s.fillSecrets(rows); err != nil {
		return domain.BatchResult{}, err
	}

	rowTimeout := s.RowTimeout
	if rowTimeout <= 0 {
		rowTimeout = DefaultRowTimeout
	}

	start := time.Now()
	l.Info("bulk import started", "rows", len(rows), "operator_id", operatorID)

	results := make([]domain.RowOutcome, 0, len(rows))
	for _, req := range rows {
		results = append(results, s.runRow(ctx, req, operatorID, rowTimeout))
	}

	res := domain.BatchResult{Results: results, Summary: Summarize(results)}
	metrics.RecordBatch(len(rows), time.Since(start).Seconds())
	l.Info("bulk import complete",
		"total", res.Summary.Total,
		"success", res.Summary.Success,
		"failed", res.Summary.Failed,
		"emails_sent", res.Summary.EmailsSent,
	)
	return res, nil
}

func (s *BatchService) fillSecrets(rows []domain.AccountRequest) error {
	if s.Secrets == nil {
		return nil
	}
	for i := range rows {
		if rows[i].Password != "" {
			continue
		}
		secret, err := s.Secrets()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSecretGenerator, err)
		}
		rows[i].Password = secret
	}
	return nil
}

func (s *BatchService) runRow(ctx context.Context, req domain.AccountRequest, operatorID string, timeout time.Duration) domain.RowOutcome {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			metrics.RecordRow(metrics.RowFailed)
			return domain.FailedOutcome(req.Email, reasonCancelled)
		}
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := s.Provisioner.Provision(rctx, req, operatorID)
	if !out.Success {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			metrics.RecordRow(metrics.RowTimeout)
			return domain.FailedOutcome(req.Email, reasonTimeout)
		}
		metrics.RecordRow(metrics.RowFailed)
		return out
	}
	metrics.RecordRow(metrics.RowSuccess)

	if s.Dispatcher == nil {
		return out
	}
	dctx, dcancel := context.WithTimeout(ctx, timeout)
	defer dcancel()
	if err := s.Dispatcher.Dispatch(dctx, out.Email, out.Password, out.FullName); err != nil {
		slogx.FromContext(ctx).Error("credentials email failed", "email", out.Email, "error", err)
		metrics.RecordEmail(metrics.EmailFailed)
		return out
	}
	metrics.RecordEmail(metrics.EmailSent)
	out.EmailSent = true
	return out
}

// Summarize counts outcomes. Total always equals len(results).
func Summarize(results []domain.RowOutcome) domain.BatchSummary {
	sum := domain.BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			sum.Success++
			if r.EmailSent {
				sum.EmailsSent++
			}
		} else {
			sum.Failed++
		}
	}
	return sum
}
