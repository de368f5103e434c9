// Package worker consumes background jobs: post-end session bookkeeping.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/pkg/queue"
)

// SessionStore finalizes ended sessions.
type SessionStore interface {
	FinalizeSession(ctx context.Context, sessionID uuid.UUID) error
}

// SessionProcessor consumes session finalize jobs from the queue.
type SessionProcessor struct {
	sessions SessionStore
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewSessionProcessor creates the session job processor.
func NewSessionProcessor(sessions SessionStore, q *queue.Queue, logger *zap.Logger) *SessionProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionProcessor{sessions: sessions, queue: q, logger: logger}
}

// Run dequeues and processes jobs until ctx is cancelled. Failed jobs are
// retried with the queue's attempt counter and eventually land in the DLQ.
func (p *SessionProcessor) Run(ctx context.Context) {
	p.logger.Info("session worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("session worker stopped")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		if err := p.handle(ctx, job); err != nil {
			p.logger.Warn("job failed",
				zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			_ = p.queue.Retry(ctx, job)
		}
	}
}

func (p *SessionProcessor) handle(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeSessionFinalize:
		var payload queue.SessionFinalizePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if err := p.sessions.FinalizeSession(ctx, payload.SessionID); err != nil {
			return fmt.Errorf("finalize session %s: %w", payload.SessionID, err)
		}
		p.logger.Info("session finalized",
			zap.String("session_id", payload.SessionID.String()),
			zap.String("host_slug", payload.HostSlug))
		return nil
	default:
		p.logger.Warn("unknown job type", zap.String("type", string(job.Type)), zap.String("job_id", job.ID))
		return nil
	}
}
