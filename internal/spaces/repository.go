package spaces

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltspaces/backend/internal/models"
)

const spaceColumns = `host_slug, host_fid, state, current_session_id, daily_room_url, participant_count, title, last_updated, created_at`

// GoLiveInput carries everything needed to flip a host's space to Live.
type GoLiveInput struct {
	HostSlug     string
	HostFid      string
	DailyRoomURL string
	Title        *string
}

// Repository handles live_spaces and space_sessions persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a space ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GoLive creates a new session and flips the ledger to Live in one transaction.
// A still-open prior session (re-entrant go-live) is closed first instead of
// being orphaned with ended_at forever unset.
func (r *Repository) GoLive(ctx context.Context, in GoLiveInput) (*models.LiveSpace, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ensure the ledger row exists before the session insert (FK target).
	// Existing state is left alone; the final update below flips it.
	_, err = tx.Exec(ctx,
		`INSERT INTO live_spaces (host_slug, host_fid) VALUES ($1, $2)
		 ON CONFLICT (host_slug) DO NOTHING`,
		in.HostSlug, in.HostFid)
	if err != nil {
		return nil, fmt.Errorf("upsert ledger row: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE space_sessions SET ended_at = NOW() WHERE host_slug = $1 AND ended_at IS NULL`,
		in.HostSlug)
	if err != nil {
		return nil, fmt.Errorf("close prior session: %w", err)
	}

	var sessionID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO space_sessions (host_slug, daily_room_url, peak_participants, title)
		 VALUES ($1, $2, 1, $3) RETURNING id`,
		in.HostSlug, in.DailyRoomURL, in.Title).Scan(&sessionID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	var s models.LiveSpace
	err = tx.QueryRow(ctx,
		`UPDATE live_spaces SET
			host_fid = $2,
			state = 'Live',
			current_session_id = $3,
			daily_room_url = $4,
			participant_count = 1,
			title = $5,
			last_updated = NOW()
		 WHERE host_slug = $1
		 RETURNING `+spaceColumns,
		in.HostSlug, in.HostFid, sessionID, in.DailyRoomURL, in.Title).
		Scan(&s.HostSlug, &s.HostFid, &s.State, &s.CurrentSessionID, &s.DailyRoomURL, &s.ParticipantCount, &s.Title, &s.LastUpdated, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &s, nil
}

// EndSpace closes the current session and flips the ledger to Offline.
// Returns the ended session ID, or nil when the host has no ledger row or
// no current session (both benign no-ops).
func (r *Repository) EndSpace(ctx context.Context, hostSlug string) (*uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var state string
	var currentSessionID *uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT state, current_session_id FROM live_spaces WHERE host_slug = $1 FOR UPDATE`,
		hostSlug).Scan(&state, &currentSessionID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	if currentSessionID != nil {
		_, err = tx.Exec(ctx,
			`UPDATE space_sessions SET ended_at = NOW() WHERE id = $1 AND ended_at IS NULL`,
			*currentSessionID)
		if err != nil {
			return nil, fmt.Errorf("end session: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE live_spaces SET
			state = 'Offline',
			current_session_id = NULL,
			daily_room_url = NULL,
			participant_count = 0,
			last_updated = NOW()
		 WHERE host_slug = $1`,
		hostSlug)
	if err != nil {
		return nil, fmt.Errorf("update ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return currentSessionID, nil
}

// GetBySlug returns the ledger row for a host, or nil when absent.
func (r *Repository) GetBySlug(ctx context.Context, hostSlug string) (*models.LiveSpace, error) {
	var s models.LiveSpace
	err := r.pool.QueryRow(ctx,
		`SELECT `+spaceColumns+` FROM live_spaces WHERE host_slug = $1`, hostSlug).
		Scan(&s.HostSlug, &s.HostFid, &s.State, &s.CurrentSessionID, &s.DailyRoomURL, &s.ParticipantCount, &s.Title, &s.LastUpdated, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListLive returns currently live spaces ordered by participant count (largest first).
func (r *Repository) ListLive(ctx context.Context, limit int) ([]models.LiveSpace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+spaceColumns+` FROM live_spaces WHERE state = 'Live'
		 ORDER BY participant_count DESC, last_updated DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.LiveSpace
	for rows.Next() {
		var s models.LiveSpace
		if err := rows.Scan(&s.HostSlug, &s.HostFid, &s.State, &s.CurrentSessionID, &s.DailyRoomURL, &s.ParticipantCount, &s.Title, &s.LastUpdated, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetSession returns a session by ID, or nil when absent.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.SpaceSession, error) {
	var s models.SpaceSession
	err := r.pool.QueryRow(ctx,
		`SELECT id, host_slug, daily_room_url, started_at, ended_at, peak_participants, total_participants, title
		 FROM space_sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.HostSlug, &s.DailyRoomURL, &s.StartedAt, &s.EndedAt, &s.PeakParticipants, &s.TotalParticipants, &s.Title)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// LatestSession returns the host's most recent session regardless of state,
// used as the fallback roster source when viewing a just-ended space.
func (r *Repository) LatestSession(ctx context.Context, hostSlug string) (*models.SpaceSession, error) {
	var s models.SpaceSession
	err := r.pool.QueryRow(ctx,
		`SELECT id, host_slug, daily_room_url, started_at, ended_at, peak_participants, total_participants, title
		 FROM space_sessions WHERE host_slug = $1 ORDER BY started_at DESC LIMIT 1`, hostSlug).
		Scan(&s.ID, &s.HostSlug, &s.DailyRoomURL, &s.StartedAt, &s.EndedAt, &s.PeakParticipants, &s.TotalParticipants, &s.Title)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// FinalizeSession stamps total_participants on an ended session (worker job).
func (r *Repository) FinalizeSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE space_sessions SET total_participants =
			(SELECT COUNT(*) FROM space_participants WHERE session_id = $1)
		 WHERE id = $1`, sessionID)
	return err
}
