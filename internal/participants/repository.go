package participants

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moltspaces/backend/internal/models"
)

const participantColumns = `id, session_id, host_slug, user_fid, farcaster_username, display_name, pfp_url, role, status, joined_at, left_at, heartbeat_at`

// Repository handles space_participants persistence plus the denormalized
// counters it keeps consistent (ledger participant_count, session peak).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participant roster repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a new active record with joined_at = now. Always inserts;
// a duplicate join by the same user yields a second record (matching the
// source behavior; the sweep reaps whichever one stops heartbeating).
func (r *Repository) Insert(ctx context.Context, p *models.Participant) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO space_participants (session_id, host_slug, user_fid, farcaster_username, display_name, pfp_url, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, status, joined_at, heartbeat_at`,
		p.SessionID, p.HostSlug, p.UserFid, p.FarcasterUsername, p.DisplayName, p.PfpURL, p.Role).
		Scan(&p.ID, &p.Status, &p.JoinedAt, &p.HeartbeatAt)
}

// MarkLeft transitions a record active -> left. The status guard makes a
// second call a no-op, so left_at keeps the first write's timestamp.
// Returns the record and whether this call performed the transition.
func (r *Repository) MarkLeft(ctx context.Context, id uuid.UUID) (*models.Participant, bool, error) {
	var p models.Participant
	err := r.pool.QueryRow(ctx,
		`UPDATE space_participants SET status = 'left', left_at = NOW()
		 WHERE id = $1 AND status = 'active'
		 RETURNING `+participantColumns, id).
		Scan(&p.ID, &p.SessionID, &p.HostSlug, &p.UserFid, &p.FarcasterUsername, &p.DisplayName, &p.PfpURL, &p.Role, &p.Status, &p.JoinedAt, &p.LeftAt, &p.HeartbeatAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &p, true, nil
}

// Heartbeat refreshes the liveness timestamp of an active record.
func (r *Repository) Heartbeat(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE space_participants SET heartbeat_at = NOW() WHERE id = $1 AND status = 'active'`, id)
	return err
}

// ListActiveBySession returns active participants of a session ordered by
// join time (stable ordering for the UI's radial avatar layout).
func (r *Repository) ListActiveBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	return r.list(ctx,
		`SELECT `+participantColumns+` FROM space_participants
		 WHERE session_id = $1 AND status = 'active' ORDER BY joined_at ASC`, sessionID)
}

// ListBySession returns all of a session's records regardless of status,
// for historical display after a space has ended.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	return r.list(ctx,
		`SELECT `+participantColumns+` FROM space_participants
		 WHERE session_id = $1 ORDER BY joined_at ASC`, sessionID)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.HostSlug, &p.UserFid, &p.FarcasterUsername, &p.DisplayName, &p.PfpURL, &p.Role, &p.Status, &p.JoinedAt, &p.LeftAt, &p.HeartbeatAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SyncCounts recomputes the ledger's cached participant_count from the
// active roster and raises the session's peak when the count exceeds it.
// The ledger update only matches while the session is still current, so
// late leaves against an ended session never touch the ledger.
func (r *Repository) SyncCounts(ctx context.Context, sessionID uuid.UUID, hostSlug string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM space_participants WHERE session_id = $1 AND status = 'active'`,
		sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count actives: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE live_spaces SET participant_count = $1, last_updated = NOW()
		 WHERE host_slug = $2 AND current_session_id = $3`,
		count, hostSlug, sessionID)
	if err != nil {
		return count, fmt.Errorf("update ledger count: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE space_sessions SET peak_participants = $1 WHERE id = $2 AND $1 > peak_participants`,
		count, sessionID)
	if err != nil {
		return count, fmt.Errorf("raise session peak: %w", err)
	}
	return count, nil
}

// SweepStale transitions active records whose heartbeat is older than ttl to
// left, returning the swept records so callers can fan out roster updates.
func (r *Repository) SweepStale(ctx context.Context, ttl time.Duration) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE space_participants SET status = 'left', left_at = NOW()
		 WHERE status = 'active' AND heartbeat_at < NOW() - make_interval(secs => $1)
		 RETURNING `+participantColumns,
		ttl.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swept []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.HostSlug, &p.UserFid, &p.FarcasterUsername, &p.DisplayName, &p.PfpURL, &p.Role, &p.Status, &p.JoinedAt, &p.LeftAt, &p.HeartbeatAt); err != nil {
			return nil, err
		}
		swept = append(swept, p)
	}
	return swept, rows.Err()
}
