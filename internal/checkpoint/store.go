// Package checkpoint persists conversation threads in SQLite.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/concierge/internal/agent"
	"github.com/ziadkadry99/concierge/internal/db"
)

// DefaultTTL is used when the store is created with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

var _ agent.Checkpointer = (*Store)(nil)

// ErrInvalidThreadID is returned for blank thread ids.
var ErrInvalidThreadID = errors.New("invalid thread id")

// SessionInfo describes a stored thread without decoding it.
type SessionInfo struct {
	ThreadID     string    `json:"thread_id"`
	MessageCount int       `json:"message_count"`
	LastTurnType string    `json:"last_turn_type"`
	SavedAt      time.Time `json:"saved_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store is a SQLite-backed agent.Checkpointer. Each save replaces the whole
// record and refreshes its expiry.
type Store struct {
	db     *db.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewStore returns a store over an open database.
func NewStore(d *db.DB, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: d, ttl: ttl, logger: logger, now: time.Now}
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidThreadID
	}
	return nil
}

// Save writes the thread, replacing any previous record.
func (s *Store) Save(ctx context.Context, t *agent.Thread) error {
	if t == nil {
		return errors.New("nil thread")
	}
	if err := validID(t.ID); err != nil {
		return err
	}

	now := s.now()
	blob, err := encode(t, now)
	if err != nil {
		return err
	}

	var lastType string
	if last, ok := t.Last(); ok {
		lastType = string(last.Kind)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, version, state, message_count, last_turn_type, saved_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			version = excluded.version,
			state = excluded.state,
			message_count = excluded.message_count,
			last_turn_type = excluded.last_turn_type,
			saved_at = excluded.saved_at,
			expires_at = excluded.expires_at`,
		t.ID, recordVersion, blob, len(t.Turns), lastType, now.UnixMilli(), now.Add(s.ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", t.ID, err)
	}
	return nil
}

// Load returns the stored thread, or nil when it is missing, expired or
// cannot be decoded.
func (s *Store) Load(ctx context.Context, threadID string) (*agent.Thread, error) {
	if err := validID(threadID); err != nil {
		return nil, err
	}

	var blob []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT state, expires_at FROM checkpoints WHERE thread_id = ?`, threadID,
	).Scan(&blob, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint %s: %w", threadID, err)
	}

	if s.now().UnixMilli() >= expiresAt {
		s.logger.Debug("checkpoint expired", "thread_id", threadID)
		return nil, nil
	}

	t, err := decode(blob)
	if err != nil {
		s.logger.Warn("discarding unreadable checkpoint", "thread_id", threadID, "error", err)
		return nil, nil
	}
	t.ID = threadID
	return t, nil
}

// Clear deletes a thread and reports whether it existed.
func (s *Store) Clear(ctx context.Context, threadID string) (bool, error) {
	if err := validID(threadID); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return false, fmt.Errorf("clearing checkpoint %s: %w", threadID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clearing checkpoint %s: %w", threadID, err)
	}
	return n > 0, nil
}

// Info returns the metadata of a live thread, or nil.
func (s *Store) Info(ctx context.Context, threadID string) (*SessionInfo, error) {
	if err := validID(threadID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, message_count, last_turn_type, saved_at, expires_at
		FROM checkpoints WHERE thread_id = ? AND expires_at > ?`,
		threadID, s.now().UnixMilli(),
	)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", threadID, err)
	}
	return info, nil
}

// ListRecent returns live sessions, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]SessionInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, message_count, last_turn_type, saved_at, expires_at
		FROM checkpoints WHERE expires_at > ?
		ORDER BY saved_at DESC, thread_id
		LIMIT ?`,
		s.now().UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		out = append(out, *info)
	}
	return out, rows.Err()
}

// Prune deletes expired records and returns how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning checkpoints: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning checkpoints: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned expired checkpoints", "count", n)
	}
	return n, nil
}

// Healthy reports whether the database is reachable.
func (s *Store) Healthy(ctx context.Context) error {
	return s.db.Healthy(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (*SessionInfo, error) {
	var info SessionInfo
	var savedAt, expiresAt int64
	if err := row.Scan(&info.ThreadID, &info.MessageCount, &info.LastTurnType, &savedAt, &expiresAt); err != nil {
		return nil, err
	}
	info.SavedAt = time.UnixMilli(savedAt).UTC()
	info.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &info, nil
}
