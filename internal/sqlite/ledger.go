package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/repository"
)

// LedgerRepository implements repository.LedgerRepository for SQLite
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append records a finalized session. Each session can be recorded once.
func (r *LedgerRepository) Append(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return repository.ErrInvalidInput
	}

	items := sess.SampledItems
	if items == nil {
		items = []string{}
	}
	sampled, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode sampled items: %w", err)
	}

	query := `
		INSERT INTO sessions (
			id, label, accepted, rejected, sampled,
			sampled_items, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		sess.ID,
		sess.Label,
		sess.Accepted,
		sess.Rejected,
		sess.Sampled,
		string(sampled),
		sess.StartTime,
		nullTime(sess.EndTime),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isCheckViolation(err) {
			return repository.ErrInvalidInput
		}
		return fmt.Errorf("failed to append session: %w", err)
	}

	return nil
}

// Get retrieves a finalized session by ID
func (r *LedgerRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT
			id, label, accepted, rejected, sampled,
			sampled_items, start_time, end_time
		FROM sessions
		WHERE id = ?
	`

	var sess session.Session
	var sampled string
	var endTime sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.Label,
		&sess.Accepted,
		&sess.Rejected,
		&sess.Sampled,
		&sampled,
		&sess.StartTime,
		&endTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(sampled), &sess.SampledItems); err != nil {
		return nil, fmt.Errorf("failed to decode sampled items: %w", err)
	}
	if sess.SampledItems == nil {
		sess.SampledItems = []string{}
	}
	if endTime.Valid {
		sess.EndTime = &endTime.Time
	}
	sess.Status = session.StatusClosed

	return &sess, nil
}

// List returns every finalized session in the order it was recorded
func (r *LedgerRepository) List(ctx context.Context) ([]session.Summary, error) {
	query := `
		SELECT id, label, accepted, rejected, sampled, start_time, end_time
		FROM sessions
		ORDER BY rowid ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.Summary{}
	for rows.Next() {
		var sum session.Summary
		var endTime sql.NullTime
		if err := rows.Scan(&sum.ID, &sum.Label, &sum.Accepted, &sum.Rejected, &sum.Sampled, &sum.StartTime, &endTime); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		if endTime.Valid {
			end := endTime.Time
			sum.EndTime = &end
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ repository.LedgerRepository = (*LedgerRepository)(nil)
