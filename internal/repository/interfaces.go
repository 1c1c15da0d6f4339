package repository

import (
	"context"

	"github.com/rpggio/seedsort/internal/domain/session"
)

// LedgerRepository manages the append-only record of finalized sessions
type LedgerRepository interface {
	Append(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	List(ctx context.Context) ([]session.Summary, error)
}
