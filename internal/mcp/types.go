package mcp

import (
	"time"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
)

// PingParams takes no arguments.
type PingParams struct{}

// StartSessionParams are the start_session arguments.
type StartSessionParams struct {
	SeedLot string `json:"seed_lot" jsonschema:"label of the seed lot being sorted"`
}

// SessionParams identify a session.
type SessionParams struct {
	SessionID string `json:"session_id" jsonschema:"session identifier returned by start_session"`
}

// SubmitItemParams are the submit_item arguments.
type SubmitItemParams struct {
	SessionID string `json:"session_id" jsonschema:"active session identifier"`
	ItemID    string `json:"item_id" jsonschema:"image identifier to classify"`
}

// ListSessionsParams takes no arguments.
type ListSessionsParams struct{}

// SessionResult is the wire form of a session snapshot.
type SessionResult struct {
	SessionID     string   `json:"session_id"`
	SeedLot       string   `json:"seed_lot"`
	Status        string   `json:"status"`
	Accepted      int64    `json:"accepted"`
	Rejected      int64    `json:"rejected"`
	Sampled       int64    `json:"sampled"`
	SampledImages []string `json:"sampled_images"`
	Pending       int      `json:"pending"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time,omitempty"`
}

// SummaryResult is the wire form of a ledger summary.
type SummaryResult struct {
	SessionID string `json:"session_id"`
	SeedLot   string `json:"seed_lot"`
	Accepted  int64  `json:"accepted"`
	Rejected  int64  `json:"rejected"`
	Sampled   int64  `json:"sampled"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

// StartSessionResult is returned by start_session.
type StartSessionResult struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// MessageResult carries a human-readable acknowledgement.
type MessageResult struct {
	Message string `json:"message"`
}

// SampledItemsResult is returned by get_sampled_items.
type SampledItemsResult struct {
	SampledImages []string `json:"sampled_images"`
}

// ListSessionsResult is returned by list_sessions.
type ListSessionsResult struct {
	Sessions []SummaryResult `json:"sessions"`
}

func toSessionResult(sess *session.Session, pending int) SessionResult {
	items := sess.SampledItems
	if items == nil {
		items = []string{}
	}
	return SessionResult{
		SessionID:     sess.ID,
		SeedLot:       sess.Label,
		Status:        string(sess.Status),
		Accepted:      sess.Accepted,
		Rejected:      sess.Rejected,
		Sampled:       sess.Sampled,
		SampledImages: items,
		Pending:       pending,
		StartTime:     formatTime(&sess.StartTime),
		EndTime:       formatTime(sess.EndTime),
	}
}

func toStatsResult(stats *engine.Stats) SessionResult {
	return toSessionResult(&stats.Session, stats.Pending)
}

func toSummaryResult(sum session.Summary) SummaryResult {
	return SummaryResult{
		SessionID: sum.ID,
		SeedLot:   sum.Label,
		Accepted:  sum.Accepted,
		Rejected:  sum.Rejected,
		Sampled:   sum.Sampled,
		StartTime: formatTime(&sum.StartTime),
		EndTime:   formatTime(sum.EndTime),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
