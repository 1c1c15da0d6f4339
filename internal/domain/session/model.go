package session

import (
	"time"
)

// Outcome is the label a classifier assigns to an item.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeAccepted || o == OutcomeRejected
}

// Status represents the lifecycle status of a session
type Status string

const (
	StatusActive   Status = "active"
	StatusDraining Status = "draining"
	StatusClosed   Status = "closed"
)

// Session is a sorting session and its running counters.
type Session struct {
	ID           string     `json:"session_id"`
	Label        string     `json:"seed_lot"`
	Status       Status     `json:"status"`
	Accepted     int64      `json:"accepted"`
	Rejected     int64      `json:"rejected"`
	Sampled      int64      `json:"sampled"`
	SampledItems []string   `json:"sampled_images"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// Processed returns the number of items that completed classification.
func (s *Session) Processed() int64 {
	return s.Accepted + s.Rejected
}

// Summary projects the session for listings.
func (s *Session) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Label:     s.Label,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Accepted:  s.Accepted,
		Rejected:  s.Rejected,
		Sampled:   s.Sampled,
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.SampledItems = append([]string(nil), s.SampledItems...)
	if out.SampledItems == nil {
		out.SampledItems = []string{}
	}
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return &out
}

// Summary provides information about a finalized session
type Summary struct {
	ID        string     `json:"session_id"`
	Label     string     `json:"seed_lot"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Accepted  int64      `json:"accepted"`
	Rejected  int64      `json:"rejected"`
	Sampled   int64      `json:"sampled"`
}
