// Package history stores past assessments so callers can see how a token's
// risk changed over time.
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/scoring"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var ErrInvalidRecord = errors.New("history: record is missing network or address")

// Record is one stored assessment
type Record struct {
	ID         string             `json:"id"`
	Network    string             `json:"network"`
	Address    string             `json:"address"`
	Score      int                `json:"score"`
	RiskLevel  scoring.RiskLevel  `json:"risk_level"`
	Assessment scoring.Assessment `json:"assessment"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewRecord wraps an assessment with a fresh ID and timestamp
func NewRecord(network, address string, a scoring.Assessment, now time.Time) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Network:    strings.ToLower(network),
		Address:    strings.ToLower(address),
		Score:      a.Score,
		RiskLevel:  a.RiskLevel,
		Assessment: a,
		CreatedAt:  now.UTC(),
	}
}

// Query selects the history of one token. An empty Network matches all networks.
type Query struct {
	Address string
	Network string
	Limit   int
}

// Store persists assessment records
type Store interface {
	Save(ctx context.Context, r *Record) error
	List(ctx context.Context, q Query) ([]*Record, error)
	Ping(ctx context.Context) error
}

// normalize lowercases identifiers and bounds the limit
func (q Query) normalize() Query {
	q.Address = strings.ToLower(strings.TrimSpace(q.Address))
	q.Network = strings.ToLower(strings.TrimSpace(q.Network))
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultListLimit
	case q.Limit > MaxListLimit:
		q.Limit = MaxListLimit
	}
	return q
}

func validate(r *Record) error {
	if r == nil || r.Network == "" || r.Address == "" {
		return ErrInvalidRecord
	}
	return nil
}
