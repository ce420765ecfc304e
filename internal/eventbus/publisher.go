// Package eventbus publishes assessment events to NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
)

// SubjectPrefix is followed by the lowercased risk level, e.g. "token.assessed.extreme"
const SubjectPrefix = "token.assessed"

var ErrNotConnected = errors.New("eventbus: not connected")

// AssessedEvent is the payload published after every analysis
type AssessedEvent struct {
	ID        string    `json:"id"`
	Network   string    `json:"network"`
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	Score     int       `json:"score"`
	RiskLevel string    `json:"risk_level"`
	Patterns  []string  `json:"suspicious_patterns"`
	At        time.Time `json:"assessed_at"`
}

// NewAssessedEvent summarizes a stored record
func NewAssessedEvent(r *history.Record) AssessedEvent {
	return AssessedEvent{
		ID:        r.ID,
		Network:   r.Network,
		Address:   r.Address,
		Symbol:    r.Assessment.Token.Symbol,
		Score:     r.Score,
		RiskLevel: string(r.RiskLevel),
		Patterns:  r.Assessment.Details.Transaction.SuspiciousPatterns,
		At:        r.CreatedAt,
	}
}

// Subject returns the subject an event is published on
func (e AssessedEvent) Subject() string {
	return SubjectPrefix + "." + strings.ToLower(e.RiskLevel)
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(natsURL string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("token-risk-analyzer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("connected to NATS", "url", natsURL)
	return &Publisher{conn: conn, logger: logger}, nil
}

// PublishAssessed publishes an event for a stored record
func (p *Publisher) PublishAssessed(ctx context.Context, r *history.Record) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event := NewAssessedEvent(r)
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(event.Subject(), data); err != nil {
		return err
	}

	p.logger.Debug("published assessment event", "subject", event.Subject(), "id", event.ID)
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
		p.logger.Info("disconnected from NATS")
	}
}

func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}
