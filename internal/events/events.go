// Package events carries settlement outcome notifications out of the
// transfer orchestrator, replacing process-wide logging state with an
// injected observer.
package events

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type Publisher interface {
	Publish(topic string, event any) error
}

type TransferSettled struct {
	TransferID    int64           `json:"transfer_id"`
	FromAccountID int64           `json:"from_account_id"`
	ToIban        string          `json:"to_iban"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	BankReference string          `json:"bank_reference"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type TransferFailed struct {
	TransferID int64     `json:"transfer_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LogPublisher writes events to the structured log. It is the default
// publisher when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(topic string, event any) error {
	p.logger.Info("event published", "topic", topic, "event", event)
	return nil
}

var _ Publisher = (*LogPublisher)(nil)
