package notification

import (
	"context"
	"log/slog"
)

const (
	// KindCreditPosted indicates a credit was committed to a wallet.
	KindCreditPosted = "credit_posted"
	// KindDebitPosted indicates a debit was committed to a wallet.
	KindDebitPosted = "debit_posted"
)

// Message describes a committed movement event pushed to downstream systems.
type Message struct {
	Kind          string
	HolderID      string
	TransactionID int64
	Amount        int64
	Reference     string
}

// Notifier delivers movement events. Delivery is best effort and never blocks
// or fails the movement itself.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes events to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("movement posted",
		"kind", message.Kind,
		"holder_id", message.HolderID,
		"transaction_id", message.TransactionID,
		"amount", message.Amount,
		"reference", message.Reference,
	)
	return nil
}
