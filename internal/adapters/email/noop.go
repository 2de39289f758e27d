package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender discards outgoing mail and logs what would have been sent.
// It is the fallback when no provider key is configured, so the outbox
// worker and activation flows stay runnable in development.
type NoopSender struct{}

// NewNoopSender creates a NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the would-be delivery and reports success.
// PRE: req is a valid SendRequest
// POST: Returns a synthetic result; nothing is delivered
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	now := time.Now()
	slog.Info("noop_sent", "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", now.UnixNano()),
		SentAt:    now,
	}, nil
}

// SendBatch logs each would-be delivery and reports success for all.
// PRE: reqs contains valid SendRequests
// POST: Returns one synthetic result per request; nothing is delivered
func (s *NoopSender) SendBatch(_ context.Context, reqs []SendRequest) ([]SendResult, error) {
	now := time.Now()
	results := make([]SendResult, 0, len(reqs))
	for i, req := range reqs {
		slog.Info("noop_sent", "to", req.To, "subject", req.Subject)
		results = append(results, SendResult{
			MessageID: fmt.Sprintf("noop-%d-%d", now.UnixNano(), i),
			SentAt:    now,
		})
	}
	return results, nil
}
