package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"divehub/internal/domain/outbox"
)

// OutboxStoreForOrchestrator defines the outbox interface orchestrators
// use to enqueue deliveries.
type OutboxStoreForOrchestrator interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// EmailPayload is the JSON structure stored in outbox entries of type email.
type EmailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// defaultMaxAttempts bounds delivery retries before an entry fails.
const defaultMaxAttempts = 5

// enqueueEmail stores an email in the outbox for asynchronous delivery.
// Delivery failures are retried by the outbox processor, so callers never
// block on the email provider.
func enqueueEmail(ctx context.Context, store OutboxStoreForOrchestrator, id string, now time.Time, payload EmailPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	entry := outbox.Entry{
		ID:          id,
		ActionType:  outbox.ActionTypeEmail,
		Payload:     string(raw),
		Status:      outbox.StatusPending,
		MaxAttempts: defaultMaxAttempts,
		CreatedAt:   now,
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return store.Save(ctx, entry)
}
