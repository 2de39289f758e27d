package account

import "time"

// DefaultTokenTTL is how long an activation token stays usable.
const DefaultTokenTTL = 72 * time.Hour

// ActivationToken represents a time-limited token for account activation.
type ActivationToken struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsExpired returns true if the activation token has expired.
// INVARIANT: Token fields are not mutated
func (t *ActivationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsable returns true if the token can still activate an account.
// INVARIANT: Token fields are not mutated
func (t *ActivationToken) IsUsable(now time.Time) bool {
	return !t.Used && !t.IsExpired(now)
}

// Invalidate marks the token as used.
// PRE: Token exists
// POST: Used is set to true
func (t *ActivationToken) Invalidate() {
	t.Used = true
}
