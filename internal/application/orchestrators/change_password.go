package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"divehub/internal/domain/account"
)

// AccountStoreForPassword defines the store interface needed by ChangePassword.
type AccountStoreForPassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangePasswordInput carries input for the orchestrator.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForPassword
}

// ErrWrongPassword is returned when the current password does not match.
var ErrWrongPassword = errors.New("current password is incorrect")

// ExecuteChangePassword verifies the current password and sets a new one.
// Clears the forced-change flag set by admin seeding.
// PRE: Current password matches, new password >= 12 chars
// POST: Account saved with the new hash, PasswordChangeRequired cleared
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}

	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		slog.Info("auth_event", "event", "password_change_failed", "account_id", input.AccountID, "reason", "wrong_password")
		return ErrWrongPassword
	}

	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	acct.PasswordChangeRequired = false

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", input.AccountID)
	return nil
}
