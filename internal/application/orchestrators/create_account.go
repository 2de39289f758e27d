package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"divehub/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
	SaveActivationToken(ctx context.Context, token account.ActivationToken) error
	GetActivationTokenByToken(ctx context.Context, token string) (account.ActivationToken, error)
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email                  string
	Password               string
	Role                   string
	PasswordChangeRequired bool
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	OutboxStore  OutboxStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

var (
	ErrEmailAlreadyExists = errors.New("an account with this email already exists")
	ErrTokenInvalid       = errors.New("activation link is invalid or has expired")
)

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Account created active with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	if input.Email == "" {
		return "", errors.New("email cannot be empty")
	}
	if input.Password == "" {
		return "", errors.New("password cannot be empty")
	}
	if input.Role == "" {
		return "", errors.New("role cannot be empty")
	}

	// Check if email already exists
	_, err := deps.AccountStore.GetByEmail(ctx, input.Email)
	if err == nil {
		return "", ErrEmailAlreadyExists
	}

	acct := account.Account{
		ID:                     deps.GenerateID(),
		Email:                  input.Email,
		Role:                   input.Role,
		Status:                 account.StatusActive,
		CreatedAt:              deps.Now(),
		PasswordChangeRequired: input.PasswordChangeRequired,
	}

	if err := acct.Validate(); err != nil {
		return "", err
	}

	// Set password (handles hashing and length validation)
	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "email", input.Email, "role", input.Role)

	return acct.ID, nil
}

// InviteAccountInput carries input for the invite orchestrator.
type InviteAccountInput struct {
	Email   string
	Role    string
	BaseURL string // used to build the activation link
}

// ExecuteInviteAccount creates a pending account and emails an activation link.
// PRE: Valid email, valid role
// POST: Account in pending_activation, one usable token, email enqueued
func ExecuteInviteAccount(ctx context.Context, input InviteAccountInput, deps CreateAccountDeps) (string, error) {
	if input.Email == "" {
		return "", errors.New("email cannot be empty")
	}

	if _, err := deps.AccountStore.GetByEmail(ctx, input.Email); err == nil {
		return "", ErrEmailAlreadyExists
	}

	now := deps.Now()
	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     input.Email,
		Role:      input.Role,
		Status:    account.StatusPendingActivation,
		CreatedAt: now,
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	token := account.ActivationToken{
		ID:        deps.GenerateID(),
		AccountID: acct.ID,
		Token:     deps.GenerateID(),
		ExpiresAt: now.Add(account.DefaultTokenTTL),
		CreatedAt: now,
	}
	if err := deps.AccountStore.SaveActivationToken(ctx, token); err != nil {
		return "", err
	}

	if deps.OutboxStore != nil {
		link := fmt.Sprintf("%s/activate?token=%s", input.BaseURL, token.Token)
		if err := enqueueEmail(ctx, deps.OutboxStore, deps.GenerateID(), now, EmailPayload{
			To:      []string{input.Email},
			Subject: "Activate your club account",
			HTML:    fmt.Sprintf("<p>Welcome to the club!</p><p><a href=%q>Activate your account</a> to choose a password. The link expires in 72 hours.</p>", link),
		}); err != nil {
			slog.Error("auth_event", "event", "invite_enqueue_failed", "email", input.Email, "error", err)
		}
	}

	slog.Info("auth_event", "event", "account_invited", "email", input.Email, "role", input.Role)
	return acct.ID, nil
}

// ActivateAccountInput carries input for the activation orchestrator.
type ActivateAccountInput struct {
	Token    string
	Password string
}

// ActivateAccountDeps holds dependencies for ActivateAccount.
type ActivateAccountDeps struct {
	AccountStore AccountStoreForCreate
	GetByID      func(ctx context.Context, id string) (account.Account, error)
	Now          func() time.Time
}

// ExecuteActivateAccount redeems an activation token and sets the password.
// PRE: Token is usable, password >= 12 chars
// POST: Account active with hashed password, all account tokens invalidated
func ExecuteActivateAccount(ctx context.Context, input ActivateAccountInput, deps ActivateAccountDeps) error {
	token, err := deps.AccountStore.GetActivationTokenByToken(ctx, input.Token)
	if err != nil {
		return ErrTokenInvalid
	}

	now := deps.Now()
	if !token.IsUsable(now) {
		return ErrTokenInvalid
	}

	acct, err := deps.GetByID(ctx, token.AccountID)
	if err != nil {
		return err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return err
	}
	if err := acct.Activate(); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}
	if err := deps.AccountStore.InvalidateTokensForAccount(ctx, acct.ID); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "account_activated", "account_id", acct.ID)
	return nil
}

// ExecuteSeedAdmin creates a default admin account if no accounts exist.
// PRE: Database is initialized
// POST: Admin account created if count == 0
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // Accounts already exist, skip seeding
	}

	_, err = ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:                  email,
		Password:               password,
		Role:                   account.RoleAdmin,
		PasswordChangeRequired: true,
	}, deps)
	if err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}
