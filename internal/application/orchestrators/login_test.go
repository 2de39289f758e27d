package orchestrators

import (
	"context"
	"errors"
	"testing"

	"divehub/internal/domain/account"
)

func activeAccount(t *testing.T, id, email, password string) account.Account {
	t.Helper()
	a := account.Account{
		ID:     id,
		Email:  email,
		Role:   account.RoleMember,
		Status: account.StatusActive,
	}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("set password: %v", err)
	}
	return a
}

func TestExecuteLogin_Valid(t *testing.T) {
	store := newMockFullAccountStore()
	store.accounts["acc-1"] = activeAccount(t, "acc-1", "diver@club.example", "correct-horse-battery")

	result, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "diver@club.example",
		Password: "correct-horse-battery",
	}, LoginDeps{AccountStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccountID != "acc-1" {
		t.Errorf("expected AccountID=acc-1, got %s", result.AccountID)
	}
	if result.Role != account.RoleMember {
		t.Errorf("expected role=member, got %s", result.Role)
	}
}

func TestExecuteLogin_WrongPassword(t *testing.T) {
	store := newMockFullAccountStore()
	store.accounts["acc-1"] = activeAccount(t, "acc-1", "diver@club.example", "correct-horse-battery")

	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "diver@club.example",
		Password: "wrong-password-entirely",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if store.accounts["acc-1"].FailedLogins != 1 {
		t.Errorf("expected failed login recorded, got %d", store.accounts["acc-1"].FailedLogins)
	}
}

func TestExecuteLogin_UnknownEmailSameError(t *testing.T) {
	store := newMockFullAccountStore()

	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "ghost@club.example",
		Password: "whatever-password",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestExecuteLogin_LocksAfterFiveFailures(t *testing.T) {
	store := newMockFullAccountStore()
	store.accounts["acc-1"] = activeAccount(t, "acc-1", "diver@club.example", "correct-horse-battery")

	for i := 0; i < 5; i++ {
		_, err := ExecuteLogin(context.Background(), LoginInput{
			Email:    "diver@club.example",
			Password: "wrong-password-entirely",
		}, LoginDeps{AccountStore: store})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the correct password is refused while locked.
	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "diver@club.example",
		Password: "correct-horse-battery",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestExecuteLogin_SuccessResetsFailures(t *testing.T) {
	store := newMockFullAccountStore()
	acct := activeAccount(t, "acc-1", "diver@club.example", "correct-horse-battery")
	acct.FailedLogins = 3
	store.accounts["acc-1"] = acct

	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "diver@club.example",
		Password: "correct-horse-battery",
	}, LoginDeps{AccountStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.accounts["acc-1"].FailedLogins != 0 {
		t.Errorf("expected failed logins reset, got %d", store.accounts["acc-1"].FailedLogins)
	}
}

func TestExecuteLogin_PendingActivation(t *testing.T) {
	store := newMockFullAccountStore()
	store.accounts["acc-1"] = account.Account{
		ID:     "acc-1",
		Email:  "new@club.example",
		Role:   account.RoleMember,
		Status: account.StatusPendingActivation,
	}

	_, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "new@club.example",
		Password: "whatever-password",
	}, LoginDeps{AccountStore: store})
	if !errors.Is(err, ErrPendingActivation) {
		t.Fatalf("expected ErrPendingActivation, got %v", err)
	}
}
