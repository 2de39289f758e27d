package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"divehub/internal/domain/member"
)

// ErrNotAuthorizedToManageMembers is returned when the actor lacks the
// organizer or admin role.
var ErrNotAuthorizedToManageMembers = errors.New("account is not authorized to manage members")

// MemberStoreForManage defines the member store interface needed here.
type MemberStoreForManage interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	GetByEmail(ctx context.Context, email string) (member.Member, error)
	Save(ctx context.Context, value member.Member) error
}

// SaveMemberInput carries input for the orchestrator. A zero ID creates a
// new member record.
type SaveMemberInput struct {
	ID               string
	ActorID          string
	AccountID        string
	Name             string
	Email            string
	BirthDate        time.Time
	DivingLevel      string
	FreedivingLevel  string
	Insured          bool
	IsDiver          bool
	IsFreediver      bool
	IsPilot          bool
	IsInstructor     bool
	IsDivingDirector bool
}

// SaveMemberDeps holds dependencies for SaveMember.
type SaveMemberDeps struct {
	MemberStore  MemberStoreForManage
	AccountStore AccountStoreForManage
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSaveMember creates or updates a member record.
// PRE: Actor has the organizer or admin role
// POST: Member persisted; status of an existing member is preserved
func ExecuteSaveMember(ctx context.Context, input SaveMemberInput, deps SaveMemberDeps) (member.Member, error) {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil {
		return member.Member{}, ErrNotAuthorizedToManageMembers
	}
	if !actor.IsOrganizerOrAdmin() {
		return member.Member{}, ErrNotAuthorizedToManageMembers
	}

	m := member.Member{
		ID:               input.ID,
		AccountID:        input.AccountID,
		Name:             input.Name,
		Email:            input.Email,
		BirthDate:        input.BirthDate,
		DivingLevel:      input.DivingLevel,
		FreedivingLevel:  input.FreedivingLevel,
		Insured:          input.Insured,
		IsDiver:          input.IsDiver,
		IsFreediver:      input.IsFreediver,
		IsPilot:          input.IsPilot,
		IsInstructor:     input.IsInstructor,
		IsDivingDirector: input.IsDivingDirector,
		Status:           member.StatusActive,
	}

	if input.ID == "" {
		if existing, err := deps.MemberStore.GetByEmail(ctx, input.Email); err == nil && existing.ID != "" {
			return member.Member{}, errors.New("a member with this email already exists")
		}
		m.ID = deps.GenerateID()
	} else {
		existing, err := deps.MemberStore.GetByID(ctx, input.ID)
		if err != nil {
			return member.Member{}, err
		}
		m.Status = existing.Status
	}

	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", "member_saved", "member_id", m.ID, "actor_id", input.ActorID)
	return m, nil
}

// ArchiveMemberInput carries input for archive and restore.
type ArchiveMemberInput struct {
	MemberID string
	ActorID  string
}

// ExecuteArchiveMember archives a member record.
// PRE: Actor has the organizer or admin role, member is not archived
// POST: Member status is archived
func ExecuteArchiveMember(ctx context.Context, input ArchiveMemberInput, deps SaveMemberDeps) error {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil || !actor.IsOrganizerOrAdmin() {
		return ErrNotAuthorizedToManageMembers
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return err
	}
	if err := m.Archive(); err != nil {
		return err
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return err
	}

	slog.Info("member_event", "event", "member_archived", "member_id", m.ID, "actor_id", input.ActorID)
	return nil
}

// ExecuteRestoreMember restores an archived member to active.
// PRE: Actor has the organizer or admin role, member is archived
// POST: Member status is active
func ExecuteRestoreMember(ctx context.Context, input ArchiveMemberInput, deps SaveMemberDeps) error {
	actor, err := deps.AccountStore.GetByID(ctx, input.ActorID)
	if err != nil || !actor.IsOrganizerOrAdmin() {
		return ErrNotAuthorizedToManageMembers
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return err
	}
	if err := m.Restore(); err != nil {
		return err
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return err
	}

	slog.Info("member_event", "event", "member_restored", "member_id", m.ID, "actor_id", input.ActorID)
	return nil
}
