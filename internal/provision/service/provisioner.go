package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/validate"
	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
	"github.com/ppmkfriends/ppmkconnect/pkg/idx"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

// accountInput is the validated shape of one row.
type accountInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Role     string `json:"role" validate:"omitempty,app_role"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Provisioner creates one account: invitation, identity, then profile and
// role. Once the identity exists the row counts as a success; profile and
// role failures are handed to the repair worker.
type Provisioner struct {
	Store      store.Store
	Identities IdentityProvider
	Validator  *validate.Validator
}

func NewProvisioner(s store.Store, ids IdentityProvider) *Provisioner {
	return &Provisioner{Store: s, Identities: ids, Validator: validate.New()}
}

// Provision never returns an error: every failure is reported in the
// outcome so the caller can continue with the next row.
func (p *Provisioner) Provision(ctx context.Context, req domain.AccountRequest, operatorID string) domain.RowOutcome {
	l := slogx.FromContext(ctx)
	out := domain.RowOutcome{Email: req.Email}

	in := accountInput{
		Email:    strings.TrimSpace(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		Role:     strings.TrimSpace(req.Role),
		Password: req.Password,
	}
	if err := p.Validator.Struct(in); err != nil {
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			out.FieldErrors = verr.Fields
		}
		out.Error = err.Error()
		return out
	}
	role, _ := domain.ParseRole(in.Role)
	now := time.Now().UTC()

	if err := p.ensureInvitation(ctx, in, role, operatorID, now); err != nil {
		l.Error("invitation step failed", "email", in.Email, "error", err)
		out.Error = err.Error()
		return out
	}

	userID, err := p.Identities.CreateUser(ctx, domain.NewIdentity{
		Email:          in.Email,
		Password:       in.Password,
		EmailConfirmed: true,
		Username:       domain.UsernameFromEmail(in.Email),
		DisplayName:    in.FullName,
	})
	if err != nil {
		l.Error("identity creation failed", "email", in.Email, "error", err)
		out.Error = err.Error()
		return out
	}

	profile := domain.Profile{
		UserID:             userID,
		Username:           domain.UsernameFromEmail(in.Email),
		DisplayName:        in.FullName,
		Email:              in.Email,
		MustChangePassword: true,
		Data:               req.Profile,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	assignment := domain.RoleAssignment{
		UserID:     userID,
		Role:       role,
		AssignedBy: operatorID,
		AssignedAt: now,
	}

	if err := writeProfileAndRole(ctx, p.Store, profile, assignment); err != nil {
		l.Error("profile or role write failed, scheduling repair", "user_id", userID, "error", err)
		out.Warnings = append(out.Warnings, p.scheduleRepair(ctx, profile, assignment, err))
	}

	out.Success = true
	out.UserID = userID
	out.Password = in.Password
	out.FullName = in.FullName
	return out
}

// ensureInvitation reuses an existing invitation for the email or creates
// one holding the hashed secret. An unused invitation that has expired is
// renewed with the new secret so the first login can still consume it.
func (p *Provisioner) ensureInvitation(ctx context.Context, in accountInput, role domain.Role, operatorID string, now time.Time) error {
	l := slogx.FromContext(ctx)

	inv, err := p.Store.Invitations().GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("invitation lookup failed: %w", err)
	}
	found := err == nil
	if found && (inv.Used || !inv.Expired(now)) {
		l.Info("reusing existing invitation", "email", in.Email)
		return nil
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("invitation secret hashing failed: %w", err)
	}

	if found {
		if err := p.Store.Invitations().Renew(ctx, inv.ID, hash, now.Add(domain.InvitationTTL)); err != nil {
			return fmt.Errorf("failed to renew invitation: %w", err)
		}
		l.Info("renewed expired invitation", "email", in.Email)
		return nil
	}

	err = p.Store.Invitations().Create(ctx, domain.Invitation{
		ID:         idx.New().String(),
		Email:      in.Email,
		SecretHash: hash,
		Role:       role,
		InvitedBy:  operatorID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(domain.InvitationTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// stepError names the provisioning step that failed inside the transaction.
type stepError struct {
	kind domain.RepairKind
	err  error
}

func (e *stepError) Error() string { return string(e.kind) + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// writeProfileAndRole upserts the profile and replaces the role atomically.
func writeProfileAndRole(ctx context.Context, s store.Store, profile domain.Profile, a domain.RoleAssignment) error {
	return s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Profiles().Upsert(ctx, profile); err != nil {
			return &stepError{kind: domain.RepairProfile, err: err}
		}
		if err := tx.Roles().Assign(ctx, a); err != nil {
			return &stepError{kind: domain.RepairRole, err: err}
		}
		return nil
	})
}

// replayProfileAndRole writes only the rows that are still missing. A
// profile or role written since the import, for example by a role change,
// is left untouched.
func replayProfileAndRole(ctx context.Context, s store.Store, profile domain.Profile, a domain.RoleAssignment) error {
	return s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Profiles().CreateIfAbsent(ctx, profile); err != nil {
			return &stepError{kind: domain.RepairProfile, err: err}
		}
		if err := tx.Roles().AssignIfAbsent(ctx, a); err != nil {
			return &stepError{kind: domain.RepairRole, err: err}
		}
		return nil
	})
}

// scheduleRepair enqueues a repair task and returns the warning for the
// row outcome. It runs detached from ctx so a row timeout cannot prevent the
// task from being recorded.
func (p *Provisioner) scheduleRepair(ctx context.Context, profile domain.Profile, a domain.RoleAssignment, cause error) string {
	l := slogx.FromContext(ctx)

	kind := domain.RepairProfile
	var se *stepError
	if errors.As(cause, &se) {
		kind = se.kind
	}

	payload, err := json.Marshal(domain.RepairPayload{Profile: profile, Assignment: a})
	if err != nil {
		l.Error("failed to encode repair payload", "user_id", profile.UserID, "error", err)
		return "profile and role were not saved and no repair could be scheduled"
	}

	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	task := domain.RepairTask{
		ID:            idx.New().String(),
		UserID:        profile.UserID,
		Kind:          kind,
		Payload:       payload,
		LastError:     cause.Error(),
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := p.Store.RepairTasks().Enqueue(ectx, task); err != nil {
		l.Error("failed to enqueue repair task", "user_id", profile.UserID, slog.Any("error", err))
		return "profile and role were not saved and no repair could be scheduled"
	}
	return fmt.Sprintf("profile and role were not saved (%s); repair scheduled", kind)
}
