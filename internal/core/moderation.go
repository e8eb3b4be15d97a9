package core

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JonMunkholm/formconsole/internal/observability"
)

// fallbackAdminName is used when the acting admin has no name or email.
const fallbackAdminName = "Admin"

// adminName resolves the actor's display name: token name, token email,
// profile name or email, then "Admin".
func (s *Service) adminName(ctx context.Context, actor Actor) string {
	switch {
	case actor.Name != "":
		return actor.Name
	case actor.Email != "":
		return actor.Email
	}
	if u := s.optionalUser(ctx, actor.UID); u != nil {
		if u.Name != "" {
			return u.Name
		}
		if u.Email != "" {
			return u.Email
		}
	}
	return fallbackAdminName
}

// requireReason trims a rejection reason and rejects blank ones.
func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", &ValidationError{Field: "reason", Message: "is required"}
	}
	return reason, nil
}

func moderationSpan(ctx context.Context, op, id string, actor Actor) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, op,
		attribute.String("moderation.target", id),
		attribute.String("moderation.actor", actor.UID),
	)
	return ctx, func(err error) { observability.EndSpan(span, err) }
}

// ApproveUser marks a user approved by actor and records the activity.
func (s *Service) ApproveUser(ctx context.Context, actor Actor, uid, note string) (err error) {
	ctx, end := moderationSpan(ctx, "user.approve", uid, actor)
	defer func() { end(err) }()

	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("approve user: %w", err)
	}
	now := s.now().UTC()
	if err := s.store.SetUserStatus(ctx, uid, StatusChange{
		Status:     string(UserApproved),
		ApprovedAt: &now,
		ApprovedBy: actor.UID,
	}); err != nil {
		return fmt.Errorf("approve user %s: %w", uid, err)
	}
	s.forgetUser(uid)

	_, err = s.activity.LogUserApproved(ctx, UserModerationEntry{
		Actor: actor, AdminName: s.adminName(ctx, actor), User: u, Note: strings.TrimSpace(note),
	})
	return unrecorded(uid, err)
}

// RejectUser marks a user rejected with a required reason.
func (s *Service) RejectUser(ctx context.Context, actor Actor, uid, reason string) (err error) {
	reason, err = requireReason(reason)
	if err != nil {
		return err
	}
	ctx, end := moderationSpan(ctx, "user.reject", uid, actor)
	defer func() { end(err) }()

	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("reject user: %w", err)
	}
	if err := s.store.SetUserStatus(ctx, uid, StatusChange{
		Status:          string(UserRejected),
		RejectionReason: reason,
	}); err != nil {
		return fmt.Errorf("reject user %s: %w", uid, err)
	}
	s.forgetUser(uid)

	_, err = s.activity.LogUserRejected(ctx, UserModerationEntry{
		Actor: actor, AdminName: s.adminName(ctx, actor), User: u, Note: reason,
	})
	return unrecorded(uid, err)
}

// DeleteUser removes a user profile permanently.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, uid string) (err error) {
	ctx, end := moderationSpan(ctx, "user.delete", uid, actor)
	defer func() { end(err) }()

	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.store.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	s.forgetUser(uid)

	_, err = s.activity.LogUserDeleted(ctx, UserModerationEntry{
		Actor: actor, AdminName: s.adminName(ctx, actor), User: u,
	})
	return unrecorded(uid, err)
}

// ApproveTemplate marks a template approved. Templates with missing or
// duplicate element ids are refused.
func (s *Service) ApproveTemplate(ctx context.Context, actor Actor, id, note string) (err error) {
	ctx, end := moderationSpan(ctx, "template.approve", id, actor)
	defer func() { end(err) }()

	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("approve template: %w", err)
	}
	if verr := t.Validate(); verr != nil {
		return &ValidationError{Field: "elements", Message: verr.Error()}
	}
	now := s.now().UTC()
	if err := s.store.SetTemplateStatus(ctx, id, StatusChange{
		Status:     string(TemplateApproved),
		ApprovedAt: &now,
		ApprovedBy: actor.UID,
	}); err != nil {
		return fmt.Errorf("approve template %s: %w", id, err)
	}
	s.forgetTemplate(id)

	_, err = s.activity.LogTemplateApproved(ctx, s.templateEntry(ctx, actor, t, strings.TrimSpace(note)))
	return unrecorded(id, err)
}

// RejectTemplate marks a template rejected with a required reason.
func (s *Service) RejectTemplate(ctx context.Context, actor Actor, id, reason string) (err error) {
	reason, err = requireReason(reason)
	if err != nil {
		return err
	}
	ctx, end := moderationSpan(ctx, "template.reject", id, actor)
	defer func() { end(err) }()

	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("reject template: %w", err)
	}
	if err := s.store.SetTemplateStatus(ctx, id, StatusChange{
		Status:          string(TemplateRejected),
		RejectionReason: reason,
	}); err != nil {
		return fmt.Errorf("reject template %s: %w", id, err)
	}
	s.forgetTemplate(id)

	_, err = s.activity.LogTemplateRejected(ctx, s.templateEntry(ctx, actor, t, reason))
	return unrecorded(id, err)
}

func (s *Service) templateEntry(ctx context.Context, actor Actor, t *Template, note string) TemplateModerationEntry {
	e := TemplateModerationEntry{Actor: actor, AdminName: s.adminName(ctx, actor), Template: t, Note: note}
	if creator := s.optionalUser(ctx, t.CreatedBy); creator != nil {
		e.CreatorName = creator.DisplayName()
	}
	return e
}
