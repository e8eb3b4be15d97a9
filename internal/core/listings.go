package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Listing tabs.
const (
	TabAll      = "all"
	TabPending  = "pending"
	TabApproved = "approved"
)

// UserFilter narrows the user request list.
type UserFilter struct {
	Tab    string
	Search string
}

// ListUserRequests returns pending and approved users, excluding admins,
// newest first.
func (s *Service) ListUserRequests(ctx context.Context, f UserFilter) ([]User, error) {
	var statuses []UserStatus
	switch f.Tab {
	case "", TabAll:
		statuses = []UserStatus{UserPending, UserApproved}
	case TabPending:
		statuses = []UserStatus{UserPending}
	case TabApproved:
		statuses = []UserStatus{UserApproved}
	default:
		return nil, &ValidationError{Field: "tab", Message: fmt.Sprintf("unknown tab %q", f.Tab)}
	}

	users, err := s.store.ListUsers(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.IsAdmin() {
			continue
		}
		if q != "" && !containsAny(q, u.Name, u.Email, u.CompanyName) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// TemplateFilter narrows the template list.
type TemplateFilter struct {
	Tab    string
	Search string
}

// ListTemplates returns draft, pending and approved templates, newest first.
func (s *Service) ListTemplates(ctx context.Context, f TemplateFilter) ([]Template, error) {
	var statuses []TemplateStatus
	switch f.Tab {
	case "", TabAll:
		statuses = []TemplateStatus{TemplateDraft, TemplatePending, TemplateApproved}
	case TabPending:
		statuses = []TemplateStatus{TemplatePending}
	case TabApproved:
		statuses = []TemplateStatus{TemplateApproved}
	default:
		return nil, &ValidationError{Field: "tab", Message: fmt.Sprintf("unknown tab %q", f.Tab)}
	}

	tmpls, err := s.store.ListTemplates(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Template, 0, len(tmpls))
	for _, t := range tmpls {
		if q != "" && !containsAny(q, t.TemplateName, t.ProjectName, t.TemplateID) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetTemplate returns a template with its elements in display order.
func (s *Service) GetTemplate(ctx context.Context, id string) (*Template, error) {
	t, err := s.template(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	out := *t
	out.Elements = t.OrderedElements()
	return &out, nil
}

// GetUser returns a user profile.
func (s *Service) GetUser(ctx context.Context, uid string) (*User, error) {
	u, err := s.user(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
