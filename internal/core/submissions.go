package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JonMunkholm/formconsole/internal/logging"
	"github.com/JonMunkholm/formconsole/internal/observability"
)

// SubmissionFilter narrows submission listings and exports.
type SubmissionFilter struct {
	TemplateID string
	// UserID keeps submissions the user contributed to.
	UserID string
	From   time.Time
	To     time.Time
	// Search matches template id, submission id, template name and
	// contributor usernames, case-insensitively.
	Search string
}

func (f SubmissionFilter) validate() error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return &ValidationError{Field: "to", Message: "must not be before from"}
	}
	return nil
}

// ResolvedSubmission is a listing row with related records resolved.
type ResolvedSubmission struct {
	ID               string     `json:"id"`
	DisplayID        string     `json:"displayId"`
	TemplateID       string     `json:"templateId"`
	TemplateName     string     `json:"templateName"`
	SubmitterName    string     `json:"submitterName"`
	Status           string     `json:"status"`
	Shape            string     `json:"shape"`
	ContributorCount int        `json:"contributorCount"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
}

// QuerySubmissions loads submissions matching f, newest first.
func (s *Service) QuerySubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, SubmissionQuery{
		TemplateID:    f.TemplateID,
		SubmittedFrom: f.From,
		SubmittedTo:   f.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	if f.UserID != "" {
		kept := subs[:0]
		for _, sub := range subs {
			if _, ok := sub.UserContributions[f.UserID]; ok {
				kept = append(kept, sub)
			}
		}
		subs = kept
	}

	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		tmpls := s.prefetchTemplates(ctx, subs)
		kept := subs[:0]
		for _, sub := range subs {
			if submissionMatches(&sub, tmpls[sub.TemplateID], q) {
				kept = append(kept, sub)
			}
		}
		subs = kept
	}
	return subs, nil
}

func submissionMatches(sub *Submission, tmpl *Template, q string) bool {
	if strings.Contains(strings.ToLower(sub.TemplateID), q) || strings.Contains(strings.ToLower(sub.ID), q) {
		return true
	}
	name := sub.TemplateName
	if tmpl != nil {
		name = tmpl.TemplateName
	}
	if strings.Contains(strings.ToLower(name), q) {
		return true
	}
	for _, c := range sub.UserContributions {
		if strings.Contains(strings.ToLower(c.Username), q) {
			return true
		}
	}
	return false
}

// ListSubmissions returns resolved listing rows for submissions matching f.
func (s *Service) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]ResolvedSubmission, error) {
	subs, err := s.QuerySubmissions(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.ResolveSubmissions(ctx, subs), nil
}

// ResolveSubmissions attaches template names, submitter names and statuses.
// It never fails: unresolvable references get fallback labels.
func (s *Service) ResolveSubmissions(ctx context.Context, subs []Submission) []ResolvedSubmission {
	tmpls := s.prefetchTemplates(ctx, subs)

	out := make([]ResolvedSubmission, 0, len(subs))
	for i := range subs {
		sub := &subs[i]
		name := TemplateNotFound
		if t := tmpls[sub.TemplateID]; t != nil {
			name = t.TemplateName
		}
		shape := ShapeLegacy
		if _, ok := sub.Payload().(ContributionsPayload); ok {
			shape = ShapeContributions
		}
		out = append(out, ResolvedSubmission{
			ID:               sub.ID,
			DisplayID:        sub.DisplayID(),
			TemplateID:       sub.TemplateID,
			TemplateName:     name,
			SubmitterName:    SubmitterName(sub, s.optionalUser(ctx, sub.AssigneeUID)),
			Status:           sub.DerivedStatus(),
			Shape:            shape,
			ContributorCount: len(sub.UserContributions),
			SubmittedAt:      sub.SubmittedAt,
		})
	}
	return out
}

// prefetchTemplates loads the templates referenced by subs in one call.
// A failed fetch is logged and yields whatever was cached.
func (s *Service) prefetchTemplates(ctx context.Context, subs []Submission) map[string]*Template {
	ids := make([]string, 0, len(subs))
	for i := range subs {
		ids = append(ids, subs[i].TemplateID)
	}
	tmpls, err := s.templates(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Warn("template prefetch failed", "error", err)
	}
	return tmpls
}

// ReconcileSubmission loads a submission and builds its display model.
// Only a failure to load the submission itself is returned as an error.
func (s *Service) ReconcileSubmission(ctx context.Context, id string) (view *SubmissionView, err error) {
	ctx, span := observability.StartSpan(ctx, "submission.reconcile", attribute.String("submission.id", id))
	defer func() { observability.EndSpan(span, err) }()

	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	view = BuildView(sub, s.optionalTemplate(ctx, sub.TemplateID), s.optionalUser(ctx, sub.AssigneeUID))
	s.signMedia(ctx, view.Media)
	return view, nil
}

// signMedia fills download URLs. Signing failures leave the URL empty.
func (s *Service) signMedia(ctx context.Context, media []MediaView) {
	if s.signer == nil {
		return
	}
	for i := range media {
		if media[i].StoragePath == "" {
			continue
		}
		u, err := s.signer.SignedURL(ctx, media[i].StoragePath)
		if err != nil {
			logging.FromContext(ctx).Warn("media url signing failed",
				"storage_path", media[i].StoragePath, "error", err)
			continue
		}
		media[i].URL = u
	}
}
