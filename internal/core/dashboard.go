package core

import (
	"context"
	"fmt"
	"time"
)

// OverdueAfter is how long a submitted form may wait before it counts as an
// overdue review.
const OverdueAfter = 7 * 24 * time.Hour

// Dashboard holds the console's landing-page counters.
type Dashboard struct {
	PendingUsers     int        `json:"pendingUsers"`
	PendingTemplates int        `json:"pendingTemplates"`
	SubmissionsToday int        `json:"submissionsToday"`
	OverdueReviews   int        `json:"overdueReviews"`
	RecentActivity   []Activity `json:"recentActivity"`
}

// Dashboard computes landing-page counters.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.store.ListUsers(ctx, UserPending)
	if err != nil {
		return nil, fmt.Errorf("count pending users: %w", err)
	}
	tmpls, err := s.store.ListTemplates(ctx, TemplatePending, TemplateDraft)
	if err != nil {
		return nil, fmt.Errorf("count pending templates: %w", err)
	}
	subs, err := s.store.ListSubmissions(ctx, SubmissionQuery{})
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	recent, err := s.activity.List(ctx, ActivityFilter{Limit: 10})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		PendingUsers:     len(users),
		PendingTemplates: len(tmpls),
		RecentActivity:   recent,
	}
	now := s.now().UTC()
	today := now.Format("2006-01-02")
	overdueCutoff := now.Add(-OverdueAfter)
	for i := range subs {
		sub := &subs[i]
		if sub.SubmittedAt == nil {
			continue
		}
		if sub.SubmittedAt.UTC().Format("2006-01-02") == today {
			d.SubmissionsToday++
		}
		if sub.DerivedStatus() == "submitted" && sub.SubmittedAt.Before(overdueCutoff) {
			d.OverdueReviews++
		}
	}
	return d, nil
}
