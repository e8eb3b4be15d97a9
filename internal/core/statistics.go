package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JonMunkholm/formconsole/internal/logging"
	"github.com/JonMunkholm/formconsole/internal/observability"
)

// DefaultRecentWindow is the trailing window counted as recent activity.
const DefaultRecentWindow = 7 * 24 * time.Hour

// RecentActivityPolicy decides which recent submissions count as activity.
type RecentActivityPolicy int

const (
	// RecentRequireContribution counts only recent submissions with at
	// least one contribution. Recent legacy submissions are not counted.
	RecentRequireContribution RecentActivityPolicy = iota
	// RecentCountAll counts every recent submission.
	RecentCountAll
)

func (p RecentActivityPolicy) String() string {
	if p == RecentCountAll {
		return "count_all"
	}
	return "require_contribution"
}

// Statistics summarises a submission set.
type Statistics struct {
	TotalSubmissions      int            `json:"totalSubmissions"`
	TotalContributors     int            `json:"totalContributors"`
	SubmissionsByTemplate map[string]int `json:"submissionsByTemplate"`
	ContributorsByUser    map[string]int `json:"contributorsByUser"`
	RecentActivityCount   int            `json:"recentActivityCount"`
	// Degraded is set when the figures are zeroed because the submission
	// set could not be loaded.
	Degraded bool `json:"degraded,omitempty"`
}

func emptyStatistics() Statistics {
	return Statistics{
		SubmissionsByTemplate: map[string]int{},
		ContributorsByUser:    map[string]int{},
	}
}

// ComputeStatistics aggregates subs. A submission is recent when its
// submittedAt is strictly after now minus window.
func ComputeStatistics(subs []Submission, now time.Time, window time.Duration, policy RecentActivityPolicy) Statistics {
	stats := emptyStatistics()
	stats.TotalSubmissions = len(subs)
	cutoff := now.Add(-window)

	for i := range subs {
		sub := &subs[i]
		stats.SubmissionsByTemplate[sub.TemplateID]++
		for uid := range sub.UserContributions {
			stats.ContributorsByUser[uid]++
		}

		if sub.SubmittedAt == nil || !sub.SubmittedAt.After(cutoff) {
			continue
		}
		if policy == RecentRequireContribution && len(sub.UserContributions) == 0 {
			continue
		}
		stats.RecentActivityCount++
	}

	stats.TotalContributors = len(stats.ContributorsByUser)
	return stats
}

// Statistics computes statistics over all submissions. It does not return
// an error: when the submissions cannot be loaded the result is zeroed and
// marked Degraded.
func (s *Service) Statistics(ctx context.Context) Statistics {
	ctx, span := observability.StartSpan(ctx, "submission.statistics",
		attribute.String("stats.recent_policy", s.recentPolicy.String()))
	defer span.End()

	subs, err := s.store.ListSubmissions(ctx, SubmissionQuery{})
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Error("statistics unavailable", "error", err)
		stats := emptyStatistics()
		stats.Degraded = true
		return stats
	}
	return ComputeStatistics(subs, s.now(), s.recentWindow, s.recentPolicy)
}
