package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/formconsole/internal/core"
)

func TestListSubmissions_FilterAndOrder(t *testing.T) {
	s := New()
	day := func(d int) *time.Time {
		ts := time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC)
		return &ts
	}
	s.PutSubmission(core.Submission{ID: "a", TemplateID: "T1", SubmittedAt: day(1)})
	s.PutSubmission(core.Submission{ID: "b", TemplateID: "T1", SubmittedAt: day(3)})
	s.PutSubmission(core.Submission{ID: "c", TemplateID: "T2", SubmittedAt: day(2)})
	s.PutSubmission(core.Submission{ID: "d", TemplateID: "T1"})

	tests := []struct {
		name string
		q    core.SubmissionQuery
		want []string
	}{
		{"all newest first, unsubmitted last", core.SubmissionQuery{}, []string{"b", "c", "a", "d"}},
		{"by template", core.SubmissionQuery{TemplateID: "T1"}, []string{"b", "a", "d"}},
		{"date range", core.SubmissionQuery{SubmittedFrom: *day(2), SubmittedTo: *day(3)}, []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListSubmissions(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("ListSubmissions() error = %v", err)
			}
			var ids []string
			for _, sub := range got {
				ids = append(ids, sub.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestSetUserStatus(t *testing.T) {
	s := New()
	s.PutUser(core.User{UID: "u1", Status: core.UserPending, RejectionReason: "old"})
	ctx := context.Background()

	now := time.Now()
	if err := s.SetUserStatus(ctx, "u1", core.StatusChange{Status: "approved", ApprovedAt: &now, ApprovedBy: "admin"}); err != nil {
		t.Fatalf("SetUserStatus() error = %v", err)
	}
	u, _ := s.GetUser(ctx, "u1")
	if u.Status != core.UserApproved || u.ApprovedBy != "admin" || u.RejectionReason != "" {
		t.Errorf("user after approve = %+v", u)
	}

	err := s.SetUserStatus(ctx, "missing", core.StatusChange{Status: "approved"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetUserStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFailOn(t *testing.T) {
	s := New()
	s.PutUser(core.User{UID: "u1"})
	s.PutUser(core.User{UID: "u2"})
	boom := errors.New("write failed")
	s.FailOn(OpSetUserStatus, "u2", boom)
	ctx := context.Background()

	if err := s.SetUserStatus(ctx, "u1", core.StatusChange{Status: "approved"}); err != nil {
		t.Errorf("u1 error = %v, want nil", err)
	}
	if err := s.SetUserStatus(ctx, "u2", core.StatusChange{Status: "approved"}); !errors.Is(err, boom) {
		t.Errorf("u2 error = %v, want %v", err, boom)
	}
}

func TestLoadSeed(t *testing.T) {
	seed := `{
		"users": [{"uid": "u1", "name": "Alice", "status": "pending"}],
		"templates": [{"templateId": "T1", "templateName": "Site Visit", "status": "approved",
			"elements": [{"id": "f1", "type": "YES_NO_TOGGLE", "label": "Attended?", "order": 0}]}],
		"submissions": [{"id": "s1", "templateId": "T1", "draft": false,
			"userContributions": {"u1": {"data": {"f1": true}, "username": "alice"}}}]
	}`
	s := New()
	if err := s.LoadSeed(strings.NewReader(seed)); err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	ctx := context.Background()

	tmpl, err := s.GetTemplate(ctx, "T1")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if tmpl.Elements[0].Type != core.ElementYesNo {
		t.Errorf("element type = %q", tmpl.Elements[0].Type)
	}
	sub, err := s.GetSubmission(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if sub.UserContributions["u1"].Username != "alice" {
		t.Errorf("contribution = %+v", sub.UserContributions["u1"])
	}
}
