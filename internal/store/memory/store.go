// Package memory is an in-process document store. It backs tests and
// memory:// deployments, which may be seeded from a JSON file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/JonMunkholm/formconsole/internal/core"
)

// Operation names accepted by FailOn.
const (
	OpGetUser           = "GetUser"
	OpListUsers         = "ListUsers"
	OpSetUserStatus     = "SetUserStatus"
	OpDeleteUser        = "DeleteUser"
	OpGetTemplate       = "GetTemplate"
	OpGetTemplates      = "GetTemplates"
	OpListTemplates     = "ListTemplates"
	OpSetTemplateStatus = "SetTemplateStatus"
	OpGetSubmission     = "GetSubmission"
	OpListSubmissions   = "ListSubmissions"
	OpInsertActivity    = "InsertActivity"
	OpListActivity      = "ListActivity"
)

// Store keeps documents in maps guarded by a mutex.
type Store struct {
	mu          sync.RWMutex
	users       map[string]core.User
	templates   map[string]core.Template
	submissions map[string]core.Submission
	activity    []core.Activity
	failures    map[string]error
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]core.User),
		templates:   make(map[string]core.Template),
		submissions: make(map[string]core.Submission),
		failures:    make(map[string]error),
	}
}

// Seed is the JSON layout accepted by LoadSeed.
type Seed struct {
	Users       []core.User       `json:"users"`
	Templates   []core.Template   `json:"templates"`
	Submissions []core.Submission `json:"submissions"`
}

// LoadSeed adds the documents in r.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, u := range seed.Users {
		s.PutUser(u)
	}
	for _, t := range seed.Templates {
		s.PutTemplate(t)
	}
	for _, sub := range seed.Submissions {
		s.PutSubmission(sub)
	}
	return nil
}

// LoadSeedFile adds the documents in the JSON file at path.
func (s *Store) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.LoadSeed(f)
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UID] = u
}

// PutTemplate inserts or replaces a template.
func (s *Store) PutTemplate(t core.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.TemplateID] = t
}

// PutSubmission inserts or replaces a submission.
func (s *Store) PutSubmission(sub core.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
}

// FailOn makes op fail with err for the document id. An empty id fails
// every call of op.
func (s *Store) FailOn(op, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+"/"+id] = err
}

func (s *Store) failure(op, id string) error {
	if err, ok := s.failures[op+"/"+id]; ok {
		return err
	}
	return s.failures[op+"/"]
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, uid string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpGetUser, uid); err != nil {
		return nil, err
	}
	u, ok := s.users[uid]
	if !ok {
		return nil, core.NewNotFound("user", uid)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, statuses ...core.UserStatus) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpListUsers, ""); err != nil {
		return nil, err
	}
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		if len(statuses) == 0 || slices.Contains(statuses, u.Status) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *Store) SetUserStatus(ctx context.Context, uid string, change core.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpSetUserStatus, uid); err != nil {
		return err
	}
	u, ok := s.users[uid]
	if !ok {
		return core.NewNotFound("user", uid)
	}
	u.Status = core.UserStatus(change.Status)
	u.RejectionReason = change.RejectionReason
	if change.ApprovedAt != nil {
		at := *change.ApprovedAt
		u.ApprovedAt = &at
		u.ApprovedBy = change.ApprovedBy
	}
	s.users[uid] = u
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpDeleteUser, uid); err != nil {
		return err
	}
	if _, ok := s.users[uid]; !ok {
		return core.NewNotFound("user", uid)
	}
	delete(s.users, uid)
	return nil
}

// ----------------------------------------------------------------------------
// Templates
// ----------------------------------------------------------------------------

func (s *Store) GetTemplate(ctx context.Context, id string) (*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpGetTemplate, id); err != nil {
		return nil, err
	}
	t, ok := s.templates[id]
	if !ok {
		return nil, core.NewNotFound("template", id)
	}
	return &t, nil
}

func (s *Store) GetTemplates(ctx context.Context, ids []string) (map[string]*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpGetTemplates, ""); err != nil {
		return nil, err
	}
	out := make(map[string]*core.Template, len(ids))
	for _, id := range ids {
		if t, ok := s.templates[id]; ok {
			out[id] = &t
		}
	}
	return out, nil
}

func (s *Store) ListTemplates(ctx context.Context, statuses ...core.TemplateStatus) ([]core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpListTemplates, ""); err != nil {
		return nil, err
	}
	out := make([]core.Template, 0, len(s.templates))
	for _, t := range s.templates {
		if len(statuses) == 0 || slices.Contains(statuses, t.Status) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateID < out[j].TemplateID })
	return out, nil
}

func (s *Store) SetTemplateStatus(ctx context.Context, id string, change core.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpSetTemplateStatus, id); err != nil {
		return err
	}
	t, ok := s.templates[id]
	if !ok {
		return core.NewNotFound("template", id)
	}
	t.Status = core.TemplateStatus(change.Status)
	t.RejectionReason = change.RejectionReason
	if change.ApprovedAt != nil {
		at := *change.ApprovedAt
		t.ApprovedAt = &at
		t.ApprovedBy = change.ApprovedBy
	}
	s.templates[id] = t
	return nil
}

// ----------------------------------------------------------------------------
// Submissions
// ----------------------------------------------------------------------------

func (s *Store) GetSubmission(ctx context.Context, id string) (*core.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpGetSubmission, id); err != nil {
		return nil, err
	}
	sub, ok := s.submissions[id]
	if !ok {
		return nil, core.NewNotFound("submission", id)
	}
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, q core.SubmissionQuery) ([]core.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpListSubmissions, ""); err != nil {
		return nil, err
	}
	out := make([]core.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if q.TemplateID != "" && sub.TemplateID != q.TemplateID {
			continue
		}
		if !q.SubmittedFrom.IsZero() && (sub.SubmittedAt == nil || sub.SubmittedAt.Before(q.SubmittedFrom)) {
			continue
		}
		if !q.SubmittedTo.IsZero() && (sub.SubmittedAt == nil || sub.SubmittedAt.After(q.SubmittedTo)) {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SubmittedAt, out[j].SubmittedAt
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return out[i].ID < out[j].ID
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

// ----------------------------------------------------------------------------
// Activity
// ----------------------------------------------------------------------------

func (s *Store) InsertActivity(ctx context.Context, a *core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpInsertActivity, ""); err != nil {
		return err
	}
	s.activity = append(s.activity, *a)
	return nil
}

func (s *Store) ListActivity(ctx context.Context, limit int) ([]core.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(OpListActivity, ""); err != nil {
		return nil, err
	}
	out := make([]core.Activity, 0, len(s.activity))
	for i := len(s.activity) - 1; i >= 0; i-- {
		out = append(out, s.activity[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
