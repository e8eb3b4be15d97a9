package core

import (
	"context"
	"time"
)

// UserStore reads and moderates user profiles.
type UserStore interface {
	GetUser(ctx context.Context, uid string) (*User, error)
	// ListUsers returns users whose status is one of statuses, or all users
	// when none are given.
	ListUsers(ctx context.Context, statuses ...UserStatus) ([]User, error)
	// SetUserStatus applies a field-level update. Returns ErrNotFound when
	// the user does not exist.
	SetUserStatus(ctx context.Context, uid string, change StatusChange) error
	DeleteUser(ctx context.Context, uid string) error
}

// TemplateStore reads and moderates templates.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*Template, error)
	// GetTemplates fetches many templates in one round trip. Missing ids are
	// absent from the result.
	GetTemplates(ctx context.Context, ids []string) (map[string]*Template, error)
	ListTemplates(ctx context.Context, statuses ...TemplateStatus) ([]Template, error)
	SetTemplateStatus(ctx context.Context, id string, change StatusChange) error
}

// SubmissionQuery narrows a submission listing. Zero values do not filter.
type SubmissionQuery struct {
	TemplateID    string
	SubmittedFrom time.Time
	SubmittedTo   time.Time
}

// SubmissionStore reads submissions. Submissions are read-only to the console.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	// ListSubmissions returns matching submissions ordered by submittedAt
	// descending.
	ListSubmissions(ctx context.Context, q SubmissionQuery) ([]Submission, error)
}

// ActivityStore appends and lists activity records. Records are never
// updated or deleted.
type ActivityStore interface {
	InsertActivity(ctx context.Context, a *Activity) error
	// ListActivity returns the newest records first. limit <= 0 means no limit.
	ListActivity(ctx context.Context, limit int) ([]Activity, error)
}

// Store is the full document store the console runs against.
type Store interface {
	UserStore
	TemplateStore
	SubmissionStore
	ActivityStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// MediaSigner resolves a storage path to a downloadable URL.
type MediaSigner interface {
	SignedURL(ctx context.Context, storagePath string) (string, error)
}
