package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/formconsole/internal/logging"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	// Signer resolves media storage paths; nil disables media URLs.
	Signer MediaSigner

	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	MaxConcurrentExports int
	ExportWaitTime       time.Duration

	RecentWindow time.Duration
	RecentPolicy RecentActivityPolicy

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service provides the console's business logic over a document store.
// It is safe for concurrent use.
type Service struct {
	store   Store
	signer  MediaSigner
	lookups *cache.Cache
	limiter *ExportLimiter

	recentWindow time.Duration
	recentPolicy RecentActivityPolicy
	now          func() time.Time

	activity *ActivityLog
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.CacheCleanupInterval <= 0 {
		opts.CacheCleanupInterval = 10 * time.Minute
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:        store,
		signer:       opts.Signer,
		lookups:      cache.New(opts.CacheTTL, opts.CacheCleanupInterval),
		limiter:      NewExportLimiter(opts.MaxConcurrentExports, opts.ExportWaitTime),
		recentWindow: opts.RecentWindow,
		recentPolicy: opts.RecentPolicy,
		now:          opts.Now,
		activity:     NewActivityLog(store, opts.Now),
	}
}

// Activity returns the activity log.
func (s *Service) Activity() *ActivityLog {
	return s.activity
}

// ExportLimiter returns the limiter guarding concurrent exports.
func (s *Service) ExportLimiter() *ExportLimiter {
	return s.limiter
}

// Ping checks the document store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func templateKey(id string) string { return "tpl:" + id }
func userKey(uid string) string    { return "user:" + uid }

// template returns a template through the lookup cache.
func (s *Service) template(ctx context.Context, id string) (*Template, error) {
	if id == "" {
		return nil, NewNotFound("template", id)
	}
	if v, ok := s.lookups.Get(templateKey(id)); ok {
		return v.(*Template), nil
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.lookups.SetDefault(templateKey(id), t)
	return t, nil
}

// templates fetches many templates in one store call, serving cached
// entries locally.
func (s *Service) templates(ctx context.Context, ids []string) (map[string]*Template, error) {
	out := make(map[string]*Template, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := s.lookups.Get(templateKey(id)); ok {
			out[id] = v.(*Template)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.store.GetTemplates(ctx, missing)
	if err != nil {
		return out, fmt.Errorf("fetch templates: %w", err)
	}
	for id, t := range fetched {
		s.lookups.SetDefault(templateKey(id), t)
		out[id] = t
	}
	return out, nil
}

// user returns a user profile through the lookup cache.
func (s *Service) user(ctx context.Context, uid string) (*User, error) {
	if uid == "" {
		return nil, NewNotFound("user", uid)
	}
	if v, ok := s.lookups.Get(userKey(uid)); ok {
		return v.(*User), nil
	}
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.lookups.SetDefault(userKey(uid), u)
	return u, nil
}

// optionalTemplate resolves a template, logging and swallowing failures.
func (s *Service) optionalTemplate(ctx context.Context, id string) *Template {
	t, err := s.template(ctx, id)
	if err != nil {
		logLookupFailure(ctx, "template", id, err)
		return nil
	}
	return t
}

// optionalUser resolves a user, logging and swallowing failures.
func (s *Service) optionalUser(ctx context.Context, uid string) *User {
	if uid == "" {
		return nil
	}
	u, err := s.user(ctx, uid)
	if err != nil {
		logLookupFailure(ctx, "user", uid, err)
		return nil
	}
	return u
}

func logLookupFailure(ctx context.Context, resource, id string, err error) {
	logger := logging.FromContext(ctx)
	if errors.Is(err, ErrNotFound) {
		logger.Debug("lookup missed", "resource", resource, "id", id)
		return
	}
	logger.Warn("lookup failed", "resource", resource, "id", id, "error", err)
}

func (s *Service) forgetUser(uid string)    { s.lookups.Delete(userKey(uid)) }
func (s *Service) forgetTemplate(id string) { s.lookups.Delete(templateKey(id)) }
