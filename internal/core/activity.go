package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultActivityLimit bounds activity listings without an explicit limit.
const DefaultActivityLimit = 100

// activityScanLimit bounds how many records a filtered listing or export reads.
const activityScanLimit = 10000

// ActivityLog appends and queries activity records.
type ActivityLog struct {
	store ActivityStore
	now   func() time.Time
}

// NewActivityLog creates an activity log over store.
func NewActivityLog(store ActivityStore, now func() time.Time) *ActivityLog {
	if now == nil {
		now = time.Now
	}
	return &ActivityLog{store: store, now: now}
}

// ----------------------------------------------------------------------------
// Typed Entries
// ----------------------------------------------------------------------------

// UserModerationEntry describes an admin action on a user profile.
type UserModerationEntry struct {
	Actor     Actor
	AdminName string
	User      *User
	// Note is the optional approval note or the rejection reason.
	Note string
}

// TemplateModerationEntry describes an admin action on a template.
type TemplateModerationEntry struct {
	Actor       Actor
	AdminName   string
	Template    *Template
	CreatorName string
	Note        string
}

// LogUserApproved records "<user> approved by <admin>[: <note>]".
func (a *ActivityLog) LogUserApproved(ctx context.Context, e UserModerationEntry) (*Activity, error) {
	desc := fmt.Sprintf("%s approved by %s", e.User.DisplayName(), e.AdminName)
	if e.Note != "" {
		desc += ": " + e.Note
	}
	meta := map[string]any{"approvedBy": e.AdminName, "adminUid": e.Actor.UID}
	if e.Note != "" {
		meta["note"] = e.Note
	}
	return a.logUser(ctx, ActivityUserApproved, desc, e.User, meta)
}

// LogUserRejected records "<user> rejected by <admin>: <reason>".
func (a *ActivityLog) LogUserRejected(ctx context.Context, e UserModerationEntry) (*Activity, error) {
	desc := fmt.Sprintf("%s rejected by %s: %s", e.User.DisplayName(), e.AdminName, e.Note)
	meta := map[string]any{"rejectedBy": e.AdminName, "adminUid": e.Actor.UID, "reason": e.Note}
	return a.logUser(ctx, ActivityUserRejected, desc, e.User, meta)
}

// LogUserDeleted records "<user> profile deleted by <admin>".
func (a *ActivityLog) LogUserDeleted(ctx context.Context, e UserModerationEntry) (*Activity, error) {
	desc := fmt.Sprintf("%s profile deleted by %s", e.User.DisplayName(), e.AdminName)
	meta := map[string]any{"deletedBy": e.AdminName, "adminUid": e.Actor.UID, "email": e.User.Email}
	return a.logUser(ctx, ActivityUserDeleted, desc, e.User, meta)
}

func (a *ActivityLog) logUser(ctx context.Context, typ ActivityType, desc string, u *User, meta map[string]any) (*Activity, error) {
	return a.Log(ctx, ActivityParams{
		Type:        typ,
		Description: desc,
		UserID:      u.UID,
		UserName:    u.DisplayName(),
		Metadata:    meta,
	})
}

// LogTemplateApproved records "Template "<name>" approved by <admin>".
func (a *ActivityLog) LogTemplateApproved(ctx context.Context, e TemplateModerationEntry) (*Activity, error) {
	desc := fmt.Sprintf("Template %q approved by %s", e.Template.TemplateName, e.AdminName)
	if e.Note != "" {
		desc += ": " + e.Note
	}
	meta := map[string]any{"templateId": e.Template.TemplateID, "templateName": e.Template.TemplateName,
		"approvedBy": e.AdminName, "adminUid": e.Actor.UID}
	if e.Note != "" {
		meta["note"] = e.Note
	}
	return a.logTemplate(ctx, ActivityTemplateApproved, desc, e, meta)
}

// LogTemplateRejected records "Template "<name>" rejected by <admin>: <reason>".
func (a *ActivityLog) LogTemplateRejected(ctx context.Context, e TemplateModerationEntry) (*Activity, error) {
	desc := fmt.Sprintf("Template %q rejected by %s: %s", e.Template.TemplateName, e.AdminName, e.Note)
	meta := map[string]any{"templateId": e.Template.TemplateID, "templateName": e.Template.TemplateName,
		"rejectedBy": e.AdminName, "adminUid": e.Actor.UID, "reason": e.Note}
	return a.logTemplate(ctx, ActivityTemplateRejected, desc, e, meta)
}

func (a *ActivityLog) logTemplate(ctx context.Context, typ ActivityType, desc string, e TemplateModerationEntry, meta map[string]any) (*Activity, error) {
	userName := e.CreatorName
	if userName == "" {
		userName = e.Template.CreatedBy
	}
	return a.Log(ctx, ActivityParams{
		Type:        typ,
		Description: desc,
		UserID:      e.Template.CreatedBy,
		UserName:    userName,
		Metadata:    meta,
	})
}

// ----------------------------------------------------------------------------
// Core Methods
// ----------------------------------------------------------------------------

// ActivityParams are the caller-supplied fields of a new record.
type ActivityParams struct {
	Type        ActivityType
	Description string
	UserID      string
	UserName    string
	Metadata    map[string]any
}

// Log appends a record. Client address and user agent from ctx are added to
// its metadata.
func (a *ActivityLog) Log(ctx context.Context, p ActivityParams) (*Activity, error) {
	meta := make(map[string]any, len(p.Metadata)+2)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	ip, ua := ClientFromContext(ctx)
	if ip != "" {
		meta["ipAddress"] = ip
	}
	if ua != "" {
		meta["userAgent"] = ua
	}

	rec := &Activity{
		ID:          uuid.New().String(),
		Type:        p.Type,
		Description: p.Description,
		UserID:      p.UserID,
		UserName:    p.UserName,
		Timestamp:   a.now().UTC(),
		Metadata:    meta,
	}
	if err := a.store.InsertActivity(ctx, rec); err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}
	return rec, nil
}

// ActivityFilter narrows an activity listing.
type ActivityFilter struct {
	Type ActivityType
	// Search matches user name, description and type, case-insensitively.
	Search string
	Limit  int
}

func (f ActivityFilter) matches(rec *Activity) bool {
	if f.Type != "" && rec.Type != f.Type {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.UserName), q) ||
		strings.Contains(strings.ToLower(rec.Description), q) ||
		strings.Contains(strings.ToLower(string(rec.Type)), q)
}

// List returns matching records, newest first.
func (a *ActivityLog) List(ctx context.Context, f ActivityFilter) ([]Activity, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	scan := limit
	if f.Type != "" || strings.TrimSpace(f.Search) != "" {
		scan = activityScanLimit
	}

	recs, err := a.store.ListActivity(ctx, scan)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	out := make([]Activity, 0, min(limit, len(recs)))
	for i := range recs {
		if !f.matches(&recs[i]) {
			continue
		}
		out = append(out, recs[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Export renders matching records as CSV.
func (a *ActivityLog) Export(ctx context.Context, f ActivityFilter) (io.Reader, error) {
	f.Limit = activityScanLimit
	recs, err := a.List(ctx, f)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("ID,Timestamp,Type,User ID,User Name,Description")
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("\n%s,%s,%s,%s,%s,%s",
			EscapeCSV(r.ID),
			FormatISO(&r.Timestamp),
			EscapeCSV(string(r.Type)),
			EscapeCSV(r.UserID),
			EscapeCSV(r.UserName),
			EscapeCSV(r.Description),
		))
	}
	return strings.NewReader(sb.String()), nil
}
