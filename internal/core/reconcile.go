package core

import (
	"sort"
	"strings"
	"time"
)

// Display fallbacks and section naming for reconciled submissions.
const (
	GeneralSectionKey   = "general"
	GeneralSectionLabel = "General Information"
	LegacySectionLabel  = "Legacy Submission Data"
	SectionSeparator    = " > "
	TemplateNotFound    = "Template Not Found"
	UnknownUser         = "Unknown User"
	UnknownTemplate     = "Unknown Template"
)

// Submission shapes.
const (
	ShapeLegacy        = "legacy"
	ShapeContributions = "contributions"
)

// FieldView is one answered field ready for display.
type FieldView struct {
	FieldID string `json:"fieldId"`
	Label   string `json:"label"`
	Value   string `json:"value"`
}

// SectionView groups fields under a section heading.
type SectionView struct {
	Key    string      `json:"key"`
	Label  string      `json:"label"`
	Fields []FieldView `json:"fields"`
}

// ContributorView is one contributor's answers grouped by section.
type ContributorView struct {
	UserID        string        `json:"userId"`
	Username      string        `json:"username"`
	ContributedAt *time.Time    `json:"contributedAt,omitempty"`
	ResponseCount int           `json:"responseCount"`
	Sections      []SectionView `json:"sections"`
}

// MediaView is an attachment with its resolved download URL. URL is empty
// when signing is disabled or failed.
type MediaView struct {
	MediaAttachment
	ContributorID string `json:"contributorId,omitempty"`
	URL           string `json:"url,omitempty"`
}

// TimelineEvent is one entry in a submission's history.
type TimelineEvent struct {
	Label  string    `json:"label"`
	At     time.Time `json:"at"`
	UserID string    `json:"userId,omitempty"`
}

// SubmissionView is the reconciled, display-ready form of a submission.
type SubmissionView struct {
	ID            string            `json:"id"`
	DisplayID     string            `json:"displayId"`
	TemplateID    string            `json:"templateId"`
	TemplateName  string            `json:"templateName"`
	ProjectName   string            `json:"projectName,omitempty"`
	SubmitterName string            `json:"submitterName"`
	Status        string            `json:"status"`
	Version       int               `json:"version,omitempty"`
	Shape         string            `json:"shape"`
	SubmittedAt   *time.Time        `json:"submittedAt,omitempty"`
	CreatedAt     *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time        `json:"updatedAt,omitempty"`
	Contributors  []ContributorView `json:"contributors,omitempty"`
	Legacy        *SectionView      `json:"legacy,omitempty"`
	Media         []MediaView       `json:"media,omitempty"`
	Timeline      []TimelineEvent   `json:"timeline"`
}

// BuildView reconciles a submission into its display model. tmpl and
// submitter may be nil when they could not be resolved; fallback labels are
// substituted. Media URLs are left empty.
func BuildView(sub *Submission, tmpl *Template, submitter *User) *SubmissionView {
	v := &SubmissionView{
		ID:            sub.ID,
		DisplayID:     sub.DisplayID(),
		TemplateID:    sub.TemplateID,
		TemplateName:  TemplateNotFound,
		SubmitterName: SubmitterName(sub, submitter),
		Status:        sub.DerivedStatus(),
		Version:       sub.Version,
		SubmittedAt:   sub.SubmittedAt,
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
	if tmpl != nil {
		v.TemplateName = tmpl.TemplateName
		v.ProjectName = tmpl.ProjectName
	}

	switch p := sub.Payload().(type) {
	case ContributionsPayload:
		v.Shape = ShapeContributions
		v.Contributors = contributorViews(p.Contributions, tmpl)
	case LegacyPayload:
		v.Shape = ShapeLegacy
		v.Legacy = legacySection(p.Data, tmpl)
	}

	v.Media = mediaViews(sub)
	v.Timeline = timeline(sub)
	return v
}

// SubmitterName resolves the display name of the submission's assignee:
// profile name, profile email, stored username, uid, then "Unknown User".
func SubmitterName(sub *Submission, u *User) string {
	switch {
	case u != nil && u.Name != "":
		return u.Name
	case u != nil && u.Email != "":
		return u.Email
	case sub.AssigneeUsername != "":
		return sub.AssigneeUsername
	case sub.AssigneeUID != "":
		return sub.AssigneeUID
	default:
		return UnknownUser
	}
}

// QuestionLabel resolves the label of a contributed field: recorded metadata
// label, then the template element label, then the field id.
func QuestionLabel(fieldID string, meta FieldMetadata, tmpl *Template) string {
	if meta.FieldLabel != "" {
		return meta.FieldLabel
	}
	if tmpl != nil {
		if el, ok := tmpl.FindElement(fieldID); ok {
			return el.DisplayLabel()
		}
	}
	return fieldID
}

func contributorViews(contribs map[string]Contribution, tmpl *Template) []ContributorView {
	ids := make([]string, 0, len(contribs))
	for id := range contribs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ContributorView, 0, len(ids))
	for _, uid := range ids {
		c := contribs[uid]
		username := c.Username
		if username == "" {
			username = UnknownUser
		}
		out = append(out, ContributorView{
			UserID:        uid,
			Username:      username,
			ContributedAt: c.ContributedAt,
			ResponseCount: len(c.Data),
			Sections:      contributionSections(c, tmpl),
		})
	}
	return out
}

// contributionSections groups a contribution's fields by joined section
// path. The general group comes first, then sections by key.
func contributionSections(c Contribution, tmpl *Template) []SectionView {
	groups := make(map[string]*SectionView)
	for _, fieldID := range sortedKeys(c.Data) {
		meta := c.FieldMetadata[fieldID]
		key := GeneralSectionKey
		label := GeneralSectionLabel
		if path := nonEmpty(meta.SectionPath); len(path) > 0 {
			key = strings.Join(path, SectionSeparator)
			label = key
		}
		g, ok := groups[key]
		if !ok {
			g = &SectionView{Key: key, Label: label}
			groups[key] = g
		}
		value := c.Data[fieldID]
		display := NotAvailable
		if !IsEmptyValue(value) {
			display = FormatValue(value)
		}
		g.Fields = append(g.Fields, FieldView{
			FieldID: fieldID,
			Label:   QuestionLabel(fieldID, meta, tmpl),
			Value:   display,
		})
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		if k != GeneralSectionKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := groups[GeneralSectionKey]; ok {
		keys = append([]string{GeneralSectionKey}, keys...)
	}

	out := make([]SectionView, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	return out
}

// legacySection renders flat legacy data with labels and formatting taken
// from the template. Fields follow template order; unknown ids trail by id.
func legacySection(data map[string]any, tmpl *Template) *SectionView {
	section := &SectionView{Key: GeneralSectionKey, Label: LegacySectionLabel, Fields: []FieldView{}}
	if len(data) == 0 {
		return section
	}

	ids := sortedKeys(data)
	if tmpl != nil {
		pos := tmpl.elementPositions()
		sort.SliceStable(ids, func(i, j int) bool {
			pi, iok := pos[ids[i]]
			pj, jok := pos[ids[j]]
			switch {
			case iok && jok:
				return pi < pj
			case iok != jok:
				return iok
			default:
				return ids[i] < ids[j]
			}
		})
	}

	for _, fieldID := range ids {
		var el *Element
		if tmpl != nil {
			el, _ = tmpl.FindElement(fieldID)
		}
		label := fieldID
		if el != nil {
			label = el.DisplayLabel()
		}
		section.Fields = append(section.Fields, FieldView{
			FieldID: fieldID,
			Label:   label,
			Value:   FormatTyped(el, data[fieldID]),
		})
	}
	return section
}

// mediaViews collects submission-level media followed by each contributor's
// media in contributor order.
func mediaViews(sub *Submission) []MediaView {
	var out []MediaView
	for _, m := range sub.Media {
		out = append(out, MediaView{MediaAttachment: m})
	}
	for _, uid := range sub.ContributorIDs() {
		for _, m := range sub.UserContributions[uid].Media {
			out = append(out, MediaView{MediaAttachment: m, ContributorID: uid})
		}
	}
	return out
}

func timeline(sub *Submission) []TimelineEvent {
	events := []TimelineEvent{}
	if sub.CreatedAt != nil {
		events = append(events, TimelineEvent{Label: "Created", At: *sub.CreatedAt})
	}
	for _, uid := range sub.ContributorIDs() {
		c := sub.UserContributions[uid]
		if c.ContributedAt == nil {
			continue
		}
		name := c.Username
		if name == "" {
			name = uid
		}
		events = append(events, TimelineEvent{Label: "Contribution by " + name, At: *c.ContributedAt, UserID: uid})
	}
	if sub.UpdatedAt != nil && (sub.CreatedAt == nil || !sub.UpdatedAt.Equal(*sub.CreatedAt)) {
		events = append(events, TimelineEvent{Label: "Last updated", At: *sub.UpdatedAt})
	}
	if sub.SubmittedAt != nil {
		label := "Submitted"
		if sub.Draft {
			label = "Draft saved"
		}
		events = append(events, TimelineEvent{Label: label, At: *sub.SubmittedAt})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
