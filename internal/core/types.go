package core

import (
	"fmt"
	"sort"
	"time"
)

// UserStatus is the moderation state of a user registration.
type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
)

// TemplateStatus is the moderation state of a form template.
type TemplateStatus string

const (
	TemplateDraft    TemplateStatus = "draft"
	TemplatePending  TemplateStatus = "pending"
	TemplateApproved TemplateStatus = "approved"
	TemplateRejected TemplateStatus = "rejected"
)

// ElementType identifies the kind of a template element.
type ElementType string

const (
	ElementTitle       ElementType = "TITLE"
	ElementSubtitle    ElementType = "SUBTITLE"
	ElementTextInput   ElementType = "TEXT_INPUT"
	ElementNumberInput ElementType = "NUMBER_INPUT"
	ElementDatePicker  ElementType = "DATE_PICKER"
	ElementYesNo       ElementType = "YES_NO_TOGGLE"
	ElementPhotoUpload ElementType = "PHOTO_UPLOAD"
	ElementSaveDraft   ElementType = "SAVE_DRAFT"
	ElementSubmitForm  ElementType = "SUBMIT_FORM"
	ElementContainer   ElementType = "CONTAINER"
)

// Permissions are the capability flags carried on a user profile.
type Permissions struct {
	CanCreateTemplates bool `json:"canCreateTemplates" bson:"canCreateTemplates"`
	CanApproveUsers    bool `json:"canApproveUsers" bson:"canApproveUsers"`
	CanManageJobRoles  bool `json:"canManageJobRoles" bson:"canManageJobRoles"`
}

// User is a registered field user or administrator.
type User struct {
	UID              string      `json:"uid" bson:"_id"`
	Email            string      `json:"email" bson:"email"`
	Name             string      `json:"name" bson:"name"`
	Phone            string      `json:"phone,omitempty" bson:"phone,omitempty"`
	CompanyName      string      `json:"companyName,omitempty" bson:"companyName,omitempty"`
	JobTitle         string      `json:"jobTitle,omitempty" bson:"jobTitle,omitempty"`
	LicenseID        string      `json:"licenseId,omitempty" bson:"licenseId,omitempty"`
	Status           UserStatus  `json:"status" bson:"status"`
	IsProjectManager bool        `json:"isProjectManager" bson:"isProjectManager"`
	CreatedAt        time.Time   `json:"createdAt" bson:"createdAt"`
	ApprovedAt       *time.Time  `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	ApprovedBy       string      `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	RejectionReason  string      `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	Permissions      Permissions `json:"permissions" bson:"permissions"`
}

// DisplayName returns the name, then email, then uid.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.UID
	}
}

// IsAdmin reports whether the user can moderate other users.
func (u *User) IsAdmin() bool {
	return u.Permissions.CanApproveUsers
}

// Element is one node of a template's element tree.
type Element struct {
	ID              string      `json:"id" bson:"id"`
	Type            ElementType `json:"type" bson:"type"`
	Label           string      `json:"label,omitempty" bson:"label,omitempty"`
	Order           int         `json:"order" bson:"order"`
	IsRequired      bool        `json:"isRequired,omitempty" bson:"isRequired,omitempty"`
	IsRepeatable    bool        `json:"isRepeatable,omitempty" bson:"isRepeatable,omitempty"`
	MaxRepeats      int         `json:"maxRepeats,omitempty" bson:"maxRepeats,omitempty"`
	RepeatCount     int         `json:"repeatCount,omitempty" bson:"repeatCount,omitempty"`
	TaggedRoles     []string    `json:"taggedRoles,omitempty" bson:"taggedRoles,omitempty"`
	NestedElements  []Element   `json:"nestedElements,omitempty" bson:"nestedElements,omitempty"`
	Placeholder     string      `json:"placeholder,omitempty" bson:"placeholder,omitempty"`
	SectionTitle    string      `json:"sectionTitle,omitempty" bson:"sectionTitle,omitempty"`
	ParentElementID string      `json:"parentElementId,omitempty" bson:"parentElementId,omitempty"`
	SectionLevel    int         `json:"sectionLevel,omitempty" bson:"sectionLevel,omitempty"`
	SectionPath     string      `json:"sectionPath,omitempty" bson:"sectionPath,omitempty"`
}

// DisplayLabel returns the first non-empty of label, placeholder,
// sectionTitle and id.
func (e *Element) DisplayLabel() string {
	switch {
	case e.Label != "":
		return e.Label
	case e.Placeholder != "":
		return e.Placeholder
	case e.SectionTitle != "":
		return e.SectionTitle
	default:
		return e.ID
	}
}

// Template is a form definition authored by a user and moderated by admins.
type Template struct {
	TemplateID        string         `json:"templateId" bson:"_id"`
	TemplateName      string         `json:"templateName" bson:"templateName"`
	Description       string         `json:"description,omitempty" bson:"description,omitempty"`
	ProjectName       string         `json:"projectName,omitempty" bson:"projectName,omitempty"`
	Status            TemplateStatus `json:"status" bson:"status"`
	CreatedBy         string         `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt         time.Time      `json:"createdAt" bson:"createdAt"`
	ApprovedAt        *time.Time     `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	ApprovedBy        string         `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	RejectionReason   string         `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	Version           int            `json:"version" bson:"version"`
	JobRoles          []string       `json:"jobRoles,omitempty" bson:"jobRoles,omitempty"`
	AvailableJobRoles []string       `json:"availableJobRoles,omitempty" bson:"availableJobRoles,omitempty"`
	Elements          []Element      `json:"elements" bson:"elements"`
}

// Validate checks that element ids are unique within the template.
func (t *Template) Validate() error {
	seen := make(map[string]bool)
	var walk func(elems []Element) error
	walk = func(elems []Element) error {
		for i := range elems {
			id := elems[i].ID
			if id == "" {
				return fmt.Errorf("template %s: element at order %d has no id", t.TemplateID, elems[i].Order)
			}
			if seen[id] {
				return fmt.Errorf("template %s: duplicate element id %q", t.TemplateID, id)
			}
			seen[id] = true
			if err := walk(elems[i].NestedElements); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.Elements)
}

// OrderedElements returns a copy of the element tree with every level
// sorted by order.
func (t *Template) OrderedElements() []Element {
	return sortElements(t.Elements)
}

func sortElements(elems []Element) []Element {
	out := make([]Element, len(elems))
	copy(out, elems)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		if len(out[i].NestedElements) > 0 {
			out[i].NestedElements = sortElements(out[i].NestedElements)
		}
	}
	return out
}

// FindElement looks an element up by id among top-level elements and then
// one level of nested elements. Deeper nesting is not searched.
func (t *Template) FindElement(id string) (*Element, bool) {
	for i := range t.Elements {
		if t.Elements[i].ID == id {
			return &t.Elements[i], true
		}
	}
	for i := range t.Elements {
		for j := range t.Elements[i].NestedElements {
			if t.Elements[i].NestedElements[j].ID == id {
				return &t.Elements[i].NestedElements[j], true
			}
		}
	}
	return nil, false
}

// elementPositions maps element ids to their position in display order,
// covering the same two levels FindElement searches.
func (t *Template) elementPositions() map[string]int {
	pos := make(map[string]int)
	n := 0
	for _, el := range t.OrderedElements() {
		pos[el.ID] = n
		n++
		for _, child := range el.NestedElements {
			if _, ok := pos[child.ID]; !ok {
				pos[child.ID] = n
			}
			n++
		}
	}
	return pos
}

// MediaAttachment is an uploaded file referenced by a submission.
type MediaAttachment struct {
	ElementID   string     `json:"elementId,omitempty" bson:"elementId,omitempty"`
	StoragePath string     `json:"storagePath" bson:"storagePath"`
	MimeType    string     `json:"mimeType,omitempty" bson:"mimeType,omitempty"`
	Size        int64      `json:"size,omitempty" bson:"size,omitempty"`
	Caption     string     `json:"caption,omitempty" bson:"caption,omitempty"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty" bson:"uploadedAt,omitempty"`
}

// FieldMetadata is the label and section context recorded with a contributed answer.
type FieldMetadata struct {
	FieldLabel   string   `json:"fieldLabel,omitempty" bson:"fieldLabel,omitempty"`
	SectionPath  []string `json:"sectionPath,omitempty" bson:"sectionPath,omitempty"`
	SectionLabel string   `json:"sectionLabel,omitempty" bson:"sectionLabel,omitempty"`
}

// Contribution is one user's answers within a shared submission.
type Contribution struct {
	Data          map[string]any           `json:"data" bson:"data"`
	FieldMetadata map[string]FieldMetadata `json:"fieldMetadata,omitempty" bson:"fieldMetadata,omitempty"`
	ContributedAt *time.Time               `json:"contributedAt,omitempty" bson:"contributedAt,omitempty"`
	Username      string                   `json:"username,omitempty" bson:"username,omitempty"`
	Media         []MediaAttachment        `json:"media,omitempty" bson:"media,omitempty"`
}

// Submission is a stored form submission in either the legacy single-user
// shape (answers in Data) or the current multi-contributor shape.
type Submission struct {
	ID                string                  `json:"id" bson:"_id"`
	AssignmentID      string                  `json:"assignmentId,omitempty" bson:"assignmentId,omitempty"`
	TemplateID        string                  `json:"templateId" bson:"templateId"`
	AssigneeUsername  string                  `json:"assigneeUsername,omitempty" bson:"assigneeUsername,omitempty"`
	AssigneeUID       string                  `json:"assigneeUid,omitempty" bson:"assigneeUid,omitempty"`
	Data              map[string]any          `json:"data,omitempty" bson:"data,omitempty"`
	UserContributions map[string]Contribution `json:"userContributions,omitempty" bson:"userContributions,omitempty"`
	Media             []MediaAttachment       `json:"media,omitempty" bson:"media,omitempty"`
	SubmittedAt       *time.Time              `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	Draft             bool                    `json:"draft" bson:"draft"`
	Version           int                     `json:"version,omitempty" bson:"version,omitempty"`
	CreatedAt         *time.Time              `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt         *time.Time              `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`

	// Denormalised by older writers.
	TemplateName string `json:"templateName,omitempty" bson:"templateName,omitempty"`
	Status       string `json:"status,omitempty" bson:"status,omitempty"`
}

// SubmissionPayload is the answer content of a submission: exactly one of
// LegacyPayload or ContributionsPayload.
type SubmissionPayload interface {
	isPayload()
}

// LegacyPayload holds answers keyed by field id, with no contributor attribution.
type LegacyPayload struct {
	Data map[string]any
}

// ContributionsPayload holds answers keyed by contributing user id.
type ContributionsPayload struct {
	Contributions map[string]Contribution
}

func (LegacyPayload) isPayload()        {}
func (ContributionsPayload) isPayload() {}

// Payload discriminates the submission shape. A submission with at least
// one contribution is in the current shape; otherwise Data is authoritative.
func (s *Submission) Payload() SubmissionPayload {
	if len(s.UserContributions) > 0 {
		return ContributionsPayload{Contributions: s.UserContributions}
	}
	return LegacyPayload{Data: s.Data}
}

// DisplayID returns the identifier shown for the submission in listings and
// exports: the template id when present, otherwise the document id.
func (s *Submission) DisplayID() string {
	if s.TemplateID != "" {
		return s.TemplateID
	}
	return s.ID
}

// ContributorIDs returns contributing user ids in ascending order.
func (s *Submission) ContributorIDs() []string {
	ids := make([]string, 0, len(s.UserContributions))
	for id := range s.UserContributions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DerivedStatus returns the stored legacy status if any, otherwise "draft"
// or "submitted".
func (s *Submission) DerivedStatus() string {
	if s.Status != "" {
		return s.Status
	}
	if s.Draft {
		return "draft"
	}
	return "submitted"
}

// ActivityType classifies an activity record.
type ActivityType string

const (
	ActivityUserApproved      ActivityType = "user_approved"
	ActivityUserRejected      ActivityType = "user_rejected"
	ActivityUserDeleted       ActivityType = "user_deleted"
	ActivityTemplateApproved  ActivityType = "template_approved"
	ActivityTemplateRejected  ActivityType = "template_rejected"
	ActivitySubmissionCreated ActivityType = "submission_created"
	ActivitySubmissionUpdated ActivityType = "submission_updated"
)

// Activity is an append-only record of an administrative or user action.
type Activity struct {
	ID          string         `json:"id" bson:"_id"`
	Type        ActivityType   `json:"type" bson:"type"`
	Description string         `json:"description" bson:"description"`
	UserID      string         `json:"userId" bson:"userId"`
	UserName    string         `json:"userName" bson:"userName"`
	Timestamp   time.Time      `json:"timestamp" bson:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Actor identifies the administrator performing a mutation.
type Actor struct {
	UID   string `json:"uid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// StatusChange is a per-field moderation update. ApprovedAt and ApprovedBy
// are written only when ApprovedAt is set; RejectionReason is always written.
type StatusChange struct {
	Status          string
	ApprovedAt      *time.Time
	ApprovedBy      string
	RejectionReason string
}

// Fields returns the document fields the change writes, keyed by their
// stored names. Approval fields are only present when ApprovedAt is set.
func (c StatusChange) Fields() map[string]any {
	f := map[string]any{
		"status":          c.Status,
		"rejectionReason": c.RejectionReason,
	}
	if c.ApprovedAt != nil {
		f["approvedAt"] = c.ApprovedAt.UTC()
		f["approvedBy"] = c.ApprovedBy
	}
	return f
}
