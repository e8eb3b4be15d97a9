package core

import (
	"testing"
	"time"
)

func TestBuildView_Legacy(t *testing.T) {
	sub := &Submission{
		ID:          "s1",
		TemplateID:  "T1",
		AssigneeUID: "u1",
		Data: map[string]any{
			"zz": "orphan",
			"n1": "gs://bucket/photo.jpg",
			"f2": "2024-06-01",
			"f1": true,
			"n2": "",
		},
	}

	view := BuildView(sub, sampleTemplate(), &User{UID: "u1", Name: "Alice"})

	if view.Shape != ShapeLegacy {
		t.Fatalf("Shape = %q, want %q", view.Shape, ShapeLegacy)
	}
	if len(view.Contributors) != 0 {
		t.Errorf("Contributors = %d, want 0", len(view.Contributors))
	}
	if view.Legacy.Label != LegacySectionLabel {
		t.Errorf("Legacy.Label = %q", view.Legacy.Label)
	}

	want := []FieldView{
		{"f1", "Attended?", "Yes"},
		{"f2", "Visit date", "Jun 1, 2024"},
		{"n1", "Photo", PhotoPlaceholder},
		{"n2", "Hazards seen", NotAvailable},
		{"zz", "zz", "orphan"},
	}
	if len(view.Legacy.Fields) != len(want) {
		t.Fatalf("fields = %+v, want %d", view.Legacy.Fields, len(want))
	}
	for i, w := range want {
		if view.Legacy.Fields[i] != w {
			t.Errorf("field[%d] = %+v, want %+v", i, view.Legacy.Fields[i], w)
		}
	}
	if view.TemplateName != "Template One" || view.SubmitterName != "Alice" {
		t.Errorf("names = %q / %q", view.TemplateName, view.SubmitterName)
	}
}

func TestBuildView_LegacyWithoutTemplate(t *testing.T) {
	sub := &Submission{ID: "s1", TemplateID: "gone", Data: map[string]any{"b": "2", "a": "1"}}

	view := BuildView(sub, nil, nil)

	if view.TemplateName != TemplateNotFound {
		t.Errorf("TemplateName = %q, want %q", view.TemplateName, TemplateNotFound)
	}
	if view.SubmitterName != UnknownUser {
		t.Errorf("SubmitterName = %q, want %q", view.SubmitterName, UnknownUser)
	}
	if got := view.Legacy.Fields; len(got) != 2 || got[0].Label != "a" || got[1].Label != "b" {
		t.Errorf("fields = %+v", got)
	}
}

func TestBuildView_ContributionsGroupedBySection(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	sub := &Submission{
		ID:         "s2",
		TemplateID: "T1",
		Data:       map[string]any{"legacy": "ignored"},
		UserContributions: map[string]Contribution{
			"u2": {
				Username:      "bob",
				ContributedAt: &at,
				Data:          map[string]any{"f1": "Yes", "n2": "Loose rail", "x": nil},
				FieldMetadata: map[string]FieldMetadata{
					"f1": {FieldLabel: "Attended?"},
					"n2": {FieldLabel: "Hazards", SectionPath: []string{"Site", "Safety"}},
				},
			},
			"u1": {
				Username: "alice",
				Data:     map[string]any{"f2": "2024-06-01"},
			},
		},
	}

	view := BuildView(sub, sampleTemplate(), nil)

	if view.Shape != ShapeContributions {
		t.Fatalf("Shape = %q", view.Shape)
	}
	if view.Legacy != nil {
		t.Error("Legacy must be nil when contributions exist")
	}
	if len(view.Contributors) != 2 || view.Contributors[0].UserID != "u1" {
		t.Fatalf("contributors = %+v", view.Contributors)
	}

	alice := view.Contributors[0]
	if alice.Sections[0].Label != GeneralSectionLabel || alice.Sections[0].Fields[0].Label != "Visit date" {
		t.Errorf("alice sections = %+v", alice.Sections)
	}

	bob := view.Contributors[1]
	if bob.ResponseCount != 3 {
		t.Errorf("ResponseCount = %d, want 3", bob.ResponseCount)
	}
	if len(bob.Sections) != 2 {
		t.Fatalf("bob sections = %+v", bob.Sections)
	}
	if bob.Sections[0].Key != GeneralSectionKey {
		t.Errorf("first section = %q, want general", bob.Sections[0].Key)
	}
	general := bob.Sections[0].Fields
	if len(general) != 2 || general[0].Value != "Yes" || general[1].Label != "x" || general[1].Value != NotAvailable {
		t.Errorf("general fields = %+v", general)
	}
	if bob.Sections[1].Key != "Site > Safety" || bob.Sections[1].Fields[0].Value != "Loose rail" {
		t.Errorf("section = %+v", bob.Sections[1])
	}
}

func TestBuildView_ContributionFalsyValuesShown(t *testing.T) {
	sub := &Submission{
		ID: "s3",
		UserContributions: map[string]Contribution{
			"u1": {Data: map[string]any{"a": false, "b": float64(0), "c": ""}},
		},
	}

	view := BuildView(sub, nil, nil)

	fields := view.Contributors[0].Sections[0].Fields
	want := []string{"false", "0", NotAvailable}
	if len(fields) != len(want) {
		t.Fatalf("fields = %+v", fields)
	}
	for i, w := range want {
		if fields[i].Value != w {
			t.Errorf("field %s = %q, want %q", fields[i].FieldID, fields[i].Value, w)
		}
	}
}

func TestSubmitterName(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
		user *User
		want string
	}{
		{"profile name", Submission{AssigneeUID: "u1"}, &User{Name: "Alice", Email: "a@x"}, "Alice"},
		{"profile email", Submission{AssigneeUID: "u1"}, &User{Email: "a@x"}, "a@x"},
		{"stored username", Submission{AssigneeUsername: "alice", AssigneeUID: "u1"}, nil, "alice"},
		{"uid", Submission{AssigneeUID: "u1"}, nil, "u1"},
		{"unknown", Submission{}, nil, UnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubmitterName(&tt.sub, tt.user); got != tt.want {
				t.Errorf("SubmitterName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildView_TimelineAndMedia(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	sub := &Submission{
		ID:          "s3",
		CreatedAt:   &t0,
		UpdatedAt:   &t2,
		SubmittedAt: &t2,
		Media:       []MediaAttachment{{StoragePath: "top.jpg"}},
		UserContributions: map[string]Contribution{
			"u1": {Username: "alice", ContributedAt: &t1, Media: []MediaAttachment{{StoragePath: "alice.jpg"}}},
		},
	}

	view := BuildView(sub, nil, nil)

	wantLabels := []string{"Created", "Contribution by alice", "Last updated", "Submitted"}
	if len(view.Timeline) != len(wantLabels) {
		t.Fatalf("timeline = %+v", view.Timeline)
	}
	for i, l := range wantLabels {
		if view.Timeline[i].Label != l {
			t.Errorf("timeline[%d] = %q, want %q", i, view.Timeline[i].Label, l)
		}
	}
	if len(view.Media) != 2 || view.Media[1].ContributorID != "u1" {
		t.Errorf("media = %+v", view.Media)
	}
}
