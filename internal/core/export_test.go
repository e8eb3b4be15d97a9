package core

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestExportRows_DetailedSingleContribution(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	subs := []Submission{{
		ID:         "s1",
		TemplateID: "T1",
		UserContributions: map[string]Contribution{
			"u1": {
				Data:          map[string]any{"f1": "Yes"},
				FieldMetadata: map[string]FieldMetadata{"f1": {FieldLabel: "Attended?"}},
				Username:      "alice",
				ContributedAt: &at,
			},
		},
	}}
	tmpls := map[string]*Template{"T1": {TemplateID: "T1", TemplateName: "Template One"}}

	header, rows := ExportRows(subs, tmpls, true)

	if !reflect.DeepEqual(header, DetailedHeader) {
		t.Errorf("header = %v", header)
	}
	want := [][]string{{"T1", "Template One", "u1", "alice", "Attended?", "Yes", "2024-06-01T09:30:00.000Z"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestExportRows_SummaryContributorCounts(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	subs := []Submission{
		{ID: "s1", TemplateID: "T1", SubmittedAt: &at, UserContributions: map[string]Contribution{"u1": {}, "u2": {}}},
		{ID: "s2", TemplateName: "Stored Name"},
	}

	header, rows := ExportRows(subs, map[string]*Template{"T1": {TemplateName: "Template One"}}, false)

	if !reflect.DeepEqual(header, SummaryHeader) {
		t.Errorf("header = %v", header)
	}
	want := [][]string{
		{"T1", "Template One", "2", "2024-06-01T00:00:00.000Z"},
		{"s2", "Stored Name", "0", NotAvailable},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestExportRows_DetailedLabelsAndAnswers(t *testing.T) {
	subs := []Submission{{
		ID:         "s1",
		TemplateID: "T1",
		UserContributions: map[string]Contribution{
			"u1": {
				Data: map[string]any{"n2": "", "f1": nil, "zz": float64(3)},
				FieldMetadata: map[string]FieldMetadata{
					"n2": {SectionLabel: "Safety"},
				},
			},
		},
	}}

	_, rows := ExportRows(subs, map[string]*Template{"T1": sampleTemplate()}, true)

	want := [][]string{
		{"T1", "Template One", "u1", UnknownUser, "Attended?", NotAnswered, NotAvailable},
		{"T1", "Template One", "u1", UnknownUser, "Hazards seen [Section: Safety]", NotAnswered, NotAvailable},
		{"T1", "Template One", "u1", UnknownUser, "zz", "3", NotAvailable},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestExportRows_LegacyHasNoDetailRows(t *testing.T) {
	subs := []Submission{{ID: "s1", TemplateID: "T9", Data: map[string]any{"f1": "x"}}}

	_, rows := ExportRows(subs, nil, true)
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none", rows)
	}

	_, rows = ExportRows(subs, nil, false)
	if rows[0][1] != UnknownTemplate {
		t.Errorf("template name = %q, want %q", rows[0][1], UnknownTemplate)
	}
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"Yes, please", `"Yes, please"`},
		{`He said "hi"`, `"He said ""hi"""`},
		{"line1\nline2", "\"line1\nline2\""},
		{"cr\ronly", "cr\ronly"},
	}
	for _, tt := range tests {
		if got := EscapeCSV(tt.in); got != tt.want {
			t.Errorf("EscapeCSV(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeCSV_RoundTrip(t *testing.T) {
	values := []string{"Yes, please", `He said "hi"`, "multi\nline", `"quoted, and comma"`, "plain"}
	text := EncodeCSV([]string{"Value"}, rowsOf(values))

	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != len(values)+1 {
		t.Fatalf("records = %d, want %d", len(records), len(values)+1)
	}
	for i, v := range values {
		if records[i+1][0] != v {
			t.Errorf("record %d = %q, want %q", i, records[i+1][0], v)
		}
		// Re-escaping the parsed value must reproduce the same cell.
		if EscapeCSV(records[i+1][0]) != EscapeCSV(v) {
			t.Errorf("re-escape of %q differs", v)
		}
	}
}

func TestEncodeCSV_Layout(t *testing.T) {
	got := EncodeCSV([]string{"A", "B"}, [][]string{{"1", "x,y"}, {"2", ""}})
	want := "A,B\n1,\"x,y\"\n2,"
	if got != want {
		t.Errorf("EncodeCSV() = %q, want %q", got, want)
	}
}

func TestEncodeXLSX(t *testing.T) {
	data, err := EncodeXLSX("Summary", SummaryHeader, [][]string{{"T1", "Template One", "2", "N/A"}})
	if err != nil {
		t.Fatalf("EncodeXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Template ID" || rows[1][1] != "Template One" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	if got := ExportFileName("submissions", "", FormatCSV, now); got != "submissions_2024-06-01.csv" {
		t.Errorf("got %q", got)
	}
	if got := ExportFileName("submission", "ab/c 1", FormatXLSX, now); got != "submission_ab_c_1_2024-06-01.xlsx" {
		t.Errorf("got %q", got)
	}
}

func rowsOf(values []string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return rows
}
