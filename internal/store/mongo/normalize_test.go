package mongo

import (
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JonMunkholm/formconsole/internal/core"
)

func TestNormalizeValue(t *testing.T) {
	when := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", "yes", "yes"},
		{"int32", int32(4), int64(4)},
		{"date", primitive.NewDateTimeFromTime(when), when},
		{"null", primitive.Null{}, nil},
		{"array", primitive.A{"a", int32(1)}, []any{"a", int64(1)}},
		{"document", primitive.D{{Key: "k", Value: primitive.A{true}}}, map[string]any{"k": []any{true}}},
		{"map", primitive.M{"n": primitive.D{{Key: "x", Value: 1.5}}}, map[string]any{"n": map[string]any{"x": 1.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeValue(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSubmission(t *testing.T) {
	sub := core.Submission{
		Data: map[string]any{"f1": primitive.A{"x"}},
		UserContributions: map[string]core.Contribution{
			"u1": {Data: map[string]any{"f2": primitive.D{{Key: "a", Value: int32(2)}}}},
		},
	}

	normalizeSubmission(&sub)

	if _, ok := sub.Data["f1"].([]any); !ok {
		t.Errorf("Data[f1] = %T, want []any", sub.Data["f1"])
	}
	got := sub.UserContributions["u1"].Data["f2"]
	if !reflect.DeepEqual(got, map[string]any{"a": int64(2)}) {
		t.Errorf("contribution value = %#v", got)
	}
}

func TestStatusFilter(t *testing.T) {
	if f := statusFilter[core.UserStatus](nil); len(f) != 0 {
		t.Errorf("statusFilter(nil) = %v, want empty", f)
	}
	f := statusFilter([]core.TemplateStatus{core.TemplatePending, core.TemplateDraft})
	in, ok := f["status"].(primitive.M)
	if !ok {
		t.Fatalf("status filter = %#v", f["status"])
	}
	if !reflect.DeepEqual(in["$in"], []string{"pending", "draft"}) {
		t.Errorf("$in = %v", in["$in"])
	}
}

func TestSubmissionFilter(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := submissionFilter(core.SubmissionQuery{TemplateID: "T1", SubmittedFrom: from})

	if f["templateId"] != "T1" {
		t.Errorf("templateId = %v", f["templateId"])
	}
	rng := f["submittedAt"].(primitive.M)
	if rng["$gte"] != from {
		t.Errorf("$gte = %v, want %v", rng["$gte"], from)
	}
	if _, ok := rng["$lte"]; ok {
		t.Error("unexpected $lte")
	}

	if f := submissionFilter(core.SubmissionQuery{}); len(f) != 0 {
		t.Errorf("empty query filter = %v", f)
	}
}
