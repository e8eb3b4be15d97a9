package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// isoLayout renders timestamps as UTC ISO-8601 with millisecond precision.
const isoLayout = "2006-01-02T15:04:05.000Z"

// displayDateLayout renders date-picker answers.
const displayDateLayout = "Jan 2, 2006"

// NotAvailable is shown for absent timestamps and unanswered detail fields.
const NotAvailable = "N/A"

// PhotoPlaceholder replaces raw photo-upload values in display output.
const PhotoPlaceholder = "Photo uploaded (see Media Gallery)"

// FormatISO formats t as UTC ISO-8601, or "N/A" when t is nil.
func FormatISO(t *time.Time) string {
	if t == nil || t.IsZero() {
		return NotAvailable
	}
	return t.UTC().Format(isoLayout)
}

// IsEmptyValue reports whether a stored answer counts as unanswered:
// absent, null or the empty string.
func IsEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	default:
		return false
	}
}

// FormatValue renders a stored answer as text. Numbers use their shortest
// form, lists are comma-joined and nested documents are JSON encoded.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case json.Number:
		return x.String()
	case time.Time:
		return FormatISO(&x)
	case *time.Time:
		return FormatISO(x)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(x, ",")
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy interprets a toggle answer. Strings that parse as booleans use
// that value; any other non-empty string is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "no", "off":
			return false
		}
		return true
	case float64:
		return x != 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// formatDate renders a date answer, falling back to the raw text when it
// cannot be parsed.
func formatDate(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format(displayDateLayout)
	case *time.Time:
		if x != nil {
			return x.Format(displayDateLayout)
		}
		return ""
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(displayDateLayout)
			}
		}
		return x
	default:
		return FormatValue(v)
	}
}

// FormatTyped renders a stored answer using the display rules of its element
// type. el may be nil when the field is not in the template.
func FormatTyped(el *Element, v any) string {
	if el != nil {
		switch el.Type {
		case ElementYesNo:
			if truthy(v) {
				return "Yes"
			}
			return "No"
		case ElementPhotoUpload:
			return PhotoPlaceholder
		case ElementDatePicker:
			if !IsEmptyValue(v) {
				return formatDate(v)
			}
		}
	}
	if IsEmptyValue(v) {
		return NotAvailable
	}
	return FormatValue(v)
}
