package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JonMunkholm/formconsole/internal/core"
)

// normalizeSubmission replaces driver-specific values in free-form answer
// maps with plain Go values.
func normalizeSubmission(sub *core.Submission) {
	sub.Data = normalizeMap(sub.Data)
	for uid, c := range sub.UserContributions {
		c.Data = normalizeMap(c.Data)
		sub.UserContributions[uid] = c
	}
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

// normalizeValue converts documents to map[string]any, arrays to []any,
// dates to time.Time and integers to int64.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.M:
		return normalizeMap(map[string]any(x))
	case map[string]any:
		return normalizeMap(x)
	case primitive.A:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range x {
			x[i] = normalizeValue(item)
		}
		return x
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		return x.String()
	case int32:
		return int64(x)
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}
