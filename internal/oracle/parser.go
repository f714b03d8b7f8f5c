package oracle

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseVerdict extracts a structured verdict from a raw model reply. The
// reply is expected to contain a JSON object somewhere in the text; leading
// and trailing noise is ignored. Any failure (no braces, invalid JSON, a
// field of the wrong type) degrades to the field's default rather than
// propagating. The function is pure and never fails.
func ParseVerdict(raw string) ParsedVerdict {
	verdict := defaultVerdict()

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return verdict
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
		return verdict
	}

	if outcome, ok := data["outcome"].(string); ok {
		switch outcome {
		case OutcomePositive, OutcomeNegative, OutcomeNeutral:
			verdict.Outcome = outcome
		}
	}
	if conf, ok := toFloat(data["confidence"]); ok {
		verdict.Confidence = conf
	}
	if score, ok := toInt(data["priority_score"]); ok {
		verdict.PriorityScore = score
	}
	verdict.Insights = toStringList(data["insights"], verdict.Insights)
	verdict.Recommendations = toStringList(data["recommendations"], verdict.Recommendations)
	verdict.Risks = toStringList(data["risks"], verdict.Risks)
	verdict.Dependencies = toStringList(data["dependencies"], verdict.Dependencies)
	if summary, ok := data["summary"].(string); ok {
		verdict.Summary = summary
	}

	return verdict
}

// toFloat coerces a decoded JSON value to float64.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toInt coerces a decoded JSON value to int, truncating fractions the way
// the numeric coercion of the verdict contract specifies.
func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// toStringList coerces a decoded JSON array to []string, skipping non-string
// elements. A missing or mistyped value keeps the fallback.
func toStringList(v any, fallback []string) []string {
	arr, ok := v.([]any)
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
