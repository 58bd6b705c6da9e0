// Package validate sanitizes and validates untrusted input before it reaches
// persistence or external calls. Every function is pure: no I/O, no shared
// state, deterministic output. Callers short-circuit on the first failure or
// aggregate, whichever fits the endpoint.
package validate

import (
	"math"
	"regexp"
	"strings"

	dErrors "portalpay/pkg/domain-errors"
)

var (
	userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
	txRefPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	htmlTags      = regexp.MustCompile(`<[^>]*>`)
)

const (
	maxTxRefLength   = 255
	defaultMaxString = 1000
)

// UserID validates a user identifier. Returns the trimmed value.
func UserID(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !userIDPattern.MatchString(v) {
		return "", dErrors.New(dErrors.CodeValidation, "user id must be 1-128 characters of [a-zA-Z0-9_-]")
	}
	return v, nil
}

// TxRef validates a client-generated transaction reference. The value is
// trimmed, capped at 255 characters and stripped of HTML tags and NUL bytes
// before the format check, so a reference that only differs by markup noise
// is rejected rather than silently rewritten into a different key.
func TxRef(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", dErrors.New(dErrors.CodeValidation, "transaction reference is required")
	}
	if len(v) > maxTxRefLength {
		v = v[:maxTxRefLength]
	}
	v = stripNul(htmlTags.ReplaceAllString(v, ""))
	if !txRefPattern.MatchString(v) {
		return "", dErrors.New(dErrors.CodeValidation, "transaction reference must contain only [a-zA-Z0-9_-]")
	}
	return v, nil
}

// Enum checks membership against a fixed allowed-value list. The error names
// the allowed set for caller-facing diagnostics.
func Enum(v string, allowed []string) (string, error) {
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "value must be one of: %s", strings.Join(allowed, ", "))
}

// StringOpts tunes String sanitization.
type StringOpts struct {
	// MaxLength truncates the value; zero means the default of 1000.
	MaxLength int
	// AllowHTML keeps markup instead of stripping tags.
	AllowHTML bool
}

// String sanitizes free-form text: trim, truncate, strip tags unless allowed,
// strip NUL bytes. Sanitization never fails; empty in, empty out.
func String(v string, opts StringOpts) string {
	v = strings.TrimSpace(v)
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = defaultMaxString
	}
	if len(v) > maxLen {
		v = v[:maxLen]
	}
	if !opts.AllowHTML {
		v = htmlTags.ReplaceAllString(v, "")
	}
	return stripNul(v)
}

// NumberOpts tunes Number validation.
type NumberOpts struct {
	Min     float64
	Max     float64
	Integer bool
}

// Number range-checks a numeric value with an optional integer constraint.
func Number(v float64, opts NumberOpts) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, dErrors.New(dErrors.CodeValidation, "value must be a finite number")
	}
	if opts.Integer && v != math.Trunc(v) {
		return 0, dErrors.New(dErrors.CodeValidation, "value must be an integer")
	}
	if v < opts.Min || v > opts.Max {
		return 0, dErrors.Newf(dErrors.CodeValidation, "value must be between %g and %g", opts.Min, opts.Max)
	}
	return v, nil
}

// DefaultObjectDepth bounds recursive sanitization cost.
const DefaultObjectDepth = 5

// Object recursively sanitizes a nested structure. Keys beginning with '$'
// (NoSQL operator injection) and prototype-pollution keys are dropped, string
// values pass through String, and anything nested deeper than maxDepth is
// silently discarded. Dropping deep content trades completeness for DoS
// resistance.
func Object(m map[string]any, maxDepth int) map[string]any {
	if m == nil {
		return nil
	}
	if maxDepth <= 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isDangerousKey(k) {
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = String(val, StringOpts{})
		case map[string]any:
			out[k] = Object(val, maxDepth-1)
		case []any:
			out[k] = sanitizeSlice(val, maxDepth-1)
		default:
			out[k] = val
		}
	}
	return out
}

func sanitizeSlice(s []any, maxDepth int) []any {
	if maxDepth <= 0 {
		return []any{}
	}
	out := make([]any, 0, len(s))
	for _, v := range s {
		switch val := v.(type) {
		case string:
			out = append(out, String(val, StringOpts{}))
		case map[string]any:
			out = append(out, Object(val, maxDepth-1))
		case []any:
			out = append(out, sanitizeSlice(val, maxDepth-1))
		default:
			out = append(out, val)
		}
	}
	return out
}

func isDangerousKey(k string) bool {
	if strings.HasPrefix(k, "$") {
		return true
	}
	switch k {
	case "__proto__", "constructor", "prototype":
		return true
	}
	return false
}

func stripNul(v string) string {
	return strings.ReplaceAll(v, "\x00", "")
}
