// Package extract pulls typed fields out of semi-structured reasoning
// provider output. Providers are asked for labeled lines ("FIELD_NAME:
// value") but their prose is not guaranteed to match, so every field
// carries a default and extraction never fails as a whole: a missing or
// malformed field yields its default, nothing more.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"guardian/internal/types"
)

// Kind declares how a field's raw line remainder is coerced.
type Kind int

const (
	KindText Kind = iota
	KindFloat
	KindInt
	KindBool
	KindLevel
	KindConfidence
)

// FieldSpec describes one field to extract: the label scanned for in the
// response, the coercion kind, and the default substituted on any failure.
type FieldSpec struct {
	Name    string
	Label   string
	Kind    Kind
	Default interface{}
}

// Fields holds extraction results keyed by field name.
type Fields map[string]interface{}

// Extract scans text for each spec's label and coerces the remainder of
// the first matching line. A field whose label is absent or whose value
// cannot be coerced gets its declared default.
func Extract(text string, specs []FieldSpec) Fields {
	out := make(Fields, len(specs))
	for _, spec := range specs {
		raw, ok := Line(text, spec.Label)
		if !ok {
			out[spec.Name] = spec.Default
			continue
		}
		switch spec.Kind {
		case KindFloat:
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out[spec.Name] = v
			} else {
				out[spec.Name] = spec.Default
			}
		case KindInt:
			if v, err := strconv.Atoi(firstInteger(raw)); err == nil {
				out[spec.Name] = v
			} else {
				out[spec.Name] = spec.Default
			}
		case KindBool:
			out[spec.Name] = parseAffirmative(raw)
		case KindLevel:
			if lvl, ok := ParseLevel(raw); ok {
				out[spec.Name] = lvl
			} else {
				out[spec.Name] = spec.Default
			}
		case KindConfidence:
			if v, ok := ParseConfidence(raw); ok {
				out[spec.Name] = v
			} else {
				out[spec.Name] = spec.Default
			}
		default:
			out[spec.Name] = raw
		}
	}
	return out
}

// String returns the named field as a string, or "" if absent or mistyped.
func (f Fields) String(name string) string {
	v, _ := f[name].(string)
	return v
}

// Float returns the named field as a float64, or 0 if absent or mistyped.
func (f Fields) Float(name string) float64 {
	v, _ := f[name].(float64)
	return v
}

// Int returns the named field as an int, or 0 if absent or mistyped.
func (f Fields) Int(name string) int {
	v, _ := f[name].(int)
	return v
}

// Bool returns the named field as a bool, or false if absent or mistyped.
func (f Fields) Bool(name string) bool {
	v, _ := f[name].(bool)
	return v
}

// Level returns the named field as a ThreatLevel, or NONE if absent.
func (f Fields) Level(name string) types.ThreatLevel {
	v, ok := f[name].(types.ThreatLevel)
	if !ok {
		return types.ThreatNone
	}
	return v
}

// Line finds the first occurrence of label in text and returns the
// trimmed remainder of that line.
func Line(text, label string) (string, bool) {
	idx := strings.Index(text, label)
	if idx == -1 {
		return "", false
	}
	rest := text[idx+len(label):]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}

// Section returns the remainder of the line following label, or def
// when the label is absent.
func Section(text, label, def string) string {
	if v, ok := Line(text, label); ok {
		return v
	}
	return def
}

// ParseLevel maps a value string onto a threat level. It tolerates
// surrounding prose ("HIGH - multiple indicators") by matching level
// tokens in severity order, most severe first.
func ParseLevel(value string) (types.ThreatLevel, bool) {
	upper := strings.ToUpper(value)
	switch {
	case strings.Contains(upper, "CRITICAL"):
		return types.ThreatCritical, true
	case strings.Contains(upper, "HIGH"):
		return types.ThreatHigh, true
	case strings.Contains(upper, "MEDIUM"), strings.Contains(upper, "MODERATE"):
		return types.ThreatMedium, true
	case strings.Contains(upper, "LOW"), strings.Contains(upper, "MINOR"):
		return types.ThreatLow, true
	case strings.Contains(upper, "NONE"):
		return types.ThreatNone, true
	}
	return types.ThreatNone, false
}

// LevelFromKeywords scans an entire response for severity keywords. This
// is the fallback used when the labeled field is missing: providers often
// describe the situation ("this is an IMMEDIATE DANGER") without emitting
// the requested label.
func LevelFromKeywords(text string) types.ThreatLevel {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "CRITICAL"), strings.Contains(upper, "IMMEDIATE DANGER"):
		return types.ThreatCritical
	case strings.Contains(upper, "HIGH"), strings.Contains(upper, "URGENT"):
		return types.ThreatHigh
	case strings.Contains(upper, "MEDIUM"), strings.Contains(upper, "MODERATE"):
		return types.ThreatMedium
	case strings.Contains(upper, "LOW"), strings.Contains(upper, "MINOR"):
		return types.ThreatLow
	default:
		return types.ThreatNone
	}
}

// numericConfidence matches decimal ("0.8"), percentage ("80%"),
// fractional ("8/10"), and bare-integer ("90") confidence notations.
// The bare-integer alternative must come last so it cannot truncate the
// richer forms.
var numericConfidence = regexp.MustCompile(`([0-9]*\.[0-9]+|[0-9]+%|[0-9]+/[0-9]+|[0-9]+)`)

// ParseConfidence coerces a label's value to a [0,1] confidence score,
// accepting decimal, percentage, and n/m notations.
func ParseConfidence(value string) (float64, bool) {
	m := numericConfidence.FindString(value)
	if m == "" {
		return 0, false
	}
	switch {
	case strings.HasSuffix(m, "%"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(m, "%"), 64)
		if err != nil {
			return 0, false
		}
		return Clamp(v / 100.0), true
	case strings.Contains(m, "/"):
		parts := strings.SplitN(m, "/", 2)
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		return Clamp(num / den), true
	default:
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		if v > 1.0 {
			v = v / 100.0
		}
		return Clamp(v), true
	}
}

// confidenceCue matches a confidence/certainty mention followed closely by
// a numeric token anywhere in a response.
var confidenceCue = regexp.MustCompile(`(?is)(?:confidence|certainty).{0,40}?([0-9]*\.[0-9]+|[0-9]+%|[0-9]+/10)`)

// ConfidenceFromText searches a whole response for a confidence mention,
// then falls back to qualitative keywords. Returns def when neither is
// present.
func ConfidenceFromText(text string, def float64) float64 {
	if m := confidenceCue.FindStringSubmatch(text); m != nil {
		if v, ok := ParseConfidence(m[1]); ok {
			return v
		}
	}
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "CERTAIN"), strings.Contains(upper, "DEFINITE"):
		return 0.9
	case strings.Contains(upper, "LIKELY"), strings.Contains(upper, "PROBABLE"):
		return 0.7
	case strings.Contains(upper, "POSSIBLE"), strings.Contains(upper, "MAYBE"):
		return 0.5
	default:
		return def
	}
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseAffirmative(value string) bool {
	upper := strings.ToUpper(strings.TrimSpace(value))
	return strings.HasPrefix(upper, "YES") || strings.HasPrefix(upper, "TRUE")
}

var integerToken = regexp.MustCompile(`-?[0-9]+`)

func firstInteger(value string) string {
	return integerToken.FindString(value)
}
