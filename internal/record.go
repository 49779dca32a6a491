package internal

import (
	"strconv"
	"strings"
	"time"
)

// Record is one item of a Sonarr/Radarr collection. Only a handful of
// fields are interpreted; everything else passes through untouched.
type Record map[string]interface{}

// Str returns the field as a string when it holds a truthy scalar.
func (r Record) Str(key string) (string, bool) {
	v, ok := r[key]
	if !ok || !truthyValue(v) {
		return "", false
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return "", false
	}
	return jsString(v), true
}

func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r Record) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// ID is the record identity: id, falling back to titleSlug.
func (r Record) ID() string {
	if id, ok := r.Str("id"); ok {
		return id
	}
	if id, ok := r["id"]; ok && id != nil {
		return jsString(id)
	}
	slug, _ := r.Str("titleSlug")
	return slug
}

// HasID reports whether the record carries its own id field, as opposed to
// an identity derived from titleSlug or position.
func (r Record) HasID() bool {
	v, ok := r["id"]
	return ok && v != nil
}

func (r Record) Title() string {
	t, _ := r.Str("title")
	return t
}

// Time parses an ISO-8601 timestamp or date field.
func (r Record) Time(key string) (time.Time, bool) {
	s, ok := r.Str(key)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truthyValue(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	}
	return true
}

// jsString renders a decoded JSON value the way a script engine's default
// string conversion would.
func jsString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]interface{}, Record:
		return "[object Object]"
	case []interface{}:
		return strings.Join(Map(x, func(e interface{}) string {
			if e == nil {
				return ""
			}
			return jsString(e)
		}), ",")
	}
	return "[object Object]"
}
