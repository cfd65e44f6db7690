package listcache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// IDField is the identifier assigned by the remote store.
	IDField = "id"
	// LegacyIDField is the identifier name used by older documents.
	LegacyIDField = "_id"
)

// fallbackPrefix marks identifiers minted locally because the server did not return one.
const fallbackPrefix = "local-"

// Record is one domain document: named fields mapped to scalar values.
type Record map[string]any

// ID returns the record identifier, preferring IDField over LegacyIDField.
func (r Record) ID() string {
	if id := scalarString(r[IDField]); id != "" {
		return id
	}
	return scalarString(r[LegacyIDField])
}

// Matches reports whether id identifies r under either alias.
func (r Record) Matches(id string) bool {
	if id == "" {
		return false
	}
	return scalarString(r[IDField]) == id || scalarString(r[LegacyIDField]) == id
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record holding r's fields overlaid by patch.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// String returns a field rendered as text, or "" when absent.
func (r Record) String(field string) string {
	return scalarString(r[field])
}

// Float returns a numeric field. Numeric strings are parsed; anything else is 0.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// FallbackID mints an identifier for a record the server has not identified yet.
func FallbackID() string {
	return fallbackPrefix + uuid.NewString()
}

// IsFallbackID reports whether id was minted by FallbackID.
func IsFallbackID(id string) bool {
	return strings.HasPrefix(id, fallbackPrefix)
}

// FromJSON decodes a JSON object into a Record.
func FromJSON(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("record: expected JSON object")
	}
	return r, nil
}

// FromValue converts a struct (or map) into a Record through its JSON form.
func FromValue(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
