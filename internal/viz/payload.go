package viz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Options is the decoded per-element options object.
type Options map[string]any

// Payload is the partial update data addressed to one instance.
type Payload map[string]any

// ErrNotObject is returned when author JSON parses but is not an object.
var ErrNotObject = errors.New("json value is not an object")

// ParseOptions decodes a data-options attribute. Only JSON objects are
// accepted.
func ParseOptions(raw string) (Options, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Options(m), nil
}

// MergeOptions returns a new Options holding defaults overlaid by opts.
// The merge is shallow.
func MergeOptions(defaults, opts Options) Options {
	out := make(Options, len(defaults)+len(opts))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range opts {
		out[k] = v
	}
	return out
}

// UpdateEntry is one instance-id → payload pair from a step's data-update.
// Payload is nil when the value is not a JSON object.
type UpdateEntry struct {
	ID      string
	Payload Payload
}

// ParseUpdates decodes a data-update attribute, preserving the key order of
// the top-level object. A repeated key keeps its first position and its last
// value.
func ParseUpdates(raw string) ([]UpdateEntry, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var entries []UpdateEntry
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		m, _ := v.(map[string]any)
		if i, seen := index[key]; seen {
			entries[i].Payload = Payload(m)
			continue
		}
		index[key] = len(entries)
		entries = append(entries, UpdateEntry{ID: key, Payload: Payload(m)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after update object")
	}

	return entries, nil
}

// Number returns the numeric value stored under key. JSON numbers and numeric
// strings are accepted.
func Number(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String returns the string stored under key.
func String(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Bool returns the boolean stored under key.
func Bool(m map[string]any, key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}
