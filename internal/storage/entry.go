// Package storage persists per-client key/value entries.
//
// Every entry is in one of three states: absent (never written or deleted),
// cleared (explicitly emptied, e.g. "no school selected") or populated.
package storage

import (
	"encoding/json"
	"fmt"
)

// State enumerates the persisted states of an entry.
type State int

const (
	// Absent means the key does not exist.
	Absent State = iota
	// Cleared means the key exists but was explicitly emptied.
	Cleared
	// Populated means the key holds a value.
	Populated
)

func (s State) String() string {
	switch s {
	case Cleared:
		return "cleared"
	case Populated:
		return "populated"
	default:
		return "absent"
	}
}

// Entry is a persisted value together with its state.
type Entry struct {
	state State
	value string
}

// AbsentEntry returns an entry that deletes the key when stored.
func AbsentEntry() Entry { return Entry{state: Absent} }

// ClearedEntry returns an explicitly cleared entry.
func ClearedEntry() Entry { return Entry{state: Cleared} }

// Value returns a populated entry. An empty value is indistinguishable from a
// cleared entry on the wire, so it is reported as cleared.
func Value(v string) Entry {
	if v == "" {
		return ClearedEntry()
	}
	return Entry{state: Populated, value: v}
}

// JSONValue marshals v into a populated entry. A nil v yields a cleared entry.
func JSONValue(v any) (Entry, error) {
	if v == nil {
		return ClearedEntry(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("storage: encode: %w", err)
	}
	if string(data) == "null" {
		return ClearedEntry(), nil
	}
	return Value(string(data)), nil
}

// State reports the entry state.
func (e Entry) State() State { return e.state }

// Populated reports whether the entry carries a value.
func (e Entry) Populated() bool { return e.state == Populated }

// String returns the raw value, empty unless populated.
func (e Entry) String() string { return e.value }

// DecodeJSON unmarshals a populated entry into target and reports whether it
// did. Absent and cleared entries leave target untouched.
func (e Entry) DecodeJSON(target any) (bool, error) {
	if e.state != Populated {
		return false, nil
	}
	if err := json.Unmarshal([]byte(e.value), target); err != nil {
		return false, fmt.Errorf("storage: decode: %w", err)
	}
	return true, nil
}

// wire encodes the entry for a string-valued backend. ok is false for absent.
func (e Entry) wire() (value string, ok bool) {
	switch e.state {
	case Populated:
		return e.value, true
	case Cleared:
		return "", true
	default:
		return "", false
	}
}

func fromWire(value string, exists bool) Entry {
	if !exists {
		return AbsentEntry()
	}
	return Value(value)
}
