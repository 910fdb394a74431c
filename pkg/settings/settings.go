// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// Filename is the per-package settings file read from the package root.
const Filename = "autoloader.json"

var (
	// ErrReadOnly is the sentinel error wrapped by ReadOnlyError.
	ErrReadOnly = errors.New("settings are read-only")
	// ErrParse is the sentinel error wrapped by ParseError.
	ErrParse = errors.New("invalid settings JSON")
)

type (
	// Settings is a read-only, insertion-ordered view over a JSON object.
	// It is loaded once and never mutated afterwards.
	Settings struct {
		keys   []string
		values map[string]any
		// fieldOrder holds the file order of the keys of object values.
		fieldOrder map[string][]string
	}

	// Entry is one key/value pair in insertion order.
	Entry struct {
		Key   string
		Value any
	}

	// ReadOnlyError is returned by every write attempt on Settings.
	ReadOnlyError struct {
		Key any
	}

	// ParseError is returned when a settings document is not a JSON object.
	ParseError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("cannot change setting %v: settings cannot be changed once loaded", e.Key)
}

// Unwrap returns ErrReadOnly so callers can use errors.Is for programmatic detection.
func (e *ReadOnlyError) Unwrap() error { return ErrReadOnly }

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid settings file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid settings data: %v", e.Err)
}

// Unwrap returns ErrParse so callers can use errors.Is for programmatic detection.
func (e *ParseError) Unwrap() error { return ErrParse }

// New returns empty settings.
func New() *Settings {
	return &Settings{values: map[string]any{}}
}

// FromEntries builds settings from entries in the given order. A repeated
// key keeps its first position and its last value.
func FromEntries(entries ...Entry) *Settings {
	s := New()
	for _, e := range entries {
		s.put(e.Key, e.Value)
	}
	return s
}

// Load reads settings from path. A missing or blank file yields empty settings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s, err := ParseJSON(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return s, nil
}

// ParseJSON decodes a JSON object (or array, keyed by index) keeping the
// top-level key order. Blank input yields empty settings.
func ParseJSON(data []byte) (*Settings, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return New(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	s := New()
	switch tok {
	case json.Delim('{'):
		err = s.decodeObject(dec)
	case json.Delim('['):
		err = s.decodeArray(dec)
	default:
		err = fmt.Errorf("expected a JSON object, got %v", tok)
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: errors.New("unexpected data after the top-level value")}
	}
	return s, nil
}

func (s *Settings) decodeObject(dec *json.Decoder) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		if err := s.decodeValue(dec, key); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

func (s *Settings) decodeArray(dec *json.Decoder) error {
	for i := 0; dec.More(); i++ {
		if err := s.decodeValue(dec, strconv.Itoa(i)); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

// decodeValue stores the next value of dec under key. Object values also
// record their key order.
func (s *Settings) decodeValue(dec *json.Decoder, key string) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	vdec := json.NewDecoder(bytes.NewReader(raw))
	vdec.UseNumber()
	var value any
	if err := vdec.Decode(&value); err != nil {
		return err
	}
	s.put(key, normalize(value))

	if _, ok := value.(map[string]any); ok {
		order, err := objectKeys(raw)
		if err != nil {
			return err
		}
		if s.fieldOrder == nil {
			s.fieldOrder = map[string][]string{}
		}
		s.fieldOrder[key] = order
	}
	return nil
}

// objectKeys returns the keys of the JSON object in raw in file order,
// each key once.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// normalize converts json.Number values to int64 or float64.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	default:
		return v
	}
}

func (s *Settings) put(key string, value any) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Len returns the number of settings.
func (s *Settings) Len() int { return len(s.keys) }

// Keys returns the setting names in insertion order.
func (s *Settings) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Entries returns every setting in insertion order.
func (s *Settings) Entries() []Entry {
	entries := make([]Entry, 0, len(s.keys))
	for _, k := range s.keys {
		entries = append(entries, Entry{Key: k, Value: s.values[k]})
	}
	return entries
}

// ToMap returns a copy of the underlying mapping. Use Entries for ordered access.
func (s *Settings) ToMap() map[string]any {
	m := make(map[string]any, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// Get returns the raw value stored under name, or def when absent.
func (s *Settings) Get(name string, def any) any {
	v, ok := s.values[name]
	if !ok {
		return def
	}
	return v
}

// GetBool returns the setting coerced to a bool.
func (s *Settings) GetBool(name string, def bool) bool {
	return toBool(s.Get(name, def))
}

// GetString returns the setting coerced to a string.
func (s *Settings) GetString(name, def string) string {
	return toString(s.Get(name, def))
}

// GetInt returns the setting coerced to an integer.
func (s *Settings) GetInt(name string, def int64) int64 {
	return toInt(s.Get(name, def))
}

// GetFloat returns the setting coerced to a float.
func (s *Settings) GetFloat(name string, def float64) float64 {
	return toFloat(s.Get(name, def))
}

// GetArray returns a sequence setting unchanged, the values of an object
// setting in file order, a scalar wrapped in a one-element slice, or def
// when the setting is absent or null. Objects built with FromEntries have no
// file order and yield their values ordered by key. Use GetMap to keep the
// keys of an object setting.
func (s *Settings) GetArray(name string, def []any) []any {
	v, ok := s.values[name]
	if !ok || v == nil {
		return def
	}

	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		keys := s.fieldOrder[name]
		if len(keys) != len(t) {
			keys = make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		}
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, t[k])
		}
		return out
	default:
		return []any{v}
	}
}

// GetMap returns an object setting unchanged, or def for any other value.
func (s *Settings) GetMap(name string, def map[string]any) map[string]any {
	if m, ok := s.values[name].(map[string]any); ok {
		return m
	}
	return def
}

// keyFor maps an index key to a setting name. Strings are names; integers
// select the Nth key in insertion order.
func (s *Settings) keyFor(key any) (string, bool) {
	var idx int
	switch k := key.(type) {
	case string:
		return k, true
	case int:
		idx = k
	case int64:
		idx = int(k)
	case uint:
		idx = int(k)
	default:
		return "", false
	}
	if idx < 0 || idx >= len(s.keys) {
		return "", false
	}
	return s.keys[idx], true
}

// Has reports whether key (a name or an insertion index) selects a setting.
func (s *Settings) Has(key any) bool {
	name, ok := s.keyFor(key)
	if !ok {
		return false
	}
	_, ok = s.values[name]
	return ok
}

// At returns the value selected by key (a name or an insertion index).
func (s *Settings) At(key any) (any, bool) {
	name, ok := s.keyFor(key)
	if !ok {
		return nil, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Set always fails: settings cannot be changed once loaded.
func (s *Settings) Set(key, _ any) error {
	return &ReadOnlyError{Key: key}
}

// Unset always fails: settings cannot be changed once loaded.
func (s *Settings) Unset(key any) error {
	return &ReadOnlyError{Key: key}
}
