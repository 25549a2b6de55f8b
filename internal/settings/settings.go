// Package settings holds the user-editable client settings and their persistence.
//
// The whole record is stored as one JSON blob under StorageKey. Loading merges the
// defaults with whatever was persisted, so fields added later still get a value, and
// keys this version does not know about are carried through to the next save.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// StorageKey is the fixed key the settings blob is stored under
	StorageKey = "chatbot-settings"

	DefaultAPIURL = "http://localhost:8001"

	KeyAPIURL         = "apiUrl"
	KeySystemPrompt   = "systemPrompt"
	KeyAutoSave       = "autoSave"
	KeyShowTimestamps = "showTimestamps"
)

// ErrUnknownKey is returned by Set for a key that is not a settings field
var ErrUnknownKey = errors.New("unknown settings key")

// Settings is the persisted client settings record
type Settings struct {
	APIURL         string
	SystemPrompt   string
	AutoSave       bool
	ShowTimestamps bool

	// extra holds persisted keys that are not settings fields
	extra map[string]json.RawMessage
	// nulls marks fields persisted as null; they read as the default and are
	// written back as null until Set assigns them
	nulls map[string]bool
}

// Defaults returns the hardcoded default settings
func Defaults() Settings {
	return Settings{
		APIURL:         DefaultAPIURL,
		SystemPrompt:   "",
		AutoSave:       true,
		ShowTimestamps: false,
	}
}

// Keys lists the settings fields in display order
func Keys() []string {
	return []string{KeyAPIURL, KeySystemPrompt, KeyAutoSave, KeyShowTimestamps}
}

// Clone returns a copy that shares no state with s
func (s Settings) Clone() Settings {
	c := s
	if s.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(s.extra))
		for k, v := range s.extra {
			c.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	if s.nulls != nil {
		c.nulls = make(map[string]bool, len(s.nulls))
		for k := range s.nulls {
			c.nulls[k] = true
		}
	}
	return c
}

// Get returns the textual value of a settings field
func (s Settings) Get(key string) (string, error) {
	switch key {
	case KeyAPIURL:
		return s.APIURL, nil
	case KeySystemPrompt:
		return s.SystemPrompt, nil
	case KeyAutoSave:
		return strconv.FormatBool(s.AutoSave), nil
	case KeyShowTimestamps:
		return strconv.FormatBool(s.ShowTimestamps), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set assigns a settings field from its textual form
func (s *Settings) Set(key, value string) error {
	switch key {
	case KeyAPIURL:
		s.APIURL = strings.TrimSpace(value)
	case KeySystemPrompt:
		s.SystemPrompt = value
	case KeyAutoSave, KeyShowTimestamps:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q", key, value)
		}
		if key == KeyAutoSave {
			s.AutoSave = b
		} else {
			s.ShowTimestamps = b
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	delete(s.nulls, key)
	return nil
}

// MarshalJSON encodes the record with its known fields and any carried-over keys.
// Keys are emitted in sorted order and HTML characters are left unescaped.
func (s Settings) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(s.extra)+4)
	for k, v := range s.extra {
		fields[k] = v
	}

	known := map[string]any{
		KeyAPIURL:         s.APIURL,
		KeySystemPrompt:   s.SystemPrompt,
		KeyAutoSave:       s.AutoSave,
		KeyShowTimestamps: s.ShowTimestamps,
	}
	for k, v := range known {
		if s.nulls[k] {
			fields[k] = json.RawMessage("null")
			continue
		}
		raw, err := encode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", k, err)
		}
		fields[k] = raw
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON overlays the persisted fields onto s, keeping s's values for any
// field the blob does not mention or stores as null.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	targets := map[string]any{
		KeyAPIURL:         &s.APIURL,
		KeySystemPrompt:   &s.SystemPrompt,
		KeyAutoSave:       &s.AutoSave,
		KeyShowTimestamps: &s.ShowTimestamps,
	}

	for k, raw := range fields {
		target, ok := targets[k]
		if !ok {
			if s.extra == nil {
				s.extra = make(map[string]json.RawMessage)
			}
			s.extra[k] = append(json.RawMessage(nil), raw...)
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if s.nulls == nil {
				s.nulls = make(map[string]bool)
			}
			s.nulls[k] = true
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("invalid %s: %w", k, err)
		}
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
