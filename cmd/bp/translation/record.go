// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package translation maintains the firmware's string tables: the en-us
// header is the source of truth, every other language lives in a JSON file
// and is turned into a C header with untranslatable or unsafe entries
// replaced by NULL.
package translation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/toitlang/bptools/cmd/bp/printf"
	"go.uber.org/zap"
)

var (
	// ErrInvalidRecord is returned for translation records that are
	// malformed or whose declared data types are wrong.
	ErrInvalidRecord = errors.New("invalid translation record")
)

// Record is a single translated string together with the en-us string it was
// translated from and the printf argument types it consumes.
type Record struct {
	Localized *string  `json:"Localized"`
	EnUS      *string  `json:"EN_US"`
	Comments  *string  `json:"Comments"`
	DataTypes []string `json:"DataTypes"`
}

func str(s string) *string {
	return &s
}

// NewRecord returns a record for the given localized text, with the data
// types computed from it.
func NewRecord(localized string) *Record {
	return &Record{
		Localized: str(localized),
		DataTypes: printf.Specifiers(localized),
	}
}

// Translation is an insertion ordered map from string identifiers to records.
// A nil record means the identifier is present without any content.
type Translation struct {
	keys    []string
	records map[string]*Record
}

func NewTranslation() *Translation {
	return &Translation{
		records: map[string]*Record{},
	}
}

// Set adds or replaces the record for key. New keys are appended.
func (t *Translation) Set(key string, r *Record) {
	if _, ok := t.records[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.records[key] = r
}

func (t *Translation) Get(key string) (*Record, bool) {
	r, ok := t.records[key]
	return r, ok
}

func (t *Translation) Has(key string) bool {
	_, ok := t.records[key]
	return ok
}

func (t *Translation) Keys() []string {
	return t.keys
}

func (t *Translation) Len() int {
	return len(t.keys)
}

// MarshalJSON writes the records in insertion order.
func (t *Translation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeNoEscape(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeNoEscape(&buf, t.records[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeNoEscape(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode always terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// WriteJSON writes the translation with a four space indent, leaving
// non-ASCII text unescaped.
func WriteJSON(w io.Writer, t *Translation) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(t)
}

func WriteJSONFile(path string, t *Translation) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, t); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadJSONFile reads and canonicalizes a translation JSON file.
func ReadJSONFile(path string, logger *zap.Logger) (*Translation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := CanonicalizeTranslation(data, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load '%s': %w", path, err)
	}
	return t, nil
}

// CanonicalizeTranslation parses a JSON object mapping identifiers to
// records, in any of the forms accepted by CanonicalizeRecord.
func CanonicalizeTranslation(data []byte, logger *zap.Logger) (*Translation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys, values, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	res := NewTranslation()
	for _, key := range keys {
		r, err := CanonicalizeRecord(values[key], logger.With(zap.String("key", key)))
		if err != nil {
			return nil, fmt.Errorf("key `%s`: %w", key, err)
		}
		res.Set(key, r)
	}
	return res, nil
}

// CanonicalizeRecord accepts a bare JSON string, a record object, or null.
//
// Strings become a record with computed data types. Objects must carry a
// 'Localized' key, which may be null to mark a string as deliberately not
// translated. Declared 'DataTypes' must match the specifiers found in the
// localized text, and are computed when absent. null yields a nil record.
func CanonicalizeRecord(raw json.RawMessage, logger *zap.Logger) (*Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidRecord)
	}

	switch raw[0] {
	case 'n':
		return nil, json.Unmarshal(raw, new(interface{}))
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return NewRecord(s), nil
	case '{':
	default:
		return nil, fmt.Errorf("%w: must be either a string or an object", ErrInvalidRecord)
	}

	keys, fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := fields["Localized"]; !ok {
		return nil, fmt.Errorf("%w: 'Localized' is a mandatory key", ErrInvalidRecord)
	}

	res := &Record{}
	declaredTypes := false
	for _, k := range keys {
		v := fields[k]
		switch k {
		case "Localized":
			if res.Localized, err = optionalString(k, v); err != nil {
				return nil, err
			}
		case "EN_US":
			if res.EnUS, err = optionalString(k, v); err != nil {
				return nil, err
			}
		case "Comments":
			if res.Comments, err = optionalString(k, v); err != nil {
				return nil, err
			}
		case "DataTypes":
			if isNull(v) {
				continue
			}
			var list []interface{}
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, fmt.Errorf("%w: 'DataTypes' value, if exists, must be a list of format specifier strings", ErrInvalidRecord)
			}
			types := []string{}
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: 'DataTypes' list must contain only strings", ErrInvalidRecord)
				}
				if !printf.Valid(s) {
					return nil, fmt.Errorf("%w: DataType '%s' is not a valid C format specifier", ErrInvalidRecord, s)
				}
				types = append(types, s)
			}
			res.DataTypes = types
			declaredTypes = true
		default:
			logger.Warn("unknown key in translation record", zap.String("field", k), zap.ByteString("value", v))
		}
	}

	if res.Localized == nil {
		return res, nil
	}
	actual := printf.Specifiers(*res.Localized)
	if declaredTypes && !reflect.DeepEqual(res.DataTypes, actual) {
		return nil, fmt.Errorf("%w: DataTypes %v do not match the format specifiers %v in the Localized string", ErrInvalidRecord, res.DataTypes, actual)
	}
	res.DataTypes = actual
	return res, nil
}

func optionalString(name string, v json.RawMessage) (*string, error) {
	if isNull(v) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, fmt.Errorf("%w: '%s' value, if exists, must be a string", ErrInvalidRecord, name)
	}
	return &s, nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// decodeObject decodes a JSON object keeping the order of its keys. A
// repeated key keeps its first position and its last value.
func decodeObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	values := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected a string key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("value of '%s': %w", key, err)
		}
		if _, exists := values[key]; !exists {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}
