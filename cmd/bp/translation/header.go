// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"bufio"
	"io"
	"regexp"

	"go.uber.org/zap"
)

const maxKeyLength = 32

var (
	headerPairPattern  = regexp.MustCompile(`\[([a-zA-Z_][a-zA-Z0-9_]*)\]\s*=\s*"(.*?)"`)
	headerTablePattern = regexp.MustCompile(`\[([T_][A-Z0-9_]+)\]\s*=\s*"((?:[^"\\]|\\.)*)"`)
)

// Table is the ordered key/value content of a C string table header.
// Values are kept as raw C source text, escapes included.
type Table struct {
	Keys   []string
	Values map[string]string
}

func newTable() *Table {
	return &Table{Values: map[string]string{}}
}

func (t *Table) set(key string, value string) {
	if _, ok := t.Values[key]; !ok {
		t.Keys = append(t.Keys, key)
	}
	t.Values[key] = value
}

func (t *Table) Len() int {
	return len(t.Keys)
}

// ParseHeaderPairs reads the `[KEY]="value"` initializers of a header, one
// per line.
func ParseHeaderPairs(r io.Reader, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	res := newTable()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := headerPairPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		if len(m[1]) > maxKeyLength {
			logger.Warn("identifier is longer than 32 characters, some compilers may not distinguish it", zap.String("key", m[1]))
		}
		res.set(m[1], m[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// ParseHeaderTable extracts every `[T_KEY]="..."` entry in the header. The
// entries may span the file freely and values may contain escaped quotes.
func ParseHeaderTable(r io.Reader) (*Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	res := newTable()
	for _, m := range headerTablePattern.FindAllStringSubmatch(string(content), -1) {
		res.set(m[1], m[2])
	}
	return res, nil
}

// BaseFromHeader turns en-us header pairs into the reference translation.
func BaseFromHeader(table *Table) *Translation {
	res := NewTranslation()
	for _, key := range table.Keys {
		r := NewRecord(table.Values[key])
		r.EnUS = str(table.Values[key])
		r.Comments = str("Autogenerated from en-us.h")
		res.Set(key, r)
	}
	return res
}
