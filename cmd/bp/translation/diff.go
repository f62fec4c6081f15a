// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

func quoted(s *string) string {
	if s == nil {
		return "null"
	}
	return "`" + *s + "`"
}

// inlineDiff marks deletions with [-...-] and insertions with {+...+}.
func inlineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))
	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

func stringFieldDifference(name string, old, new *string) string {
	switch {
	case old == nil && new == nil:
		return ""
	case old == nil:
		return fmt.Sprintf("Key '%s' is null in the old record, but not in the new record\n", name)
	case new == nil:
		return fmt.Sprintf("Key '%s' is null in the new record, but not in the old record\n", name)
	case *old == *new:
		return ""
	}
	return fmt.Sprintf("Key '%s' has different values; old: %s vs. new %s\n      %s\n",
		name, quoted(old), quoted(new), inlineDiff(*old, *new))
}

// RecordDifferences describes every field that changed between two records.
// The empty string means the records are equal.
func RecordDifferences(old, new *Record) string {
	if old == nil || new == nil {
		if old == new {
			return ""
		}
		if old == nil {
			return "Old record is null\n"
		}
		return "New record is null\n"
	}
	var sb strings.Builder
	sb.WriteString(stringFieldDifference("Localized", old.Localized, new.Localized))
	sb.WriteString(stringFieldDifference("EN_US", old.EnUS, new.EnUS))
	sb.WriteString(stringFieldDifference("Comments", old.Comments, new.Comments))
	if !reflect.DeepEqual(old.DataTypes, new.DataTypes) {
		fmt.Fprintf(&sb, "Key 'DataTypes' has different values; old: %v vs. new %v\n", old.DataTypes, new.DataTypes)
	}
	return sb.String()
}

// Differences lists the keys of old that are missing from new or whose
// records changed. Keys added in new are not reported.
func Differences(old, new *Translation) string {
	var sb strings.Builder
	for _, key := range old.Keys() {
		oldRecord, _ := old.Get(key)
		newRecord, ok := new.Get(key)
		if !ok {
			fmt.Fprintf(&sb, "  Key `%s` is missing from the new translation.\n", key)
			continue
		}
		if diffs := RecordDifferences(oldRecord, newRecord); diffs != "" {
			fmt.Fprintf(&sb, "  Key `%s` has differences:\n%s", key, indent(diffs, "    "))
		}
	}
	return sb.String()
}

// RecordFormatDifferences compares only the format specifiers of two records.
func RecordFormatDifferences(old, new *Record) string {
	if old == nil || new == nil {
		if old == new {
			return ""
		}
		if old == nil {
			return "old record is null\n"
		}
		return "new record is null\n"
	}
	if len(old.DataTypes) != len(new.DataTypes) {
		return fmt.Sprintf("Count of format specifiers differs: old %d (%v) vs. new %d (%v)\n",
			len(old.DataTypes), old.DataTypes, len(new.DataTypes), new.DataTypes)
	}
	var sb strings.Builder
	for i := range old.DataTypes {
		if old.DataTypes[i] != new.DataTypes[i] {
			fmt.Fprintf(&sb, "Format specifier %d differs: old `%s` vs. new `%s`\n", i, old.DataTypes[i], new.DataTypes[i])
		}
	}
	return sb.String()
}

// FormatDifferences reports the keys of old whose format specifiers are
// different or missing in new.
func FormatDifferences(old, new *Translation) string {
	var sb strings.Builder
	for _, key := range old.Keys() {
		oldRecord, _ := old.Get(key)
		newRecord, ok := new.Get(key)
		if !ok {
			fmt.Fprintf(&sb, "  Key `%s` is missing from the new translation.\n", key)
			continue
		}
		if diffs := RecordFormatDifferences(oldRecord, newRecord); diffs != "" {
			fmt.Fprintf(&sb, "  Key `%s`:\n%s", key, indent(diffs, "    "))
		}
	}
	return sb.String()
}

func indent(s string, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString(prefix + line)
	}
	return sb.String()
}
