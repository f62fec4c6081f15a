// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/toitlang/bptools/cmd/bp/printf"
)

var (
	cIdentifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,31}$`)
	// Language selection strings are already in the language they select.
	languageSelectionPattern = regexp.MustCompile(`^T_CONFIG_LANGUAGE(_\w+)?$`)
)

// Result is the outcome of converting one language against the base.
type Result struct {
	Name     string
	Variable string

	Base   *Translation
	Target *Translation

	// Output holds the string emitted for every base key, nil for NULL.
	Output map[string]*string

	Untranslated   []string
	Null           []string
	Identical      []string
	FormatMismatch []string
	Outdated       []string
	Protected      []string
	// Extra lists keys that exist only in the target.
	Extra []string
}

// VariableName derives the C array name of a language from its file stem.
func VariableName(name string) (string, error) {
	v := strings.ReplaceAll(name, "-", "_")
	if !cIdentifierPattern.MatchString(v) {
		return "", fmt.Errorf("`%s` is not a valid C identifier", v)
	}
	return v, nil
}

// Convert classifies every base key of target. Only translations that are
// present, differ from en-us, consume compatible printf arguments, and do
// not belong to the language selection menu end up in the output.
func Convert(name string, base *Translation, target *Translation) (*Result, error) {
	variable, err := VariableName(name)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Name:     name,
		Variable: variable,
		Base:     base,
		Target:   target,
		Output:   map[string]*string{},
	}

	for _, key := range target.Keys() {
		if !base.Has(key) {
			res.Extra = append(res.Extra, key)
		}
	}

	for _, key := range base.Keys() {
		baseRecord, _ := base.Get(key)
		res.Output[key] = nil

		targetRecord, ok := target.Get(key)
		if !ok || targetRecord == nil {
			res.Untranslated = append(res.Untranslated, key)
			continue
		}
		if targetRecord.Localized == nil {
			res.Null = append(res.Null, key)
			continue
		}
		if baseRecord.Localized != nil && *baseRecord.Localized == *targetRecord.Localized {
			res.Identical = append(res.Identical, key)
			continue
		}
		if !printf.CompatibleLists(baseRecord.DataTypes, targetRecord.DataTypes) {
			res.FormatMismatch = append(res.FormatMismatch, key)
			continue
		}
		if targetRecord.EnUS == nil || baseRecord.Localized == nil || *targetRecord.EnUS != *baseRecord.Localized {
			// Still emitted: the translation is likely close enough.
			res.Outdated = append(res.Outdated, key)
		}
		if languageSelectionPattern.MatchString(key) {
			res.Protected = append(res.Protected, key)
			continue
		}
		res.Output[key] = targetRecord.Localized
	}
	return res, nil
}

// RenderLanguage fills the translation header template for res.
func RenderLanguage(template string, res *Result) string {
	var sb strings.Builder
	for _, key := range res.Base.Keys() {
		if v := res.Output[key]; v != nil {
			fmt.Fprintf(&sb, "    [ %-32s ] = \"%s\",\n", key, *v)
		} else {
			fmt.Fprintf(&sb, "    [ %-32s ] = NULL,\n", key)
		}
	}
	content := strings.ReplaceAll(template, ArrayDataTag, sb.String())
	return strings.ReplaceAll(content, VariableNameTag, res.Variable)
}
