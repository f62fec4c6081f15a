// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ReportFlags selects the sections written by WriteReport.
type ReportFlags uint

const (
	ReportNull ReportFlags = 1 << iota
	ReportUntranslated
	ReportIdentical
	ReportFormat
	ReportOutdated

	ReportNone    ReportFlags = 0
	ReportAll                 = ReportNull | ReportUntranslated | ReportIdentical | ReportFormat | ReportOutdated
	ReportDefault             = ReportIdentical | ReportFormat | ReportOutdated
)

var reportFlagNames = map[string]ReportFlags{
	"null":         ReportNull,
	"untranslated": ReportUntranslated,
	"identical":    ReportIdentical,
	"format":       ReportFormat,
	"outdated":     ReportOutdated,
	"all":          ReportAll,
	"default":      ReportDefault,
	"none":         ReportNone,
}

// ReportFlagNames lists the accepted section names.
func ReportFlagNames() []string {
	return []string{"null", "untranslated", "identical", "format", "outdated", "all", "default", "none"}
}

// ParseReportFlags combines the named sections.
func ParseReportFlags(names []string) (ReportFlags, error) {
	var res ReportFlags
	for _, name := range names {
		f, ok := reportFlagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown report section '%s', must be one of %s", name, strings.Join(ReportFlagNames(), ", "))
		}
		res |= f
	}
	return res, nil
}

const (
	maxReportedEntries = 8
	reportSeparator    = "============================================================================="
)

func jsonString(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%q", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func localized(t *Translation, key string) string {
	r, ok := t.Get(key)
	if !ok || r == nil || r.Localized == nil {
		return ""
	}
	return *r.Localized
}

func dataTypes(t *Translation, key string) []string {
	r, ok := t.Get(key)
	if !ok || r == nil || r.DataTypes == nil {
		return []string{}
	}
	return r.DataTypes
}

func writeSection(w io.Writer, heading ...string) {
	fmt.Fprintf(w, "\n%s\n", reportSeparator)
	for _, line := range heading {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func writeTruncated(w io.Writer, keys []string, line func(key string) string) {
	for i, key := range keys {
		if i == maxReportedEntries {
			fmt.Fprintln(w, "    .... (additional entries not shown) ....")
			break
		}
		fmt.Fprintln(w, line(key))
	}
	fmt.Fprintln(w)
}

// WriteReport describes the entries of res that were not emitted as is.
func WriteReport(w io.Writer, res *Result, flags ReportFlags) {
	if flags&ReportNull != 0 && len(res.Null) > 0 {
		writeSection(w, fmt.Sprintf("%s: %d strings are explicitly not translated:", res.Name, len(res.Null)))
		for _, key := range res.Null {
			fmt.Fprintf(w, "    [ %-32s ] = \"%s\",\n", key, localized(res.Base, key))
		}
		fmt.Fprintln(w)
	}

	if flags&ReportIdentical != 0 && len(res.Identical) > 0 {
		writeSection(w,
			fmt.Sprintf("%s: %d strings are identical to the en-us string.", res.Name, len(res.Identical)),
			"Recommend to either: (a) replace with null in .json to indicate choice to not translate it, or",
			"(b) remove the entry entirely to indicate the string has not been translated (yet).")
		writeTruncated(w, res.Identical, func(key string) string {
			return fmt.Sprintf("    [ %-32s ] = \"%s\",", key, localized(res.Base, key))
		})
	}

	if flags&ReportUntranslated != 0 && len(res.Untranslated) > 0 {
		writeSection(w,
			fmt.Sprintf("%s: %d strings have no entry in the json.", res.Name, len(res.Untranslated)),
			"These strings likely still require translation.  If intentionally not translating them,",
			"add the entry (with the EN_US entry populated), with `Localized` set to json keyword `null`.")
		writeTruncated(w, res.Untranslated, func(key string) string {
			if languageSelectionPattern.MatchString(key) {
				return fmt.Sprintf("    [ %-32s ] = null,", key)
			}
			return fmt.Sprintf("    \"%s\": { \"Localized\": null, \"EN_US\": %s, \"DataTypes\": %s },",
				key, jsonString(localized(res.Base, key)), jsonString(dataTypes(res.Base, key)))
		})
	}

	if flags&ReportOutdated != 0 && len(res.Outdated) > 0 {
		writeSection(w,
			fmt.Sprintf("%s: %d strings have outdated translations.", res.Name, len(res.Outdated)),
			"These strings have a different (or missing) `EN_US` field, indicating the translated string",
			"may be out of date.  The translated string should be reviewed and the `EN_US` field updated",
			"to show what en-us string the translation was based on.")
		writeTruncated(w, res.Outdated, func(key string) string {
			return fmt.Sprintf("    \"%s\": { \"Localized\": %s, \"EN_US\": %s, \"DataTypes\": %s },",
				key, jsonString(localized(res.Target, key)), jsonString(localized(res.Base, key)), jsonString(dataTypes(res.Base, key)))
		})
	}

	if flags&ReportFormat != 0 && len(res.FormatMismatch) > 0 {
		writeSection(w, fmt.Sprintf("%s: %d strings have mismatched format specifiers.", res.Name, len(res.FormatMismatch)))
		for _, key := range res.FormatMismatch {
			fmt.Fprintf(w, "    [ %-32s ] = \"%s\" vs. \"%s\"\n", key, localized(res.Base, key), localized(res.Target, key))
		}
		fmt.Fprintln(w)
	}
}
