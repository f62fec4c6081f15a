// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package printf extracts the argument types a C printf format string
// consumes, so that translated strings can be checked against the English text.
package printf

import (
	"fmt"
	"regexp"
	"strings"
)

// A match is only a real specifier when it is preceded by an even number of
// '%' and an even number of '\' characters; Specifiers checks that after the
// fact since RE2 has no look-behind.
var specifierPattern = regexp.MustCompile(
	`%(?P<flags>[0 #+-]?)(?P<width>\*|[0-9]*)(?:\.(?P<precision>\*|[0-9]*))?(?P<type>(?:[hl]{0,2}|[jztL])?[diuoxXeEfFgGaAcpsSn])`)

var (
	widthIdx     = specifierPattern.SubexpIndex("width")
	precisionIdx = specifierPattern.SubexpIndex("precision")
	typeIdx      = specifierPattern.SubexpIndex("type")
)

// Specifiers returns the ordered list of arguments the format string
// consumes. Each entry is a length modifier and conversion ("d", "lu",
// "Lf", ...), or "*" for a width or precision taken from the argument list.
func Specifiers(format string) []string {
	res := []string{}
	for _, m := range specifierPattern.FindAllStringSubmatchIndex(format, -1) {
		start := m[0]
		if countPreceding(format, start, '%')%2 == 1 {
			continue
		}
		if countPreceding(format, start, '\\')%2 == 1 {
			continue
		}
		if submatch(format, m, widthIdx) == "*" {
			res = append(res, "*")
		}
		if submatch(format, m, precisionIdx) == "*" {
			res = append(res, "*")
		}
		res = append(res, submatch(format, m, typeIdx))
	}
	return res
}

func submatch(s string, m []int, idx int) string {
	if m[2*idx] < 0 {
		return ""
	}
	return s[m[2*idx]:m[2*idx+1]]
}

func countPreceding(s string, pos int, c byte) int {
	count := 0
	for i := pos - 1; i >= 0 && s[i] == c; i-- {
		count++
	}
	return count
}

var selfTestSpecifiers = []string{
	"%c", "%lc",
	"%s", "%ls",
	"%hhd", "%hd", "%d", "%ld", "%lld", "%jd", "%zd", "%td",
	"%hhi", "%hi", "%i", "%li", "%lli", "%ji", "%zi", "%ti",
	"%hho", "%ho", "%o", "%lo", "%llo", "%jo", "%zo", "%to",
	"%hhx", "%hx", "%x", "%lx", "%llx", "%jx", "%zx", "%tx",
	"%hhX", "%hX", "%X", "%lX", "%llX", "%jX", "%zX", "%tX",
	"%hhu", "%hu", "%u", "%lu", "%llu", "%ju", "%zu", "%tu",
	"%f", "%lf", "%Lf",
	"%F", "%lF", "%LF",
	"%e", "%le", "%Le",
	"%E", "%lE", "%LE",
	"%g", "%lg", "%Lg",
	"%G", "%lG", "%LG",
	"%a", "%la", "%La",
	"%A", "%lA", "%LA",
	"%p",
}

const (
	selfTestMixed = "%%%%f %08.*s %%%i %8.3d %s %p %99999999.88888Lf %%p %*.*f % A"
)

var selfTestMixedExpected = []string{"*", "s", "i", "d", "s", "p", "Lf", "*", "*", "f", "A"}

// SelfTest checks the scanner against every length modifier and conversion
// combination, and against a string mixing escapes, flags, widths and
// precisions.
func SelfTest() error {
	var failures []string
	for _, spec := range selfTestSpecifiers {
		got := Specifiers(spec)
		if len(got) != 1 || "%"+got[0] != spec {
			failures = append(failures, fmt.Sprintf("%s -> %v", spec, got))
		}
	}
	got := Specifiers(selfTestMixed)
	if strings.Join(got, " ") != strings.Join(selfTestMixedExpected, " ") {
		failures = append(failures, fmt.Sprintf("%q -> %v, expected %v", selfTestMixed, got, selfTestMixedExpected))
	}
	if len(failures) > 0 {
		return fmt.Errorf("format specifier self-test failed:\n  %s", strings.Join(failures, "\n  "))
	}
	return nil
}
