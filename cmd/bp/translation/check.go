// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

var (
	sourceExtensions  = []string{".c", ".h", ".cpp", ".hpp"}
	identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// FindSourceFiles returns the C and C++ files below root, skipping the
// excluded directories and everything inside them.
func FindSourceFiles(root string, excludes []string) ([]string, error) {
	var absExcludes []string
	for _, e := range excludes {
		abs, err := filepath.Abs(e)
		if err != nil {
			return nil, err
		}
		absExcludes = append(absExcludes, abs)
	}

	var res []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			for _, e := range absExcludes {
				if isWithin(abs, e) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range sourceExtensions {
			if ext == e {
				res = append(res, path)
				break
			}
		}
		return nil
	})
	return res, err
}

func isWithin(path string, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// UsageResult splits translation keys into the ones referenced by source
// files and the rest. Both lists are sorted.
type UsageResult struct {
	Used   []string
	Unused []string
}

func (u *UsageResult) IsUsed(key string) bool {
	i := sort.SearchStrings(u.Used, key)
	return i < len(u.Used) && u.Used[i] == key
}

// Usage looks for every key as a whole C identifier in the given files.
// Unreadable files are logged and skipped.
func Usage(keys []string, files []string, logger *zap.Logger) *UsageResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	seen := map[string]bool{}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("could not read source file", zap.String("path", file), zap.Error(err))
			continue
		}
		for _, ident := range identifierPattern.FindAll(content, -1) {
			seen[string(ident)] = true
		}
	}
	res := &UsageResult{
		Used:   []string{},
		Unused: []string{},
	}
	for _, key := range keys {
		if seen[key] {
			res.Used = append(res.Used, key)
		} else {
			res.Unused = append(res.Unused, key)
		}
	}
	sort.Strings(res.Used)
	sort.Strings(res.Unused)
	return res
}

// DuplicateGroup is a text shared by more than one key.
type DuplicateGroup struct {
	Text string
	Keys []string
}

// Duplicates groups keys whose trimmed, non-empty texts are equal. Larger
// groups come first, ties keep the order of first appearance.
func Duplicates(table *Table) []DuplicateGroup {
	var order []string
	byText := map[string][]string{}
	for _, key := range table.Keys {
		text := strings.TrimSpace(table.Values[key])
		if text == "" {
			continue
		}
		if _, ok := byText[text]; !ok {
			order = append(order, text)
		}
		byText[text] = append(byText[text], key)
	}

	var res []DuplicateGroup
	for _, text := range order {
		keys := byText[text]
		if len(keys) < 2 {
			continue
		}
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		res = append(res, DuplicateGroup{Text: text, Keys: sorted})
	}
	sort.SliceStable(res, func(i, j int) bool {
		return len(res[i].Keys) > len(res[j].Keys)
	})
	return res
}

// RemoveEntries deletes, in place, every line of the header that defines
// one of keys. It returns the keys that were actually removed.
func RemoveEntries(path string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	pattern := regexp.MustCompile(`\[(` + strings.Join(quoted, "|") + `)\]\s*=\s*"[^\n]*"\s*,?`)

	var out bytes.Buffer
	removed := map[string]bool{}
	reader := bufio.NewReader(bytes.NewReader(content))
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if m := pattern.FindStringSubmatch(line); m != nil {
				removed[m[1]] = true
			} else {
				out.WriteString(line)
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
	}

	if err := os.WriteFile(path, out.Bytes(), stat.Mode().Perm()); err != nil {
		return nil, err
	}
	var res []string
	for k := range removed {
		res = append(res, k)
	}
	sort.Strings(res)
	return res, nil
}

// Display shortens text to at most 60 characters.
func Display(text string) string {
	runes := []rune(text)
	if len(runes) <= 60 {
		return text
	}
	return string(runes[:57]) + "..."
}

// CheckReporter writes the sections of the translation checker report.
type CheckReporter struct {
	w      io.Writer
	title  lipgloss.Style
	used   lipgloss.Style
	unused lipgloss.Style
}

// NewCheckReporter styles the report for w. Writers that are not terminals
// receive plain text.
func NewCheckReporter(w io.Writer) *CheckReporter {
	r := lipgloss.NewRenderer(w)
	return &CheckReporter{
		w:      w,
		title:  r.NewStyle().Bold(true),
		used:   r.NewStyle().Foreground(lipgloss.Color("2")),
		unused: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

func (c *CheckReporter) rule(ch string, heading string) {
	fmt.Fprintln(c.w, strings.Repeat(ch, 80))
	fmt.Fprintln(c.w, c.title.Render(heading))
	fmt.Fprintln(c.w, strings.Repeat(ch, 80))
}

func (c *CheckReporter) WriteHeader(translationFile string, entries int, sourceDir string, excludes []string, sourceFiles int) {
	c.rule("=", "Bus Pirate Translation Checker")
	fmt.Fprintln(c.w)
	fmt.Fprintf(c.w, "Parsing translation file: %s\n", translationFile)
	fmt.Fprintf(c.w, "Found %d translation entries\n\n", entries)
	fmt.Fprintf(c.w, "Scanning source directory: %s\n", sourceDir)
	fmt.Fprintf(c.w, "Excluding: %s\n", strings.Join(excludes, ", "))
	fmt.Fprintf(c.w, "Found %d source files to check\n\n", sourceFiles)
}

func (c *CheckReporter) WriteUnused(table *Table, usage *UsageResult) {
	c.rule("-", "CHECKING FOR UNUSED TRANSLATION ENTRIES")
	if len(usage.Unused) == 0 {
		fmt.Fprintln(c.w, "\nNo unused translation entries found!")
	} else {
		fmt.Fprintf(c.w, "\nFound %d unused translation entries:\n\n", len(usage.Unused))
		for _, key := range usage.Unused {
			fmt.Fprintf(c.w, "  %-40s = \"%s\"\n", key, Display(table.Values[key]))
		}
	}
	fmt.Fprintf(c.w, "\nSummary: %d used, %d unused\n\n", len(usage.Used), len(usage.Unused))
}

func (c *CheckReporter) WriteDuplicates(groups []DuplicateGroup, usage *UsageResult) {
	c.rule("-", "CHECKING FOR DUPLICATE TRANSLATION TEXT")
	if len(groups) == 0 {
		fmt.Fprintln(c.w, "\nNo duplicate translation text found!")
	} else {
		fmt.Fprintf(c.w, "\nFound %d sets of duplicate text:\n\n", len(groups))
		for i, g := range groups {
			fmt.Fprintf(c.w, "%d. Text: \"%s\"\n", i+1, Display(g.Text))
			fmt.Fprintf(c.w, "   Used by %d keys:\n", len(g.Keys))
			for _, key := range g.Keys {
				status := c.unused.Render("UNUSED")
				if usage.IsUsed(key) {
					status = c.used.Render("USED")
				}
				fmt.Fprintf(c.w, "     - %-40s [%s]\n", key, status)
			}
			fmt.Fprintln(c.w)
		}
	}
	fmt.Fprintf(c.w, "Summary: %d duplicate text groups\n\n", len(groups))
}

func (c *CheckReporter) WriteSummary(total int, usage *UsageResult, duplicateGroups int) {
	c.rule("=", "FINAL SUMMARY")
	fmt.Fprintf(c.w, "Total translations:     %d\n", total)
	fmt.Fprintf(c.w, "Used translations:      %d\n", len(usage.Used))
	fmt.Fprintf(c.w, "Unused translations:    %d\n", len(usage.Unused))
	fmt.Fprintf(c.w, "Duplicate text groups:  %d\n\n", duplicateGroups)
}
