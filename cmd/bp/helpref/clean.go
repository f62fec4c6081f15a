// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package helpref

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
)

var (
	ansiPattern = regexp.MustCompile(
		`\x1b\[[0-9;]*[A-Za-z]` + // CSI
			`|\x1b\][^\x07]*\x07` + // OSC
			`|\x1b[()][AB012]` + // character set
			`|\x1b[78]` + // save/restore cursor
			`|\x1b\[\?[0-9;]*[A-Za-z]` + // private modes
			`|\x07|\x08`)
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
)

// StripANSI removes VT100 escape sequences, bells and backspaces.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Clean turns a raw capture into plain text ending in a single newline.
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, string(Prompt), "")
	text = strings.ReplaceAll(text, "\r", "")
	text = StripANSI(text)
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	text = strings.TrimLeft(text, "\n")
	return strings.TrimRightFunc(text, unicode.IsSpace) + "\n"
}

// Section is the captured output of one help command.
type Section struct {
	Heading string
	Raw     string
}

func (s Section) Markdown() string {
	return fmt.Sprintf("## %s\n\n```\n%s```\n", s.Heading, Clean(s.Raw))
}

const markdownHeader = "# Bus Pirate Command Help Reference\n\n" +
	"> Auto-generated by `bp helpcollect`. Do not edit manually.\n\n"

// WriteMarkdown writes the help reference document.
func WriteMarkdown(w io.Writer, sections []Section) error {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.Markdown()
	}
	_, err := io.WriteString(w, markdownHeader+strings.Join(parts, "\n")+"\n")
	return err
}
