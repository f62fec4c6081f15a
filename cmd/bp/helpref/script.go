// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package helpref

import (
	"bufio"
	"io"
	"strings"
)

type StepKind int

const (
	// StepDefaults accepts the defaults of an interactive menu.
	StepDefaults StepKind = iota
	// StepCommand sends a command and discards its output.
	StepCommand
	// StepCapture sends a help command and records its output.
	StepCapture
)

// Step is one line of a command script.
type Step struct {
	Kind    StepKind
	Command string
	Heading string
}

// Payload is the text sent to the device for the step.
func (s Step) Payload() string {
	if s.Kind == StepDefaults {
		return " \r"
	}
	return s.Command + "\r"
}

// ParseScript reads a command script. Blank lines accept menu defaults,
// `#` lines are comments and `# done` ends the script. Commands ending in
// -h are captured under the command name.
func ParseScript(r io.Reader) ([]Step, error) {
	var res []Step
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			res = append(res, Step{Kind: StepDefaults})
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			comment := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if strings.EqualFold(comment, "done") {
				break
			}
			continue
		}
		cmd, _, _ := strings.Cut(line, "#")
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		if strings.HasSuffix(cmd, "-h") {
			res = append(res, Step{
				Kind:    StepCapture,
				Command: cmd,
				Heading: strings.TrimSpace(strings.TrimSuffix(cmd, "-h")),
			})
			continue
		}
		res = append(res, Step{Kind: StepCommand, Command: cmd})
	}
	return res, scanner.Err()
}
