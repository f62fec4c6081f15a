// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package i2cdb turns the markdown I2C address lists into a C lookup table
// of known devices per 7-bit address.
package i2cdb

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	EnumListTag     = "%%%enum_list%%%"
	ArrayDataTag    = "%%%array_data%%%"
	PointerArrayTag = "%%%pointer_array%%%"

	// NumAddresses is the size of the 7-bit address space.
	NumAddresses = 128
	// Separator joins the device names of one address. It is C source
	// text, not a line break.
	Separator = `\r\n`
)

// FileNames are the markdown lists, one per 16 addresses.
var FileNames = []string{
	"0x00-0x0F.md", "0x10-0x1F.md", "0x20-0x2F.md", "0x30-0x3F.md",
	"0x40-0x4F.md", "0x50-0x5F.md", "0x60-0x6F.md", "0x70-0x7F.md",
}

//go:embed dev_i2c_addresses.ht
var DefaultTemplate string

var addressPattern = regexp.MustCompile(`## (0x[0-9A-Fa-f]+)`)

// Devices maps an address to the names of the devices that may use it.
// An address with a heading but no devices maps to an empty list.
type Devices map[int][]string

// Parse adds the devices of one markdown list to devices.
func Parse(r io.Reader, devices Devices) error {
	current := -1
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			m := addressPattern.FindStringSubmatch(line)
			if m == nil {
				return fmt.Errorf("line %d: heading without an address: %q", lineNumber, line)
			}
			addr, err := strconv.ParseInt(m[1], 0, 32)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNumber, err)
			}
			current = int(addr)
			devices[current] = []string{}
		case strings.HasPrefix(line, "-"):
			if current < 0 {
				continue
			}
			if name, ok := deviceName(line); ok {
				devices[current] = append(devices[current], name)
			}
		}
	}
	return scanner.Err()
}

// deviceName extracts the name from `- [Name](link)` or `- Name (notes)`.
func deviceName(line string) (string, bool) {
	if strings.Contains(line, "]") {
		if _, rest, ok := strings.Cut(line, "["); ok {
			name, _, _ := strings.Cut(rest, "]")
			return name, true
		}
	}
	_, rest, ok := strings.Cut(line, "- ")
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(rest, "(")
	return strings.TrimSpace(name), true
}

// ParseDir reads every list in FileNames from dir.
func ParseDir(dir string) (Devices, error) {
	devices := Devices{}
	for _, name := range FileNames {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		err = Parse(f, devices)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return devices, nil
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// List is the deduplicated table. Index holds the position in Texts of
// every address, or -1 when the address has no entry.
type List struct {
	Texts []string
	Index [NumAddresses]int
}

// Build joins the device names of every address and shares identical texts
// between addresses. Texts are numbered in order of first use.
func Build(devices Devices) *List {
	res := &List{}
	seen := map[string]int{}
	for addr := 0; addr < NumAddresses; addr++ {
		names, ok := devices[addr]
		if !ok {
			res.Index[addr] = -1
			continue
		}
		escaped := make([]string, len(names))
		for i, n := range names {
			escaped[i] = escape(n)
		}
		text := strings.Join(escaped, Separator)
		idx, ok := seen[text]
		if !ok {
			idx = len(res.Texts)
			seen[text] = idx
			res.Texts = append(res.Texts, text)
		}
		res.Index[addr] = idx
	}
	return res
}

// Render fills the three placeholders of template.
func Render(template string, l *List) string {
	var enum, data, pointers strings.Builder
	for i, text := range l.Texts {
		fmt.Fprintf(&enum, "\tDEV_I2C_LIST_%d,\n", i)
		fmt.Fprintf(&data, "\t[DEV_I2C_LIST_%d]=\"%s\",\n", i, text)
	}
	for addr, idx := range l.Index {
		entry := "NONE"
		if idx >= 0 {
			entry = fmt.Sprint(idx)
		}
		fmt.Fprintf(&pointers, "\tdev_i2c_addresses_text[DEV_I2C_LIST_%s], //0x%02x\n", entry, addr)
	}
	res := strings.ReplaceAll(template, EnumListTag, enum.String())
	res = strings.ReplaceAll(res, ArrayDataTag, data.String())
	return strings.ReplaceAll(res, PointerArrayTag, pointers.String())
}

// Generate reads the lists in dir and writes the rendered header to out.
// An empty templatePath selects DefaultTemplate.
func Generate(dir string, templatePath string, out string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	template := DefaultTemplate
	if templatePath != "" {
		content, err := os.ReadFile(templatePath)
		if err != nil {
			return err
		}
		template = string(content)
	}
	devices, err := ParseDir(dir)
	if err != nil {
		return err
	}
	l := Build(devices)
	logger.Info("built I2C address list", zap.Int("addresses", len(devices)), zap.Int("texts", len(l.Texts)))
	return os.WriteFile(out, []byte(Render(template, l)), 0644)
}
