// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package translation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/toitlang/bptools/cmd/bp/printf"
	"go.uber.org/zap"
)

const (
	BaseHeaderName  = "en-us.h"
	BaseJSONName    = "en-us.json"
	NewBaseJSONName = "new__en-us.json"
)

var (
	// ErrTranslationDrift is returned when en-us.h no longer matches the
	// accepted history. The new history is written next to the old one for
	// review.
	ErrTranslationDrift = errors.New("en-us.h does not match the accepted history")
	// ErrFormatMismatch accompanies ErrTranslationDrift when the format
	// specifiers of an existing string changed.
	ErrFormatMismatch = errors.New("format specifiers of existing strings have changed")
)

// Generator regenerates the translation headers of a firmware tree.
type Generator struct {
	// Dir contains en-us.h and receives base.h and the language headers.
	Dir string
	// HistoryDir defaults to Dir/history.
	HistoryDir string
	// TemplatesDir holds the *.ht templates and the language JSON files.
	// Defaults to Dir/templates.
	TemplatesDir string
	Report       ReportFlags
	Out          io.Writer
	Logger       *zap.Logger
}

// HistoryPath returns the directory holding en-us.json and new__en-us.json.
func (g *Generator) HistoryPath() string {
	if g.HistoryDir != "" {
		return g.HistoryDir
	}
	return filepath.Join(g.Dir, "history")
}

// TemplatesPath returns the directory holding the language json files and
// the header templates.
func (g *Generator) TemplatesPath() string {
	if g.TemplatesDir != "" {
		return g.TemplatesDir
	}
	return filepath.Join(g.Dir, "templates")
}

func (g *Generator) out() io.Writer {
	if g.Out == nil {
		return io.Discard
	}
	return g.Out
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// Base parses en-us.h into the reference translation.
func (g *Generator) Base() (*Translation, error) {
	path := filepath.Join(g.Dir, BaseHeaderName)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g.logger().Info("extracting base translation", zap.String("path", path))
	table, err := ParseHeaderPairs(f, g.logger())
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", path, err)
	}
	return BaseFromHeader(table), nil
}

// Accept stores the current en-us.h strings as the accepted history.
func (g *Generator) Accept() error {
	base, err := g.Base()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(g.HistoryPath(), 0755); err != nil {
		return err
	}
	path := filepath.Join(g.HistoryPath(), BaseJSONName)
	if err := WriteJSONFile(path, base); err != nil {
		return err
	}
	// A pending review file is stale once the history is accepted.
	if err := os.Remove(filepath.Join(g.HistoryPath(), NewBaseJSONName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	g.logger().Info("accepted en-us strings", zap.String("path", path), zap.Int("strings", base.Len()))
	return nil
}

// Run writes base.h and one header per language JSON file. It refuses to
// touch the language headers while en-us.h differs from the history.
func (g *Generator) Run(ctx context.Context) ([]*Result, error) {
	logger := g.logger()
	if err := printf.SelfTest(); err != nil {
		return nil, fmt.Errorf("format specifier self-test failed: %w", err)
	}

	historyPath := filepath.Join(g.HistoryPath(), BaseJSONName)
	logger.Info("reading historical en-us strings", zap.String("path", historyPath))
	history, err := ReadJSONFile(historyPath, logger)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no history at '%s', run 'bp translations accept' first", historyPath)
	} else if err != nil {
		return nil, err
	}

	base, err := g.Base()
	if err != nil {
		return nil, err
	}

	baseTemplate, err := LoadTemplate(g.TemplatesPath(), BaseTemplate)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(g.Dir, "base.h"), []byte(RenderEnum(baseTemplate, base)), 0644); err != nil {
		return nil, err
	}

	if diffs := FormatDifferences(history, base); diffs != "" {
		fmt.Fprintln(g.out(), "WARNING: Format specifiers for existing strings have changed!")
		fmt.Fprint(g.out(), diffs)
		if err := g.writeNewHistory(base); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTranslationDrift, ErrFormatMismatch)
	}
	if diffs := Differences(history, base); diffs != "" {
		fmt.Fprintln(g.out(), "WARNING: `en-us.h` does not match `en-us.json`; review and run 'bp translations accept'.")
		fmt.Fprint(g.out(), diffs)
		if err := g.writeNewHistory(base); err != nil {
			return nil, err
		}
		return nil, ErrTranslationDrift
	}
	logger.Info("no changes to en-us strings detected")

	translationTemplate, err := LoadTemplate(g.TemplatesPath(), TranslationTemplate)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(g.TemplatesPath())
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no language templates", zap.String("dir", g.TemplatesPath()))
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var results []*Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == BaseJSONName {
			continue
		}
		res, err := g.convertFile(filepath.Join(g.TemplatesPath(), name), base, translationTemplate)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (g *Generator) writeNewHistory(base *Translation) error {
	path := filepath.Join(g.HistoryPath(), NewBaseJSONName)
	if err := WriteJSONFile(path, base); err != nil {
		return err
	}
	g.logger().Info("wrote proposed history", zap.String("path", path))
	return nil
}

func (g *Generator) convertFile(path string, base *Translation, template string) (*Result, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	logger := g.logger().With(zap.String("language", name))

	target, err := ReadJSONFile(path, logger)
	if err != nil {
		return nil, err
	}
	res, err := Convert(name, base, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, key := range res.Extra {
		logger.Warn("key exists only in the translation", zap.String("key", key))
	}
	for _, key := range res.Protected {
		logger.Warn("language selection string must not be translated",
			zap.String("key", key),
			zap.String("en-us", localized(base, key)),
			zap.String("translated", localized(target, key)))
	}

	out := filepath.Join(g.Dir, name+".h")
	if err := os.WriteFile(out, []byte(RenderLanguage(template, res)), 0644); err != nil {
		return nil, err
	}
	logger.Debug("wrote language header", zap.String("path", out))
	WriteReport(g.out(), res, g.Report)
	return res, nil
}
