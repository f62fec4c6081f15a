// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/toitlang/bptools/cmd/bp/directory"
	"github.com/toitlang/bptools/cmd/bp/printf"
	"github.com/toitlang/bptools/cmd/bp/translation"
	"go.uber.org/zap"
)

func TranslationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "translations",
		Aliases: []string{"translation"},
		Short:   "Check and regenerate the translation headers",
	}
	cmd.AddCommand(
		TranslationsCheckCmd(),
		TranslationsGenerateCmd(),
		TranslationsAcceptCmd(),
		TranslationsSelfTestCmd(),
	)
	return cmd
}

func translationConfig() *directory.TranslationConfig {
	cfg, err := directory.GetUserConfig()
	if err == nil {
		if res, err := directory.GetTranslationConfig(cfg); err == nil {
			return res
		}
	}
	return &directory.TranslationConfig{}
}

func TranslationsCheckCmd() *cobra.Command {
	cfg := translationConfig()
	cmd := &cobra.Command{
		Use:          "check",
		Short:        "Find unused and duplicated entries of the translation header",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := cmd.Flags().GetString("header")
			if err != nil {
				return err
			}
			source, err := cmd.Flags().GetString("source")
			if err != nil {
				return err
			}
			excludes, err := cmd.Flags().GetStringSlice("exclude")
			if err != nil {
				return err
			}
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			unusedOnly, err := cmd.Flags().GetBool("unused-only")
			if err != nil {
				return err
			}
			duplicatesOnly, err := cmd.Flags().GetBool("duplicates-only")
			if err != nil {
				return err
			}
			removeUnused, err := cmd.Flags().GetBool("remove-unused")
			if err != nil {
				return err
			}
			if unusedOnly && duplicatesOnly {
				return fmt.Errorf("--unused-only and --duplicates-only are mutually exclusive")
			}

			f, err := os.Open(header)
			if err != nil {
				return fmt.Errorf("translation file not found: %w", err)
			}
			table, err := translation.ParseHeaderTable(f)
			f.Close()
			if err != nil {
				return err
			}
			if stat, err := os.Stat(source); err != nil || !stat.IsDir() {
				return fmt.Errorf("source directory not found: '%s'", source)
			}
			files, err := translation.FindSourceFiles(source, excludes)
			if err != nil {
				return err
			}

			out, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			usage := translation.Usage(table.Keys, files, GetLogger(cmd.Context()))
			reporter := translation.NewCheckReporter(out)
			reporter.WriteHeader(header, table.Len(), source, excludes, len(files))
			if !duplicatesOnly {
				reporter.WriteUnused(table, usage)
				if removeUnused && len(usage.Unused) > 0 {
					ok, err := confirm(cmd, fmt.Sprintf("Remove these %d unused entries from %s", len(usage.Unused), header))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "Aborted removal.")
						return nil
					}
					removed, err := translation.RemoveEntries(header, usage.Unused)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d unused translation entries from %s.\n\n", len(removed), header)
				}
			}
			groups := translation.Duplicates(table)
			if !unusedOnly {
				reporter.WriteDuplicates(groups, usage)
			}
			if !unusedOnly && !duplicatesOnly {
				reporter.WriteSummary(table.Len(), usage, len(groups))
			}
			if outPath != "" && outPath != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().String("header", cfg.Header, "translation header to check")
	cmd.Flags().String("source", cfg.Source, "source directory to scan for uses")
	cmd.Flags().StringSlice("exclude", cfg.Exclude, "directories to skip while scanning")
	cmd.Flags().String("out", "", "save the report to a file instead of printing it")
	cmd.Flags().Bool("unused-only", false, "only check for unused translations")
	cmd.Flags().Bool("duplicates-only", false, "only check for duplicate translations")
	cmd.Flags().Bool("remove-unused", false, "remove unused entries from the translation header (in place)")
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func addGeneratorFlags(cmd *cobra.Command, dir string) {
	cmd.Flags().String("dir", dir, "directory containing en-us.h")
	cmd.Flags().String("history", "", "history directory (default <dir>/history)")
	cmd.Flags().String("templates", "", "templates directory (default <dir>/templates)")
}

func parseGenerator(cmd *cobra.Command) (*translation.Generator, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}
	history, err := cmd.Flags().GetString("history")
	if err != nil {
		return nil, err
	}
	templates, err := cmd.Flags().GetString("templates")
	if err != nil {
		return nil, err
	}
	return &translation.Generator{
		Dir:          dir,
		HistoryDir:   history,
		TemplatesDir: templates,
		Out:          cmd.OutOrStdout(),
		Logger:       GetLogger(cmd.Context()),
	}, nil
}

func TranslationsGenerateCmd() *cobra.Command {
	cfg := translationConfig()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate base.h and the language headers",
		Long: "Regenerate base.h from en-us.h and one header per language JSON file.\n\n" +
			"The language headers are only written while en-us.h matches the accepted\n" +
			"history. After changing en-us.h, review the reported differences and run\n" +
			"'bp translations accept'.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parseGenerator(cmd)
			if err != nil {
				return err
			}
			sections, err := cmd.Flags().GetStringSlice("report")
			if err != nil {
				return err
			}
			if g.Report, err = translation.ParseReportFlags(sections); err != nil {
				return err
			}
			watch, err := cmd.Flags().GetBool("watch")
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if !watch {
				return runGenerator(ctx, g)
			}
			return watchGenerator(ctx, g)
		},
	}
	addGeneratorFlags(cmd, cfg.Dir)
	cmd.Flags().StringSlice("report", []string{"all"}, "report sections: "+strings.Join(translation.ReportFlagNames(), ", "))
	cmd.Flags().BoolP("watch", "w", false, "regenerate whenever en-us.h or a language file changes")
	return cmd
}

func runGenerator(ctx context.Context, g *translation.Generator) error {
	results, err := g.Run(ctx)
	if errors.Is(err, translation.ErrTranslationDrift) {
		return fmt.Errorf("%w\nreview %s and run 'bp translations accept'", err,
			filepath.Join(g.HistoryPath(), translation.NewBaseJSONName))
	}
	if err != nil {
		return err
	}
	g.Logger.Info("translation headers generated", zap.Int("languages", len(results)))
	return nil
}

func watchGenerator(ctx context.Context, g *translation.Generator) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range []string{g.Dir, g.TemplatesPath()} {
		if err := w.Add(dir); err != nil {
			g.Logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	run := func() {
		if err := runGenerator(ctx, g); err != nil {
			fmt.Fprintln(g.Out, "Error:", err)
		}
	}
	run()

	fired := false
	tickerDuration := 100 * time.Millisecond
	ticker := time.NewTicker(tickerDuration)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isGeneratorInput(g, event.Name) {
				continue
			}
			if !fired {
				fmt.Fprintf(g.Out, "File modified '%s'\n", event.Name)
				run()
				fired = true
				ticker.Reset(tickerDuration)
			}
		case <-ticker.C:
			fired = false
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(g.Out, "Watch error:", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// isGeneratorInput filters out the headers the generator writes itself.
func isGeneratorInput(g *translation.Generator, path string) bool {
	name := filepath.Base(path)
	if filepath.Clean(filepath.Dir(path)) == filepath.Clean(g.Dir) {
		return name == translation.BaseHeaderName
	}
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".ht")
}

func TranslationsAcceptCmd() *cobra.Command {
	cfg := translationConfig()
	cmd := &cobra.Command{
		Use:          "accept",
		Short:        "Accept the current en-us.h strings as the translation history",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parseGenerator(cmd)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Overwrite %s", filepath.Join(g.HistoryPath(), translation.BaseJSONName)))
			if err != nil || !ok {
				return err
			}
			return g.Accept()
		},
	}
	addGeneratorFlags(cmd, cfg.Dir)
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func TranslationsSelfTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "selftest",
		Short:        "Run the format specifier self-test",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := printf.SelfTest(); err != nil {
				return err
			}
			_, err := io.WriteString(cmd.OutOrStdout(), "Format specifier self-test passed.\n")
			return err
		},
	}
	return cmd
}
