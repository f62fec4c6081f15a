// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/toitlang/bptools/cmd/bp/helpref"
	"go.uber.org/zap"
)

func HelpCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helpcollect",
		Short: "Collect the help menus of a connected Bus Pirate into markdown",
		Long: "Run a command script on the Bus Pirate terminal and collect the output of\n" +
			"every '-h' command into a single markdown reference.\n\n" +
			"Script lines are sent as commands. Blank lines accept menu defaults, lines\n" +
			"starting with '#' are comments, and '# done' ends the script.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := cmd.Flags().GetString("input")
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			timeout, err := cmd.Flags().GetDuration("timeout")
			if err != nil {
				return err
			}

			f, err := os.Open(input)
			if err != nil {
				return err
			}
			steps, err := helpref.ParseScript(f)
			f.Close()
			if err != nil {
				return err
			}

			dev, err := openSerialFlags(cmd, helpref.DefaultPollInterval)
			if err != nil {
				return err
			}
			defer dev.Close()

			logger := GetLogger(cmd.Context())
			bar := pb.New(len(steps))
			bar.SetWriter(cmd.ErrOrStderr())
			bar.Start()
			collector := helpref.NewCollector(dev.Port,
				helpref.WithIdleTimeout(timeout),
				helpref.WithLogger(logger),
				helpref.WithProgress(func(done int, total int) {
					bar.SetCurrent(int64(done))
				}),
			)
			sections, err := collector.Run(cmd.Context(), steps)
			bar.Finish()
			if err != nil {
				return err
			}

			out, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := helpref.WriteMarkdown(out, sections); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			logger.Debug("help reference written", zap.String("path", output))
			fmt.Fprintf(cmd.OutOrStdout(), "Done, wrote %s (%d sections)\n", output, len(sections))
			return nil
		},
	}
	addSerialFlags(cmd.Flags())
	cmd.Flags().StringP("input", "i", "helpref-snip.txt", "command script")
	cmd.Flags().String("out", "help_reference.md", "markdown file to write")
	cmd.Flags().DurationP("timeout", "t", helpref.DefaultIdleTimeout, "how long a command may stay silent before its output is complete")
	return cmd
}
