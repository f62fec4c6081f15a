// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toitlang/bptools/cmd/bp/rgb565"
)

func ImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image <image>...",
		Short: "Convert images to RGB565 C headers for the display",
		Long: "Convert PNG, JPEG, GIF, BMP or WebP images into C headers holding the\n" +
			"pixels as big-endian RGB565, in the orientation the display expects.\n" +
			"Each header is written next to its image unless --out-dir is given.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := cmd.Flags().GetInt("width")
			if err != nil {
				return err
			}
			height, err := cmd.Flags().GetInt("height")
			if err != nil {
				return err
			}
			outDir, err := cmd.Flags().GetString("out-dir")
			if err != nil {
				return err
			}

			opts := rgb565.Options{
				Width:  width,
				Height: height,
				OutDir: outDir,
				Logger: GetLogger(cmd.Context()),
			}
			for _, path := range args {
				header, err := rgb565.ConvertFile(path, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %s and saved as %s\n", path, header)
			}
			return nil
		},
	}
	cmd.Flags().Int("width", rgb565.DefaultWidth, "width of the display")
	cmd.Flags().Int("height", rgb565.DefaultHeight, "height of the display")
	cmd.Flags().String("out-dir", "", "directory for the generated headers")
	return cmd
}
