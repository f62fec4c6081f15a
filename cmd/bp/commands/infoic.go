// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/toitlang/bptools/cmd/bp/infoic"
	"go.uber.org/zap"
)

func InfoICCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infoic",
		Short: "Convert the programmer device database (infoic.xml)",
	}
	cmd.AddCommand(
		infoICSubCmd("csv <infoic.xml>", "Dump every device of the database as CSV", infoic.WriteCSV),
		infoICSubCmd("devices <infoic.xml>", "Generate the C table of supported 27xxx EPROMs", infoic.WriteDeviceTable),
	)
	return cmd
}

func infoICSubCmd(use string, short string, write func(io.Writer, *infoic.File) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			db, err := infoic.ParseFile(args[0])
			if err != nil {
				return err
			}
			GetLogger(cmd.Context()).Debug("parsed device database",
				zap.String("path", args[0]),
				zap.Int("databases", len(db.Databases)))

			out, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			if err := write(out, db); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
	cmd.Flags().String("out", "", "file to write (default: stdout)")
	return cmd
}
