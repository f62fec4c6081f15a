// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toitlang/bptools/cmd/bp/i2cdb"
)

func I2CAddressesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "i2c-addresses",
		Short: "Generate the I2C address list header from the markdown device lists",
		Long: "Read the markdown lists 0x00-0x0F.md through 0x70-0x7F.md and render the\n" +
			"table of known devices per I2C address into dev_i2c_addresses.h.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cmd.Flags().GetString("dir")
			if err != nil {
				return err
			}
			template, err := cmd.Flags().GetString("template")
			if err != nil {
				return err
			}
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			if err := i2cdb.Generate(dir, template, out, GetLogger(cmd.Context())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().String("dir", ".", "directory containing the markdown lists")
	cmd.Flags().String("template", "", "header template (default: built-in dev_i2c_addresses.ht)")
	cmd.Flags().String("out", "dev_i2c_addresses.h", "header to write")
	return cmd
}
