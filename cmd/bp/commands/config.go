// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toitlang/bptools/cmd/bp/directory"
)

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configure bp",
		Long: "Configure the bp command line tool.\n\n" +
			"The configuration is stored in ~/.config/bp/config.yaml, or in the\n" +
			"file named by " + directory.UserConfigPathEnv + ".",
	}

	cmd.AddCommand(
		ConfigListCmd(),
		ConfigSetCmd(),
	)
	return cmd
}

type configEntry struct {
	Key   string      `yaml:"key" json:"key"`
	Value interface{} `yaml:"value" json:"value"`
}

func (e configEntry) Short() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Value)
}

type configEntries []configEntry

func (c configEntries) Elements() []Short {
	res := make([]Short, len(c))
	for i, e := range c {
		res[i] = e
	}
	return res
}

func ConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List the configuration values",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			var entries configEntries
			for _, key := range directory.ConfigKeys() {
				entries = append(entries, configEntry{Key: key, Value: cfg.Get(key)})
			}
			return enc.Encode(entries)
		},
	}
	addOutputFlag(cmd.Flags(), "short")
	return cmd
}

func ConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a configuration value. Known keys: " + strings.Join(directory.ConfigKeys(), ", ") + ".\n" +
			"List values such as " + directory.TranslationExcludeKey + " are comma separated.",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			return directory.WriteConfig(cfg)
		},
	}
	return cmd
}

func setConfigValue(cfg *viper.Viper, key string, value string) error {
	switch key {
	case directory.BaudKey:
		baud, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid baud rate '%s'", value)
		}
		cfg.Set(key, baud)
	case directory.TranslationExcludeKey:
		var excludes []string
		for _, e := range strings.Split(value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				excludes = append(excludes, e)
			}
		}
		cfg.Set(key, excludes)
	case directory.PortKey, directory.TranslationDirKey, directory.TranslationSourceKey, directory.TranslationHeaderKey:
		cfg.Set(key, value)
	default:
		return fmt.Errorf("unknown configuration key '%s', must be one of %s", key, strings.Join(directory.ConfigKeys(), ", "))
	}
	return nil
}
