// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyInfo   ctxKey = "info"
	ctxKeyLogger ctxKey = "logger"
)

type Info struct {
	Version string `mapstructure:"version" yaml:"version" json:"version"`
	Date    string `mapstructure:"date" yaml:"date" json:"date"`
}

func SetInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKeyInfo, info)
}

func GetInfo(ctx context.Context) Info {
	return ctx.Value(ctxKeyInfo).(Info)
}

func SetLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLogger returns the logger of the running command, or a no-op logger
// when none was installed.
func GetLogger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxKeyLogger).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func BpCmd(info Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bp",
		Short: "Developer tools for the Bus Pirate firmware",
		Long: "bp bundles the helpers used while developing the Bus Pirate firmware.\n\n" +
			"It checks and regenerates the translation headers, converts images and\n" +
			"device databases into C sources, collects the help reference from a\n" +
			"connected Bus Pirate, and scripts the device through its BPIO interface.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			logger, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(SetLogger(ctx, logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			GetLogger(cmd.Context()).Sync()
		},
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		TranslationsCmd(),
		ImageCmd(),
		I2CAddressesCmd(),
		InfoICCmd(),
		HelpCollectCmd(),
		BPIOCmd(),
		PortCmd(),
		ConfigCmd(),
		VersionCmd(info),
	)
	return cmd
}
