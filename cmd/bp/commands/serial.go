// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/toitlang/bptools/cmd/bp/directory"
	"go.bug.st/serial"
)

func addSerialFlags(flags *pflag.FlagSet) {
	flags.StringP("port", "p", ConfiguredPort(), "serial port of the Bus Pirate")
	flags.UintP("baud", "b", configuredBaud(), "baud rate")
}

func configuredBaud() uint {
	cfg, err := directory.GetUserConfig()
	if err != nil {
		return directory.DefaultBaud
	}
	return cfg.GetUint(directory.BaudKey)
}

// openSerialFlags opens the port selected by the --port and --baud flags,
// asking for a port when the selected one does not exist.
func openSerialFlags(cmd *cobra.Command, readTimeout time.Duration) (*serialPort, error) {
	port, err := cmd.Flags().GetString("port")
	if err != nil {
		return nil, err
	}

	if port, err = CheckPort(port); err != nil {
		return nil, err
	}

	baud, err := cmd.Flags().GetUint("baud")
	if err != nil {
		return nil, err
	}

	GetLogger(cmd.Context()).Debug("opening serial port")
	dev, err := serialOpen(port, &serial.Mode{
		BaudRate: int(baud),
	})
	if err != nil {
		return nil, err
	}
	if err := dev.SetReadTimeout(readTimeout); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}

func serialOpen(port string, mode *serial.Mode) (*serialPort, error) {
	dev, err := serial.Open(port, mode)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("the port '%s' was not found", port)
	}
	if err != nil {
		return nil, err
	}

	return &serialPort{dev}, err
}

type serialPort struct {
	serial.Port
}

// Read reports a read timeout as io.ErrUnexpectedEOF.
func (s serialPort) Read(buf []byte) (n int, err error) {
	n, err = s.Port.Read(buf)
	if err == nil && n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return n, err
}
