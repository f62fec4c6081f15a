// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toitlang/bptools/cmd/bp/bpio"
)

func BPIOCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bpio",
		Short: "Script a Bus Pirate through its BPIO binary interface",
		Long: "Talk to the BPIO binary interface of a Bus Pirate. Use the second serial\n" +
			"port of the device; the first one is the interactive terminal.",
	}
	addSerialFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().Duration("timeout", defaultBPIOTimeout, "how long to wait for a response")

	cmd.AddCommand(
		BPIOStatusCmd(),
		BPIOConfigCmd(),
		BPIOI2CCmd(),
		BPIOSPICmd(),
	)
	return cmd
}

const defaultBPIOTimeout = 2 * time.Second

type bpioConn struct {
	*bpio.SerialClient
	port io.Closer
}

func (c *bpioConn) Close() error {
	return c.port.Close()
}

func openBPIO(cmd *cobra.Command) (*bpioConn, error) {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	dev, err := openSerialFlags(cmd, timeout)
	if err != nil {
		return nil, err
	}
	client := bpio.NewSerialClient(dev, bpio.WithLogger(GetLogger(cmd.Context())))
	return &bpioConn{SerialClient: client, port: dev}, nil
}

func parseStatusQuery(groups []string) (bpio.StatusQuery, error) {
	var q bpio.StatusQuery
	for _, g := range groups {
		switch strings.ToLower(g) {
		case "version":
			q.Version = true
		case "mode":
			q.Mode = true
		case "psu":
			q.PSU = true
		case "pullup":
			q.Pullup = true
		case "pullx":
			q.PullX = true
		case "adc":
			q.ADC = true
		case "io":
			q.IO = true
		case "disk":
			q.Disk = true
		case "led":
			q.LED = true
		default:
			return q, fmt.Errorf("unknown status group '%s'", g)
		}
	}
	return q, nil
}

func BPIOStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "status",
		Short:        "Show the status of the Bus Pirate",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := cmd.Flags().GetStringSlice("query")
			if err != nil {
				return err
			}
			query, err := parseStatusQuery(groups)
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			var enc encoder
			if output != "text" {
				if enc, err = newEncoder(output, cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			conn, err := openBPIO(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			status, err := conn.Status(cmd.Context(), query)
			if err != nil {
				return err
			}
			if enc != nil {
				return enc.Encode(status)
			}
			return bpio.WriteStatus(cmd.OutOrStdout(), status)
		},
	}
	cmd.Flags().StringSlice("query", nil, "status groups: version, mode, psu, pullup, pullx, adc, io, disk, led (default: all)")
	cmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func BPIOConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "config",
		Short:        "Change general settings of the Bus Pirate",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parsePowerFlags(cmd)
			if err != nil {
				return err
			}
			psuOff, err := cmd.Flags().GetBool("psu-off")
			if err != nil {
				return err
			}
			pullupsOff, err := cmd.Flags().GetBool("pullups-off")
			if err != nil {
				return err
			}
			cfg.PSUDisable = psuOff
			cfg.PullupDisable = pullupsOff
			if cfg.PSUEnable && cfg.PSUDisable {
				return fmt.Errorf("--psu-mv and --psu-off are mutually exclusive")
			}
			if cfg.LEDResume, err = cmd.Flags().GetBool("led-resume"); err != nil {
				return err
			}
			if cfg.PrintString, err = cmd.Flags().GetString("print"); err != nil {
				return err
			}
			if cfg.HardwareReset, err = cmd.Flags().GetBool("reset"); err != nil {
				return err
			}
			if cfg.HardwareBootloader, err = cmd.Flags().GetBool("bootloader"); err != nil {
				return err
			}
			if reflect.ValueOf(cfg).IsZero() {
				return fmt.Errorf("nothing to configure")
			}

			conn, err := openBPIO(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()
			return conn.Configure(cmd.Context(), cfg)
		},
	}
	addPowerFlags(cmd)
	cmd.Flags().Bool("psu-off", false, "turn the power supply off")
	cmd.Flags().Bool("pullups-off", false, "disable the pull-up resistors")
	cmd.Flags().Bool("led-resume", false, "resume the LED effect")
	cmd.Flags().String("print", "", "print a string on the Bus Pirate terminal")
	cmd.Flags().Bool("reset", false, "reset the Bus Pirate")
	cmd.Flags().Bool("bootloader", false, "reboot into the bootloader")
	return cmd
}

func addPowerFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32("psu-mv", 0, "enable the power supply at this voltage in mV")
	cmd.Flags().Uint32("psu-ma", 300, "current limit of the power supply in mA")
	cmd.Flags().Bool("pullups", false, "enable the pull-up resistors")
}

func parsePowerFlags(cmd *cobra.Command) (bpio.Configuration, error) {
	var cfg bpio.Configuration
	mv, err := cmd.Flags().GetUint32("psu-mv")
	if err != nil {
		return cfg, err
	}
	ma, err := cmd.Flags().GetUint32("psu-ma")
	if err != nil {
		return cfg, err
	}
	pullups, err := cmd.Flags().GetBool("pullups")
	if err != nil {
		return cfg, err
	}
	if mv != 0 {
		cfg.PSUEnable = true
		cfg.PSUSetMV = mv
		cfg.PSUSetMA = ma
	}
	cfg.PullupEnable = pullups
	return cfg, nil
}

func parseTransferFlags(cmd *cobra.Command) ([]byte, uint32, error) {
	write, err := cmd.Flags().GetString("write")
	if err != nil {
		return nil, 0, err
	}
	data, err := parseHexBytes(write)
	if err != nil {
		return nil, 0, err
	}
	read, err := cmd.Flags().GetUint32("read")
	if err != nil {
		return nil, 0, err
	}
	return data, read, nil
}

func addTransferFlags(cmd *cobra.Command) {
	cmd.Flags().String("write", "", "bytes to write, in hex (\"a0 00\")")
	cmd.Flags().Uint32("read", 0, "number of bytes to read")
}

func BPIOI2CCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "i2c",
		Short: "Use the Bus Pirate as an I2C controller",
	}
	cmd.PersistentFlags().Uint32("speed", bpio.DefaultI2CSpeed, "bus speed in Hz")
	cmd.PersistentFlags().Bool("clock-stretch", false, "allow clock stretching")
	cmd.AddCommand(
		BPIOI2CScanCmd(),
		BPIOI2CTransferCmd(),
	)
	return cmd
}

func openI2C(cmd *cobra.Command) (*bpio.I2C, io.Closer, error) {
	power, err := parsePowerFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	speed, err := cmd.Flags().GetUint32("speed")
	if err != nil {
		return nil, nil, err
	}
	stretch, err := cmd.Flags().GetBool("clock-stretch")
	if err != nil {
		return nil, nil, err
	}
	conn, err := openBPIO(cmd)
	if err != nil {
		return nil, nil, err
	}
	i2c := bpio.NewI2C(conn)
	if err := i2c.Configure(cmd.Context(), bpio.ModeConfig{
		Speed:         speed,
		ClockStretch:  stretch,
		Configuration: power,
	}); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return i2c, conn, nil
}

type i2cAddress uint8

func (a i2cAddress) Short() string {
	direction := "W"
	if a&1 == 1 {
		direction = "R"
	}
	return fmt.Sprintf("0x%02X (0x%02X %s)", uint8(a), uint8(a)>>1, direction)
}

type i2cAddresses []i2cAddress

func (l i2cAddresses) Elements() []Short {
	res := make([]Short, len(l))
	for i, a := range l {
		res[i] = a
	}
	return res
}

func BPIOI2CScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scan",
		Short:        "Scan the I2C bus for devices",
		Long:         "Probe every 7-bit address from --start up to, but not including, --end.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := cmd.Flags().GetUint8("start")
			if err != nil {
				return err
			}
			end, err := cmd.Flags().GetUint8("end")
			if err != nil {
				return err
			}
			if start > end || end > bpio.I2CAddressLimit {
				return fmt.Errorf("%w: --start 0x%02X --end 0x%02X, addresses are 7-bit and --end is exclusive",
					bpio.ErrInvalidRange, start, end)
			}
			enc, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}

			i2c, closer, err := openI2C(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			found, err := i2c.Scan(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			res := make(i2cAddresses, len(found))
			for i, a := range found {
				res[i] = i2cAddress(a)
			}
			return enc.Encode(res)
		},
	}
	addPowerFlags(cmd)
	cmd.Flags().Uint8("start", 0x08, "first 7-bit address to probe")
	cmd.Flags().Uint8("end", 0x78, "7-bit address to stop at (exclusive)")
	addOutputFlag(cmd.Flags(), "short")
	return cmd
}

func BPIOI2CTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "transfer",
		Short:        "Write and read bytes in one I2C transaction",
		Long:         "Write the --write bytes, the first being the 8-bit address, then read --read bytes.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, read, err := parseTransferFlags(cmd)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return fmt.Errorf("--write must at least contain the device address")
			}
			i2c, closer, err := openI2C(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			res, err := i2c.Transfer(cmd.Context(), data, read)
			if err != nil {
				return err
			}
			if len(res) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatHexBytes(res))
			}
			return nil
		},
	}
	addPowerFlags(cmd)
	addTransferFlags(cmd)
	return cmd
}

func BPIOSPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spi",
		Short: "Use the Bus Pirate as an SPI controller",
	}
	cmd.AddCommand(BPIOSPITransferCmd())
	return cmd
}

func BPIOSPITransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "transfer",
		Short:        "Select the device, write and read bytes, and deselect it",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, read, err := parseTransferFlags(cmd)
			if err != nil {
				return err
			}
			power, err := parsePowerFlags(cmd)
			if err != nil {
				return err
			}
			speed, err := cmd.Flags().GetUint32("speed")
			if err != nil {
				return err
			}
			cpol, err := cmd.Flags().GetBool("cpol")
			if err != nil {
				return err
			}
			cpha, err := cmd.Flags().GetBool("cpha")
			if err != nil {
				return err
			}
			lsb, err := cmd.Flags().GetBool("lsb-first")
			if err != nil {
				return err
			}

			conn, err := openBPIO(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			spi := bpio.NewSPI(conn)
			if err := spi.Configure(ctx, bpio.ModeConfig{
				Speed:         speed,
				ClockPolarity: cpol,
				ClockPhase:    cpha,
				Configuration: power,
			}); err != nil {
				return err
			}
			if lsb {
				if err := spi.SetBitOrderLSB(ctx); err != nil {
					return err
				}
			}
			res, err := spi.Transfer(ctx, data, read)
			if err != nil {
				return err
			}
			if len(res) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatHexBytes(res))
			}
			return nil
		},
	}
	addPowerFlags(cmd)
	addTransferFlags(cmd)
	cmd.Flags().Uint32("speed", bpio.DefaultSPISpeed, "clock speed in Hz")
	cmd.Flags().Bool("cpol", false, "clock idles high")
	cmd.Flags().Bool("cpha", false, "sample on the second clock edge")
	cmd.Flags().Bool("lsb-first", false, "send the least significant bit first")
	return cmd
}
