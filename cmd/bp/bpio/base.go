// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package bpio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/coreos/go-semver/semver"
)

// Base holds the settings and status accessors shared by all modes. Every
// call fails with ErrNotConfigured until a mode has been configured.
type Base struct {
	client     Client
	configured bool
}

func NewBase(client Client) *Base {
	return &Base{client: client}
}

func (b *Base) Client() Client {
	return b.client
}

func (b *Base) Configured() bool {
	return b.configured
}

func (b *Base) configureMode(ctx context.Context, mode string, cfg ModeConfig) error {
	err := b.client.ConfigureMode(ctx, mode, cfg)
	b.configured = err == nil
	return err
}

func (b *Base) check() error {
	if !b.configured {
		return ErrNotConfigured
	}
	return nil
}

// Apply sends an arbitrary configuration.
func (b *Base) Apply(ctx context.Context, cfg Configuration) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.client.Configure(ctx, cfg)
}

func (b *Base) SetBitOrderMSB(ctx context.Context) error {
	return b.Apply(ctx, Configuration{ModeBitOrderMSB: true})
}

func (b *Base) SetBitOrderLSB(ctx context.Context) error {
	return b.Apply(ctx, Configuration{ModeBitOrderLSB: true})
}

func (b *Base) DisablePSU(ctx context.Context) error {
	return b.Apply(ctx, Configuration{PSUDisable: true})
}

// EnablePSU turns the programmable supply on at the given voltage and
// current limit.
func (b *Base) EnablePSU(ctx context.Context, millivolts uint32, milliamps uint32) error {
	return b.Apply(ctx, Configuration{PSUEnable: true, PSUSetMV: millivolts, PSUSetMA: milliamps})
}

func (b *Base) DisablePullups(ctx context.Context) error {
	return b.Apply(ctx, Configuration{PullupDisable: true})
}

func (b *Base) EnablePullups(ctx context.Context) error {
	return b.Apply(ctx, Configuration{PullupEnable: true})
}

// SetPullX sets the pull resistor configuration of BP7 and later.
func (b *Base) SetPullX(ctx context.Context, config uint32) error {
	return b.Apply(ctx, Configuration{PullXConfig: &config})
}

func (b *Base) SetIODirection(ctx context.Context, mask uint8, direction uint8) error {
	return b.Apply(ctx, Configuration{IODirectionMask: &mask, IODirection: &direction})
}

func (b *Base) SetIOValue(ctx context.Context, mask uint8, value uint8) error {
	return b.Apply(ctx, Configuration{IOValueMask: &mask, IOValue: &value})
}

// ResumeLEDs restores the LED effect after SetLEDColors.
func (b *Base) ResumeLEDs(ctx context.Context) error {
	return b.Apply(ctx, Configuration{LEDResume: true})
}

// SetLEDColors sets the LEDs to 0xRRGGBB colors.
func (b *Base) SetLEDColors(ctx context.Context, colors []uint32) error {
	return b.Apply(ctx, Configuration{LEDColor: colors})
}

// PrintString shows s on the Bus Pirate's terminal.
func (b *Base) PrintString(ctx context.Context, s string) error {
	return b.Apply(ctx, Configuration{PrintString: s})
}

func (b *Base) EnterBootloader(ctx context.Context) error {
	return b.Apply(ctx, Configuration{HardwareBootloader: true})
}

func (b *Base) Reset(ctx context.Context) error {
	return b.Apply(ctx, Configuration{HardwareReset: true})
}

// Status fetches the selected status groups.
func (b *Base) Status(ctx context.Context, query StatusQuery) (*Status, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.client.Status(ctx, query)
}

func (b *Base) ShowStatus(ctx context.Context, w io.Writer) error {
	s, err := b.Status(ctx, StatusQuery{})
	if err != nil {
		return err
	}
	return WriteStatus(w, s)
}

func (b *Base) versionStatus(ctx context.Context) (*Status, error) {
	return b.Status(ctx, StatusQuery{Version: true})
}

func (b *Base) HardwareVersion(ctx context.Context) (*semver.Version, error) {
	s, err := b.versionStatus(ctx)
	if err != nil {
		return nil, err
	}
	return s.HardwareVersion(), nil
}

func (b *Base) FirmwareVersion(ctx context.Context) (*semver.Version, error) {
	s, err := b.versionStatus(ctx)
	if err != nil {
		return nil, err
	}
	return s.FirmwareVersion(), nil
}

func (b *Base) FirmwareGitHash(ctx context.Context) (string, error) {
	s, err := b.versionStatus(ctx)
	if err != nil {
		return "", err
	}
	return s.FirmwareGitHash, nil
}

func (b *Base) FirmwareDate(ctx context.Context) (string, error) {
	s, err := b.versionStatus(ctx)
	if err != nil {
		return "", err
	}
	return s.FirmwareDate, nil
}

func (b *Base) ModesAvailable(ctx context.Context) ([]string, error) {
	s, err := b.Status(ctx, StatusQuery{Mode: true})
	if err != nil {
		return nil, err
	}
	return s.ModesAvailable, nil
}

func (b *Base) ModeCurrent(ctx context.Context) (string, error) {
	s, err := b.Status(ctx, StatusQuery{Mode: true})
	if err != nil {
		return "", err
	}
	return s.ModeCurrent, nil
}

func (b *Base) ModePinLabels(ctx context.Context) ([]string, error) {
	s, err := b.Status(ctx, StatusQuery{Mode: true})
	if err != nil {
		return nil, err
	}
	return s.ModePinLabels, nil
}

func (b *Base) BitOrderMSB(ctx context.Context) (bool, error) {
	s, err := b.Status(ctx, StatusQuery{Mode: true})
	if err != nil {
		return false, err
	}
	return s.ModeBitOrderMSB, nil
}

// PSU returns the supply group of the status: enabled flag, set and
// measured values, and whether the current limit tripped.
func (b *Base) PSU(ctx context.Context) (*Status, error) {
	return b.Status(ctx, StatusQuery{PSU: true})
}

func (b *Base) PSUEnabled(ctx context.Context) (bool, error) {
	s, err := b.PSU(ctx)
	if err != nil {
		return false, err
	}
	return s.PSUEnabled, nil
}

func (b *Base) PSUSetMV(ctx context.Context) (uint32, error) {
	s, err := b.PSU(ctx)
	if err != nil {
		return 0, err
	}
	return s.PSUSetMV, nil
}

func (b *Base) PSUSetMA(ctx context.Context) (uint32, error) {
	s, err := b.PSU(ctx)
	if err != nil {
		return 0, err
	}
	return s.PSUSetMA, nil
}

func (b *Base) PSUMeasuredMV(ctx context.Context) (uint32, error) {
	s, err := b.PSU(ctx)
	if err != nil {
		return 0, err
	}
	return s.PSUMeasuredMV, nil
}

func (b *Base) PSUMeasuredMA(ctx context.Context) (uint32, error) {
	s, err := b.PSU(ctx)
	if err != nil {
		return 0, err
	}
	return s.PSUMeasuredMA, nil
}

func (b *Base) PSUCurrentError(ctx context.Context) (bool, error) {
	s, err := b.PSU(ctx)
	if err != nil {
		return false, err
	}
	return s.PSUCurrentError, nil
}

func (b *Base) PullupsEnabled(ctx context.Context) (bool, error) {
	s, err := b.Status(ctx, StatusQuery{Pullup: true})
	if err != nil {
		return false, err
	}
	return s.PullupEnabled, nil
}

func (b *Base) PullX(ctx context.Context) (uint32, error) {
	s, err := b.Status(ctx, StatusQuery{PullX: true})
	if err != nil {
		return 0, err
	}
	return s.PullXConfig, nil
}

// ADC returns the voltage of every IO pin in millivolts.
func (b *Base) ADC(ctx context.Context) ([]uint32, error) {
	s, err := b.Status(ctx, StatusQuery{ADC: true})
	if err != nil {
		return nil, err
	}
	return s.ADCMV, nil
}

func (b *Base) IODirection(ctx context.Context) (uint8, error) {
	s, err := b.Status(ctx, StatusQuery{IO: true})
	if err != nil {
		return 0, err
	}
	return s.IODirection, nil
}

func (b *Base) IOValue(ctx context.Context) (uint8, error) {
	s, err := b.Status(ctx, StatusQuery{IO: true})
	if err != nil {
		return 0, err
	}
	return s.IOValue, nil
}

func (b *Base) DiskSizeMB(ctx context.Context) (float32, error) {
	s, err := b.Status(ctx, StatusQuery{Disk: true})
	if err != nil {
		return 0, err
	}
	return s.DiskSizeMB, nil
}

func (b *Base) DiskUsedMB(ctx context.Context) (float32, error) {
	s, err := b.Status(ctx, StatusQuery{Disk: true})
	if err != nil {
		return 0, err
	}
	return s.DiskUsedMB, nil
}

func (b *Base) LEDCount(ctx context.Context) (uint32, error) {
	s, err := b.Status(ctx, StatusQuery{LED: true})
	if err != nil {
		return 0, err
	}
	return s.LEDCount, nil
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func joinUints(values []uint32, suffix string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d%s", v, suffix)
	}
	return strings.Join(parts, " ")
}

// WriteStatus prints a human readable summary of s.
func WriteStatus(w io.Writer, s *Status) error {
	lines := []struct {
		label string
		value string
	}{
		{"Hardware version", s.HardwareVersion().String()},
		{"Firmware version", s.FirmwareVersion().String()},
		{"Firmware git hash", s.FirmwareGitHash},
		{"Firmware date", s.FirmwareDate},
		{"Available modes", strings.Join(s.ModesAvailable, ", ")},
		{"Current mode", s.ModeCurrent},
		{"Pin labels", strings.Join(s.ModePinLabels, " ")},
		{"Bit order", map[bool]string{true: "MSB first", false: "LSB first"}[s.ModeBitOrderMSB]},
		{"Power supply", onOff(s.PSUEnabled)},
		{"PSU set", fmt.Sprintf("%d mV, %d mA", s.PSUSetMV, s.PSUSetMA)},
		{"PSU measured", fmt.Sprintf("%d mV, %d mA", s.PSUMeasuredMV, s.PSUMeasuredMA)},
		{"PSU current error", fmt.Sprint(s.PSUCurrentError)},
		{"Pull-up resistors", onOff(s.PullupEnabled)},
		{"Pull-x config", fmt.Sprintf("0x%08X", s.PullXConfig)},
		{"ADC", joinUints(s.ADCMV, " mV")},
		{"IO direction", fmt.Sprintf("0b%08b", s.IODirection)},
		{"IO value", fmt.Sprintf("0b%08b", s.IOValue)},
		{"Disk", fmt.Sprintf("%.2f MB used of %.2f MB", s.DiskUsedMB, s.DiskSizeMB)},
		{"LEDs", fmt.Sprint(s.LEDCount)},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-18s: %s\n", l.label, l.value); err != nil {
			return err
		}
	}
	return nil
}
