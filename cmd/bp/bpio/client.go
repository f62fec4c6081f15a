// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package bpio scripts a Bus Pirate through its binary BPIO interface.
package bpio

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-semver/semver"
)

var (
	// ErrNotConfigured is returned by wrappers used before Configure.
	ErrNotConfigured = errors.New("not configured, call Configure first")
)

// DeviceError is an error reported by the Bus Pirate itself, for example a
// NACK on the I2C bus.
type DeviceError struct {
	Request string
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("bus pirate rejected %s request: %s", e.Request, e.Message)
}

// Client is the request/response interface of a BPIO connection.
type Client interface {
	ConfigureMode(ctx context.Context, mode string, cfg ModeConfig) error
	Configure(ctx context.Context, cfg Configuration) error
	Status(ctx context.Context, query StatusQuery) (*Status, error)
	Data(ctx context.Context, req DataRequest) ([]byte, error)
}

// Configuration changes general settings. Zero values are not sent.
type Configuration struct {
	ModeBitOrderMSB    bool     `mapstructure:"mode_bitorder_msb,omitempty"`
	ModeBitOrderLSB    bool     `mapstructure:"mode_bitorder_lsb,omitempty"`
	PSUDisable         bool     `mapstructure:"psu_disable,omitempty"`
	PSUEnable          bool     `mapstructure:"psu_enable,omitempty"`
	PSUSetMV           uint32   `mapstructure:"psu_set_mv,omitempty"`
	PSUSetMA           uint32   `mapstructure:"psu_set_ma,omitempty"`
	PullupDisable      bool     `mapstructure:"pullup_disable,omitempty"`
	PullupEnable       bool     `mapstructure:"pullup_enable,omitempty"`
	PullXConfig        *uint32  `mapstructure:"pullx_config,omitempty"`
	IODirectionMask    *uint8   `mapstructure:"io_direction_mask,omitempty"`
	IODirection        *uint8   `mapstructure:"io_direction,omitempty"`
	IOValueMask        *uint8   `mapstructure:"io_value_mask,omitempty"`
	IOValue            *uint8   `mapstructure:"io_value,omitempty"`
	LEDResume          bool     `mapstructure:"led_resume,omitempty"`
	LEDColor           []uint32 `mapstructure:"led_color,omitempty"`
	PrintString        string   `mapstructure:"print_string,omitempty"`
	HardwareBootloader bool     `mapstructure:"hardware_bootloader,omitempty"`
	HardwareReset      bool     `mapstructure:"hardware_reset,omitempty"`
}

// ModeConfig selects the protocol settings of a mode together with any
// general configuration to apply at the same time.
type ModeConfig struct {
	Speed          uint32 `mapstructure:"speed,omitempty"`
	ClockStretch   bool   `mapstructure:"clock_stretch,omitempty"`
	ClockPolarity  bool   `mapstructure:"clock_polarity,omitempty"`
	ClockPhase     bool   `mapstructure:"clock_phase,omitempty"`
	ChipSelectIdle *bool  `mapstructure:"chip_select_idle,omitempty"`

	Configuration `mapstructure:",squash"`
}

// StatusQuery selects the status groups to fetch. The zero value asks for
// everything.
type StatusQuery struct {
	Version bool
	Mode    bool
	PSU     bool
	Pullup  bool
	PullX   bool
	ADC     bool
	IO      bool
	Disk    bool
	LED     bool
}

// Names returns the wire names of the selected groups.
func (q StatusQuery) Names() []string {
	var res []string
	for _, g := range []struct {
		set  bool
		name string
	}{
		{q.Version, "version"}, {q.Mode, "mode"}, {q.PSU, "psu"},
		{q.Pullup, "pullup"}, {q.PullX, "pullx"}, {q.ADC, "adc"},
		{q.IO, "io"}, {q.Disk, "disk"}, {q.LED, "led"},
	} {
		if g.set {
			res = append(res, g.name)
		}
	}
	return res
}

// DataRequest is a bus transaction in the current mode.
type DataRequest struct {
	StartMain bool   `mapstructure:"start_main,omitempty"`
	DataWrite []byte `mapstructure:"data_write,omitempty"`
	BytesRead uint32 `mapstructure:"bytes_read,omitempty"`
	StopMain  bool   `mapstructure:"stop_main,omitempty"`
}

// Status is the device state. Fields outside the queried groups keep their
// zero value.
type Status struct {
	HardwareVersionMajor uint32   `mapstructure:"hardware_version_major" json:"hardware_version_major" yaml:"hardware_version_major"`
	HardwareVersionMinor uint32   `mapstructure:"hardware_version_minor" json:"hardware_version_minor" yaml:"hardware_version_minor"`
	FirmwareVersionMajor uint32   `mapstructure:"firmware_version_major" json:"firmware_version_major" yaml:"firmware_version_major"`
	FirmwareVersionMinor uint32   `mapstructure:"firmware_version_minor" json:"firmware_version_minor" yaml:"firmware_version_minor"`
	FirmwareGitHash      string   `mapstructure:"firmware_git_hash" json:"firmware_git_hash" yaml:"firmware_git_hash"`
	FirmwareDate         string   `mapstructure:"firmware_date" json:"firmware_date" yaml:"firmware_date"`
	ModesAvailable       []string `mapstructure:"modes_available" json:"modes_available" yaml:"modes_available"`
	ModeCurrent          string   `mapstructure:"mode_current" json:"mode_current" yaml:"mode_current"`
	ModePinLabels        []string `mapstructure:"mode_pin_labels" json:"mode_pin_labels" yaml:"mode_pin_labels"`
	ModeBitOrderMSB      bool     `mapstructure:"mode_bitorder_msb" json:"mode_bitorder_msb" yaml:"mode_bitorder_msb"`
	PSUEnabled           bool     `mapstructure:"psu_enabled" json:"psu_enabled" yaml:"psu_enabled"`
	PSUSetMV             uint32   `mapstructure:"psu_set_mv" json:"psu_set_mv" yaml:"psu_set_mv"`
	PSUSetMA             uint32   `mapstructure:"psu_set_ma" json:"psu_set_ma" yaml:"psu_set_ma"`
	PSUMeasuredMV        uint32   `mapstructure:"psu_measured_mv" json:"psu_measured_mv" yaml:"psu_measured_mv"`
	PSUMeasuredMA        uint32   `mapstructure:"psu_measured_ma" json:"psu_measured_ma" yaml:"psu_measured_ma"`
	PSUCurrentError      bool     `mapstructure:"psu_current_error" json:"psu_current_error" yaml:"psu_current_error"`
	PullupEnabled        bool     `mapstructure:"pullup_enabled" json:"pullup_enabled" yaml:"pullup_enabled"`
	PullXConfig          uint32   `mapstructure:"pullx_config" json:"pullx_config" yaml:"pullx_config"`
	ADCMV                []uint32 `mapstructure:"adc_mv" json:"adc_mv" yaml:"adc_mv"`
	IODirection          uint8    `mapstructure:"io_direction" json:"io_direction" yaml:"io_direction"`
	IOValue              uint8    `mapstructure:"io_value" json:"io_value" yaml:"io_value"`
	DiskSizeMB           float32  `mapstructure:"disk_size_mb" json:"disk_size_mb" yaml:"disk_size_mb"`
	DiskUsedMB           float32  `mapstructure:"disk_used_mb" json:"disk_used_mb" yaml:"disk_used_mb"`
	LEDCount             uint32   `mapstructure:"led_count" json:"led_count" yaml:"led_count"`
}

// FirmwareVersion returns the firmware version as major.minor.0.
func (s *Status) FirmwareVersion() *semver.Version {
	return &semver.Version{Major: int64(s.FirmwareVersionMajor), Minor: int64(s.FirmwareVersionMinor)}
}

// HardwareVersion returns the hardware revision as major.minor.0.
func (s *Status) HardwareVersion() *semver.Version {
	return &semver.Version{Major: int64(s.HardwareVersionMajor), Minor: int64(s.HardwareVersionMinor)}
}

// FirmwareAtLeast reports whether the firmware is the given version or newer.
func (s *Status) FirmwareAtLeast(version string) (bool, error) {
	min, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return !s.FirmwareVersion().LessThan(*min), nil
}
