// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package bpio

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultI2CSpeed = 400000

	// I2CAddressLimit is one past the highest 7-bit address.
	I2CAddressLimit = 0x80
)

// ErrInvalidRange is returned by Scan for a range outside the 7-bit
// address space.
var ErrInvalidRange = errors.New("invalid I2C address range")

// I2C drives the Bus Pirate as an I2C controller.
type I2C struct {
	*Base
}

func NewI2C(client Client) *I2C {
	return &I2C{Base: NewBase(client)}
}

// Configure enters I2C mode. A zero speed selects DefaultI2CSpeed.
func (i *I2C) Configure(ctx context.Context, cfg ModeConfig) error {
	if cfg.Speed == 0 {
		cfg.Speed = DefaultI2CSpeed
	}
	return i.configureMode(ctx, "I2C", cfg)
}

func (i *I2C) data(ctx context.Context, req DataRequest) ([]byte, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	return i.client.Data(ctx, req)
}

func (i *I2C) Start(ctx context.Context) error {
	_, err := i.data(ctx, DataRequest{StartMain: true})
	return err
}

func (i *I2C) Stop(ctx context.Context) error {
	_, err := i.data(ctx, DataRequest{StopMain: true})
	return err
}

func (i *I2C) Write(ctx context.Context, data []byte) error {
	_, err := i.data(ctx, DataRequest{DataWrite: data})
	return err
}

func (i *I2C) Read(ctx context.Context, n uint32) ([]byte, error) {
	return i.data(ctx, DataRequest{BytesRead: n})
}

// Transfer writes data and reads n bytes between a start and a stop
// condition. The first written byte is the address.
func (i *I2C) Transfer(ctx context.Context, data []byte, n uint32) ([]byte, error) {
	return i.data(ctx, DataRequest{StartMain: true, DataWrite: data, BytesRead: n, StopMain: true})
}

// Scan probes the 7-bit addresses in [start, end) and returns the 8-bit
// write and read addresses that were acknowledged. end may not exceed
// I2CAddressLimit.
func (i *I2C) Scan(ctx context.Context, start uint8, end uint8) ([]uint8, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	if start > end || end > I2CAddressLimit {
		return nil, fmt.Errorf("%w: [0x%02X, 0x%02X)", ErrInvalidRange, start, end)
	}
	found := []uint8{}
	for addr := uint16(start); addr < uint16(end); addr++ {
		w := uint8(addr << 1)
		for _, probe := range []struct {
			addr uint8
			read uint32
		}{{w, 0}, {w | 1, 1}} {
			_, err := i.Transfer(ctx, []byte{probe.addr}, probe.read)
			var deviceErr *DeviceError
			if errors.As(err, &deviceErr) {
				continue
			} else if err != nil {
				return found, err
			}
			found = append(found, probe.addr)
		}
	}
	return found, i.Stop(ctx)
}
