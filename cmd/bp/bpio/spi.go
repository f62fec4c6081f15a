// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package bpio

import "context"

const DefaultSPISpeed = 1000000

// SPI drives the Bus Pirate as an SPI controller.
type SPI struct {
	*Base
}

func NewSPI(client Client) *SPI {
	return &SPI{Base: NewBase(client)}
}

// Configure enters SPI mode. A zero speed selects DefaultSPISpeed and an
// unset ChipSelectIdle keeps chip select high while idle.
func (s *SPI) Configure(ctx context.Context, cfg ModeConfig) error {
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSPISpeed
	}
	if cfg.ChipSelectIdle == nil {
		idle := true
		cfg.ChipSelectIdle = &idle
	}
	return s.configureMode(ctx, "SPI", cfg)
}

func (s *SPI) data(ctx context.Context, req DataRequest) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.client.Data(ctx, req)
}

// Select drives chip select active.
func (s *SPI) Select(ctx context.Context) error {
	_, err := s.data(ctx, DataRequest{StartMain: true})
	return err
}

// Deselect releases chip select.
func (s *SPI) Deselect(ctx context.Context) error {
	_, err := s.data(ctx, DataRequest{StopMain: true})
	return err
}

func (s *SPI) Write(ctx context.Context, data []byte) error {
	_, err := s.data(ctx, DataRequest{DataWrite: data})
	return err
}

func (s *SPI) Read(ctx context.Context, n uint32) ([]byte, error) {
	return s.data(ctx, DataRequest{BytesRead: n})
}

// Transfer selects the device, writes data, reads n bytes and deselects.
func (s *SPI) Transfer(ctx context.Context, data []byte, n uint32) ([]byte, error) {
	return s.data(ctx, DataRequest{StartMain: true, DataWrite: data, BytesRead: n, StopMain: true})
}
