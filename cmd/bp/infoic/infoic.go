// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package infoic reads the universal programmer's infoic.xml chip database
// and emits it as CSV or as the firmware's 27xxx EPROM device table.
package infoic

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// File is the root of infoic.xml.
type File struct {
	Databases []Database `xml:"database"`
}

type Database struct {
	Type          string         `xml:"type,attr"`
	Manufacturers []Manufacturer `xml:"manufacturer"`
}

type Manufacturer struct {
	Name string `xml:"name,attr"`
	ICs  []IC   `xml:"ic"`
}

// IC holds the attributes of one chip verbatim, numbers included.
type IC struct {
	Name            string `xml:"name,attr"`
	Type            string `xml:"type,attr"`
	ProtocolID      string `xml:"protocol_id,attr"`
	Variant         string `xml:"variant,attr"`
	ReadBufferSize  string `xml:"read_buffer_size,attr"`
	WriteBufferSize string `xml:"write_buffer_size,attr"`
	CodeMemorySize  string `xml:"code_memory_size,attr"`
	DataMemorySize  string `xml:"data_memory_size,attr"`
	DataMemory2Size string `xml:"data_memory2_size,attr"`
	PageSize        string `xml:"page_size,attr"`
	ChipID          string `xml:"chip_id,attr"`
	Voltages        string `xml:"voltages,attr"`
	PulseDelay      string `xml:"pulse_delay,attr"`
	Flags           string `xml:"flags,attr"`
	ChipInfo        string `xml:"chip_info,attr"`
	PackageDetails  string `xml:"package_details,attr"`
	Config          string `xml:"config,attr"`
}

func Parse(r io.Reader) (*File, error) {
	var res File
	if err := xml.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to parse infoic database: %w", err)
	}
	return &res, nil
}

func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

var csvHeader = []string{
	"dbname", "manufacturer", "icname", "ictype", "protocol_id", "variant",
	"read_buffer_size", "write_buffer_size", "code_memory_size", "data_memory_size",
	"data_memory2_size", "page_size", "chip_id", "voltages", "pulse_delay", "flags",
	"chip_info", "package_details", "config",
}

// WriteCSV writes one row per chip, preceded by a header row.
func WriteCSV(w io.Writer, f *File) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, db := range f.Databases {
		for _, m := range db.Manufacturers {
			for _, ic := range m.ICs {
				row := []string{
					db.Type, m.Name, ic.Name, ic.Type, ic.ProtocolID, ic.Variant,
					ic.ReadBufferSize, ic.WriteBufferSize, ic.CodeMemorySize, ic.DataMemorySize,
					ic.DataMemory2Size, ic.PageSize, ic.ChipID, ic.Voltages, ic.PulseDelay, ic.Flags,
					ic.ChipInfo, ic.PackageDetails, ic.Config,
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseHex parses a hexadecimal attribute, with or without 0x prefix.
func ParseHex(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
