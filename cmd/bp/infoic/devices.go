// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package infoic

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

var vccCodes = map[uint64]string{
	0x00: "UP_VOLT_0500",
	0x01: "UP_VOLT_0400",
	0x02: "UP_VOLT_0325",
	0x03: "UP_VOLT_0650",
	0x04: "UP_VOLT_0550",
	0x05: "UP_VOLT_0450",
	0x06: "UP_VOLT_0500",
}

var vppCodes = map[uint64]string{
	0x00: "UP_VOLT_1250",
	0x10: "UP_VOLT_1600",
	0x20: "UP_VOLT_2100",
	0x30: "UP_VOLT_1350",
	0x40: "UP_VOLT_1000",
	0x50: "UP_VOLT_1400",
	0x60: "UP_VOLT_1800",
	0x70: "UP_VOLT_1700",
	0x02: "UP_VOLT_0000",
}

// PLCC packages encode their pin count.
var plccPins = map[uint64]uint64{
	0x38: 20,
	0x3D: 44,
	0x3E: 28,
	0x3F: 32,
}

func voltage(codes map[uint64]string, code uint64) string {
	if v, ok := codes[code]; ok {
		return v
	}
	// Unknown codes yield "N !!", which does not compile.
	return fmt.Sprintf("%d !!", code)
}

// Device is one row of the 27xxx device table.
type Device struct {
	Name           string
	Package        string
	Manufacturer   int
	ManufacturerID uint64
	DeviceID       uint64
	Pins           uint64
	VCC            string
	VDD            string
	VPP            string
	Pulse          uint64
	CodeMemorySize string
	ProtocolID     string
	Variant        string
}

// IsEPROM reports whether the chip is a 27xxx EPROM the programmer drives.
func IsEPROM(dbType string, ic IC) bool {
	return dbType == "INFOIC" && ic.Type == "1" && (ic.ProtocolID == "0x31" || ic.ProtocolID == "0x32")
}

// EPROMDevices decodes the 27xxx chips of f. Manufacturers are numbered
// from 1 across all databases. A chip name listing several parts yields one
// device per part.
func EPROMDevices(f *File) ([]Device, []string, error) {
	var devices []Device
	var manufacturers []string
	for _, db := range f.Databases {
		for _, m := range db.Manufacturers {
			manufacturers = append(manufacturers, m.Name)
			for _, ic := range m.ICs {
				if !IsEPROM(db.Type, ic) {
					continue
				}
				d, err := decode(ic)
				if err != nil {
					return nil, nil, fmt.Errorf("%s/%s: %w", m.Name, ic.Name, err)
				}
				if d.Pins == 0 {
					continue
				}
				d.Manufacturer = len(manufacturers)
				for _, name := range strings.Split(ic.Name, ",") {
					entry := d
					entry.Name, entry.Package, _ = strings.Cut(name, "@")
					devices = append(devices, entry)
				}
			}
		}
	}
	return devices, manufacturers, nil
}

func decode(ic IC) (Device, error) {
	volt, err := ParseHex(ic.Voltages)
	if err != nil {
		return Device{}, fmt.Errorf("voltages: %w", err)
	}
	id, err := ParseHex(ic.ChipID)
	if err != nil {
		return Device{}, fmt.Errorf("chip_id: %w", err)
	}
	pkg, err := ParseHex(ic.PackageDetails)
	if err != nil {
		return Device{}, fmt.Errorf("package_details: %w", err)
	}
	pulse, err := ParseHex(ic.PulseDelay)
	if err != nil {
		return Device{}, fmt.Errorf("pulse_delay: %w", err)
	}

	pins := pkg >> 24
	if p, ok := plccPins[pins]; ok {
		pins = p
	}
	return Device{
		ManufacturerID: (id >> 8) & 0xFF,
		DeviceID:       id & 0xFF,
		Pins:           pins,
		VCC:            voltage(vccCodes, (volt>>12)&0x0F),
		VDD:            voltage(vccCodes, (volt>>8)&0x0F),
		VPP:            voltage(vppCodes, volt&0xFF),
		Pulse:          pulse,
		CodeMemorySize: ic.CodeMemorySize,
		ProtocolID:     ic.ProtocolID,
		Variant:        ic.Variant,
	}, nil
}

// Line renders d as an up_devices initializer.
func (d Device) Line() string {
	line := fmt.Sprintf(` { "%s", %d, 0x%02X, 0x%02X, %d, UP_TYPE_27XXX, %s, %s, %s, %d/4, 25, %s},  //%s=%s`,
		d.Name, d.Manufacturer, d.ManufacturerID, d.DeviceID, d.Pins, d.VCC, d.VDD, d.VPP, d.Pulse, d.CodeMemorySize,
		d.ProtocolID, d.Variant)
	if d.Package != "" {
		line += " package " + d.Package
	}
	return line
}

// WriteDeviceTable writes the up_devices array followed by the table of
// manufacturer names.
func WriteDeviceTable(w io.Writer, f *File) error {
	devices, manufacturers, err := EPROMDevices(f)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	bw.WriteString("const up_device up_devices[] = {\n")
	for _, d := range devices {
		bw.WriteString(d.Line() + "\n")
	}
	bw.WriteString("};\n")
	bw.WriteString("char manufacturers [][24]={\r\n")
	for _, m := range manufacturers {
		fmt.Fprintf(bw, " \"%s\", \r\n", m)
	}
	bw.WriteString("};\r\n\n")
	return bw.Flush()
}
