package infoic

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testXML = `<?xml version="1.0" encoding="utf-8"?>
<infoic>
  <database type="INFOIC">
    <manufacturer name="AMD">
      <ic name="AM27C256,AM27C256@PLCC32" type="1" protocol_id="0x31" variant="0x05" read_buffer_size="0x80" write_buffer_size="0x80" code_memory_size="0x8000" data_memory_size="0x00" data_memory2_size="0x00" page_size="0x0000" chip_id="0x00000110" voltages="0x0010" pulse_delay="0x0064" flags="0x00000000" chip_info="0x0000" package_details="0x1C000000" config="NULL"/>
      <ic name="AM27C512@TSOP28" type="1" protocol_id="0x32" variant="0x01" read_buffer_size="0x80" write_buffer_size="0x80" code_memory_size="0x10000" data_memory_size="0x00" data_memory2_size="0x00" page_size="0x0000" chip_id="0x00000191" voltages="0x0000" pulse_delay="0x0064" flags="0x00000000" chip_info="0x0000" package_details="0x00000000" config="NULL"/>
      <ic name="628512" type="4" protocol_id="0xd2" variant="0x01" read_buffer_size="0x80" write_buffer_size="0x20" code_memory_size="0x80000" data_memory_size="0x00" data_memory2_size="0x00" page_size="0x0000" chip_id="0x00000000" voltages="0x0000" pulse_delay="0x0000" flags="0x00000080" chip_info="0x0000" package_details="0x20000000" config="NULL"/>
    </manufacturer>
    <manufacturer name="ST, Inc.">
      <ic name="M27C801@PLCC32" type="1" protocol_id="0x32" variant="0x02" read_buffer_size="0x80" write_buffer_size="0x80" code_memory_size="0x100000" data_memory_size="0x00" data_memory2_size="0x00" page_size="0x0000" chip_id="0x00002042" voltages="0x7699" pulse_delay="0x0032" flags="0x00000000" chip_info="0x0000" package_details="0x3F000000" config="NULL"/>
    </manufacturer>
  </database>
  <database type="TL866A">
    <manufacturer name="ATMEL">
      <ic name="AT27C256" type="1" protocol_id="0x31" variant="0x05" read_buffer_size="0x80" write_buffer_size="0x80" code_memory_size="0x8000" data_memory_size="0x00" data_memory2_size="0x00" page_size="0x0000" chip_id="0x00001E8C" voltages="0x0010" pulse_delay="0x0064" flags="0x00000000" chip_info="0x0000" package_details="0x1C000000" config="NULL"/>
    </manufacturer>
  </database>
</infoic>
`

func Test_WriteCSV(t *testing.T) {
	f, err := Parse(strings.NewReader(testXML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Equal(t, `INFOIC,AMD,"AM27C256,AM27C256@PLCC32",1,0x31,0x05,0x80,0x80,0x8000,0x00,0x00,0x0000,0x00000110,0x0010,0x0064,0x00000000,0x0000,0x1C000000,NULL`, lines[1])
	assert.True(t, strings.HasPrefix(lines[4], `INFOIC,"ST, Inc.",M27C801@PLCC32,`))
}

func Test_WriteDeviceTable(t *testing.T) {
	f, err := Parse(strings.NewReader(testXML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDeviceTable(&buf, f))
	expected := "const up_device up_devices[] = {\n" +
		` { "AM27C256", 1, 0x01, 0x10, 28, UP_TYPE_27XXX, UP_VOLT_0500, UP_VOLT_0500, UP_VOLT_1600, 100/4, 25, 0x8000},  //0x31=0x05` + "\n" +
		` { "AM27C256", 1, 0x01, 0x10, 28, UP_TYPE_27XXX, UP_VOLT_0500, UP_VOLT_0500, UP_VOLT_1600, 100/4, 25, 0x8000},  //0x31=0x05 package PLCC32` + "\n" +
		` { "M27C801", 2, 0x20, 0x42, 32, UP_TYPE_27XXX, 7 !!, UP_VOLT_0500, 153 !!, 50/4, 25, 0x100000},  //0x32=0x02 package PLCC32` + "\n" +
		"};\n" +
		"char manufacturers [][24]={\r\n" +
		" \"AMD\", \r\n" +
		" \"ST, Inc.\", \r\n" +
		" \"ATMEL\", \r\n" +
		"};\r\n\n"
	assert.Equal(t, expected, buf.String())
}

func Test_ParseHex(t *testing.T) {
	tests := []struct {
		in  string
		out uint64
		err bool
	}{
		{in: "0x1C000000", out: 0x1C000000},
		{in: "0X10", out: 0x10},
		{in: "ff", out: 0xFF},
		{in: "NULL", err: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			res, err := ParseHex(test.in)
			if test.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.out, res)
		})
	}
}

func Test_ParseError(t *testing.T) {
	_, err := Parse(strings.NewReader("<infoic><database"))
	assert.Error(t, err)
}
