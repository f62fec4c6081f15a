package bpio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func Test_COBS(t *testing.T) {
	long := bytes.Repeat([]byte{0x42}, 300)
	tests := []struct {
		name    string
		in      []byte
		encoded []byte
	}{
		{name: "empty", in: []byte{}, encoded: []byte{0x01}},
		{name: "zero", in: []byte{0x00}, encoded: []byte{0x01, 0x01}},
		{name: "middle zero", in: []byte{0x11, 0x00, 0x22}, encoded: []byte{0x02, 0x11, 0x02, 0x22}},
		{name: "trailing zero", in: []byte{0x11, 0x00}, encoded: []byte{0x02, 0x11, 0x01}},
		{name: "long"},
	}
	tests[len(tests)-1].in = long

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded := cobsEncode(test.in)
			assert.NotContains(t, encoded, byte(0))
			if test.encoded != nil {
				assert.Equal(t, test.encoded, encoded)
			}
			decoded, err := cobsDecode(encoded)
			require.NoError(t, err)
			assert.Equal(t, test.in, decoded)
		})
	}

	_, err := cobsDecode([]byte{0x05, 0x11})
	assert.Error(t, err)
	_, err = cobsDecode([]byte{0x02, 0x00})
	assert.Error(t, err)
}

// fakeDevice decodes request frames written to it and queues the handler's
// response frames for reading.
type fakeDevice struct {
	t        *testing.T
	handler  func(req map[string]interface{}) map[string]interface{}
	incoming bytes.Buffer
	outgoing bytes.Buffer
	requests []map[string]interface{}
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.incoming.Write(p)
	for {
		frame, err := d.incoming.ReadBytes(0)
		if err != nil {
			// Incomplete frame, keep it for the next write.
			d.incoming.Write(frame)
			return len(p), nil
		}
		body, err := cobsDecode(frame[:len(frame)-1])
		require.NoError(d.t, err)
		req, err := UBJSONCodec{}.Unmarshal(body)
		require.NoError(d.t, err)
		d.requests = append(d.requests, req)

		resp, err := UBJSONCodec{}.Marshal(d.handler(req))
		require.NoError(d.t, err)
		d.outgoing.Write(append(cobsEncode(resp), 0))
	}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if d.outgoing.Len() == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return d.outgoing.Read(p)
}

func Test_SerialClientStatus(t *testing.T) {
	dev := &fakeDevice{t: t, handler: func(req map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"firmware_version_major": 1,
			"firmware_version_minor": 4,
			"firmware_git_hash":      "abc123",
			"mode_current":           "HiZ",
			"modes_available":        []string{"HiZ", "I2C", "SPI"},
			"psu_enabled":            true,
			"psu_measured_mv":        3301,
			"adc_mv":                 []int{0, 3300},
		}
	}}
	client := NewSerialClient(dev)

	status, err := client.Status(context.Background(), StatusQuery{Version: true, PSU: true})
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", status.FirmwareVersion().String())
	assert.Equal(t, "abc123", status.FirmwareGitHash)
	assert.Equal(t, "HiZ", status.ModeCurrent)
	assert.Equal(t, []string{"HiZ", "I2C", "SPI"}, status.ModesAvailable)
	assert.True(t, status.PSUEnabled)
	assert.Equal(t, uint32(3301), status.PSUMeasuredMV)
	assert.Equal(t, []uint32{0, 3300}, status.ADCMV)

	ok, err := status.FirmwareAtLeast("1.3.0")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = status.FirmwareAtLeast("2.0.0")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, dev.requests, 1)
	assert.Equal(t, "status", dev.requests[0]["type"])
	var query []string
	require.NoError(t, mapstructure.Decode(dev.requests[0]["query"], &query))
	assert.Equal(t, []string{"version", "psu"}, query)
}

func Test_SerialClientData(t *testing.T) {
	dev := &fakeDevice{t: t, handler: func(req map[string]interface{}) map[string]interface{} {
		var written []byte
		require.NoError(t, mapstructure.Decode(req["data_write"], &written))
		if written[0] != 0xA0 {
			return map[string]interface{}{"error": "NACK"}
		}
		return map[string]interface{}{"data_read": []byte{0x01, 0x00, 0xFF}}
	}}
	client := NewSerialClient(dev)

	data, err := client.Data(context.Background(), DataRequest{StartMain: true, DataWrite: []byte{0xA0, 0x00}, BytesRead: 3, StopMain: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0xFF}, data)
	assert.Equal(t, "data", dev.requests[0]["type"])
	assert.EqualValues(t, 3, dev.requests[0]["bytes_read"])
	assert.Equal(t, true, dev.requests[0]["start_main"])

	_, err = client.Data(context.Background(), DataRequest{DataWrite: []byte{0x42}})
	var deviceErr *DeviceError
	require.True(t, errors.As(err, &deviceErr))
	assert.Equal(t, "NACK", deviceErr.Message)
	assert.Equal(t, "data", deviceErr.Request)
	_, hasStart := dev.requests[1]["start_main"]
	assert.False(t, hasStart)
}

func Test_SerialClientNoResponse(t *testing.T) {
	dev := &fakeDevice{t: t, handler: func(req map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{}
	}}
	// A stray delimiter ahead of the response is skipped.
	dev.outgoing.WriteByte(0)
	client := NewSerialClient(dev)
	require.NoError(t, client.Configure(context.Background(), Configuration{PullupEnable: true}))
	assert.Equal(t, true, dev.requests[0]["pullup_enable"])
	assert.Equal(t, "configuration", dev.requests[0]["type"])

	_, err := NewSerialClient(&silentPort{}).Status(context.Background(), StatusQuery{})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// silentPort swallows requests and never answers.
type silentPort struct{}

func (silentPort) Write(p []byte) (int, error) { return len(p), nil }
func (silentPort) Read(p []byte) (int, error)  { return 0, io.ErrUnexpectedEOF }

func Test_toFields(t *testing.T) {
	direction := uint8(0)
	mask := uint8(0xFF)
	fields, err := toFields(ModeConfig{
		Speed: 100000,
		Configuration: Configuration{
			PSUEnable:       true,
			PSUSetMV:        3300,
			IODirectionMask: &mask,
			IODirection:     &direction,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"speed":             uint32(100000),
		"psu_enable":        true,
		"psu_set_mv":        uint32(3300),
		"io_direction_mask": uint8(0xFF),
		"io_direction":      uint8(0),
	}, fields)
}

// fakeClient acknowledges I2C transfers to the addresses in acks.
type fakeClient struct {
	acks        map[uint8]bool
	modes       []string
	modeConfigs []ModeConfig
	configs     []Configuration
	requests    []DataRequest
}

func (c *fakeClient) ConfigureMode(ctx context.Context, mode string, cfg ModeConfig) error {
	c.modes = append(c.modes, mode)
	c.modeConfigs = append(c.modeConfigs, cfg)
	return nil
}

func (c *fakeClient) Configure(ctx context.Context, cfg Configuration) error {
	c.configs = append(c.configs, cfg)
	return nil
}

func (c *fakeClient) Status(ctx context.Context, query StatusQuery) (*Status, error) {
	return &Status{PSUEnabled: true, PSUSetMV: 3300, FirmwareVersionMajor: 1}, nil
}

func (c *fakeClient) Data(ctx context.Context, req DataRequest) ([]byte, error) {
	c.requests = append(c.requests, req)
	if len(req.DataWrite) > 0 && !c.acks[req.DataWrite[0]] {
		return nil, &DeviceError{Request: "data", Message: "NACK"}
	}
	return make([]byte, req.BytesRead), nil
}

func Test_I2C(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{acks: map[uint8]bool{0xA0: true, 0xA1: true, 0xF0: true}}
	i2c := NewI2C(client)

	_, err := i2c.Scan(ctx, 0, 0x80)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, i2c.EnablePullups(ctx), ErrNotConfigured)

	require.NoError(t, i2c.Configure(ctx, ModeConfig{}))
	assert.Equal(t, []string{"I2C"}, client.modes)
	assert.True(t, i2c.Configured())

	found, err := i2c.Scan(ctx, 0x08, 0x78)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0xA0, 0xA1}, found)
	last := client.requests[len(client.requests)-1]
	assert.Equal(t, DataRequest{StopMain: true}, last)

	data, err := i2c.Transfer(ctx, []byte{0xA0, 0x00}, 8)
	require.NoError(t, err)
	assert.Len(t, data, 8)

	require.NoError(t, i2c.EnablePSU(ctx, 3300, 100))
	require.NoError(t, i2c.SetIODirection(ctx, 0x0F, 0x00))
	assert.Equal(t, Configuration{PSUEnable: true, PSUSetMV: 3300, PSUSetMA: 100}, client.configs[0])
	assert.Equal(t, uint8(0), *client.configs[1].IODirection)

	enabled, err := i2c.PSUEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func Test_I2CScanRange(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		start  uint8
		end    uint8
		probes []uint8
		found  []uint8
		err    error
	}{
		{"empty", 0x10, 0x10, nil, []uint8{}, nil},
		{"single", 0x50, 0x51, []uint8{0xA0, 0xA1}, []uint8{0xA0, 0xA1}, nil},
		{"last", 0x7F, 0x80, []uint8{0xFE, 0xFF}, []uint8{}, nil},
		{"past limit", 0x7F, 0x82, nil, nil, ErrInvalidRange},
		{"reversed", 0x20, 0x10, nil, nil, ErrInvalidRange},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{acks: map[uint8]bool{0x00: true, 0x02: true, 0xA0: true, 0xA1: true}}
			i2c := NewI2C(client)
			require.NoError(t, i2c.Configure(ctx, ModeConfig{}))

			found, err := i2c.Scan(ctx, tc.start, tc.end)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Empty(t, client.requests)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.found, found)

			var probes []uint8
			for _, req := range client.requests {
				if len(req.DataWrite) > 0 {
					probes = append(probes, req.DataWrite[0])
				}
			}
			assert.Equal(t, tc.probes, probes)
		})
	}
}

func Test_SPI(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	spi := NewSPI(client)

	_, err := spi.Transfer(ctx, nil, 3)
	assert.ErrorIs(t, err, ErrNotConfigured)

	require.NoError(t, spi.Configure(ctx, ModeConfig{ClockPolarity: true}))
	require.NoError(t, spi.Select(ctx))
	data, err := spi.Read(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, data, 3)
	require.NoError(t, spi.Deselect(ctx))
	assert.Equal(t, []DataRequest{{StartMain: true}, {BytesRead: 3}, {StopMain: true}}, client.requests)

	require.Len(t, client.modeConfigs, 1)
	cfg := client.modeConfigs[0]
	assert.Equal(t, []string{"SPI"}, client.modes)
	assert.Equal(t, uint32(DefaultSPISpeed), cfg.Speed)
	assert.True(t, cfg.ClockPolarity)
	require.NotNil(t, cfg.ChipSelectIdle)
	assert.True(t, *cfg.ChipSelectIdle)

	idle := false
	require.NoError(t, spi.Configure(ctx, ModeConfig{Speed: 500000, ChipSelectIdle: &idle}))
	cfg = client.modeConfigs[1]
	assert.Equal(t, uint32(500000), cfg.Speed)
	assert.False(t, *cfg.ChipSelectIdle)
}

func Test_toFieldsChipSelectIdle(t *testing.T) {
	tests := []struct {
		name string
		idle *bool
		want map[string]interface{}
	}{
		{"unset", nil, map[string]interface{}{"speed": uint32(1000000)}},
		{"high", boolPtr(true), map[string]interface{}{"speed": uint32(1000000), "chip_select_idle": true}},
		{"low", boolPtr(false), map[string]interface{}{"speed": uint32(1000000), "chip_select_idle": false}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields, err := toFields(ModeConfig{Speed: 1000000, ChipSelectIdle: tc.idle})
			require.NoError(t, err)
			assert.Equal(t, tc.want, fields)
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func Test_WriteStatus(t *testing.T) {
	var buf bytes.Buffer
	b := NewBase(&fakeClient{})
	assert.ErrorIs(t, b.ShowStatus(context.Background(), &buf), ErrNotConfigured)

	require.NoError(t, WriteStatus(&buf, &Status{
		FirmwareVersionMajor: 1,
		FirmwareVersionMinor: 2,
		ModeCurrent:          "I2C",
		PSUEnabled:           true,
		PSUSetMV:             3300,
		ADCMV:                []uint32{3300, 0},
		IODirection:          0x0F,
	}))
	out := buf.String()
	assert.Contains(t, out, "Firmware version  : 1.2.0\n")
	assert.Contains(t, out, "Current mode      : I2C\n")
	assert.Contains(t, out, "Power supply      : enabled\n")
	assert.Contains(t, out, "ADC               : 3300 mV 0 mV\n")
	assert.Contains(t, out, "IO direction      : 0b00001111\n")
}
