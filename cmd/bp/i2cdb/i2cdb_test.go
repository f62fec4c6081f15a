package i2cdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testList = `# I2C addresses 0x00 - 0x0F

## 0x00
- Reserved (General Call)

## 0x01
- [CBUS "compat"](https://example.com/cbus)
- Other device

## 0x02
- Reserved (General Call)

## 0x03
`

func Test_Parse(t *testing.T) {
	devices := Devices{}
	require.NoError(t, Parse(strings.NewReader(testList), devices))
	assert.Equal(t, Devices{
		0: {"Reserved"},
		1: {`CBUS "compat"`, "Other device"},
		2: {"Reserved"},
		3: {},
	}, devices)

	assert.Error(t, Parse(strings.NewReader("## nothing\n"), Devices{}))
}

func Test_BuildAndRender(t *testing.T) {
	devices := Devices{}
	require.NoError(t, Parse(strings.NewReader(testList), devices))
	devices[0x7f] = []string{"Reserved"}

	l := Build(devices)
	assert.Equal(t, []string{"Reserved", `CBUS \"compat\"\r\nOther device`, ""}, l.Texts)
	assert.Equal(t, 0, l.Index[0])
	assert.Equal(t, 1, l.Index[1])
	assert.Equal(t, 0, l.Index[2])
	assert.Equal(t, 2, l.Index[3])
	assert.Equal(t, -1, l.Index[4])
	assert.Equal(t, 0, l.Index[0x7f])

	out := Render(DefaultTemplate, l)
	assert.Contains(t, out, "    DEV_I2C_LIST_NONE=0,\n\tDEV_I2C_LIST_0,\n\tDEV_I2C_LIST_1,\n\tDEV_I2C_LIST_2,\n")
	assert.Contains(t, out, "\t[DEV_I2C_LIST_1]=\"CBUS \\\"compat\\\"\\r\\nOther device\",\n")
	assert.Contains(t, out, "\tdev_i2c_addresses_text[DEV_I2C_LIST_0], //0x02\n")
	assert.Contains(t, out, "\tdev_i2c_addresses_text[DEV_I2C_LIST_NONE], //0x04\n")
	assert.Contains(t, out, "\tdev_i2c_addresses_text[DEV_I2C_LIST_0], //0x7f\n")
	assert.Equal(t, NumAddresses, strings.Count(out, "dev_i2c_addresses_text[DEV_I2C_LIST_"))
	assert.NotContains(t, out, "%%%")
}

func Test_Generate(t *testing.T) {
	dir := t.TempDir()
	for i, name := range FileNames {
		content := ""
		if i == 7 {
			content = "## 0x77\n- [BMP280](https://example.com)\n"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	out := filepath.Join(dir, "dev_i2c_addresses.h")
	require.NoError(t, Generate(dir, "", out, nil))
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "\t[DEV_I2C_LIST_0]=\"BMP280\",\n")
	assert.Contains(t, string(content), "\tdev_i2c_addresses_text[DEV_I2C_LIST_0], //0x77\n")

	require.NoError(t, os.Remove(filepath.Join(dir, FileNames[3])))
	assert.Error(t, Generate(dir, "", out, nil))
}
