package translation

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CanonicalizeRecord(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		record *Record
		err    bool
	}{
		{
			name:   "string",
			in:     `"Hello %d"`,
			record: &Record{Localized: str("Hello %d"), DataTypes: []string{"d"}},
		},
		{
			name: "null",
			in:   `null`,
		},
		{
			name:   "explicitly untranslated",
			in:     `{"Localized": null, "EN_US": "ON"}`,
			record: &Record{EnUS: str("ON")},
		},
		{
			name:   "declared types",
			in:     `{"Localized": "a %s %*d", "EN_US": "b %s %*d", "Comments": "c", "DataTypes": ["s", "*", "d"]}`,
			record: &Record{Localized: str("a %s %*d"), EnUS: str("b %s %*d"), Comments: str("c"), DataTypes: []string{"s", "*", "d"}},
		},
		{
			name:   "unknown key",
			in:     `{"Localized": "x", "Translator": "me"}`,
			record: &Record{Localized: str("x"), DataTypes: []string{}},
		},
		{
			name: "wrong declared types",
			in:   `{"Localized": "a %s", "DataTypes": ["d"]}`,
			err:  true,
		},
		{
			name: "invalid specifier",
			in:   `{"Localized": "a %n", "DataTypes": ["n"]}`,
			err:  true,
		},
		{
			name: "missing localized",
			in:   `{"EN_US": "x"}`,
			err:  true,
		},
		{
			name: "localized not a string",
			in:   `{"Localized": 5}`,
			err:  true,
		},
		{
			name: "number",
			in:   `42`,
			err:  true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := CanonicalizeRecord(json.RawMessage(test.in), nil)
			if test.err {
				assert.ErrorIs(t, err, ErrInvalidRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.record, res)
		})
	}
}

func Test_TranslationJSON(t *testing.T) {
	tr := NewTranslation()
	tr.Set("T_B", NewRecord("Zażółć <b>"))
	tr.Set("T_A", nil)
	tr.Set("T_B", NewRecord("x"))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, tr))
	expected := `{
    "T_B": {
        "Localized": "x",
        "EN_US": null,
        "Comments": null,
        "DataTypes": []
    },
    "T_A": null
}
`
	assert.Equal(t, expected, buf.String())

	tr.Set("T_B", NewRecord("Zażółć <b> %u"))
	buf.Reset()
	require.NoError(t, WriteJSON(&buf, tr))
	assert.Contains(t, buf.String(), `"Zażółć <b> %u"`)

	back, err := CanonicalizeTranslation(buf.Bytes(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"T_B", "T_A"}, back.Keys())
	r, ok := back.Get("T_B")
	require.True(t, ok)
	assert.Equal(t, []string{"u"}, r.DataTypes)
}

func Test_CanonicalizeTranslationReportsKey(t *testing.T) {
	_, err := CanonicalizeTranslation([]byte(`{"T_OK": "fine", "T_BAD": {"Localized": "%d", "DataTypes": []}}`), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "T_BAD")
}

const testHeader = `#include "translation/base.h"
static char const * const en_us[]={
    [T_ON]="ON",
    [T_OFF] = "OFF %d",
    [T_QUOTE]="say \"hi\"",
	[T_VERY_LONG_IDENTIFIER_NAME_THAT_GOES_ON]="long",
};
`

func Test_ParseHeader(t *testing.T) {
	pairs, err := ParseHeaderPairs(strings.NewReader(testHeader), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"T_ON", "T_OFF", "T_QUOTE", "T_VERY_LONG_IDENTIFIER_NAME_THAT_GOES_ON"}, pairs.Keys)
	assert.Equal(t, "OFF %d", pairs.Values["T_OFF"])
	assert.Equal(t, `say \`, pairs.Values["T_QUOTE"])

	table, err := ParseHeaderTable(strings.NewReader(testHeader))
	require.NoError(t, err)
	assert.Equal(t, pairs.Keys, table.Keys)
	assert.Equal(t, `say \"hi\"`, table.Values["T_QUOTE"])

	base := BaseFromHeader(pairs)
	r, ok := base.Get("T_OFF")
	require.True(t, ok)
	assert.Equal(t, &Record{
		Localized: str("OFF %d"),
		EnUS:      str("OFF %d"),
		Comments:  str("Autogenerated from en-us.h"),
		DataTypes: []string{"d"},
	}, r)
}

func Test_Differences(t *testing.T) {
	old := NewTranslation()
	old.Set("T_ON", NewRecord("ON"))
	old.Set("T_OFF", NewRecord("OFF %d"))
	old.Set("T_GONE", NewRecord("gone"))

	same := NewTranslation()
	same.Set("T_ON", NewRecord("ON"))
	same.Set("T_OFF", NewRecord("OFF %d"))
	same.Set("T_GONE", NewRecord("gone"))
	same.Set("T_NEW", NewRecord("new"))
	assert.Empty(t, Differences(old, same))
	assert.Empty(t, FormatDifferences(old, same))

	changed := NewTranslation()
	changed.Set("T_ON", NewRecord("On"))
	changed.Set("T_OFF", NewRecord("OFF %s"))

	diffs := Differences(old, changed)
	assert.Contains(t, diffs, "Key `T_ON` has differences")
	assert.Contains(t, diffs, "old: `ON` vs. new `On`")
	assert.Contains(t, diffs, "O[-N-]{+n+}")
	assert.Contains(t, diffs, "Key `T_GONE` is missing from the new translation.")

	formats := FormatDifferences(old, changed)
	assert.NotContains(t, formats, "T_ON")
	assert.Contains(t, formats, "Format specifier 0 differs: old `d` vs. new `s`")
	assert.Contains(t, formats, "Key `T_GONE` is missing")

	assert.Contains(t, RecordFormatDifferences(NewRecord("%d"), NewRecord("%d %d")), "Count of format specifiers differs")
}
