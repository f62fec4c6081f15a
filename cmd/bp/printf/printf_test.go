package printf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Specifiers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "no specifiers here", want: []string{}},
		{in: "Value: %d", want: []string{"d"}},
		{in: "%s%d*%s", want: []string{"s", "d", "s"}},
		{in: "100%% done", want: []string{}},
		{in: "100%%d", want: []string{}},
		{in: "100%%%d", want: []string{"d"}},
		{in: `\%d`, want: []string{}},
		{in: `\\%d`, want: []string{"d"}},
		{in: "%-10s|%+.2f", want: []string{"s", "f"}},
		{in: "%*d", want: []string{"*", "d"}},
		{in: "%.*s", want: []string{"*", "s"}},
		{in: "%*.*Lf", want: []string{"*", "*", "Lf"}},
		{in: "0x%08lX", want: []string{"lX"}},
		{in: "%zu bytes, %hhu flags", want: []string{"zu", "hhu"}},
		{in: selfTestMixed, want: selfTestMixedExpected},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			if diff := cmp.Diff(test.want, Specifiers(test.in)); diff != "" {
				t.Errorf("Specifiers(%q) mismatch (-want +got):\n%s", test.in, diff)
			}
		})
	}
}

func Test_SelfTest(t *testing.T) {
	require.NoError(t, SelfTest())
}

func Test_SameDataType(t *testing.T) {
	same, err := SameDataType("d", "i")
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameDataType("x", "X")
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameDataType("d", "u")
	require.NoError(t, err)
	assert.False(t, same)

	_, err = SameDataType("n", "d")
	assert.Error(t, err)
	_, err = SameDataType("d", "q")
	assert.Error(t, err)
}

func Test_CompatibleLists(t *testing.T) {
	assert.True(t, CompatibleLists([]string{"s", "d"}, []string{"s", "i"}))
	assert.True(t, CompatibleLists(nil, []string{}))
	assert.False(t, CompatibleLists([]string{"s", "d"}, []string{"d", "s"}))
	assert.False(t, CompatibleLists([]string{"s"}, []string{"s", "s"}))
	assert.False(t, CompatibleLists([]string{"n"}, []string{"n"}))
	assert.False(t, Valid("hhn"))
	assert.True(t, Valid("llX"))
}
