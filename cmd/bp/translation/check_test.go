package translation

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FindSourceFilesAndUsage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.c"), "printf(t[T_ON]);\nputs(t[T_ONE_MORE]);\n")
	writeFile(t, filepath.Join(dir, "ui", "menu.cpp"), "show(T_MENU);\n")
	writeFile(t, filepath.Join(dir, "ui", "notes.txt"), "T_NOTES\n")
	writeFile(t, filepath.Join(dir, "translation", "en-us.h"), "[T_ON]=\"ON\",[T_ONE]=\"1\",[T_MENU]=\"M\",[T_NOTES]=\"N\",\n")
	writeFile(t, filepath.Join(dir, "translation", "nested", "x.h"), "T_ONE\n")

	files, err := FindSourceFiles(dir, []string{filepath.Join(dir, "translation")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "main.c"),
		filepath.Join(dir, "ui", "menu.cpp"),
	}, files)

	usage := Usage([]string{"T_ON", "T_ONE", "T_MENU", "T_NOTES"}, files, nil)
	assert.Equal(t, []string{"T_MENU", "T_ON"}, usage.Used)
	assert.Equal(t, []string{"T_NOTES", "T_ONE"}, usage.Unused)
	assert.True(t, usage.IsUsed("T_ON"))
	assert.False(t, usage.IsUsed("T_ONE"))
}

func Test_Duplicates(t *testing.T) {
	table := newTable()
	table.set("T_A", "x")
	table.set("T_B", " x ")
	table.set("T_C", "y")
	table.set("T_F", "z")
	table.set("T_E", "z")
	table.set("T_D", "z")
	table.set("T_G", "")
	table.set("T_H", "  ")

	assert.Equal(t, []DuplicateGroup{
		{Text: "z", Keys: []string{"T_D", "T_E", "T_F"}},
		{Text: "x", Keys: []string{"T_A", "T_B"}},
	}, Duplicates(table))
}

func Test_RemoveEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en-us.h")
	writeFile(t, path, "static char const * const en_us[]={\n    [T_A]=\"a\",\n    [T_B] = \"b \\\"q\\\"\",\n    [T_C]=\"c\"\n};\n")

	removed, err := RemoveEntries(path, []string{"T_B", "T_MISSING"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T_B"}, removed)
	assert.Equal(t, "static char const * const en_us[]={\n    [T_A]=\"a\",\n    [T_C]=\"c\"\n};\n", readFile(t, path))

	removed, err = RemoveEntries(path, nil)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func Test_Display(t *testing.T) {
	assert.Equal(t, "short", Display("short"))
	exact := strings.Repeat("a", 60)
	assert.Equal(t, exact, Display(exact))
	assert.Equal(t, strings.Repeat("ż", 57)+"...", Display(strings.Repeat("ż", 61)))
}

func Test_CheckReporter(t *testing.T) {
	table := newTable()
	table.set("T_USED", "same text")
	table.set("T_UNUSED", "same text")
	usage := Usage(table.Keys, nil, nil)
	usage.Used = []string{"T_USED"}
	usage.Unused = []string{"T_UNUSED"}

	var buf bytes.Buffer
	r := NewCheckReporter(&buf)
	r.WriteHeader("en-us.h", table.Len(), "src", []string{"src/translation"}, 3)
	r.WriteUnused(table, usage)
	groups := Duplicates(table)
	r.WriteDuplicates(groups, usage)
	r.WriteSummary(table.Len(), usage, len(groups))

	out := buf.String()
	assert.Contains(t, out, "Found 2 translation entries")
	assert.Contains(t, out, "Excluding: src/translation")
	assert.Contains(t, out, "Found 1 unused translation entries:")
	assert.Contains(t, out, "  T_UNUSED"+strings.Repeat(" ", 32)+" = \"same text\"")
	assert.Contains(t, out, "Summary: 1 used, 1 unused")
	assert.Contains(t, out, "1. Text: \"same text\"")
	assert.Contains(t, out, "   Used by 2 keys:")
	assert.Contains(t, out, "UNUSED")
	assert.Contains(t, out, "Duplicate text groups:  1")
}
