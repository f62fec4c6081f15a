package helpref

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePort answers known commands and hands out its replies in small chunks.
type fakePort struct {
	replies map[string]string
	chunk   int
	pending bytes.Buffer
	writes  []string
	resets  int
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, string(b))
	p.pending.WriteString(p.replies[string(b)])
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.pending.Len() == 0 {
		return 0, nil
	}
	if len(b) > p.chunk {
		b = b[:p.chunk]
	}
	return p.pending.Read(b)
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	p.pending.Reset()
	return nil
}

const testScript = `# enter a mode
m i2c    # I2C

i -h
#done
never sent -h
`

func Test_ParseScript(t *testing.T) {
	steps, err := ParseScript(strings.NewReader(testScript))
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Kind: StepCommand, Command: "m i2c"},
		{Kind: StepDefaults},
		{Kind: StepCapture, Command: "i -h", Heading: "i"},
	}, steps)
	assert.Equal(t, " \r", steps[1].Payload())
	assert.Equal(t, "i -h\r", steps[2].Payload())
}

func Test_Collector(t *testing.T) {
	port := &fakePort{
		chunk: 5,
		replies: map[string]string{
			"\r":       "HiZ> \x03",
			"m i2c\r":  "\x1b[1mI2C\x1b[0m\r\n\x03",
			" \r":      "I2C> \x03",
			"i -h\r":   vt100Query + "usage:\r\n i\r\n\r\n\r\n\r\nend\r\n\x03",
			vt100Reply: "",
		},
	}
	port.pending.WriteString("boot noise")

	var progress []int
	c := NewCollector(port,
		WithSettleDelay(0),
		WithPollInterval(time.Millisecond),
		WithIdleTimeout(50*time.Millisecond),
		WithProgress(func(done, total int) {
			assert.Equal(t, 3, total)
			progress = append(progress, done)
		}))

	steps, err := ParseScript(strings.NewReader(testScript))
	require.NoError(t, err)
	sections, err := c.Run(context.Background(), steps)
	require.NoError(t, err)

	assert.Equal(t, 1, port.resets)
	assert.Equal(t, []string{"\r", "m i2c\r", " \r", "i -h\r", vt100Reply}, port.writes)
	assert.Equal(t, []int{1, 2, 3}, progress)
	require.Len(t, sections, 1)
	assert.Equal(t, "i", sections[0].Heading)
	assert.Equal(t, "usage:\n i\n\nend\n", Clean(sections[0].Raw))
}

func Test_CollectorIdle(t *testing.T) {
	port := &fakePort{chunk: 64, replies: map[string]string{"\r": "\x03"}}
	c := NewCollector(port,
		WithSettleDelay(0),
		WithPollInterval(time.Millisecond),
		WithIdleTimeout(10*time.Millisecond))

	start := time.Now()
	sections, err := c.Run(context.Background(), []Step{{Kind: StepCapture, Command: "x -h", Heading: "x"}})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].Raw)
	assert.Less(t, time.Since(start), DefaultHardTimeout)
}

func Test_CollectorCancel(t *testing.T) {
	port := &fakePort{chunk: 64}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(port, WithSettleDelay(time.Hour))
	_, err := c.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Clean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "plain", in: "hello\r\n", out: "hello\n"},
		{name: "colors", in: "\x1b[1;31mred\x1b[0m text\r\n\x03", out: "red text\n"},
		{name: "osc", in: "\x1b]0;title\x07body", out: "body\n"},
		{name: "charset and private", in: "\x1b(B\x1b[?25lvisible\x1b[?25h\x08", out: "visible\n"},
		{name: "blank lines", in: "\n\na\n\n\n\n\nb\n\n\n", out: "a\n\nb\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.out, Clean(test.in))
		})
	}
}

func Test_WriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, []Section{
		{Heading: "i", Raw: "info\r\n\x03"},
		{Heading: "m", Raw: "mode\r\n"},
	}))
	expected := "# Bus Pirate Command Help Reference\n\n" +
		"> Auto-generated by `bp helpcollect`. Do not edit manually.\n\n" +
		"## i\n\n```\ninfo\n```\n" +
		"\n" +
		"## m\n\n```\nmode\n```\n" +
		"\n"
	assert.Equal(t, expected, buf.String())
}
