// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package helpref drives a Bus Pirate over its serial console and collects
// the output of its help commands into a markdown reference.
package helpref

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

const (
	// Prompt is sent by the firmware when it is ready for the next command.
	Prompt byte = 0x03

	// The firmware asks for the terminal size with this sequence and
	// expects the reply without the leading escape.
	vt100Query = "\x1b7\x1b[999;999H\x1b[6n\x1b8"
	vt100Reply = "[24;80R"

	DefaultIdleTimeout  = 3 * time.Second
	DefaultHardTimeout  = 30 * time.Second
	DefaultPollInterval = 50 * time.Millisecond
	DefaultSettleDelay  = 1 * time.Second
)

type inputResetter interface {
	ResetInputBuffer() error
}

// Collector runs command scripts on a port. Reads returning no data and no
// error are treated as a quiet line.
type Collector struct {
	port         io.ReadWriter
	idleTimeout  time.Duration
	hardTimeout  time.Duration
	pollInterval time.Duration
	settleDelay  time.Duration
	logger       *zap.Logger
	progress     func(done int, total int)

	// Tail of the previous reads, for queries split across reads.
	tail []byte
}

type Option func(*Collector)

// WithIdleTimeout sets how long a command may stay silent before its output
// is considered complete.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Collector) { c.idleTimeout = d }
}

// WithHardTimeout bounds the time spent waiting for a single prompt.
func WithHardTimeout(d time.Duration) Option {
	return func(c *Collector) { c.hardTimeout = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Collector) { c.pollInterval = d }
}

// WithSettleDelay sets the pause before the input buffer is flushed.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Collector) { c.settleDelay = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// WithProgress registers a callback invoked after every step.
func WithProgress(f func(done int, total int)) Option {
	return func(c *Collector) { c.progress = f }
}

func NewCollector(port io.ReadWriter, opts ...Option) *Collector {
	c := &Collector{
		port:         port,
		idleTimeout:  DefaultIdleTimeout,
		hardTimeout:  DefaultHardTimeout,
		pollInterval: DefaultPollInterval,
		settleDelay:  DefaultSettleDelay,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Run executes steps and returns a section for every captured command.
func (c *Collector) Run(ctx context.Context, steps []Step) ([]Section, error) {
	if err := sleep(ctx, c.settleDelay); err != nil {
		return nil, err
	}
	if r, ok := c.port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return nil, err
		}
	}

	if _, err := c.port.Write([]byte("\r")); err != nil {
		return nil, err
	}
	if _, err := c.waitPrompt(ctx); err != nil {
		return nil, err
	}

	var sections []Section
	for i, step := range steps {
		c.logger.Debug("sending", zap.String("command", step.Command), zap.Bool("capture", step.Kind == StepCapture))
		if _, err := c.port.Write([]byte(step.Payload())); err != nil {
			return sections, err
		}
		captured, err := c.waitPrompt(ctx)
		if err != nil {
			return sections, err
		}
		if step.Kind == StepCapture {
			sections = append(sections, Section{Heading: step.Heading, Raw: string(captured)})
		}
		if c.progress != nil {
			c.progress(i+1, len(steps))
		}
	}
	return sections, nil
}

// waitPrompt reads until the prompt byte arrives, the line stays idle for
// the idle timeout, or the hard timeout passes. It returns everything read.
func (c *Collector) waitPrompt(ctx context.Context) ([]byte, error) {
	var captured []byte
	buf := make([]byte, 1024)
	deadline := time.Now().Add(c.hardTimeout)
	idleSince := time.Now()

	for time.Now().Before(deadline) {
		n, err := c.port.Read(buf)
		if err != nil && err != io.EOF {
			return captured, err
		}
		if n > 0 {
			chunk := buf[:n]
			c.logger.Debug("received", zap.ByteString("data", chunk))
			captured = append(captured, chunk...)
			idleSince = time.Now()
			if err := c.answerQuery(chunk); err != nil {
				return captured, err
			}
			if bytes.IndexByte(chunk, Prompt) >= 0 {
				return captured, nil
			}
			continue
		}

		if err := sleep(ctx, c.pollInterval); err != nil {
			return captured, err
		}
		if time.Since(idleSince) > c.idleTimeout {
			c.logger.Debug("no prompt, line idle", zap.Duration("timeout", c.idleTimeout))
			return captured, nil
		}
	}
	c.logger.Warn("no prompt before hard timeout", zap.Duration("timeout", c.hardTimeout))
	return captured, nil
}

func (c *Collector) answerQuery(chunk []byte) error {
	window := append(c.tail, chunk...)
	if bytes.Contains(window, []byte(vt100Query)) {
		c.tail = nil
		_, err := c.port.Write([]byte(vt100Reply))
		return err
	}
	if keep := len(vt100Query) - 1; len(window) > keep {
		window = window[len(window)-keep:]
	}
	c.tail = append([]byte(nil), window...)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
