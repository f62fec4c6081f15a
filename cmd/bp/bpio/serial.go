// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package bpio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/toitware/ubjson"
	"go.uber.org/zap"
)

// Codec encodes the body of a BPIO message.
type Codec interface {
	Marshal(msg map[string]interface{}) ([]byte, error)
	Unmarshal(data []byte) (map[string]interface{}, error)
}

// UBJSONCodec encodes messages as Universal Binary JSON. It is the default
// codec; firmware that expects flatbuffers bodies needs its own Codec.
type UBJSONCodec struct{}

func (UBJSONCodec) Marshal(msg map[string]interface{}) ([]byte, error) {
	return ubjson.Marshal(msg)
}

func (UBJSONCodec) Unmarshal(data []byte) (map[string]interface{}, error) {
	var res map[string]interface{}
	if err := ubjson.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return res, nil
}

const (
	requestMode          = "mode"
	requestConfiguration = "configuration"
	requestStatus        = "status"
	requestData          = "data"
)

// SerialClient speaks BPIO over a byte stream. Every message is a COBS
// encoded body terminated by a zero byte, and every request is answered by
// exactly one response.
type SerialClient struct {
	lock   sync.Mutex
	writer io.Writer
	reader *bufio.Reader
	codec  Codec
	logger *zap.Logger
}

type SerialOption func(*SerialClient)

func WithCodec(codec Codec) SerialOption {
	return func(c *SerialClient) { c.codec = codec }
}

func WithLogger(logger *zap.Logger) SerialOption {
	return func(c *SerialClient) { c.logger = logger }
}

func NewSerialClient(rw io.ReadWriter, opts ...SerialOption) *SerialClient {
	c := &SerialClient{
		writer: rw,
		reader: bufio.NewReader(rw),
		codec:  UBJSONCodec{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SerialClient) ConfigureMode(ctx context.Context, mode string, cfg ModeConfig) error {
	fields, err := toFields(cfg)
	if err != nil {
		return err
	}
	fields["mode"] = mode
	_, err = c.request(ctx, requestMode, fields)
	return err
}

func (c *SerialClient) Configure(ctx context.Context, cfg Configuration) error {
	fields, err := toFields(cfg)
	if err != nil {
		return err
	}
	_, err = c.request(ctx, requestConfiguration, fields)
	return err
}

func (c *SerialClient) Status(ctx context.Context, query StatusQuery) (*Status, error) {
	fields := map[string]interface{}{}
	if names := query.Names(); len(names) > 0 {
		fields["query"] = names
	}
	response, err := c.request(ctx, requestStatus, fields)
	if err != nil {
		return nil, err
	}
	var status Status
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &status,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(response); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	return &status, nil
}

func (c *SerialClient) Data(ctx context.Context, req DataRequest) ([]byte, error) {
	fields, err := toFields(req)
	if err != nil {
		return nil, err
	}
	response, err := c.request(ctx, requestData, fields)
	if err != nil {
		return nil, err
	}
	var data []byte
	if raw, ok := response["data_read"]; ok && raw != nil {
		if err := mapstructure.Decode(raw, &data); err != nil {
			return nil, fmt.Errorf("invalid data response: %w", err)
		}
	}
	return data, nil
}

func (c *SerialClient) request(ctx context.Context, kind string, fields map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.lock.Lock()
	defer c.lock.Unlock()

	fields["type"] = kind
	body, err := c.codec.Marshal(fields)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("bpio request", zap.String("type", kind), zap.Int("size", len(body)))
	if err := c.writePacket(body); err != nil {
		return nil, err
	}

	body, err = c.receivePacket()
	if err != nil {
		return nil, fmt.Errorf("no response to %s request: %w", kind, err)
	}
	response, err := c.codec.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("invalid response to %s request: %w", kind, err)
	}
	if msg, ok := response["error"].(string); ok && msg != "" {
		return nil, &DeviceError{Request: kind, Message: msg}
	}
	return response, nil
}

func (c *SerialClient) writePacket(body []byte) error {
	packet := append(cobsEncode(body), 0)
	for len(packet) > 0 {
		n, err := c.writer.Write(packet)
		if err != nil {
			return err
		}
		packet = packet[n:]
	}
	return nil
}

func (c *SerialClient) receivePacket() ([]byte, error) {
	for {
		frame, err := c.reader.ReadBytes(0)
		if err != nil {
			return nil, err
		}
		frame = frame[:len(frame)-1]
		// Stray delimiters between frames are harmless.
		if len(frame) == 0 {
			continue
		}
		return cobsDecode(frame)
	}
}

// toFields flattens a request struct into wire fields, leaving out unset
// values.
func toFields(v interface{}) (map[string]interface{}, error) {
	res := map[string]interface{}{}
	if err := mapstructure.Decode(v, &res); err != nil {
		return nil, err
	}
	for k, field := range res {
		rv := reflect.ValueOf(field)
		if rv.Kind() != reflect.Ptr {
			continue
		}
		if rv.IsNil() {
			delete(res, k)
		} else {
			res[k] = rv.Elem().Interface()
		}
	}
	return res, nil
}
