// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package bpio

import "errors"

var errInvalidFrame = errors.New("invalid COBS frame")

// cobsEncode removes all zero bytes from src so that 0x00 can delimit
// frames on the wire.
func cobsEncode(src []byte) []byte {
	dst := make([]byte, 1, len(src)+len(src)/254+2)
	codeIndex := 0
	code := byte(1)
	for _, b := range src {
		if b != 0 {
			dst = append(dst, b)
			code++
		}
		if b == 0 || code == 0xFF {
			dst[codeIndex] = code
			codeIndex = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIndex] = code
	return dst
}

func cobsDecode(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return nil, errInvalidFrame
		}
		i++
		end := i + int(code) - 1
		if end > len(src) {
			return nil, errInvalidFrame
		}
		for _, b := range src[i:end] {
			if b == 0 {
				return nil, errInvalidFrame
			}
		}
		dst = append(dst, src[i:end]...)
		i = end
		if code != 0xFF && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
