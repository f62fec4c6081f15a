// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

// Package rgb565 converts images into C headers holding 16 bit RGB565
// pixel data for the display.
package rgb565

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"go.uber.org/zap"
)

const (
	DefaultWidth  = 240
	DefaultHeight = 320
)

// Options for ConvertFile.
type Options struct {
	Width  int
	Height int
	// OutDir receives the header, defaults to the image's directory.
	OutDir string
	Logger *zap.Logger
}

var nonIdentifierChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Name turns a file name into the C identifier used for its data array.
func Name(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := nonIdentifierChars.ReplaceAllString(stem, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}

// Pack returns the RGB565 value of c. Alpha is ignored.
func Pack(c color.Color) uint16 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return uint16(n.R>>3)<<11 | uint16(n.G>>2)<<5 | uint16(n.B>>3)
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Resize scales img to width x height.
func Resize(img image.Image, width int, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// RotateClockwise rotates img by 90 degrees clockwise.
func RotateClockwise(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			dst.SetNRGBA(x, y, img.NRGBAAt(y, h-1-x))
		}
	}
	return dst
}

// FlipVertical mirrors img top to bottom.
func FlipVertical(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetNRGBA(x, y, img.NRGBAAt(x, h-1-y))
		}
	}
	return dst
}

// Pixels lays img out in the display's scan order: portrait images are
// rotated to landscape and every image is stored bottom row first.
func Pixels(img image.Image) []uint16 {
	n := toNRGBA(img)
	if n.Bounds().Dx() < n.Bounds().Dy() {
		n = RotateClockwise(n)
	}
	n = FlipVertical(n)

	w, h := n.Bounds().Dx(), n.Bounds().Dy()
	res := make([]uint16, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			res = append(res, Pack(n.NRGBAAt(x, y)))
		}
	}
	return res
}

// WriteHeader writes pixels as a big-endian byte array. width and height are
// the dimensions of the image before any rotation, and a new line starts
// every width pixels.
func WriteHeader(w io.Writer, name string, pixels []uint16, width int, height int) error {
	bw := bufio.NewWriter(w)
	guard := strings.ToUpper(name) + "_H"
	fmt.Fprintf(bw, "#ifndef %s\n", guard)
	fmt.Fprintf(bw, "#define %s\n\n", guard)
	fmt.Fprintf(bw, "const unsigned char %s_data[%d * %d * 2] = {\n", name, width, height)
	for i, p := range pixels {
		if i%width == 0 {
			bw.WriteString("\n    ")
		}
		fmt.Fprintf(bw, "0x%02X, 0x%02X, ", p>>8, p&0xFF)
	}
	bw.WriteString("\n};\n\n")
	bw.WriteString("#endif\n")
	return bw.Flush()
}

// ConvertFile decodes the image at path and writes <name>.h. It returns the
// path of the written header.
func ConvertFile(path string, opts Options) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode '%s': %w", path, err)
	}
	logger.Debug("decoded image", zap.String("path", path), zap.String("format", format))

	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		logger.Warn("resizing image",
			zap.String("path", path),
			zap.String("from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy())),
			zap.String("to", fmt.Sprintf("%dx%d", width, height)))
		img = Resize(img, width, height)
	}

	name := Name(path)
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	outPath := filepath.Join(outDir, name+".h")
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	if err := WriteHeader(out, name, Pixels(img), width, height); err != nil {
		out.Close()
		return "", err
	}
	return outPath, out.Close()
}
