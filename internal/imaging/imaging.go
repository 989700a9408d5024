// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging checks question and solution images before they are
// uploaded and scales down anything wider than the configured limit.
// Images already within the limit pass through byte for byte.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadSize is the largest image accepted from the browser.
	MaxUploadSize = 10 << 20

	// MaxPixels bounds width*height so decoding a small file with a huge
	// declared size cannot exhaust memory.
	MaxPixels = 50_000_000

	// DefaultMaxWidth is the widest image sent upstream.
	DefaultMaxWidth = 1600

	jpegQuality = 85
)

// ErrUnsupported is returned for data that is not a PNG, JPEG, GIF or WebP.
var ErrUnsupported = errors.New("unsupported image format")

// ErrTooLarge is returned for uploads over MaxUploadSize or MaxPixels.
var ErrTooLarge = errors.New("image is too large")

// Image is an upload ready to be forwarded.
type Image struct {
	Filename    string
	ContentType string
	Width       int
	Height      int
	Data        []byte
	Resized     bool
}

// Prepare validates data and, when it is wider than maxWidth, re-encodes a
// downscaled copy. GIF and WebP sources that need scaling come back as PNG.
func Prepare(filename string, data []byte, maxWidth int) (*Image, error) {
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("imaging: %s: %w", filename, ErrUnsupported)
	}
	if cfg.Width > MaxPixels/cfg.Height {
		return nil, fmt.Errorf("imaging: %s is %dx%d: %w", filename, cfg.Width, cfg.Height, ErrTooLarge)
	}

	img := &Image{
		Filename:    filename,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        data,
	}
	if cfg.Width <= maxWidth {
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode %s: %w", filename, err)
	}

	height := cfg.Height * maxWidth / cfg.Width
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, dst)
		format = "png"
	}
	if err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", filename, err)
	}

	img.Data = buf.Bytes()
	img.Width = maxWidth
	img.Height = height
	img.ContentType = "image/" + format
	img.Filename = withExt(filename, format)
	img.Resized = true
	return img, nil
}

func withExt(filename, format string) string {
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	base := strings.TrimSuffix(filename, path.Ext(filename))
	if base == "" {
		base = "image"
	}
	return base + ext
}
