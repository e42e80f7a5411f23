// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// syntheticPrefix marks the generated input used when no file is given.
const syntheticPrefix = "synthetic:"

// loadRGBA decodes name into packed RGBA and resamples it by scale. size
// is the encoded size in bytes, or 0 for synthetic inputs.
func loadRGBA(name string, scale float64) (*image.RGBA, int64, error) {
	var (
		src  image.Image
		size int64
	)
	if spec, ok := strings.CutPrefix(name, syntheticPrefix); ok {
		w, h, err := parseSize(spec)
		if err != nil {
			return nil, 0, err
		}
		src = gradient(w, h)
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, 0, err
		}
		defer f.Close()
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
		if src, _, err = image.Decode(f); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return toRGBA(src, scale), size, nil
}

// toRGBA converts src to an RGBA image with its origin at (0, 0).
// A scale other than 1 resamples with a bilinear filter.
func toRGBA(src image.Image, scale float64) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && scale == 1 {
		return rgba
	}
	w, h := b.Dx(), b.Dy()
	if scale > 0 && scale != 1 {
		w = max(int(float64(w)*scale), 1)
		h = max(int(float64(h)*scale), 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst
}

// cropRGBA returns the view of img selected by roi ("x,y,w,h"), clipped to
// the image. The view shares img's pixels and stride.
func cropRGBA(img *image.RGBA, roi string) (*image.RGBA, error) {
	if roi == "" {
		return img, nil
	}
	r, err := parseRect(roi)
	if err != nil {
		return nil, err
	}
	r = r.Intersect(img.Rect)
	if r.Empty() {
		return nil, fmt.Errorf("roi %q does not overlap the %v image", roi, img.Rect)
	}
	return img.SubImage(r).(*image.RGBA), nil
}

func parseRect(s string) (image.Rectangle, error) {
	f := strings.Split(s, ",")
	if len(f) != 4 {
		return image.Rectangle{}, fmt.Errorf("roi %q: want x,y,w,h", s)
	}
	var v [4]int
	for i := range f {
		n, err := strconv.Atoi(strings.TrimSpace(f[i]))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("roi %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("roi %q: empty", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(s, "x")
	if ok {
		w, err = strconv.Atoi(ws)
		if err == nil {
			h, err = strconv.Atoi(hs)
		}
	}
	if !ok || err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	return w, h, nil
}

// gradient is a test card: red ramps left to right, green top to bottom,
// blue is their XOR and alpha is opaque.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		g := uint8(y * 255 / max(h-1, 1))
		for x := range w {
			r := uint8(x * 255 / max(w-1, 1))
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: r ^ g, A: 0xff})
		}
	}
	return img
}
