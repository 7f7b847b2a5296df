package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
)

// DecodeJPEG decodes a JPEG into a 3-channel RGB frame.
func DecodeJPEG(r io.Reader) (Frame, error) {
	// The header is read twice so an oversized image is rejected before
	// the decoder allocates for it.
	var head bytes.Buffer
	if _, err := DecodeJPEGShape(io.TeeReader(r, &head)); err != nil {
		return Frame{}, err
	}

	img, err := jpeg.Decode(io.MultiReader(&head, r))
	if err != nil {
		return Frame{}, fmt.Errorf("decode jpeg: %w", err)
	}
	return FromImage(img), nil
}

// DecodeJPEGShape reads only the header. Frames decoded by DecodeJPEG
// always have 3 channels.
func DecodeJPEGShape(r io.Reader) (Shape, error) {
	cfg, err := jpeg.DecodeConfig(r)
	if err != nil {
		return Shape{}, fmt.Errorf("decode jpeg header: %w", err)
	}
	s := Shape{Height: cfg.Height, Width: cfg.Width, Channels: 3}
	if err := checkSize(s); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// FromImage converts any image into a 3-channel RGB frame.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	f := New(Shape{Height: b.Dy(), Width: b.Dx(), Channels: 3})
	for i, j := 0, 0; i < len(rgba.Pix); i, j = i+4, j+3 {
		f.Pix[j] = rgba.Pix[i]
		f.Pix[j+1] = rgba.Pix[i+1]
		f.Pix[j+2] = rgba.Pix[i+2]
	}
	return f
}

// ToImage converts a 1- or 3-channel frame into an image.Image.
func (f Frame) ToImage() (image.Image, error) {
	switch f.Channels {
	case 1:
		g := image.NewGray(image.Rect(0, 0, f.Cols, f.Rows))
		copy(g.Pix, f.Pix)
		return g, nil
	case 3:
		rgba := image.NewRGBA(image.Rect(0, 0, f.Cols, f.Rows))
		for i, j := 0, 0; j < len(f.Pix); i, j = i+4, j+3 {
			rgba.Pix[i] = f.Pix[j]
			rgba.Pix[i+1] = f.Pix[j+1]
			rgba.Pix[i+2] = f.Pix[j+2]
			rgba.Pix[i+3] = 0xff
		}
		return rgba, nil
	default:
		return nil, fmt.Errorf("frame: cannot convert %d channels to an image", f.Channels)
	}
}

// EncodeJPEG encodes the frame for previews. quality <= 0 uses 80.
func EncodeJPEG(f Frame, quality int) ([]byte, error) {
	img, err := f.ToImage()
	if err != nil {
		return nil, err
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
