package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrUnsupportedPNM is returned for netpbm variants other than binary
// P5 (gray) and P6 (RGB) with an 8-bit maxval.
var ErrUnsupportedPNM = errors.New("frame: unsupported netpbm variant")

// Header limits. chdkptp dumps are at most a few megapixels; anything past
// these bounds is a corrupt header, not an image.
const (
	MaxDimension = 1 << 15
	MaxPixels    = 1 << 26
)

// ErrTooLarge is returned when a header declares an implausible size.
var ErrTooLarge = errors.New("frame: image dimensions too large")

// DecodePPM reads a binary P6 or P5 image. chdkptp's lvdumpimg writes P6.
// The raster is only allocated once the header has been bounds-checked.
func DecodePPM(r io.Reader) (Frame, error) {
	br := bufio.NewReader(r)

	s, err := readPPMHeader(br)
	if err != nil {
		return Frame{}, err
	}

	f := New(s)
	if _, err := io.ReadFull(br, f.Pix); err != nil {
		return Frame{}, fmt.Errorf("read raster: %w", err)
	}
	return f, nil
}

// DecodePPMShape reads only the header.
func DecodePPMShape(r io.Reader) (Shape, error) {
	return readPPMHeader(bufio.NewReader(r))
}

func readPPMHeader(br *bufio.Reader) (Shape, error) {
	magic, err := readToken(br)
	if err != nil {
		return Shape{}, fmt.Errorf("read magic: %w", err)
	}

	var channels int
	switch magic {
	case "P6":
		channels = 3
	case "P5":
		channels = 1
	default:
		return Shape{}, fmt.Errorf("%w: magic %q", ErrUnsupportedPNM, magic)
	}

	var dims [3]int
	for i := range dims {
		tok, err := readToken(br)
		if err != nil {
			return Shape{}, fmt.Errorf("read header: %w", err)
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v <= 0 {
			return Shape{}, fmt.Errorf("bad header value %q", tok)
		}
		dims[i] = v
	}
	width, height, maxval := dims[0], dims[1], dims[2]
	if maxval > 255 {
		return Shape{}, fmt.Errorf("%w: maxval %d", ErrUnsupportedPNM, maxval)
	}

	s := Shape{Height: height, Width: width, Channels: channels}
	if err := checkSize(s); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// checkSize rejects shapes beyond MaxDimension or MaxPixels. Each side is
// checked first so the product cannot overflow.
func checkSize(s Shape) error {
	if s.Width > MaxDimension || s.Height > MaxDimension || s.Width*s.Height > MaxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, s.Width, s.Height)
	}
	return nil
}

// EncodePPM writes f as binary P6 (3 channels) or P5 (1 channel).
func EncodePPM(w io.Writer, f Frame) error {
	var magic string
	switch f.Channels {
	case 3:
		magic = "P6"
	case 1:
		magic = "P5"
	default:
		return fmt.Errorf("%w: %d channels", ErrUnsupportedPNM, f.Channels)
	}
	if len(f.Pix) != f.Shape().Size() {
		return fmt.Errorf("frame: pixel buffer is %d bytes, shape %s needs %d", len(f.Pix), f.Shape(), f.Shape().Size())
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n255\n", magic, f.Cols, f.Rows); err != nil {
		return err
	}
	if _, err := bw.Write(f.Pix); err != nil {
		return err
	}
	return bw.Flush()
}

// readToken returns the next whitespace-separated header token, skipping
// '#' comments. Exactly one whitespace byte after the token is consumed,
// which is what the raster boundary after maxval requires.
func readToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := br.ReadBytes('\n'); err != nil {
				return "", err
			}
		case isSpace(c):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
