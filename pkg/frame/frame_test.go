package frame

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient fills a frame with a deterministic, non-uniform pattern.
func gradient(s Shape) Frame {
	f := New(s)
	for i := range f.Pix {
		f.Pix[i] = byte((i*7 + i/s.Width) % 251)
	}
	return f
}

func TestShape(t *testing.T) {
	s := Shape{Height: 360, Width: 640, Channels: 3}
	assert.Equal(t, "360x640x3", s.String())
	assert.Equal(t, 360*640*3, s.Size())
	assert.True(t, s.Valid())
	assert.False(t, Shape{Height: 0, Width: 640, Channels: 3}.Valid())
}

func TestZero(t *testing.T) {
	s := Shape{Height: 4, Width: 5, Channels: 3}
	f := Zero(s)

	assert.Equal(t, s, f.Shape())
	assert.Len(t, f.Pix, s.Size())
	for _, b := range f.Pix {
		if b != 0 {
			t.Fatal("zero frame must be zero-filled")
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	f := gradient(Shape{Height: 2, Width: 2, Channels: 3})
	c := f.Clone()
	require.True(t, f.Equal(c))

	c.Pix[0]++
	assert.False(t, f.Equal(c))
}

func TestPPMRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
	}{
		{"rgb 360p", Shape{Height: 360, Width: 640, Channels: 3}},
		{"rgb tiny", Shape{Height: 1, Width: 1, Channels: 3}},
		{"gray", Shape{Height: 10, Width: 7, Channels: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := gradient(tc.shape)

			var buf bytes.Buffer
			require.NoError(t, EncodePPM(&buf, src))

			got, err := DecodePPM(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.shape, got.Shape())
			assert.True(t, bytes.Equal(src.Pix, got.Pix), "pixel data must survive the round trip")
		})
	}
}

func TestDecodePPM_Comments(t *testing.T) {
	raw := "P6\n# written by lvdumpimg\n2 1\n# max\n255\n" + string([]byte{1, 2, 3, 4, 5, 6})
	f, err := DecodePPM(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, Shape{Height: 1, Width: 2, Channels: 3}, f.Shape())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, f.Pix)
}

func TestDecodePPM_RasterStartingWithWhitespaceByte(t *testing.T) {
	// First pixel byte is '\n'; only one whitespace byte may follow maxval.
	raw := "P5 2 1 255\n" + string([]byte{'\n', 9})
	f, err := DecodePPM(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []byte{'\n', 9}, f.Pix)
}

func TestDecodePPM_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"ascii variant", "P3\n1 1\n255\n0 0 0\n"},
		{"sixteen bit", "P6\n1 1\n65535\n" + strings.Repeat("\x00", 6)},
		{"truncated raster", "P6\n2 2\n255\n\x00\x00\x00"},
		{"bad width", "P6\nx 2\n255\n"},
		{"empty", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePPM(strings.NewReader(tc.raw))
			assert.Error(t, err)
		})
	}

	_, err := DecodePPM(strings.NewReader("P3\n1 1\n255\n"))
	assert.True(t, errors.Is(err, ErrUnsupportedPNM))
}

func TestDecodePPM_HugeHeaderDoesNotAllocate(t *testing.T) {
	for _, raw := range []string{
		"P6\n2305843009213693952 1 255\n\x00\x00\x00",
		"P6\n40000 2 255\n",
		"P5\n20000 20000 255\n",
	} {
		_, err := DecodePPM(strings.NewReader(raw))
		assert.ErrorIs(t, err, ErrTooLarge, raw)

		_, err = DecodePPMShape(strings.NewReader(raw))
		assert.ErrorIs(t, err, ErrTooLarge, raw)
	}
}

func TestDecodePPMShape_ReadsHeaderOnly(t *testing.T) {
	s, err := DecodePPMShape(strings.NewReader("P6\n# dump\n640 360\n255\n"))
	require.NoError(t, err)
	assert.Equal(t, Shape{Height: 360, Width: 640, Channels: 3}, s)
}

func TestEncodePPM_RejectsBadBuffers(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodePPM(&buf, Frame{Rows: 1, Cols: 1, Channels: 4, Pix: make([]byte, 4)}))
	assert.Error(t, EncodePPM(&buf, Frame{Rows: 2, Cols: 2, Channels: 3, Pix: make([]byte, 3)}))
}

func TestJPEGRoundTripKeepsShape(t *testing.T) {
	s := Shape{Height: 48, Width: 64, Channels: 3}
	src := New(s)
	for i := range src.Pix {
		src.Pix[i] = 128
	}

	data, err := EncodeJPEG(src, 95)
	require.NoError(t, err)

	got, err := DecodeJPEG(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, s, got.Shape())

	// Flat gray compresses almost losslessly.
	for _, b := range got.Pix {
		if b < 120 || b > 136 {
			t.Fatalf("unexpected pixel value %d after jpeg round trip", b)
		}
	}
}

func TestRegistryLoad(t *testing.T) {
	dir := t.TempDir()
	src := gradient(Shape{Height: 3, Width: 4, Channels: 3})

	path := filepath.Join(dir, "frame.PPM")
	var buf bytes.Buffer
	require.NoError(t, EncodePPM(&buf, src))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	r := NewRegistry()
	got, err := r.Load(path)
	require.NoError(t, err)
	assert.True(t, src.Equal(got))

	_, err = r.Load(filepath.Join(dir, "frame.bmp"))
	assert.Error(t, err)
}

func TestRegistryProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.ppm")
	require.NoError(t, os.WriteFile(path, []byte("P6\n640 360\n255\n"), 0644))

	r := NewRegistry()
	s, ok, err := r.Probe(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Shape{Height: 360, Width: 640, Channels: 3}, s)

	_, ok, err = r.Probe(filepath.Join(dir, "frame.bmp"))
	assert.NoError(t, err)
	assert.False(t, ok, "unknown extensions are left to Load")

	data, err := EncodeJPEG(New(Shape{Height: 8, Width: 16, Channels: 3}), 90)
	require.NoError(t, err)
	jpgPath := filepath.Join(dir, "frame.jpg")
	require.NoError(t, os.WriteFile(jpgPath, data, 0644))
	s, ok, err = r.Probe(jpgPath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Shape{Height: 8, Width: 16, Channels: 3}, s)
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, ".ppm", NormalizeExt("ppm"))
	assert.Equal(t, ".jpg", NormalizeExt(" .JPG "))
	assert.Equal(t, "", NormalizeExt(""))
}
