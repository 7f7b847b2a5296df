// Package cv converts frames to and from OpenCV matrices.
package cv

import (
	"fmt"
	"io"

	"github.com/teslashibe/go-chdk/pkg/frame"
	"gocv.io/x/gocv"
)

// ToMat copies an RGB (or gray) frame into a BGR Mat. The caller owns
// the returned Mat and must Close it.
func ToMat(f frame.Frame) (gocv.Mat, error) {
	switch f.Channels {
	case 1:
		return gocv.NewMatFromBytes(f.Rows, f.Cols, gocv.MatTypeCV8UC1, f.Pix)
	case 3:
		rgb, err := gocv.NewMatFromBytes(f.Rows, f.Cols, gocv.MatTypeCV8UC3, f.Pix)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer rgb.Close()

		bgr := gocv.NewMat()
		gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
		return bgr, nil
	default:
		return gocv.NewMat(), fmt.Errorf("cv: unsupported channel count %d", f.Channels)
	}
}

// FromMat copies a BGR (or gray) Mat into an RGB frame.
func FromMat(m gocv.Mat) (frame.Frame, error) {
	if m.Empty() {
		return frame.Frame{}, fmt.Errorf("cv: empty mat")
	}

	src := m
	if m.Channels() == 3 {
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(m, &rgb, gocv.ColorBGRToRGB)
		src = rgb
	}

	return frame.Frame{
		Rows:     src.Rows(),
		Cols:     src.Cols(),
		Channels: src.Channels(),
		Pix:      src.ToBytes(),
	}, nil
}

// Decoder decodes any format OpenCV understands, the way cv2.imread does.
type Decoder struct{}

// Decode implements frame.Decoder.
func (Decoder) Decode(r io.Reader) (frame.Frame, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return frame.Frame{}, err
	}

	m, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("decode image: %w", err)
	}
	defer m.Close()

	return FromMat(m)
}

// Install registers the OpenCV decoder for the common camera formats.
func Install(r *frame.Registry) {
	for _, ext := range []string{".ppm", ".jpg", ".jpeg", ".png"} {
		r.Register(ext, Decoder{})
	}
}
