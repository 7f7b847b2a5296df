// Package palm runs a YOLO-style ONNX hand model through OpenCV's DNN
// module and draws the boxes it finds.
package palm

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/teslashibe/go-chdk/pkg/debug"
	"github.com/teslashibe/go-chdk/pkg/detection"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/frame/cv"
	"gocv.io/x/gocv"
)

var boxColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Detector finds hands with a YOLOv8-style network whose output is
// [1, 4+classes, anchors]. Every class is treated as "hand".
type Detector struct {
	net       gocv.Net
	config    detection.Config
	mu        sync.Mutex // Protects inference
	inputSize image.Point
}

// New loads the ONNX model.
func New(cfg detection.Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load hand model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Annotate finds hands and draws their boxes onto f.
func (d *Detector) Annotate(f *frame.Frame) ([]detection.Detection, error) {
	img, err := cv.ToMat(*f)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	dets, err := d.detectMat(img)
	if err != nil || len(dets) == 0 {
		return dets, err
	}

	for _, det := range dets {
		x0, y0, x1, y1 := det.Pixels(f.Cols, f.Rows)
		gocv.Rectangle(&img, image.Rect(x0, y0, x1, y1), boxColor, 2)
	}

	drawn, err := cv.FromMat(img)
	if err != nil {
		return dets, err
	}
	*f = drawn
	return dets, nil
}

func (d *Detector) detectMat(img gocv.Mat) ([]detection.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	dets := d.parse(output, imgW, imgH)
	if len(dets) > 0 {
		debug.Log("✋ found %d hand(s)\n", len(dets))
	}
	return dets, nil
}

// parse decodes the [1, 4+classes, anchors] output tensor.
func (d *Detector) parse(output gocv.Mat, imgW, imgH float32) []detection.Detection {
	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] < 5 {
		return nil
	}
	cols := sizes[1] // 4 bbox + classes
	rows := sizes[2] // anchors

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	var boxes []image.Rectangle
	var confidences []float32
	thresh := float32(d.config.ConfidenceThresh)

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		for c := 4; c < cols; c++ {
			if s := data[c*rows+i]; s > maxScore {
				maxScore = s
			}
		}
		if maxScore < thresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * imgW / float32(d.config.InputWidth))
		y1 := int((cy - h/2) * imgH / float32(d.config.InputHeight))
		x2 := int((cx + w/2) * imgW / float32(d.config.InputWidth))
		y2 := int((cy + h/2) * imgH / float32(d.config.InputHeight))

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, thresh, float32(d.config.NMSThresh))

	dets := make([]detection.Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		dets = append(dets, detection.Detection{
			X:          float64(box.Min.X) / float64(imgW),
			Y:          float64(box.Min.Y) / float64(imgH),
			W:          float64(box.Dx()) / float64(imgW),
			H:          float64(box.Dy()) / float64(imgH),
			Confidence: float64(confidences[idx]),
		})
	}
	return dets
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
