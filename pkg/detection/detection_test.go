package detection

import (
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/session"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name    string
		det     Detection
		expectX float64
		expectY float64
	}{
		{
			name:    "center of image",
			det:     Detection{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			expectX: 0.5,
			expectY: 0.5,
		},
		{
			name:    "top left corner",
			det:     Detection{X: 0, Y: 0, W: 0.2, H: 0.2},
			expectX: 0.1,
			expectY: 0.1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.expectX {
				t.Errorf("Center X: got %.2f, want %.2f", x, tc.expectX)
			}
			if y != tc.expectY {
				t.Errorf("Center Y: got %.2f, want %.2f", y, tc.expectY)
			}
		})
	}
}

func TestDetection_Area(t *testing.T) {
	d := Detection{X: 0, Y: 0, W: 0.1, H: 0.2}
	diff := d.Area() - 0.02
	if diff < -0.0001 || diff > 0.0001 {
		t.Errorf("Area: got %.4f, want 0.02", d.Area())
	}
}

func TestDetection_Pixels(t *testing.T) {
	tests := []struct {
		name           string
		det            Detection
		x0, y0, x1, y1 int
	}{
		{"inside", Detection{X: 0.25, Y: 0.5, W: 0.5, H: 0.25}, 160, 180, 480, 270},
		{"clamped", Detection{X: -0.1, Y: 0.9, W: 0.5, H: 0.5}, 0, 324, 256, 359},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x0, y0, x1, y1 := tc.det.Pixels(640, 360)
			if x0 != tc.x0 || y0 != tc.y0 || x1 != tc.x1 || y1 != tc.y1 {
				t.Errorf("Pixels: got (%d,%d,%d,%d), want (%d,%d,%d,%d)",
					x0, y0, x1, y1, tc.x0, tc.y0, tc.x1, tc.y1)
			}
		})
	}
}

func TestDetection_Centered(t *testing.T) {
	if !(Detection{X: 0.4, Y: 0.4, W: 0.2, H: 0.2}).Centered(0.2) {
		t.Error("Expected middle box to be centered")
	}
	if (Detection{X: 0, Y: 0.4, W: 0.2, H: 0.2}).Centered(0.2) {
		t.Error("Expected edge box not to be centered")
	}
}

func TestProminent(t *testing.T) {
	if _, ok := Prominent(nil); ok {
		t.Error("Expected no hand for empty list")
	}

	dets := []Detection{
		{X: 0.0, Y: 0.0, W: 0.4, H: 0.4, Confidence: 0.5},  // Larger but low conf
		{X: 0.3, Y: 0.3, W: 0.2, H: 0.2, Confidence: 0.95}, // Smaller but high conf
	}
	if best, _ := Prominent(dets); best != dets[1] {
		t.Errorf("Expected high confidence detection to win, got %+v", best)
	}

	same := []Detection{
		{X: 0.0, Y: 0.0, W: 0.5, H: 0.5, Confidence: 0.8},
		{X: 0.3, Y: 0.3, W: 0.1, H: 0.1, Confidence: 0.8},
	}
	if best, _ := Prominent(same); best != same[0] {
		t.Errorf("Expected larger detection to win, got %+v", best)
	}

	if best, ok := Prominent(same[1:]); !ok || best != same[1] {
		t.Errorf("Expected single detection, got %+v", best)
	}
}

// stubAnnotator returns a fixed result.
type stubAnnotator struct {
	dets []Detection
	err  error
}

func (s stubAnnotator) Annotate(*frame.Frame) ([]Detection, error) {
	return s.dets, s.err
}

type recordingCommander struct {
	sent []string
	err  error
}

func (r *recordingCommander) Send(cmd string) error {
	r.sent = append(r.sent, cmd)
	return r.err
}

func TestZoomOnHand(t *testing.T) {
	hand := []Detection{{X: 0.4, Y: 0.4, W: 0.1, H: 0.1, Confidence: 0.9}}
	f := frame.New(frame.Shape{Height: 2, Width: 2, Channels: 3})

	t.Run("no hands no zoom", func(t *testing.T) {
		cmd := &recordingCommander{}
		z := NewZoomOnHand(stubAnnotator{}, cmd, 10, 0, log.Discard())
		if _, err := z.Annotate(&f); err != nil {
			t.Fatalf("Annotate: %v", err)
		}
		if len(cmd.sent) != 0 {
			t.Errorf("Expected no commands, got %v", cmd.sent)
		}
	})

	t.Run("hand zooms every frame", func(t *testing.T) {
		cmd := &recordingCommander{}
		z := NewZoomOnHand(stubAnnotator{dets: hand}, cmd, 10, 0, log.Discard())
		z.Annotate(&f)
		z.Annotate(&f)
		if len(cmd.sent) != 2 || cmd.sent[0] != ".set_zoom_rel(10)" {
			t.Errorf("Expected two zoom nudges, got %v", cmd.sent)
		}
	})

	t.Run("off-center hand does not zoom", func(t *testing.T) {
		cmd := &recordingCommander{}
		edge := []Detection{{X: 0.9, Y: 0.4, W: 0.1, H: 0.1, Confidence: 0.9}}
		z := NewZoomOnHand(stubAnnotator{dets: edge}, cmd, 10, 0, log.Discard())
		dets, err := z.Annotate(&f)
		if err != nil || len(dets) != 1 {
			t.Fatalf("Expected detections passed through, got %v, %v", dets, err)
		}
		if len(cmd.sent) != 0 {
			t.Errorf("Expected no zoom for edge hand, got %v", cmd.sent)
		}
	})

	t.Run("prominent hand decides", func(t *testing.T) {
		cmd := &recordingCommander{}
		two := []Detection{
			{X: 0.0, Y: 0.0, W: 0.1, H: 0.1, Confidence: 0.3},
			{X: 0.4, Y: 0.4, W: 0.2, H: 0.2, Confidence: 0.9},
		}
		z := NewZoomOnHand(stubAnnotator{dets: two}, cmd, 5, 0, log.Discard())
		z.Annotate(&f)
		if len(cmd.sent) != 1 || cmd.sent[0] != ".set_zoom_rel(5)" {
			t.Errorf("Expected one zoom nudge, got %v", cmd.sent)
		}
	})

	t.Run("cooldown", func(t *testing.T) {
		cmd := &recordingCommander{}
		z := NewZoomOnHand(stubAnnotator{dets: hand}, cmd, 10, time.Second, log.Discard())
		now := time.Unix(1000, 0)
		z.now = func() time.Time { return now }

		z.Annotate(&f)
		now = now.Add(500 * time.Millisecond)
		z.Annotate(&f)
		now = now.Add(600 * time.Millisecond)
		z.Annotate(&f)

		if len(cmd.sent) != 2 {
			t.Errorf("Expected 2 nudges with cooldown, got %d", len(cmd.sent))
		}
	})

	t.Run("send failure is not an annotation error", func(t *testing.T) {
		cmd := &recordingCommander{err: session.ErrSessionClosed}
		z := NewZoomOnHand(stubAnnotator{dets: hand}, cmd, 10, 0, log.Discard())
		dets, err := z.Annotate(&f)
		if err != nil || len(dets) != 1 {
			t.Errorf("Expected detections and no error, got %v, %v", dets, err)
		}
	})

	t.Run("inner error passes through", func(t *testing.T) {
		cmd := &recordingCommander{}
		boom := errors.New("boom")
		z := NewZoomOnHand(stubAnnotator{err: boom}, cmd, 10, 0, log.Discard())
		if _, err := z.Annotate(&f); !errors.Is(err, boom) {
			t.Errorf("Expected inner error, got %v", err)
		}
	})
}
