package debug

import (
	"bytes"
	"testing"
)

func TestToggles(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldEnabled, oldFrames := Out, Enabled, Frames
	t.Cleanup(func() { Out, Enabled, Frames = oldOut, oldEnabled, oldFrames })
	Out = &buf

	Enabled, Frames = false, false
	Log("a %d\n", 1)
	FrameLog("b %d\n", 2)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	Enabled, Frames = true, true
	Log("a %d\n", 1)
	FrameLog("b %d\n", 2)
	if got, want := buf.String(), "a 1\nb 2\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
