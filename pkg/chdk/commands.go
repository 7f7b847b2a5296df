// Package chdk builds the textual commands understood by an interactive
// chdkptp session. Commands are fire-and-forget: chdkptp prints whatever it
// likes on stdout and nothing here parses it.
package chdk

import (
	"fmt"
	"strings"
)

// Default chdkptp invocation.
const (
	DefaultExecutable = "./chdkptp/chdkptp.exe"
)

// DefaultArgs connects to the first camera and enters interactive mode.
func DefaultArgs() []string {
	return []string{"-c", "-i"}
}

// Rec switches the camera into recording (shooting) mode.
func Rec() string {
	return "rec"
}

// Play switches the camera back to playback mode.
func Play() string {
	return "play"
}

// SetZoom sets the absolute zoom step.
func SetZoom(step int) string {
	return fmt.Sprintf(".set_zoom(%d)", step)
}

// SetZoomRel nudges the zoom by delta steps.
func SetZoomRel(delta int) string {
	return fmt.Sprintf(".set_zoom_rel(%d)", delta)
}

// SetLCDDisplay turns the camera's rear display on (1) or off (0).
func SetLCDDisplay(on bool) string {
	if on {
		return ".set_lcd_display(1)"
	}
	return ".set_lcd_display(0)"
}

// LiveViewDump asks chdkptp to write the current viewport to file.
// fps <= 0 omits the rate flag.
func LiveViewDump(file string, fps int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "lvdumpimg -vp=%q", file)
	if fps > 0 {
		fmt.Fprintf(&b, " -fps=%d", fps)
	}
	return b.String()
}

// RemoteShoot starts continuous remote shooting. Each shot is downloaded
// into chdkptp's working directory as a jpg.
func RemoteShoot(count int) string {
	return fmt.Sprintf("remoteshoot -cont=%d", count)
}

// StartupSequence returns the commands sent once after launch to let the
// camera settle: recording mode, zoom reset, a calibration nudge out and
// back, and optionally the rear display off.
func StartupSequence(lcdOff bool) []string {
	cmds := []string{
		Rec(),
		SetZoom(0),
		SetZoomRel(20),
		SetZoomRel(-20),
	}
	if lcdOff {
		cmds = append(cmds, SetLCDDisplay(false))
	}
	return cmds
}

// RecycleSequence returns the commands re-issued after a session restart.
func RecycleSequence() []string {
	return []string{Rec()}
}
