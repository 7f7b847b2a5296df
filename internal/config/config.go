// Package config holds the chdkcam run configuration: defaults, presets,
// validation and loading through viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/go-chdk/pkg/acquire"
	"github.com/teslashibe/go-chdk/pkg/capture"
	"github.com/teslashibe/go-chdk/pkg/chdk"
	"github.com/teslashibe/go-chdk/pkg/detection"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/session"
)

// Capture modes.
const (
	// ModeLiveView triggers one viewport dump per iteration.
	ModeLiveView = "liveview"
	// ModeRemoteShoot starts continuous shooting once; chdkptp keeps
	// downloading stills on its own.
	ModeRemoteShoot = "remoteshoot"
)

// Config is the complete run configuration.
type Config struct {
	Preset  string        `mapstructure:"preset" yaml:"preset,omitempty"`
	Chdkptp ChdkptpConfig `mapstructure:"chdkptp" yaml:"chdkptp"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Hands   HandsConfig   `mapstructure:"hands" yaml:"hands"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Video   VideoConfig   `mapstructure:"video" yaml:"video"`
}

// ChdkptpConfig describes the external process and its startup protocol.
type ChdkptpConfig struct {
	Path         string        `mapstructure:"path" yaml:"path"`
	Args         []string      `mapstructure:"args" yaml:"args"`
	StartupDelay time.Duration `mapstructure:"startup_delay" yaml:"startup_delay"`
	RecycleDelay time.Duration `mapstructure:"recycle_delay" yaml:"recycle_delay"`
	LCDOff       bool          `mapstructure:"lcd_off" yaml:"lcd_off"`
}

// CaptureConfig drives acquisition and the loop.
type CaptureConfig struct {
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	Dir          string        `mapstructure:"dir" yaml:"dir"`
	Extension    string        `mapstructure:"extension" yaml:"extension"`
	Filename     string        `mapstructure:"filename" yaml:"filename"` // liveview dump target
	Width        int           `mapstructure:"width" yaml:"width"`
	Height       int           `mapstructure:"height" yaml:"height"`
	Channels     int           `mapstructure:"channels" yaml:"channels"`
	FPS          int           `mapstructure:"fps" yaml:"fps"`     // lvdumpimg -fps, 0 omits
	Shots        int           `mapstructure:"shots" yaml:"shots"` // remoteshoot -cont
	TriggerDelay time.Duration `mapstructure:"trigger_delay" yaml:"trigger_delay"`
	RecycleEvery int           `mapstructure:"recycle_every" yaml:"recycle_every"`
	DiscardOlder bool          `mapstructure:"discard_older" yaml:"discard_older"`
	Decoder      string        `mapstructure:"decoder" yaml:"decoder"` // native or opencv
}

// HandsConfig enables the palm detector. An empty Model disables it.
type HandsConfig struct {
	Model        string        `mapstructure:"model" yaml:"model"`
	Confidence   float64       `mapstructure:"confidence" yaml:"confidence"`
	NMS          float64       `mapstructure:"nms" yaml:"nms"`
	InputSize    int           `mapstructure:"input_size" yaml:"input_size"`
	ZoomStep     int           `mapstructure:"zoom_step" yaml:"zoom_step"` // 0 disables zoom nudges
	ZoomCooldown time.Duration `mapstructure:"zoom_cooldown" yaml:"zoom_cooldown"`
}

// DisplayConfig selects where frames go.
type DisplayConfig struct {
	Window      bool          `mapstructure:"window" yaml:"window"`
	Title       string        `mapstructure:"title" yaml:"title"`
	WaitMs      int           `mapstructure:"wait_ms" yaml:"wait_ms"`
	QuitKey     string        `mapstructure:"quit_key" yaml:"quit_key"`
	Web         string        `mapstructure:"web" yaml:"web"` // listen address, empty disables
	WebFPS      float64       `mapstructure:"web_fps" yaml:"web_fps"`
	JPEGQuality int           `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"` // headless pacing
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Frames bool   `mapstructure:"frames" yaml:"frames"` // per-frame debug output
}

// VideoConfig configures the image-sequence converter.
type VideoConfig struct {
	Ext         string  `mapstructure:"ext" yaml:"ext"`
	Output      string  `mapstructure:"output" yaml:"output"`
	FPS         float64 `mapstructure:"fps" yaml:"fps"`
	Codec       string  `mapstructure:"codec" yaml:"codec"`
	KeepSources bool    `mapstructure:"keep_sources" yaml:"keep_sources"`
}

// Default returns the live-view configuration at 640x360.
func Default() Config {
	det := detection.DefaultConfig()
	return Config{
		Preset: PresetLiveView360,
		Chdkptp: ChdkptpConfig{
			Path:         chdk.DefaultExecutable,
			Args:         chdk.DefaultArgs(),
			StartupDelay: session.DefaultStartupDelay,
			RecycleDelay: 0,
			LCDOff:       true,
		},
		Capture: CaptureConfig{
			Mode:         ModeLiveView,
			Dir:          ".",
			Extension:    ".ppm",
			Filename:     "frame.ppm",
			Width:        640,
			Height:       360,
			Channels:     3,
			TriggerDelay: 0,
			RecycleEvery: capture.DefaultRecycleEvery,
			Decoder:      DecoderNative,
		},
		Hands: HandsConfig{
			Model:        "",
			Confidence:   det.ConfidenceThresh,
			NMS:          det.NMSThresh,
			InputSize:    det.InputWidth,
			ZoomStep:     0,
			ZoomCooldown: 2 * time.Second,
		},
		Display: DisplayConfig{
			Window:      true,
			Title:       "chdkcam",
			WaitMs:      10,
			QuitKey:     "q",
			Web:         "",
			WebFPS:      10,
			JPEGQuality: 80,
			Interval:    50 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
		Video: VideoConfig{
			Ext:    ".ppm",
			Output: "output_video.avi",
			FPS:    20,
			Codec:  "XVID",
		},
	}
}

// Artifact decoders.
const (
	DecoderNative = "native" // pure Go PPM and JPEG
	DecoderOpenCV = "opencv" // anything imread understands
)

var (
	validModes    = map[string]bool{ModeLiveView: true, ModeRemoteShoot: true}
	validDecoders = map[string]bool{DecoderNative: true, DecoderOpenCV: true}
	grayExts      = map[string]bool{".ppm": true, ".pgm": true}
)

// Validate checks the values are usable. It returns a list of problems,
// or nil if the config is valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Chdkptp.Path == "" {
		errs = append(errs, "chdkptp.path is required")
	}
	if c.Chdkptp.StartupDelay < 0 || c.Chdkptp.RecycleDelay < 0 {
		errs = append(errs, "chdkptp delays must not be negative")
	}

	if !validModes[c.Capture.Mode] {
		errs = append(errs, "capture.mode must be liveview or remoteshoot")
	}
	if c.Capture.Dir == "" {
		errs = append(errs, "capture.dir is required")
	}
	if c.Capture.Extension == "" {
		errs = append(errs, "capture.extension is required")
	}
	if c.Capture.Mode == ModeLiveView && c.Capture.Filename == "" {
		errs = append(errs, "capture.filename is required in liveview mode")
	}
	if c.Capture.Filename != "" && !strings.EqualFold(filepath.Ext(c.Capture.Filename), frame.NormalizeExt(c.Capture.Extension)) {
		errs = append(errs, "capture.filename must have the capture extension")
	}
	if !c.Shape().Valid() {
		errs = append(errs, "capture width, height and channels must be positive")
	}
	if c.Capture.Channels != 1 && c.Capture.Channels != 3 {
		errs = append(errs, "capture.channels must be 1 or 3")
	}
	if c.Capture.FPS < 0 {
		errs = append(errs, "capture.fps must not be negative")
	}
	if c.Capture.Mode == ModeRemoteShoot && c.Capture.Shots < 1 {
		errs = append(errs, "capture.shots must be at least 1 in remoteshoot mode")
	}
	if !validDecoders[c.Capture.Decoder] {
		errs = append(errs, "capture.decoder must be native or opencv")
	}
	if c.Capture.Channels == 1 {
		// Only the native netpbm decoder yields gray frames; imread and
		// JPEG always produce BGR, and the hand model wants 3 channels.
		switch {
		case c.Capture.Decoder == DecoderOpenCV:
			errs = append(errs, "capture.channels 1 requires the native decoder")
		case !grayExts[frame.NormalizeExt(c.Capture.Extension)]:
			errs = append(errs, "capture.channels 1 requires a .ppm or .pgm extension")
		}
		if c.Hands.Model != "" {
			errs = append(errs, "hands.model requires capture.channels 3")
		}
	}
	if c.Capture.TriggerDelay < 0 {
		errs = append(errs, "capture.trigger_delay must not be negative")
	}

	if c.Hands.Model != "" {
		if c.Hands.Confidence <= 0 || c.Hands.Confidence > 1 {
			errs = append(errs, "hands.confidence must be in (0, 1]")
		}
		if c.Hands.NMS <= 0 || c.Hands.NMS > 1 {
			errs = append(errs, "hands.nms must be in (0, 1]")
		}
		if c.Hands.InputSize < 32 {
			errs = append(errs, "hands.input_size must be at least 32")
		}
	}

	if c.Display.JPEGQuality < 1 || c.Display.JPEGQuality > 100 {
		errs = append(errs, "display.jpeg_quality must be between 1 and 100")
	}
	if c.Display.Window && len([]rune(c.Display.QuitKey)) != 1 {
		errs = append(errs, "display.quit_key must be a single character")
	}
	if c.Display.Web != "" && c.Display.WebFPS <= 0 {
		errs = append(errs, "display.web_fps must be positive")
	}
	if !c.Display.Window && c.Display.Interval <= 0 {
		errs = append(errs, "display.interval must be positive without a window")
	}

	if c.Video.FPS <= 0 {
		errs = append(errs, "video.fps must be positive")
	}
	if len(c.Video.Codec) != 4 {
		errs = append(errs, "video.codec must be a four-character code")
	}

	return errs
}

// Shape is the frame shape every acquired frame must have.
func (c *Config) Shape() frame.Shape {
	return frame.Shape{Height: c.Capture.Height, Width: c.Capture.Width, Channels: c.Capture.Channels}
}

// TriggerCommand is sent before each acquisition poll.
func (c *Config) TriggerCommand() string {
	if c.Capture.Mode == ModeRemoteShoot {
		return ""
	}
	return chdk.LiveViewDump(c.Capture.Filename, c.Capture.FPS)
}

// StartupCommands is the startup protocol for the first launch.
func (c *Config) StartupCommands() []string {
	cmds := chdk.StartupSequence(c.Chdkptp.LCDOff)
	if c.Capture.Mode == ModeRemoteShoot {
		cmds = append(cmds, chdk.RemoteShoot(c.Capture.Shots))
	}
	return cmds
}

// RecycleCommands are re-issued after each session restart.
func (c *Config) RecycleCommands() []string {
	cmds := chdk.RecycleSequence()
	if c.Capture.Mode == ModeRemoteShoot {
		cmds = append(cmds, chdk.RemoteShoot(c.Capture.Shots))
	}
	return cmds
}

// Acquire builds the acquirer configuration.
func (c *Config) Acquire() acquire.Config {
	cfg := acquire.Config{
		Dir:            c.Capture.Dir,
		Extension:      c.Capture.Extension,
		Shape:          c.Shape(),
		TriggerCommand: c.TriggerCommand(),
		TriggerDelay:   c.Capture.TriggerDelay,
		DiscardOlder:   c.Capture.DiscardOlder,
	}
	if c.Capture.Mode == ModeLiveView {
		cfg.Filename = c.Capture.Filename
	}
	return cfg
}

// Detection builds the palm detector configuration.
func (c *Config) Detection() detection.Config {
	return detection.Config{
		ModelPath:        c.Hands.Model,
		ConfidenceThresh: c.Hands.Confidence,
		NMSThresh:        c.Hands.NMS,
		InputWidth:       c.Hands.InputSize,
		InputHeight:      c.Hands.InputSize,
	}
}

// Launch resolves the chdkptp launch. The process runs inside the capture
// directory because it writes dumps relative to its working directory, so
// a relative executable path is made absolute first.
func (c *Config) Launch() (session.Launch, error) {
	path := c.Chdkptp.Path
	if strings.ContainsRune(path, filepath.Separator) || strings.ContainsRune(path, '/') {
		abs, err := filepath.Abs(path)
		if err != nil {
			return session.Launch{}, fmt.Errorf("config: resolve %s: %w", path, err)
		}
		path = abs
	}
	dir, err := filepath.Abs(c.Capture.Dir)
	if err != nil {
		return session.Launch{}, fmt.Errorf("config: resolve %s: %w", c.Capture.Dir, err)
	}
	return session.Launch{Path: path, Args: c.Chdkptp.Args, Dir: dir}, nil
}

// Delays builds the session delay policy.
func (c *Config) Delays() session.DelayPolicy {
	p := session.DefaultDelayPolicy()
	p.Startup = c.Chdkptp.StartupDelay
	p.Recycle = c.Chdkptp.RecycleDelay
	return p
}
