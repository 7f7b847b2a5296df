// Package video turns a directory of captured stills into a video file.
package video

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Defaults match what chdkptp remote-shoot sessions are usually assembled with.
const (
	DefaultExt    = ".ppm"
	DefaultOutput = "output_video.avi"
	DefaultFPS    = 20
	DefaultCodec  = "XVID"
)

// ErrNoImages is returned when the source directory holds no matching files.
var ErrNoImages = errors.New("video: no images found")

// Options configures Assemble.
type Options struct {
	Dir         string
	Ext         string
	Output      string
	FPS         float64
	Codec       string // FourCC
	KeepSources bool
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Ext == "" {
		o.Ext = DefaultExt
	}
	if !strings.HasPrefix(o.Ext, ".") {
		o.Ext = "." + o.Ext
	}
	if o.Output == "" {
		o.Output = DefaultOutput
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Codec == "" {
		o.Codec = DefaultCodec
	}
	return o
}

// Result summarises an Assemble run.
type Result struct {
	Output  string `json:"output"`
	Written int    `json:"written"`
	Skipped int    `json:"skipped"` // Unreadable or wrong-size images
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// ListImages returns the files in dir with extension ext (case-insensitive),
// sorted by name.
func ListImages(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("video: read %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
