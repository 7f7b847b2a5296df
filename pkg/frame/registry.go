package frame

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Decoder turns an artifact on disk into a Frame.
type Decoder interface {
	Decode(r io.Reader) (Frame, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.Reader) (Frame, error)

// Decode calls fn(r).
func (fn DecoderFunc) Decode(r io.Reader) (Frame, error) {
	return fn(r)
}

// ShapeProber is implemented by decoders that can read an artifact's
// shape from its header without decoding the pixels.
type ShapeProber interface {
	ProbeShape(r io.Reader) (Shape, error)
}

// codec pairs a decoder with its header reader.
type codec struct {
	decode func(io.Reader) (Frame, error)
	probe  func(io.Reader) (Shape, error)
}

func (c codec) Decode(r io.Reader) (Frame, error) { return c.decode(r) }
func (c codec) ProbeShape(r io.Reader) (Shape, error) { return c.probe(r) }

// Registry maps lower-case file extensions (with the dot) to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry returns a registry preloaded with the PPM/PGM and JPEG codecs.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	ppm := codec{decode: DecodePPM, probe: DecodePPMShape}
	jpg := codec{decode: DecodeJPEG, probe: DecodeJPEGShape}
	r.Register(".ppm", ppm)
	r.Register(".pgm", ppm)
	r.Register(".jpg", jpg)
	r.Register(".jpeg", jpg)
	return r
}

// Register installs (or replaces) the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[NormalizeExt(ext)] = d
}

// Lookup returns the decoder for ext.
func (r *Registry) Lookup(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[NormalizeExt(ext)]
	return d, ok
}

// Load decodes the file at path using the decoder for its extension.
func (r *Registry) Load(path string) (Frame, error) {
	ext := filepath.Ext(path)
	d, ok := r.Lookup(ext)
	if !ok {
		return Frame{}, fmt.Errorf("frame: no decoder for %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return Frame{}, err
	}
	defer f.Close()

	return d.Decode(f)
}

// Probe reads the shape of the file at path from its header. ok is false
// when the decoder for its extension cannot probe.
func (r *Registry) Probe(path string) (s Shape, ok bool, err error) {
	d, found := r.Lookup(filepath.Ext(path))
	if !found {
		return Shape{}, false, nil
	}
	p, canProbe := d.(ShapeProber)
	if !canProbe {
		return Shape{}, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Shape{}, true, err
	}
	defer f.Close()

	s, err = p.ProbeShape(f)
	return s, true, err
}

// NormalizeExt lower-cases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
