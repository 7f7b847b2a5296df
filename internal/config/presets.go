package config

import (
	"sort"
	"time"
)

// Preset names.
const (
	PresetLiveView360     = "liveview-360p"
	PresetLiveView480     = "liveview-480p"
	PresetRemoteShoot1080 = "remoteshoot-1080p"
	PresetHeadless        = "headless"
)

// Presets returns all preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetLiveView360:     Default(),
		PresetLiveView480:     LiveView480Config(),
		PresetRemoteShoot1080: RemoteShoot1080Config(),
		PresetHeadless:        HeadlessConfig(),
	}
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, 4)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset by name, or nil if there is none.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LiveView480Config dumps the viewport of cameras with a 4:3 live view.
func LiveView480Config() Config {
	cfg := Default()
	cfg.Preset = PresetLiveView480
	cfg.Capture.Width = 720
	cfg.Capture.Height = 480
	return cfg
}

// RemoteShoot1080Config shoots full stills continuously and picks up the
// newest jpg. Each still takes a while to download, so the loop polls
// with a short wait and drops any backlog.
func RemoteShoot1080Config() Config {
	cfg := Default()
	cfg.Preset = PresetRemoteShoot1080
	cfg.Capture.Mode = ModeRemoteShoot
	cfg.Capture.Extension = ".jpg"
	cfg.Capture.Filename = ""
	cfg.Capture.Width = 1920
	cfg.Capture.Height = 1080
	cfg.Capture.Shots = 10000
	cfg.Capture.TriggerDelay = 200 * time.Millisecond
	cfg.Capture.DiscardOlder = true
	cfg.Capture.RecycleEvery = 500
	cfg.Video.Ext = ".jpg"
	return cfg
}

// HeadlessConfig runs without a window and serves the web preview.
func HeadlessConfig() Config {
	cfg := Default()
	cfg.Preset = PresetHeadless
	cfg.Display.Window = false
	cfg.Display.Web = ":8090"
	cfg.Display.Interval = 50 * time.Millisecond
	return cfg
}
