package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/app"
)

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start chdkptp and run the capture loop",
		Long: `Launches chdkptp, runs the startup sequence, then acquires frames until
interrupted or the quit key is pressed in the preview window. The chdkptp
session is restarted every --recycle iterations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(cfg, log.L())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Shutdown(); err != nil {
					log.L().Warn("shutdown", "error", err)
				}
			}()

			if err := a.Init(ctx); err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.String("chdkptp", "", "path to the chdkptp executable")
	f.String("mode", "", "capture mode: liveview or remoteshoot")
	f.String("dir", "", "directory chdkptp writes frames into")
	f.String("ext", "", "frame file extension")
	f.Int("width", 0, "expected frame width")
	f.Int("height", 0, "expected frame height")
	f.Int("recycle", 0, "restart chdkptp every N iterations (<= 0 disables)")
	f.Duration("startup-delay", 0, "pause after each startup command")
	f.Duration("trigger-delay", 0, "pause between trigger and poll")
	f.String("hands", "", "ONNX hand detection model")
	f.Int("zoom-step", 0, "zoom nudge when a hand is seen")
	f.Bool("window", true, "show an OpenCV preview window")
	f.String("web", "", "serve the web preview on this address, e.g. :8090")
	f.String("decoder", "", "frame decoder: native or opencv")
	f.Bool("debug-frames", false, "log every loop iteration")

	bind := map[string]string{
		"chdkptp":       "chdkptp.path",
		"mode":          "capture.mode",
		"dir":           "capture.dir",
		"ext":           "capture.extension",
		"width":         "capture.width",
		"height":        "capture.height",
		"recycle":       "capture.recycle_every",
		"startup-delay": "chdkptp.startup_delay",
		"trigger-delay": "capture.trigger_delay",
		"hands":         "hands.model",
		"zoom-step":     "hands.zoom_step",
		"window":        "display.window",
		"web":           "display.web",
		"decoder":       "capture.decoder",
		"debug-frames":  "log.frames",
	}
	c.bindFlags(f, bind)

	return cmd
}
