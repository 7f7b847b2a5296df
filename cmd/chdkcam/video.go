package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/video"
)

func newVideoCmd(c *cli) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "video",
		Short: "Assemble captured stills into a video file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Capture.Dir
			}

			res, err := video.Assemble(cmd.Context(), video.Options{
				Dir:         dir,
				Ext:         cfg.Video.Ext,
				Output:      cfg.Video.Output,
				FPS:         cfg.Video.FPS,
				Codec:       cfg.Video.Codec,
				KeepSources: cfg.Video.KeepSources,
			}, log.L())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames (%dx%d), %d skipped\n",
				res.Output, res.Written, res.Width, res.Height, res.Skipped)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dir, "dir", "", "directory holding the images (default capture.dir)")
	f.String("ext", "", "image extension")
	f.String("out", "", "output file")
	f.Float64("fps", 0, "frames per second")
	f.String("codec", "", "FourCC codec")
	f.Bool("keep", false, "keep the source images")

	c.bindFlags(f, map[string]string{
		"ext":   "video.ext",
		"out":   "video.output",
		"fps":   "video.fps",
		"codec": "video.codec",
		"keep":  "video.keep_sources",
	})

	return cmd
}
