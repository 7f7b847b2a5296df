package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/teslashibe/go-chdk/internal/log"
	"gocv.io/x/gocv"
)

// Assemble writes every image in opts.Dir into one video, in name order.
// The first readable image fixes the frame size. Each source is removed
// once written unless KeepSources is set.
func Assemble(ctx context.Context, opts Options, logger *slog.Logger) (Result, error) {
	opts = opts.withDefaults()
	logger = log.OrDefault(logger).With("component", "video")

	paths, err := ListImages(opts.Dir, opts.Ext)
	if err != nil {
		return Result{}, err
	}
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("%w in %s (*%s)", ErrNoImages, opts.Dir, opts.Ext)
	}

	res := Result{Output: opts.Output}
	var vw *gocv.VideoWriter
	defer func() {
		if vw != nil {
			vw.Close()
		}
	}()

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		img := gocv.IMRead(p, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			res.Skipped++
			logger.Warn("unreadable image skipped", "path", p)
			continue
		}

		if vw == nil {
			res.Width, res.Height = img.Cols(), img.Rows()
			vw, err = gocv.VideoWriterFile(opts.Output, opts.Codec, opts.FPS, res.Width, res.Height, true)
			if err != nil {
				img.Close()
				return res, fmt.Errorf("video: open writer %s: %w", opts.Output, err)
			}
			if !vw.IsOpened() {
				img.Close()
				return res, fmt.Errorf("video: writer %s (%s) did not open", opts.Output, opts.Codec)
			}
			logger.Info("writing video", "output", opts.Output, "codec", opts.Codec, "fps", opts.FPS,
				"width", res.Width, "height", res.Height, "images", len(paths))
		}

		if img.Cols() != res.Width || img.Rows() != res.Height {
			img.Close()
			res.Skipped++
			logger.Warn("image size differs, skipped", "path", p)
			continue
		}

		err = vw.Write(img)
		img.Close()
		if err != nil {
			return res, fmt.Errorf("video: write %s: %w", p, err)
		}
		res.Written++

		if !opts.KeepSources {
			if err := os.Remove(p); err != nil {
				logger.Warn("remove source failed", "path", p, "error", err)
			}
		}
	}

	logger.Info("video written", "output", opts.Output, "frames", res.Written, "skipped", res.Skipped)
	return res, nil
}
