package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-chdk/internal/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	var presets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if presets {
				for _, name := range config.PresetNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			cfg, err := c.load()
			var verr *config.ValidationError
			if err != nil && !errors.As(err, &verr) {
				return err
			}
			if derr := config.Dump(out, cfg); derr != nil {
				return derr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&presets, "presets", false, "list preset names")
	return cmd
}
