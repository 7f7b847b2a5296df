package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/teslashibe/go-chdk/internal/config"
	"github.com/teslashibe/go-chdk/internal/log"
)

// cli carries state shared by the subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "chdkcam",
		Short:         "Live preview and capture for CHDK cameras via chdkptp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal.
			_ = godotenv.Load()
			if err := config.Setup(c.v, c.cfgFile); err != nil {
				return err
			}
			log.Init(c.v.GetString("log.level"))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default ./chdkcam.yaml)")
	pf.String("preset", "", "configuration preset: "+strings.Join(config.PresetNames(), ", "))
	pf.String("log-level", "", "log level: debug, info, warn, error")

	c.bindFlags(pf, map[string]string{
		"preset":    "preset",
		"log-level": "log.level",
	})

	root.AddCommand(newRunCmd(c), newVideoCmd(c), newConfigCmd(c))
	return root
}

// bindFlags maps flag names in fs to config keys. Unset flags fall
// through to env, file and preset defaults.
func (c *cli) bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := c.v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}
}

// load resolves the effective configuration after flags are parsed.
func (c *cli) load() (config.Config, error) {
	return config.Load(c.v)
}
