package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// File lookup and environment settings.
const (
	FileName  = "chdkcam" // chdkcam.yaml in the working directory
	EnvPrefix = "CHDKCAM"
)

// ValidationError lists every invalid setting.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config: " + strings.Join(e.Problems, "; ")
}

// Setup points v at the config file (file, or chdkcam.yaml in the working
// directory) and the CHDKCAM_ environment. A missing default file is not
// an error; a missing explicit file is.
func Setup(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// chdkptp's own scripts use CHDKPTP_PATH; accept it as a fallback.
	if err := v.BindEnv("chdkptp.path", EnvPrefix+"_CHDKPTP_PATH", "CHDKPTP_PATH"); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// SetDefaults registers every field of cfg as a viper default so that
// environment variables can override keys the file does not mention.
func SetDefaults(v *viper.Viper, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("config: decode defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Load resolves the effective configuration. The preset (from flag, env
// or file) supplies the defaults; everything else layers on top.
func Load(v *viper.Viper) (Config, error) {
	base := Default()
	if name := v.GetString("preset"); name != "" {
		p := GetPreset(name)
		if p == nil {
			return Config{}, fmt.Errorf("config: unknown preset %q (have %s)", name, strings.Join(PresetNames(), ", "))
		}
		base = *p
	}
	if err := SetDefaults(v, base); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return cfg, &ValidationError{Problems: problems}
	}
	return cfg, nil
}

// Dump writes cfg as YAML.
func Dump(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
