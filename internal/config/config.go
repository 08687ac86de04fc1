// Package config loads the application configuration. Precedence,
// lowest to highest: flag defaults, yaml config file, LEITNER_*
// environment variables, explicit command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/leitner/internal/leitner"
)

// Config is the full application configuration.
type Config struct {
	Listen    string `koanf:"listen" validate:"required,hostname_port"`
	DBPath    string `koanf:"db" validate:"required"`
	ReposDir  string `koanf:"repos_dir" validate:"required"`
	Intervals []int  `koanf:"intervals" validate:"required,len=5,dive,min=1"`
}

// Flags returns the pflag set the loader understands. main parses it
// and hands it back to Load.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("leitner", pflag.ContinueOnError)
	f.String("config", "", "path to a yaml config file")
	f.String("listen", ":8080", "address the web server listens on")
	f.String("db", "leitner.db", "path to the SQLite database file")
	f.String("repos_dir", "repos", "directory for git source checkouts")
	f.IntSlice("intervals", []int{1, 2, 3, 7, 21}, "review interval table, days per box")
	f.String("add-source", "", "register a card source (path or git URL) and exit")
	f.Bool("sync", false, "reconcile all sources before serving")
	return f
}

// Load builds the configuration from the parsed flag set, the optional
// config file it names, and the environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("LEITNER_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "LEITNER_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	iv, err := cfg.IntervalTable()
	if err != nil {
		return nil, err
	}
	if err := iv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// IntervalTable converts the configured slice into the engine's table.
func (c *Config) IntervalTable() (leitner.Intervals, error) {
	var iv leitner.Intervals
	if len(c.Intervals) != leitner.Boxes {
		return iv, fmt.Errorf("invalid config: intervals must have %d entries, got %d", leitner.Boxes, len(c.Intervals))
	}
	copy(iv[:], c.Intervals)
	return iv, nil
}
