package config

import (
	"flag"
	"fmt"
	"strconv"
)

var (
	flagConfig  = flag.String("config", DefaultPath, "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagSeed    = flag.String("seed", "", "Random seed (overrides config)")
	flagRenders = flag.Int("renders", 0, "Renders per model (overrides config)")
	flagOutput  = flag.String("output", "", "Render directory (overrides config)")
	flagLogFile = flag.String("log-file", "", "Also log to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the config path from the --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSeed != "" {
		seed, err := strconv.ParseUint(*flagSeed, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid --seed %q: %w", *flagSeed, err)
		}
		cfg.Seed = &seed
	}
	if *flagRenders > 0 {
		cfg.RendersPerModel = *flagRenders
	}
	if *flagOutput != "" {
		cfg.RenderDirectory = *flagOutput
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	return nil
}
