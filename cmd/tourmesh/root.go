package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tourmesh/config"
	"github.com/hupe1980/tourmesh/logging"
)

type rootFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "tourmesh",
		Short:         "Plan trips with a tool-using travel assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory for local databases when no config file is given (default ~/.tourmesh)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		newChatCmd(flags),
		newAskCmd(flags),
		newIngestCmd(flags),
		newCalendarsCmd(flags),
	)

	return cmd
}

// load reads the config file, or the defaults rooted at the data dir.
func (f *rootFlags) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		dir := f.dataDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve data dir: %w", err)
			}
			dir = filepath.Join(home, ".tourmesh")
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}

		cfg = config.Default(dir)
	}

	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.StructuredLogger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, errors.Join(errors.New("logging.level"), err)
	}

	lc := logging.DefaultLoggerConfig()
	lc.Level = level
	lc.Format = cfg.Logging.Format
	lc.Output = os.Stderr
	lc.Component = "tourmesh"

	return logging.NewLogger(lc), nil
}
