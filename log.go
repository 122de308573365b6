package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

type loggingEnv struct {
	LogFile string `env:"SAYBOARD_LOGFILE"`
	Debug   bool   `env:"SAYBOARD_DEBUG"`
}

// setupLog configures the default logger from the environment and returns
// a closer for the log sink.
func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[loggingEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing log environment: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportTimestamp(true)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		log.SetFormatter(log.TextFormatter)
		return f.Close, nil
	}

	log.SetOutput(os.Stderr)
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetFormatter(log.LogfmtFormatter)
	}
	return func() error { return nil }, nil
}
