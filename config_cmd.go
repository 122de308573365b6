package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# voice to synthesize with, e.g. "da-DK-JeppeNeural"
voice: ""
# pitch offset in percent
pitch: 0
# speaking rate multiplier
rate: 1.0
# language mode: primary, secondary or multi
language: "primary"

languages:
  primary: "da-DK"
  secondary: "en-US"

synthesis:
  # service region, e.g. westeurope
  region: "westeurope"
  # subscription key; can also be set via SAYBOARD_SYNTHESIS_KEY
  key: ""
  # timeout for one synthesis round trip
  timeout: "30s"
  # outgoing request throttle
  requests_per_minute: 60

audio:
  # active output route, if known: builtin, wired or wireless.
  # wireless routes get a silent warm-up burst before speech.
  route: ""
  # warm-up burst length
  warmup_delay: "150ms"

data:
  # database and audio artifacts live here (default: per-user data dir)
  dir: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the sayboard config file",
	Long:    "\nEdit the sayboard config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "sayboard config\nsayboard config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Sayboard", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
