// Package main provides the entry point for the sayboard CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fjelby/sayboard/internal/audio"
	"github.com/fjelby/sayboard/internal/queue"
	"github.com/fjelby/sayboard/internal/speech"
	"github.com/fjelby/sayboard/internal/store"
	"github.com/fjelby/sayboard/internal/synth"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	voiceFlag  string
	pitchFlag  float64
	rateFlag   float64
	langFlag   string

	rootCmd = &cobra.Command{
		Use:   "sayboard [TEXT]",
		Short: "Keep snippets in folders and speak them aloud",
		Long: "\nSayboard stores short text snippets in a folder tree and speaks them" +
			"\nthrough a cloud speech service, replaying cached audio instead of" +
			"\nsynthesizing the same request twice.",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

// appConfig is the resolved runtime configuration, read from viper after
// flags and the config file have been merged.
type appConfig struct {
	Voice             string
	Pitch             float64
	Rate              float64
	LanguageMode      string
	PrimaryLanguage   string
	SecondaryLanguage string

	Region            string
	Key               string
	SynthesisTimeout  time.Duration
	RequestsPerMinute int

	DataDir     string
	AudioRoute  string
	WarmupDelay time.Duration
}

func loadConfig() (appConfig, error) {
	cfg := appConfig{
		Voice:             viper.GetString("voice"),
		Pitch:             viper.GetFloat64("pitch"),
		Rate:              viper.GetFloat64("rate"),
		LanguageMode:      viper.GetString("language"),
		PrimaryLanguage:   viper.GetString("languages.primary"),
		SecondaryLanguage: viper.GetString("languages.secondary"),
		Region:            viper.GetString("synthesis.region"),
		Key:               viper.GetString("synthesis.key"),
		SynthesisTimeout:  viper.GetDuration("synthesis.timeout"),
		RequestsPerMinute: viper.GetInt("synthesis.requests_per_minute"),
		DataDir:           viper.GetString("data.dir"),
		AudioRoute:        viper.GetString("audio.route"),
		WarmupDelay:       viper.GetDuration("audio.warmup_delay"),
	}

	if cfg.DataDir == "" {
		scope := gap.NewScope(gap.User, "sayboard")
		dir, err := scope.DataPath("")
		if err != nil {
			return cfg, fmt.Errorf("could not resolve data directory: %w", err)
		}
		cfg.DataDir = dir
	} else {
		dir, err := homedir.Expand(cfg.DataDir)
		if err != nil {
			return cfg, fmt.Errorf("could not expand data directory: %w", err)
		}
		cfg.DataDir = dir
	}
	return cfg, nil
}

// language resolves the configured mode to a provider locale code.
func (c appConfig) language() (string, error) {
	var mode speech.Language
	switch c.LanguageMode {
	case "", "primary":
		mode = speech.LanguagePrimary
	case "secondary":
		mode = speech.LanguageSecondary
	case "multi":
		mode = speech.LanguageMulti
	default:
		return "", fmt.Errorf("unknown language mode %q (use primary, secondary or multi)", c.LanguageMode)
	}
	return mode.Resolve(c.PrimaryLanguage, c.SecondaryLanguage), nil
}

// app bundles the long-lived pieces every command needs: the database and
// the two serial executors. Persistence work goes through persist, the
// speak pipeline through speak; neither blocks the other.
type app struct {
	cfg     appConfig
	log     *log.Logger
	store   *store.Store
	persist *queue.Serial
	speak   *queue.Serial
}

func openApp(logger *log.Logger) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(filepath.Join(cfg.DataDir, "sayboard.db"), logger)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     logger,
		store:   st,
		persist: queue.NewSerial("persist", 64),
		speak:   queue.NewSerial("speak", 16),
	}, nil
}

func (a *app) close() {
	a.speak.Close()
	a.persist.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
}

func (a *app) artifactDir() string {
	return filepath.Join(a.cfg.DataDir, "audio")
}

func (a *app) synthClient() *synth.Client {
	return synth.NewClient(synth.Config{
		Region:            a.cfg.Region,
		Key:               a.cfg.Key,
		Timeout:           a.cfg.SynthesisTimeout,
		RequestsPerMinute: a.cfg.RequestsPerMinute,
	})
}

// online probes the synthesis endpoint's TLS port. The speak pipeline
// treats an unanswered probe as offline and rejects the request up front.
func (a *app) online() bool {
	host := fmt.Sprintf("%s.tts.speech.microsoft.com:443", a.cfg.Region)
	conn, err := net.DialTimeout("tcp", host, 3*time.Second)
	if err != nil {
		a.log.Debug("connectivity probe failed", "host", host, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

// configuredRoute answers the output-route query from static
// configuration. Platforms where the route cannot be inspected leave it
// empty, which disables the warm-up.
type configuredRoute string

func (r configuredRoute) Route() (audio.RouteKind, error) {
	switch r {
	case "builtin":
		return audio.RouteBuiltin, nil
	case "wired":
		return audio.RouteWired, nil
	case "wireless":
		return audio.RouteWireless, nil
	case "":
		return audio.RouteUnknown, nil
	default:
		return audio.RouteUnknown, fmt.Errorf("unknown audio route %q", r)
	}
}

// speakText runs one speak request through the pipeline and blocks until
// it has played or failed.
func (a *app) speakText(text string) error {
	language, err := a.cfg.language()
	if err != nil {
		return err
	}

	device, err := audio.NewDevice(audio.DefaultDeviceConfig())
	if err != nil {
		return fmt.Errorf("audio output unavailable: %w", err)
	}
	gate := audio.NewGate(configuredRoute(a.cfg.AudioRoute), device, a.cfg.WarmupDelay, a.log)

	orch, err := speech.NewOrchestrator(speech.Options{
		Store:            a.store,
		Provider:         a.synthClient(),
		Player:           device,
		Gate:             gate,
		Queue:            a.speak,
		ArtifactDir:      a.artifactDir(),
		Online:           a.online,
		SynthesisTimeout: a.cfg.SynthesisTimeout,
		Logger:           a.log,
	})
	if err != nil {
		return err
	}

	results, err := orch.Speak(speech.Request{
		Text:     text,
		Voice:    a.cfg.Voice,
		Pitch:    a.cfg.Pitch,
		Rate:     a.cfg.Rate,
		Language: language,
	})
	if err != nil {
		return err
	}

	res := <-results
	if res.Err != nil {
		return res.Err
	}
	if res.CacheHit {
		a.log.Debug("replayed cached audio", "path", res.AudioPath)
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	var text string
	switch {
	case len(args) == 1:
		text = args[0]
	default:
		piped, err := stdinIsPipe()
		if err != nil {
			return err
		}
		if !piped {
			return cmd.Help()
		}
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("unable to read stdin: %w", err)
		}
		text = string(b)
	}

	a, err := openApp(log.Default())
	if err != nil {
		return err
	}
	defer a.close()

	return a.speakText(text)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVar(&voiceFlag, "voice", "", "voice to synthesize with")
	rootCmd.PersistentFlags().Float64Var(&pitchFlag, "pitch", 0, "pitch offset in percent")
	rootCmd.PersistentFlags().Float64Var(&rateFlag, "rate", 1.0, "speaking rate multiplier")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "language mode: primary, secondary or multi")

	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("pitch", rootCmd.PersistentFlags().Lookup("pitch"))
	_ = viper.BindPFlag("rate", rootCmd.PersistentFlags().Lookup("rate"))
	_ = viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("lang"))

	viper.SetDefault("language", "primary")
	viper.SetDefault("languages.primary", "da-DK")
	viper.SetDefault("languages.secondary", "en-US")
	viper.SetDefault("synthesis.region", "westeurope")
	viper.SetDefault("synthesis.timeout", "30s")
	viper.SetDefault("synthesis.requests_per_minute", 60)
	viper.SetDefault("rate", 1.0)

	rootCmd.AddCommand(itemsCmd, voicesCmd, cacheCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "sayboard")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "sayboard")}, dirs...)
	}

	if c := os.Getenv("SAYBOARD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("sayboard")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("sayboard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "sayboard.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
