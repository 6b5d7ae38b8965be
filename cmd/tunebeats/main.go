// Package main provides the tunebeats entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunebeats/tunebeats/internal/app/session"
	"github.com/tunebeats/tunebeats/internal/infra/config"
	"github.com/tunebeats/tunebeats/internal/infra/deps"
	"github.com/tunebeats/tunebeats/internal/infra/logger"
	"github.com/tunebeats/tunebeats/internal/infra/mpv"
	"github.com/tunebeats/tunebeats/internal/infra/ytdlp"
	"github.com/tunebeats/tunebeats/internal/store"
	"github.com/tunebeats/tunebeats/internal/ui"
)

var (
	app        = kingpin.New("tunebeats", "Terminal music player backed by mpv and yt-dlp")
	configPath = app.Flag("config", "Path to config file").String()
	dataDir    = app.Flag("data-dir", "Playlist storage directory (default: ~/.tunebeats)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: <data dir>/tunebeats.log)").String()

	// check command
	checkCmd = app.Command("check", "Check external dependencies and exit")
)

func init() {
	// play command (default) - no need to store the command
	app.Command("play", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Flags override config through the environment, so config.Load
	// sees one source of truth.
	if *dataDir != "" {
		os.Setenv("TUNEBEATS_DATA_DIR", *dataDir)
	}
	if *verbose {
		os.Setenv("TUNEBEATS_LOG_LEVEL", "debug")
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	checker, settings, err := dependencyChecker(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid player settings: %v\n", err)
		os.Exit(1)
	}

	// Handle check command
	if command == checkCmd.FullCommand() {
		printDeps(checker)
		return
	}

	loggerConfig := logger.Config{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}
	if *logfile != "" {
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := checker.CheckAll(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\nRun `tunebeats check` for details.\n", err)
		os.Exit(1)
	}

	if err := run(cfg, settings); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath picks the config file: the flag when given, else
// <data dir>/config.yaml once the data dir is known at load time.
func resolveConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	if dir := os.Getenv("TUNEBEATS_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".tunebeats", "config.yaml")
}

// dependencyChecker decodes the player settings so the startup check
// validates the binary that will actually be spawned, not the player
// type name.
func dependencyChecker(cfg *config.Config) (*deps.Checker, mpv.Settings, error) {
	settings, err := mpv.DecodeSettings(cfg.Player.Settings)
	if err != nil {
		return nil, settings, err
	}
	return deps.NewChecker(settings.Binary, cfg.Search.Binary), settings, nil
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, settings mpv.Settings) error {
	st, err := store.Open(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open playlist store: %w", err)
	}
	zlog.Info().Str("dir", cfg.Storage.Dir).Int("playlists", st.Len()).Msg("store opened")

	player := mpv.NewSession(settings)
	defer player.Quit()

	searcher := ytdlp.NewClient(cfg.Search.Binary, cfg.Search.MaxResults)

	term, err := ui.OpenTerminal()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer term.Close()

	mgr := session.NewManager(st, player, searcher, term, ui.NewRenderer(term), session.Config{
		Tick:        cfg.Tick(),
		GracePeriod: cfg.GracePeriod(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Info().Msg("session starting")
	err = mgr.Run(ctx)
	zlog.Info().Msg("session ended")
	return err
}

// printDeps prints the availability of each external tool.
func printDeps(c *deps.Checker) {
	missing := c.Missing()
	if len(missing) == 0 {
		fmt.Println("All dependencies found.")
		return
	}
	for _, name := range missing {
		fmt.Printf("missing: %s (not found in PATH)\n", name)
	}
	os.Exit(1)
}
