package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/config"
	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/logging"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
	"github.com/tinytelemetry/olam/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	fs := pflag.NewFlagSet("olam-tui", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.String("skin", "", "color skin: default, light, mono or a file under ~/.config/olam/skins")
	fs.String("start-path", "", "route shown at startup, e.g. /batch")
	showVersion := fs.Bool("version", false, "print version information")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("OLAM - Dashboard Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg config.Config) error {
	configDir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := tui.InitializeSkin(cfg.Skin, configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load skin '%s': %v (using default)\n", cfg.Skin, err)
	}

	// The terminal belongs to bubbletea, so logs always go to a file.
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(filepath.Dir(cfg.SnapshotPath), "olam-tui.log")
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: logFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	storage, err := kvstore.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("cannot open settings storage: %w", err)
	}
	defer storage.Close()

	client, err := apiclient.New(cfg.BaseURL, append(cfg.ClientOptions(), apiclient.WithLogger(logger))...)
	if err != nil {
		return err
	}

	stores := store.New(client, storage, append(cfg.StoreOptions(), store.WithLogger(logger))...)
	stores.AI.LoadSettings()

	logger.Info("starting tui",
		zap.String("base_url", client.BaseURL()),
		zap.String("storage", cfg.StorageBackend),
		zap.String("start_path", cfg.StartPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := routes.Default()
	dashboard := tui.NewDashboardModel(ctx, stores, table, tui.Options{
		StartPath: cfg.StartPath,
		Formatter: cfg.Formatter(),
		Logger:    logger,
	})
	app := tui.NewApp(tui.NewShellPage(dashboard), tui.NewHelpPage(tui.DefaultKeyMap(), table))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
