package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/config"
	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/logging"
	"github.com/tinytelemetry/olam/internal/store"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// env is what every command runs against.
type env struct {
	cfg     config.Config
	logger  *zap.Logger
	storage kvstore.Storage
	client  *apiclient.Client
	stores  *store.Stores
	out     io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"dashboard": {"overview, variance trend and device performance", runDashboard},
	"batches":   {"fetch batches for a filter and remember the filter", runBatches},
	"rounds":    {"fetch the rounds of the given batch ids", runRounds},
	"replay":    {"re-run the last remembered filter", runReplay},
	"lookups":   {"batch count, device and operator options", runLookups},
	"analysis":  {"initial-variance, repair-effect, frequency-range or impact", runAnalysis},
	"export":    {"write batches to a DuckDB snapshot or a JSON file", runExport},
	"chat":      {"ask the assistant a question", runChat},
	"settings":  {"show or change the assistant settings", runSettings},
}

func usage(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: olam [flags] <command> [command flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", fs.FlagUsages())
}

func main() {
	fs := pflag.NewFlagSet("olam", pflag.ExitOnError)
	fs.SetInterspersed(false)
	config.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "print version information")
	fs.Usage = func() { usage(fs) }
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("OLAM - Headless Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		usage(fs)
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(fs)
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, cmd, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cmd command, args []string) error {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	e, err := newEnv(cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer e.close()
	return cmd.run(ctx, e, args)
}

func newEnv(cfg config.Config, logger *zap.Logger, out io.Writer) (*env, error) {
	storage, err := kvstore.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open settings storage: %w", err)
	}
	client, err := apiclient.New(cfg.BaseURL, append(cfg.ClientOptions(), apiclient.WithLogger(logger))...)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	return &env{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
		client:  client,
		stores:  store.New(client, storage, append(cfg.StoreOptions(), store.WithLogger(logger))...),
		out:     out,
	}, nil
}

func (e *env) close() {
	if err := e.storage.Close(); err != nil {
		e.logger.Warn("close storage", zap.Error(err))
	}
}

// storeErr turns a store's error message into a command error.
func storeErr(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
