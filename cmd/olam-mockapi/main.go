package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/logging"
	"github.com/tinytelemetry/olam/internal/mockapi"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	fs := pflag.NewFlagSet("olam-mockapi", pflag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:5000", "listen address")
	fixtures := fs.String("fixtures", "", "YAML fixtures file (built-in sample data when empty)")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	showVersion := fs.Bool("version", false, "print version information")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("OLAM - Mock Analytics API\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *addr, *fixtures, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run serves until ctx is done.
func run(ctx context.Context, addr, fixturesPath, level string) error {
	logger, err := logging.New(logging.Options{Level: level})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fx := mockapi.SampleFixtures()
	source := "built-in"
	if fixturesPath != "" {
		if fx, err = mockapi.LoadFixtures(fixturesPath); err != nil {
			return err
		}
		source = fixturesPath
	}

	gin.SetMode(gin.ReleaseMode)
	srv := mockapi.NewServer(addr, fx, mockapi.WithLogger(logger))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start mock api: %w", err)
	}
	printBanner(srv.Addr(), source, len(fx.Batches))

	<-ctx.Done()
	logger.Info("shutting down mock api", zap.String("addr", srv.Addr()))
	return srv.Stop()
}

func printBanner(addr, source string, batches int) {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	fmt.Println(title.Render("olam-mockapi"))
	fmt.Printf("  %s http://%s/api\n", dim.Render("base url:"), addr)
	fmt.Printf("  %s %s (%d batches)\n", dim.Render("fixtures:"), source, batches)
	fmt.Println(dim.Render("  press Ctrl+C to stop"))
}
