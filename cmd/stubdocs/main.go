package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/stubdocs/internal/build"
	"git.home.luguber.info/inful/stubdocs/internal/config"
	builderrors "git.home.luguber.info/inful/stubdocs/internal/errors"
	"git.home.luguber.info/inful/stubdocs/internal/forge"
	"git.home.luguber.info/inful/stubdocs/internal/observability"
	"git.home.luguber.info/inful/stubdocs/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"stubdocs.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Build struct {
		Output string `short:"o" help:"Output directory for the generated site"`
	} `cmd:"" help:"Build the configuration stub site once"`

	Serve struct {
		Output      string `short:"o" help:"Output directory for the generated site"`
		MetricsAddr string `help:"Listen address for the /metrics endpoint" default:":9180"`
	} `cmd:"" help:"Build, then rebuild on local stub changes"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	// GITHUB_TOKEN may live in a .env file during local development.
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI, kong.Vars{
		"version": fmt.Sprintf("stubdocs %s (commit %s, built %s)",
			version.Version, version.GitCommit, version.BuildTime),
	})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch kctx.Command() {
	case "build":
		runner, err := newRunner(CLI.Build.Output)
		if err != nil {
			fail("Failed to load configuration", err)
		}
		if _, err := runner.Run(context.Background()); err != nil {
			fail("Build failed", err)
		}
	case "serve":
		runner, err := newRunner(CLI.Serve.Output)
		if err != nil {
			fail("Failed to load configuration", err)
		}
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := runner.Serve(ctx, CLI.Serve.MetricsAddr); err != nil {
			fail("Serve failed", err)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			fail("Init failed", err)
		}
		slog.Info("Configuration file written", "path", CLI.Config)
	}
}

func newRunner(outputDir string) (*build.Runner, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.SiteDir = outputDir
	}

	var opts []forge.Option
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		opts = append(opts, forge.WithToken(token))
	} else {
		slog.Warn("GITHUB_TOKEN not set, using unauthenticated API limits")
	}
	client := forge.NewGitHubClient(opts...)

	workdir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return build.NewRunner(cfg, client, observability.NewMetrics(), workdir), nil
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err, "category", builderrors.GetCategory(err))
	os.Exit(1)
}
