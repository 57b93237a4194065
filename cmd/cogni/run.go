package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cogni/internal/capability"
	"cogni/internal/cognition"
	"cogni/internal/config"
	"cogni/internal/oracle"
	"cogni/internal/runner"
	"cogni/internal/watch"
)

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultFile, "config file")
	provider := fs.String("provider", "", "decision provider: off, script, openai, gemini, ollama")
	model := fs.String("model", "", "provider model id")
	retries := fs.Int("retries", 0, "max fix retries")
	budget := fs.Int64("budget", 0, "max deliberations per run (0 = unlimited)")
	tracePath := fs.String("trace", "", "write the reasoning trace to this file")
	sandbox := fs.String("sandbox", "", "grant file builtins confined to this directory")
	watchMode := fs.Bool("watch", false, "re-run when the source file changes")
	verbose := fs.Bool("v", false, "debug logging and per-decision output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cogni run <file.cog> [flags]")
		return 2
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(fs, *cfgPath)
	if err != nil {
		return fail(err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.Provider = *provider
		case "model":
			cfg.Model = *model
		case "retries":
			cfg.MaxRetries = *retries
		case "budget":
			cfg.Budget = *budget
		case "trace":
			cfg.TracePath = *tracePath
		case "sandbox":
			cfg.SandboxRoot = *sandbox
		}
	})

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watchMode {
		err := watch.Run(ctx, path, func() {
			if rerr := runOnce(ctx, path, cfg, logger, *verbose); rerr != nil {
				fmt.Fprintln(os.Stderr, styles.errText.Render("cogni: "+rerr.Error()))
			}
			fmt.Println(styles.muted.Render(fmt.Sprintf("watching %s", path)))
		}, watch.Options{Logger: logger})
		if err != nil {
			return fail(err)
		}
		return 0
	}

	if err := runOnce(ctx, path, cfg, logger, *verbose); err != nil {
		return fail(err)
	}
	return 0
}

func runOnce(ctx context.Context, path string, cfg config.Config, logger *slog.Logger, verbose bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	caps, err := capability.New(capability.Config{
		SandboxRoot: cfg.SandboxRoot,
		Databases:   cfg.Databases,
		Logger:      logger.With("component", "capability"),
	})
	if err != nil {
		return err
	}
	defer caps.Close()

	client, err := buildClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	start := time.Now()
	res, rerr := runner.RunCognitive(ctx, string(source), runner.Options{
		Client:       client,
		MaxRetries:   cfg.MaxRetries,
		Safety:       cfg.SafetyConfig(),
		Budget:       cfg.Budget,
		Checkpoints:  cfg.Checkpoints,
		Capabilities: caps.Builtins(),
		Stdout:       os.Stdout,
		Logger:       logger.With("component", "runner"),
	})

	if cfg.TracePath != "" && res.Trace != nil {
		if werr := exportTrace(cfg.TracePath, res.Trace); werr != nil {
			logger.Warn("trace export failed", "path", cfg.TracePath, "err", werr)
		}
	}
	if verbose {
		for _, ep := range res.Trace.Episodes {
			fmt.Fprintln(os.Stderr, renderEpisode(ep))
		}
	}
	if rerr != nil {
		return rerr
	}

	fmt.Println(renderReport(res))
	logger.Debug("run finished", "path", path, "elapsed", time.Since(start))
	return nil
}

// loadConfig treats an explicit -config as required and the implicit
// default as optional.
func loadConfig(fs *flag.FlagSet, path string) (config.Config, error) {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	if explicit {
		return config.Load(path)
	}
	return config.LoadOptional(path)
}

// buildClient returns nil when cognition is off.
func buildClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (oracle.Client, error) {
	if cfg.CognitionOff() {
		return nil, nil
	}
	client, err := oracle.New(ctx, cfg.Provider, cfg.Model, cfg.APIKey())
	if err != nil {
		return nil, err
	}
	logger.Debug("provider ready", "provider", client.Name(), "model", cfg.Model)
	return oracle.Chain(client,
		oracle.RateLimit(cfg.RPS, cfg.Burst),
		oracle.Retry(3, 300*time.Millisecond),
	), nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func exportTrace(path string, tr *cognition.Trace) error {
	data, err := tr.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
