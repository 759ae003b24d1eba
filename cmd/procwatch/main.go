// Package main is the entry point for procwatch.
// It loads configuration, wires the process sources to the report generator
// and then prints a single report, serves reports over HTTP, or ships them
// to an ingest API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/Guliveer/procwatch/internal/autostart"
	"github.com/Guliveer/procwatch/internal/buffer"
	"github.com/Guliveer/procwatch/internal/census"
	"github.com/Guliveer/procwatch/internal/collector"
	"github.com/Guliveer/procwatch/internal/config"
	"github.com/Guliveer/procwatch/internal/inventory"
	"github.com/Guliveer/procwatch/internal/models"
	"github.com/Guliveer/procwatch/internal/report"
	"github.com/Guliveer/procwatch/internal/scheduler"
	"github.com/Guliveer/procwatch/internal/sender"
	"github.com/Guliveer/procwatch/internal/server"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	envFile     = flag.String("env-file", "", "Path to a .env file (default: ./.env when present)")
	listenAddr  = flag.String("listen", "", "Report server listen address")
	agentURL    = flag.String("url", "", "Ingest API base URL")
	agentToken  = flag.String("token", "", "Ingest API token")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	indent      = flag.Bool("indent", false, "Always pretty-print report output")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: procwatch [flags] <command> [flags]

Commands:
  report [summary|system|containers|consumption]
                                      print one report to stdout (default: system)
  serve                               serve reports over HTTP
  agent                               ship reports to the ingest API
  install                             install "serve" as a systemd service (root)
  uninstall                           remove the systemd service (root)

Flags may appear before or after the command.

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	args, _ := parseArgs(flag.CommandLine, os.Args[1:]) // CommandLine exits on error

	if *showVersion {
		fmt.Printf("procwatch %s\n", version)
		os.Exit(0)
	}

	cli := config.CLIOverrides{
		Listen:   *listenAddr,
		URL:      *agentURL,
		Token:    *agentToken,
		LogLevel: *logLevel,
		EnvFile:  *envFile,
	}
	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = config.Locate()
	}
	load := func() (*config.Config, error) {
		return config.LoadLayered(cli, embeddedConfig, cfgFile)
	}

	cfg, err := load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := zap.NewAtomicLevelAt(parseLevel(cfg.Logging.Level))
	logger := initLogger(cfg, level)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	command := "report"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "report":
		kind := report.KindSystem
		if len(args) > 1 {
			if kind, err = report.ParseKind(args[1]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}
		if err := runReport(ctx, cfg, kind, logger); err != nil {
			logger.Fatal("Report failed", zap.Error(err))
		}
	case "serve":
		if err := cfg.ValidateServer(); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}
		if cfg.Agent.Enabled {
			if err := cfg.ValidateAgent(); err != nil {
				logger.Fatal("Invalid configuration", zap.Error(err))
			}
		}
		watchConfig(ctx, cfgFile, load, level, logger)
		runServe(ctx, cfg, logger)
	case "agent":
		if err := cfg.ValidateAgent(); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}
		watchConfig(ctx, cfgFile, load, level, logger)
		runAgent(ctx, cfg, newGenerator(cfg, logger), logger)
	case "install", "uninstall":
		if err := runAutostart(command, cfg, cfgFile, logger); err != nil {
			logger.Fatal("Autostart "+command+" failed", zap.Error(err))
		}
	default:
		usage()
		os.Exit(2)
	}

	logger.Debug("procwatch stopped")
}

// newGenerator wires the live process, memory and host sources.
func newGenerator(cfg *config.Config, logger *zap.Logger) *report.Generator {
	// gopsutil resolves its own procfs paths from HOST_PROC.
	if cfg.Report.ProcRoot != "/proc" && os.Getenv("HOST_PROC") == "" {
		os.Setenv("HOST_PROC", cfg.Report.ProcRoot)
	}

	opts := []report.Option{
		report.WithLogger(logger.Named("report")),
		report.WithThresholds(census.Thresholds{
			MemoryKb: cfg.Consumption.MemoryThresholdKb,
			CPUScore: cfg.Consumption.CPUScoreThreshold,
			Exclude:  cfg.Consumption.Exclude,
		}),
	}
	if cfg.Report.UTC {
		opts = append(opts, report.WithLocation(time.UTC))
	}
	return report.NewGenerator(
		collector.NewProcessSource(cfg.Report.ProcRoot, cfg.Report.FullCmdline, logger.Named("process")),
		collector.NewMemorySource(),
		collector.NewHostSource(),
		opts...,
	)
}

// runReport prints a single report. Output is pretty-printed on a terminal
// and compact when piped, unless -indent forces pretty output.
func runReport(ctx context.Context, cfg *config.Config, kind report.Kind, logger *zap.Logger) error {
	doc, err := newGenerator(cfg, logger).Generate(ctx, kind)
	if err != nil {
		return err
	}
	pretty := *indent || (cfg.Report.Indent && term.IsTerminal(int(os.Stdout.Fd())))
	return report.Render(os.Stdout, doc, pretty)
}

// runServe serves reports until ctx is cancelled. When the agent is enabled
// it ships reports alongside.
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	gen := newGenerator(cfg, logger)

	var inv server.ContainerLister
	if cfg.Docker.Enabled {
		lister, err := inventory.New(cfg.Docker.Host, logger.Named("inventory"))
		if err != nil {
			logger.Warn("Container runtime inventory unavailable", zap.Error(err))
		} else {
			defer lister.Close()
			inv = lister
		}
	}

	var wg sync.WaitGroup
	if cfg.Agent.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runAgent(ctx, cfg, gen, logger)
		}()
	}

	srv := server.New(gen, inv, cfg.Report.Indent, logger.Named("server"))
	if err := srv.ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		logger.Error("Report server failed", zap.Error(err))
	}
	wg.Wait()
}

// runAgent initializes the shipping components and starts the report loop.
// It blocks until the context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, gen *report.Generator, logger *zap.Logger) {
	buf, err := buffer.New(cfg.Buffer.Dir, cfg.Buffer.MaxSizeMB, logger.Named("buffer"))
	if err != nil {
		logger.Fatal("Failed to initialize buffer", zap.Error(err))
	}

	snd := sender.New(cfg.Agent.URL, cfg.Agent.Token, logger.Named("sender"), buf)
	snd.FlushBuffer(ctx)

	kinds, err := parseKinds(cfg.Agent.Kinds)
	if err != nil {
		logger.Fatal("Invalid agent.kinds", zap.Error(err))
	}

	sched := scheduler.New(gen, kinds, cfg.Agent.Interval.Duration, cfg.Agent.BatchInterval.Duration, logger.Named("scheduler"))
	sched.OnBatchReady(func(batch []models.Envelope) {
		// Shutdown flushes after ctx is cancelled; give that last batch its
		// own deadline instead of buffering it unsent.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		snd.Send(sendCtx, batch)
	})

	logger.Info("Agent running",
		zap.String("url", cfg.Agent.URL),
		zap.Duration("interval", cfg.Agent.Interval.Duration),
		zap.Duration("batch_interval", cfg.Agent.BatchInterval.Duration))
	sched.Start(ctx)
}

// runAutostart installs or removes the systemd service running "serve".
func runAutostart(command string, cfg *config.Config, cfgFile string, logger *zap.Logger) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("%s requires root; re-run with sudo", command)
	}
	mgr := autostart.New()

	if command == "uninstall" {
		if err := mgr.Uninstall(); err != nil {
			return err
		}
		logger.Info("Service removed", zap.String("service", mgr.ServiceName()))
		return nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable: %w", err)
	}
	args, err := installArgs(cfg, cfgFile, config.SystemConfigPath())
	if err != nil {
		return err
	}

	if err := mgr.Install(execPath, args); err != nil {
		return err
	}
	logger.Info("Service installed", zap.String("service", mgr.ServiceName()), zap.Strings("args", args))
	return nil
}

// installArgs builds the service arguments. The service always gets an
// absolute -config path; without a config file the effective configuration
// is written to fallback first, so flags and env vars given at install time
// survive into the service.
func installArgs(cfg *config.Config, cfgFile, fallback string) ([]string, error) {
	if cfgFile == "" {
		if err := config.WriteConfig(cfg, fallback); err != nil {
			return nil, fmt.Errorf("writing service config: %w", err)
		}
		cfgFile = fallback
	}
	abs, err := filepath.Abs(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	return []string{"-config", abs, "serve"}, nil
}

// watchConfig applies log level changes from the config file at runtime.
func watchConfig(ctx context.Context, path string, load func() (*config.Config, error), level zap.AtomicLevel, logger *zap.Logger) {
	if path == "" {
		return
	}
	go func() {
		err := config.Watch(ctx, path, load, func(c *config.Config) {
			level.SetLevel(parseLevel(c.Logging.Level))
		}, logger.Named("config"))
		if err != nil {
			logger.Warn("Config watch disabled", zap.Error(err))
		}
	}()
}

// parseArgs parses fs from args and returns the positional arguments. Unlike
// a single fs.Parse, flags after a positional are parsed too, so
// "report system -indent" works. A lone "--" ends flag parsing.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positionals []string
	for {
		if err := fs.Parse(args); err != nil {
			return positionals, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positionals, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positionals, rest...), nil
		}
		positionals = append(positionals, rest[0])
		args = rest[1:]
	}
}

func parseKinds(names []string) ([]report.Kind, error) {
	kinds := make([]report.Kind, 0, len(names))
	for _, n := range names {
		k, err := report.ParseKind(strings.TrimSpace(n))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// initLogger creates a zap logger writing human-readable lines to stderr
// (stdout carries report output) and, optionally, JSON to a log file.
func initLogger(cfg *config.Config, level zap.AtomicLevel) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		),
	}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			))
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
