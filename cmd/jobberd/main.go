// Command jobberd is a runnable demo of the jobber library: it registers
// a couple of illustrative routes and serves them with cli.DaemonCommand.
// A real deployment imports "github.com/netresearch/ofelia" the same way
// and supplies its own RegisterRoutes.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	jobber "github.com/netresearch/ofelia"
	"github.com/netresearch/ofelia/cli"
	"github.com/netresearch/ofelia/core"
)

var (
	version string
	build   string
)

func buildLogger(level string) (*slog.Logger, *slog.LevelVar) {
	levelVar := &slog.LevelVar{}
	switch strings.ToLower(level) {
	case "trace", "debug":
		levelVar.Set(slog.LevelDebug)
	case "", "info", "notice":
		levelVar.Set(slog.LevelInfo)
	case "warning", "warn":
		levelVar.Set(slog.LevelWarn)
	case "error", "fatal", "panic", "critical":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: levelVar})
	return slog.New(handler), levelVar
}

func main() {
	// "-jobber-worker <route>" is how ProcessPool.Run re-execs this same
	// binary for RunModeProcess routes; it is handled before the normal
	// subcommand parser since it isn't a subcommand of its own.
	if routeName, ok := workerRouteName(os.Args[1:]); ok {
		runWorker(routeName)
		return
	}

	var pre struct {
		LogLevel   string `long:"log-level"`
		ConfigFile string `long:"config" default:"/etc/jobberd/config.ini"`
	}
	args := os.Args[1:]
	preParser := flags.NewParser(&pre, flags.IgnoreUnknown)
	_, _ = preParser.ParseArgs(args)

	logger, levelVar := buildLogger(pre.LogLevel)

	parser := flags.NewNamedParser("jobberd", flags.Default|flags.AllowBoolValues)
	_, _ = parser.AddCommand(
		"daemon",
		"run the scheduler daemon",
		"",
		&cli.DaemonCommand{
			Logger:         logger,
			LevelVar:       levelVar,
			LogLevel:       pre.LogLevel,
			ConfigFile:     pre.ConfigFile,
			RegisterRoutes: registerDemoRoutes,
		},
	)

	if _, err := parser.ParseArgs(args); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		var flagErr *flags.Error
		if errors.As(err, &flagErr) {
			parser.WriteHelp(os.Stdout)
			_, _ = fmt.Fprintf(os.Stdout, "\nBuild information\n  commit: %s\n  date:%s\n", version, build)
		}
		logger.Error("command failed to execute", "error", err)
	}
}

// workerRouteName recognizes "-jobber-worker <name>" anywhere in argv,
// matching the flag ProcessPool.Run passes to exec.CommandContext.
func workerRouteName(args []string) (string, bool) {
	for i, a := range args {
		if a == "-jobber-worker" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func runWorker(routeName string) {
	logger, _ := buildLogger("")
	app := jobber.New(jobber.WithLogger(core.NewSlogLogger(logger)))
	if err := registerDemoRoutes(app, nil); err != nil {
		logger.Error("worker: registering routes", "error", err)
		os.Exit(1)
	}
	if err := app.RunWorker(routeName, os.Stdin, os.Stdout); err != nil {
		logger.Error("worker: run failed", "route", routeName, "error", err)
		os.Exit(1)
	}
}

// registerDemoRoutes wires up the example routes this binary serves. A
// real application built on the jobber library supplies its own.
// schedules overrides a route's cron expression when present, the
// mechanism cli.DaemonCommand's -routes-file flag feeds in.
func registerDemoRoutes(app *jobber.App, schedules map[string]string) error {
	heartbeatCron := "@every 1m"
	if expr, ok := schedules["heartbeat"]; ok && expr != "" {
		heartbeatCron = expr
	}

	heartbeat := func(jc *core.JobContext) error {
		jc.Logger.Noticef("heartbeat: %s", jc.Job.ID())
		return nil
	}
	route, err := app.Register(heartbeat, core.RouteOptions{Name: "heartbeat", MaxRetries: 1})
	if err != nil {
		return fmt.Errorf("registering heartbeat route: %w", err)
	}
	if _, err := route.Schedule().Cron(heartbeatCron); err != nil {
		return fmt.Errorf("arming heartbeat route: %w", err)
	}

	cleanup := func() error {
		time.Sleep(0)
		return nil
	}
	cleanupRoute, err := app.Register(cleanup, core.RouteOptions{Name: "cleanup", RunMode: core.RunModeThread})
	if err != nil {
		return fmt.Errorf("registering cleanup route: %w", err)
	}
	if expr, ok := schedules["cleanup"]; ok && expr != "" {
		if _, err := cleanupRoute.Schedule().Cron(expr); err != nil {
			return fmt.Errorf("arming cleanup route: %w", err)
		}
	}

	return nil
}
