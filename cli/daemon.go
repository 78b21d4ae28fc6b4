package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- gated behind EnablePprof, bound to PprofAddr
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobber "github.com/netresearch/ofelia"
	"github.com/netresearch/ofelia/config"
	"github.com/netresearch/ofelia/core"
	"github.com/netresearch/ofelia/logging"
	"github.com/netresearch/ofelia/metrics"
	"github.com/netresearch/ofelia/middlewares"
)

// DaemonCommand runs the scheduler until a shutdown signal is received.
// Route registration is an application concern: RegisterRoutes is called
// once the App exists and before Startup freezes the route table, the
// hook a real binary built on this library fills in.
type DaemonCommand struct {
	ConfigFile    string `long:"config" env:"JOBBERD_CONFIG" description:"Config file path" default:"/etc/jobberd/config.ini"`
	LogLevel      string `long:"log-level" env:"JOBBERD_LOG_LEVEL" description:"Log level (trace,debug,info,warn,error)"`
	WorkerBinary  string `long:"worker-binary" env:"JOBBERD_WORKER_BINARY" description:"Binary re-exec'd for PROCESS-mode routes (defaults to argv[0])"`
	Durable       bool   `long:"durable" env:"JOBBERD_DURABLE" description:"Persist the scheduled set so it survives restarts"`
	DBPath        string `long:"db-path" env:"JOBBERD_DB_PATH" description:"SQLite path for the durable store" default:"/var/lib/jobberd/schedules.db"`
	EnablePprof   bool   `long:"enable-pprof" env:"JOBBERD_ENABLE_PPROF" description:"Enable the pprof debug server"`
	PprofAddr     string `long:"pprof-address" env:"JOBBERD_PPROF_ADDRESS" description:"Pprof listen address" default:"127.0.0.1:8080"`
	RoutesFile    string `long:"routes-file" env:"JOBBERD_ROUTES_FILE" description:"Optional YAML file of route cron-schedule overrides"`
	EnableMetrics bool   `long:"enable-metrics" env:"JOBBERD_ENABLE_METRICS" description:"Enable the Prometheus /metrics endpoint"`
	MetricsAddr   string `long:"metrics-address" env:"JOBBERD_METRICS_ADDRESS" description:"Metrics listen address" default:"127.0.0.1:9090"`
	LogFormat     string `long:"log-format" env:"JOBBERD_LOG_FORMAT" description:"Log sink: text (slog) or json (zerolog)" default:"text"`
	SaveFolder    string `long:"save-folder" env:"JOBBERD_SAVE_FOLDER" description:"Directory to write a JSON execution summary per job attempt (disabled if empty)"`

	// RegisterRoutes is invoked once the App is constructed, before
	// Startup, with any cron overrides loaded from RoutesFile. Left nil,
	// the daemon starts with no routes registered.
	RegisterRoutes func(*jobber.App, map[string]string) error

	Logger   *slog.Logger
	LevelVar *slog.LevelVar

	app             *jobber.App
	shutdownManager *core.ShutdownManager
	pprofServer     *http.Server
	metricsServer   *http.Server
}

// Execute runs the daemon: boot, block until shutdown, drain.
func (c *DaemonCommand) Execute(_ []string) error {
	if err := c.boot(); err != nil {
		return err
	}
	return c.run()
}

func (c *DaemonCommand) boot() error {
	fileCfg, err := config.LoadAppConfig(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading app config: %w", err)
	}
	c.applyFileConfig(fileCfg)

	if err := ApplyLogLevel(c.LogLevel, c.LevelVar); err != nil {
		return err
	}

	var logger core.Logger
	switch c.LogFormat {
	case "json", "zerolog":
		logger = logging.NewZerologSink(nil)
	default:
		logger = core.NewSlogLogger(c.Logger)
	}
	c.shutdownManager = core.NewShutdownManager(logger, 30*time.Second)

	opts := []jobber.Option{jobber.WithLogger(logger)}
	if c.WorkerBinary != "" {
		opts = append(opts, jobber.WithWorkerBinary(c.WorkerBinary))
	}
	if c.Durable {
		opts = append(opts, jobber.WithSQLiteStore(c.DBPath))
	}

	var jobMetrics *metrics.JobMetrics
	if c.EnableMetrics {
		jobMetrics = metrics.NewJobMetrics(nil)
		opts = append(opts, jobber.WithMiddleware(jobMetrics.Middleware()))
	}

	if c.SaveFolder != "" {
		if saveMW := middlewares.NewSave(&middlewares.SaveConfig{SaveFolder: c.SaveFolder}); saveMW != nil {
			opts = append(opts, jobber.WithMiddleware(saveMW))
		}
	}

	c.app = jobber.New(opts...)

	schedules, err := config.LoadRouteSchedules(c.RoutesFile)
	if err != nil {
		return fmt.Errorf("loading route schedules: %w", err)
	}

	if c.RegisterRoutes != nil {
		if err := c.RegisterRoutes(c.app, schedules); err != nil {
			return fmt.Errorf("registering routes: %w", err)
		}
	}

	if c.EnablePprof {
		c.pprofServer = &http.Server{Addr: c.PprofAddr, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := c.pprofServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("pprof server error: %v", err)
			}
		}()
	}

	if c.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(jobMetrics.Registry(), promhttp.HandlerOpts{}))
		c.metricsServer = &http.Server{Addr: c.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := c.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server error: %v", err)
			}
		}()
	}

	return nil
}

// applyFileConfig fills in DaemonCommand fields from an on-disk config
// file. A field is filled when it is still at its zero value or, for
// LogFormat, DBPath, PprofAddr and MetricsAddr, still at its flag
// default; any other value set by a flag (or the environment variable
// go-flags resolves it from) wins over the file.
func (c *DaemonCommand) applyFileConfig(f *config.AppConfig) {
	if c.LogLevel == "" {
		c.LogLevel = f.LogLevel
	}
	if c.LogFormat == "" || c.LogFormat == "text" {
		if f.LogFormat != "" {
			c.LogFormat = f.LogFormat
		}
	}
	if c.WorkerBinary == "" {
		c.WorkerBinary = f.WorkerBinary
	}
	if !c.Durable {
		c.Durable = f.Durable
	}
	if f.DBPath != "" && c.DBPath == "/var/lib/jobberd/schedules.db" {
		c.DBPath = f.DBPath
	}
	if c.RoutesFile == "" {
		c.RoutesFile = f.RoutesFile
	}
	if !c.EnablePprof {
		c.EnablePprof = f.EnablePprof
	}
	if f.PprofAddr != "" && c.PprofAddr == "127.0.0.1:8080" {
		c.PprofAddr = f.PprofAddr
	}
	if !c.EnableMetrics {
		c.EnableMetrics = f.EnableMetrics
	}
	if f.MetricsAddr != "" && c.MetricsAddr == "127.0.0.1:9090" {
		c.MetricsAddr = f.MetricsAddr
	}
	if c.SaveFolder == "" {
		c.SaveFolder = f.SaveFolder
	}
}

func (c *DaemonCommand) run() error {
	c.shutdownManager.ListenForShutdown()

	if err := c.app.Startup(context.Background(), c.shutdownManager); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	if c.pprofServer != nil {
		c.shutdownManager.RegisterHook(core.ShutdownHook{
			Name:     "pprof",
			Priority: 90,
			Hook:     func(ctx context.Context) error { return c.pprofServer.Shutdown(ctx) },
		})
	}

	if c.metricsServer != nil {
		c.shutdownManager.RegisterHook(core.ShutdownHook{
			Name:     "metrics",
			Priority: 90,
			Hook:     func(ctx context.Context) error { return c.metricsServer.Shutdown(ctx) },
		})
	}

	<-c.shutdownManager.ShutdownChan()
	return nil
}
