package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/internal/world"
	"github.com/ajitpratap0/objectpool/pkg/config"
	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/metrics"
	"github.com/ajitpratap0/objectpool/pkg/observability"
	"github.com/ajitpratap0/objectpool/pkg/session"
)

var version = "0.1.0"

// envPrefix namespaces the environment overrides, e.g. OBJECTPOOL_SESSION_KIND
const envPrefix = "OBJECTPOOL"

// overrides are the config keys that flags and environment variables can set
var overrides = map[string]string{
	"session.kind":           "kind",
	"logging.level":          "log-level",
	"logging.encoding":       "log-encoding",
	"metrics.enabled":        "metrics",
	"metrics.listen_address": "listen",
	"tracing.enabled":        "tracing",
	"tracing.sample_rate":    "trace-sample-rate",
}

func main() {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "objectpool",
		Short: "Objectpool - per-type object reuse pools for runtime entities",
		Long: `Objectpool pre-allocates pools of runtime entities at session start and
hands them out on demand, growing a pool by one instance whenever it runs dry.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Path to the YAML configuration file")
	flags.String("kind", "", "Session kind (game, pie, game_preview, game_rpc, editor, ...)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "", "Log encoding (json or console)")
	flags.Bool("metrics", true, "Enable prometheus pool metrics")
	flags.String("listen", "", "Address for /metrics and /debug/pools")
	flags.Bool("tracing", false, "Write OpenTelemetry spans to stderr")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling rate (0.0-1.0)")

	for key, flag := range overrides {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Objectpool v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "types",
		Short: "List the entity types the world can spawn",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Entity Types:")
			for _, name := range world.NewDefault(world.WithLogger(zap.NewNop())).Types() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	root.AddCommand(newSeedCmd(v), newSimulateCmd(v), newServeCmd(v), newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, if any, and applies
// flag and environment overrides on top of it.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("session.kind") {
		cfg.Session.Kind = v.GetString("session.kind")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.encoding") {
		cfg.Logging.Encoding = v.GetString("logging.encoding")
	}
	if v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	}
	if v.IsSet("metrics.listen_address") {
		cfg.Metrics.ListenAddress = v.GetString("metrics.listen_address")
	}
	if v.IsSet("tracing.enabled") {
		cfg.Tracing.Enabled = v.GetBool("tracing.enabled")
	}
	if v.IsSet("tracing.sample_rate") {
		cfg.Tracing.SampleRate = v.GetFloat64("tracing.sample_rate")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app bundles everything a command needs to run one session
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	world    *world.World
	session  *session.Session
	registry *prometheus.Registry
	shutdown observability.ShutdownFunc
}

func bootstrap(v *viper.Viper, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(v, cmd)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Component("objectpool-cli")

	shutdown, err := observability.InitTracing(cfg.Tracing, version, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	var poolMetrics *metrics.PoolMetrics
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		poolMetrics = metrics.NewPoolMetrics(reg, cfg.Metrics.Namespace)
	}

	w := world.NewDefault(world.WithLogger(logger.Get()))
	s, err := session.New(cfg, w,
		session.WithLogger(logger.Get()),
		session.WithMetrics(poolMetrics))
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		world:    w,
		session:  s,
		registry: reg,
		shutdown: shutdown,
	}, nil
}

// close ends the session and flushes telemetry
func (a *app) close() {
	a.session.End()
	if err := a.shutdown(context.Background()); err != nil {
		a.log.Warn("failed to shut down tracing", zap.Error(err))
	}
	_ = logger.Sync()
}
