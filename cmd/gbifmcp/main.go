// Command gbifmcp runs an MCP server over stdio exposing GBIF biodiversity
// tools backed by a protected HTTP client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taksalab/gbifmcp/internal/config"
	"github.com/taksalab/gbifmcp/internal/gbif"
	"github.com/taksalab/gbifmcp/internal/tools"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gbifmcp",
	Short: "MCP server for the GBIF biodiversity API",
	Long: `gbifmcp exposes GBIF occurrence, species and dataset queries as MCP
tools over stdio, behind a client with circuit breaking, rate limiting,
caching and response truncation.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gbifmcp %s (commit %s)\n", gbif.Version, gbif.GitCommit)
	},
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var collector *gbif.MetricsCollector
	if cfg.Metrics.Enabled {
		collector = gbif.NewMetricsCollector()
	}

	client, err := newClient(cfg, logger, collector)
	if err != nil {
		return err
	}

	truncator := gbif.NewTruncator(cfg.Response.MaxBytes, cfg.Response.WarnBytes, logger)
	truncator.SetMetrics(collector)
	service := tools.NewService(client, truncator, cfg.Response.Truncation, cfg.Download.Dir, logger)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "gbifmcp",
		Version: gbif.Version,
	}, nil)
	tools.Register(server, service)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting MCP server",
		zap.String("version", gbif.Version),
		zap.String("baseURL", cfg.GBIF.BaseURL))

	return server.Run(ctx, &mcp.StdioTransport{})
}

func newClient(cfg config.Config, logger *zap.Logger, collector *gbif.MetricsCollector) (*gbif.Client, error) {
	opts := []gbif.Option{
		gbif.WithBaseURL(cfg.GBIF.BaseURL),
		gbif.WithTimeout(cfg.GBIF.Timeout),
		gbif.WithRetry(cfg.GBIF.RetryAttempts, cfg.GBIF.RetryDelay),
		gbif.WithRateLimit(cfg.GBIF.RateLimitPerMin),
		gbif.WithMaxConcurrent(cfg.GBIF.MaxConcurrent),
		gbif.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, gbif.WithCache(cfg.Cache.MaxBytes, cfg.Cache.TTL))
	} else {
		opts = append(opts, gbif.WithoutCache())
	}
	if cfg.GBIF.Username != "" {
		opts = append(opts, gbif.WithBasicAuth(cfg.GBIF.Username, cfg.GBIF.Password))
	}
	if collector != nil {
		opts = append(opts, gbif.WithMetricsCollector(collector))
	}

	client := gbif.New(opts...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}

// newLogger builds a zap logger writing to stderr; stdout belongs to the
// MCP stdio transport.
func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if verbose {
		level = "debug"
	}
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener stopped", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
