package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmerrifield20/synthscan/internal/analysis"
	"github.com/jmerrifield20/synthscan/internal/config"
	"github.com/jmerrifield20/synthscan/internal/health"
	"github.com/jmerrifield20/synthscan/internal/server"
	"github.com/jmerrifield20/synthscan/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

// errReported signals a failure whose message was already printed.
var errReported = errors.New("reported")

var (
	cfgFile  string
	verbose  bool
	settings = viper.New()

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "synthscan",
	Short: "Detect AI-generated images and video",
	Long: `synthscan submits an image or video to a detection backend and reports
whether it looks authentic or AI-generated.

Analyse a single file from the terminal:

  synthscan analyze holiday.jpg

Or run the HTTP API for a browser front end:

  synthscan serve --backend https://detector.internal:8443`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		loaded, err := config.Load(settings, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logCfg := cfg.Log
		if cmd.Name() != "serve" {
			// Interactive commands keep stderr quiet.
			logCfg = config.LogConfig{Level: "warn", Development: true}
		}
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logCfg.NewLogger()
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./synthscan.yaml or ~/.synthscan/synthscan.yaml)")
	flags.String("backend", "", "detection backend URL (default http://localhost:8443)")
	flags.Bool("insecure", false, "skip TLS certificate verification (development only)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	_ = settings.BindPFlag("backend.url", flags.Lookup("backend"))
	_ = settings.BindPFlag("backend.insecure", flags.Lookup("insecure"))

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(versionCmd)
}

// newBackendClient builds the detection backend client from cfg.
func newBackendClient() (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(cfg.Backend.Timeout)}
	if cfg.Backend.Insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	if cfg.Backend.AccessToken != "" {
		opts = append(opts, client.WithAccessToken(cfg.Backend.AccessToken))
	}
	return client.New(cfg.Backend.URL, opts...)
}

func newChecker() *health.Checker {
	return health.New(cfg.Backend.URL, health.Config{
		CheckInterval:      cfg.Health.Interval,
		ProbeTimeout:       cfg.Health.ProbeTimeout,
		FailThreshold:      cfg.Health.FailThreshold,
		InsecureSkipVerify: cfg.Backend.Insecure,
	}, logger)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// ── serve ────────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newBackendClient()
		if err != nil {
			return err
		}

		orch := analysis.New(c, logger)
		orch.SetMetricsRecord(server.RecordAnalysis)

		checker := newChecker()
		checker.SetMetricsRecord(server.RecordBackendProbe)

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		go checker.Start(ctx)

		if os.Getenv("GIN_MODE") == "" {
			gin.SetMode(gin.ReleaseMode)
		}
		logger.Info("starting synthscan",
			zap.String("version", version),
			zap.String("backend", c.BaseURL()),
		)
		if err := server.New(cfg.Server, orch, checker, logger).Run(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		logger.Info("synthscan stopped")
		return nil
	},
}

// ── ping ─────────────────────────────────────────────────────────────────────

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the detection backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		if newChecker().CheckOnce(ctx) {
			fmt.Printf("%s %s\n", color.GreenString("reachable:"), cfg.Backend.URL)
			return nil
		}
		fmt.Printf("%s %s\n", color.RedString("unreachable:"), cfg.Backend.URL)
		return errReported
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the synthscan version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("synthscan %s\n", version)
	},
}
