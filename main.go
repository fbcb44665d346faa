package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"letterboxd-capture/internal/config"
	"letterboxd-capture/internal/core"
	"letterboxd-capture/pkg/logger"
)

const Version = "1.0.0"

// 命令行参数，非零值覆盖配置文件
type options struct {
	configPath string
	user       string
	limit      int
	source     string
	output     string
	debug      bool
	logDir     string
	dryRun     bool
	noColor    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "lbx",
		Short:         "Capture recent Letterboxd reviews as JSON",
		Long:          `Scrapes a Letterboxd user's latest reviews (HTML pages or RSS feed) and writes them to a JSON file, falling back to a static dataset when too few are found.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Config file path (default ./config.yaml, ~/.lbx.yaml)")
	flags.StringVarP(&opts.user, "user", "u", "", "Letterboxd username")
	flags.IntVarP(&opts.limit, "limit", "n", 0, "Number of reviews to collect")
	flags.StringVar(&opts.source, "source", "", "Review source: html, rss or auto")
	flags.StringVarP(&opts.output, "output", "o", "", "Output JSON path")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	flags.StringVar(&opts.logDir, "logdir", "", "Log directory")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Collect and print without writing files")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored console output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Letterboxd Capture Go Version %s\n", Version)
			fmt.Printf("Go Version: %s\n", runtime.Version())
			fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	return rootCmd
}

func run(ctx context.Context, opts *options) error {
	if opts.logDir != "" {
		if err := logger.InitFileLogger(opts.logDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to init file logger: %v\n", err)
			logger.InitConsoleLogger()
		}
	} else {
		logger.InitConsoleLogger()
	}
	defer logger.Close()
	if opts.noColor {
		logger.SetColorEnabled(false)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		return err
	}
	applyFlags(cfg, opts)
	if err := config.NewBasicConfigValidator().Validate(cfg); err != nil {
		logger.Error("Invalid command line options: %v", err)
		return err
	}

	if cfg.DebugMode.Switch {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.INFO)
	}

	printHeader()

	startTime := time.Now()
	logger.Info("Start at %s", startTime.Format("2006-01-02 15:04:05"))
	if cfg.DebugMode.Switch {
		logger.Info("Debug mode enabled")
	}
	logger.Info("User: %s, limit: %d, source: %s", cfg.Common.Username, cfg.Common.Limit, cfg.Common.Source)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor := core.NewProcessor(cfg)
	defer processor.Close()
	processor.SetDryRun(opts.dryRun)

	result, err := processor.Run(ctx)
	if err != nil {
		logger.Error("Run failed: %v", err)
		return err
	}

	if result.UsedFallback {
		logger.Warn("Used fallback data (%v)", result.Shortfall)
	}
	if result.OutputPath != "" {
		logger.Info("Data saved to %s", result.OutputPath)
	}

	endTime := time.Now()
	logger.Info("Running time %v, End at %s", endTime.Sub(startTime), endTime.Format("2006-01-02 15:04:05"))
	logger.Info("All finished!")
	return nil
}

// applyFlags 用命令行参数覆盖配置
func applyFlags(cfg *config.Config, opts *options) {
	if opts.user != "" {
		cfg.Common.Username = opts.user
	}
	if opts.limit > 0 {
		cfg.Common.Limit = opts.limit
	}
	if opts.source != "" {
		cfg.Common.Source = strings.ToLower(opts.source)
	}
	if opts.output != "" {
		cfg.Common.OutputPath = opts.output
	}
	if opts.debug {
		cfg.DebugMode.Switch = true
	}
}

func printHeader() {
	logger.Info("================= Letterboxd Capture Go ================")
	versionLine := fmt.Sprintf("Version %s", Version)
	padding := (54 - len(versionLine)) / 2
	if padding > 0 {
		versionLine = strings.Repeat(" ", padding) + versionLine
	}
	logger.Info("%s", versionLine)
	logger.Info("======================================================")
	logger.Info("Platform: %s/%s - Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
	logger.Info("======================================================")
}
