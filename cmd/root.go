package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tileCaptcha/internal/challenge"
	"tileCaptcha/internal/vision"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg is the validated challenge configuration shared by subcommands
	cfg = challenge.DefaultConfig()

	rangeSpecs []string
	logLevel   string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:          "tilecaptcha",
	Short:        "Color-segmentation tile CAPTCHA",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		if len(rangeSpecs) > 0 {
			cfg.Ranges = cfg.Ranges[:0]
			for _, s := range rangeSpecs {
				r, err := vision.ParseColorRange(s)
				if err != nil {
					return err
				}
				cfg.Ranges = append(cfg.Ranges, r)
			}
		}
		// misconfiguration fails here, before any image is touched
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	// Cancel on Ctrl+C (SIGINT) or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(lvl)
	if !logJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringArrayVar(&rangeSpecs, "range", nil, `HSV range "h,s,v:h,s,v" (repeatable; a pixel matching any range is selected) (default "100,150,0:140,255,255")`)
	f.BoolVar(&cfg.Invert, "invert", cfg.Invert, "Select pixels outside the color ranges instead")
	f.IntVar(&cfg.GridSize, "grid", cfg.GridSize, "Grid size N (N×N cells)")
	f.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Coverage fraction a cell must exceed to count as correct")
	f.IntVar(&cfg.MinCorrect, "min-correct", cfg.MinCorrect, "Fewest correct cells a usable challenge image must produce")
	f.BoolVar(&cfg.AllowFullGrid, "allow-full-grid", cfg.AllowFullGrid, "Accept images whose every cell is correct")
	f.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory rendered challenge artifacts are written to")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.BoolVar(&logJSON, "log-json", false, "Emit JSON logs instead of console output")
}
