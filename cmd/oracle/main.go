package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrsarac/ORACLE-Engine/internal/config"
	"github.com/mrsarac/ORACLE-Engine/internal/gemini"
	"github.com/mrsarac/ORACLE-Engine/internal/oracle"
	"github.com/mrsarac/ORACLE-Engine/internal/report"
	"github.com/mrsarac/ORACLE-Engine/internal/usage"
)

const banner = `
   ██████╗ ██████╗  █████╗  ██████╗██╗     ███████╗
  ██╔═══██╗██╔══██╗██╔══██╗██╔════╝██║     ██╔════╝
  ██║   ██║██████╔╝███████║██║     ██║     █████╗
  ██║   ██║██╔══██╗██╔══██║██║     ██║     ██╔══╝
  ╚██████╔╝██║  ██║██║  ██║╚██████╗███████╗███████╗
   ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝
          Parallel Hypothesis Simulation Engine
`

var (
	// Global flags
	verbose      bool
	domain       string
	templatePath string
	outputDir    string
	model        string
	category     string
	count        int
	concurrency  int
	delaySeconds float64
	temperature  float64

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "ORACLE Engine - parallel hypothesis evaluation via Gemini",
	Long: `ORACLE Engine evaluates batches of strategic hypotheses against a
domain rubric, fanning calls out to the Gemini API under a bounded
concurrency budget and aggregating the verdicts into JSON and markdown
reports.

Hypotheses come from a domain template (templates/<domain>.json); each
one is scored on outcome, confidence, and priority.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSimulations,
}

func init() {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain to simulate (required)")
	rootCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Explicit template file (overrides templates/<domain>.json)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", config.DefaultOutputDir, "Output directory for results")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Gemini model name")
	rootCmd.Flags().StringVarP(&category, "category", "c", "", "Run a single category only")
	rootCmd.Flags().IntVarP(&count, "count", "n", 0, "Max hypotheses per category (0 = all)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Max simultaneous API calls")
	rootCmd.Flags().Float64Var(&delaySeconds, "delay", -1, "Seconds between call submissions")
	rootCmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "Sampling temperature")
	_ = rootCmd.MarkFlagRequired("domain")
}

func buildConfig() config.Config {
	cfg := config.New()
	cfg.Domain = domain
	cfg.OutputDir = outputDir
	cfg.Temperature = temperature
	cfg.Category = category
	cfg.Count = count
	if model != "" {
		cfg.Model = model
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if delaySeconds >= 0 {
		cfg.PacingDelay = time.Duration(delaySeconds * float64(time.Second))
	}
	return cfg
}

func runSimulations(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	var tpl *config.Template
	var err error
	if templatePath != "" {
		tpl, err = config.LoadTemplate(templatePath)
	} else {
		tpl, err = config.LoadDomainTemplate("templates", cfg.Domain)
	}
	if err != nil {
		return err
	}

	batches := tpl.Batches(cfg.Category, cfg.Count)
	totalHypotheses := 0
	for _, b := range batches {
		totalHypotheses += len(b.Hypotheses)
	}

	fmt.Printf("%s\n", banner)
	fmt.Printf("  Domain:      %s\n", cfg.Domain)
	fmt.Printf("  Model:       %s\n", cfg.Model)
	fmt.Printf("  Categories:  %d\n", len(batches))
	fmt.Printf("  Hypotheses:  %d\n", totalHypotheses)
	fmt.Printf("  Concurrency: %d (delay %s)\n\n", cfg.Concurrency, cfg.PacingDelay)

	client := gemini.NewClientWithConfig(gemini.Config{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
	})
	client.SetLogger(logger)

	runner := oracle.NewRunner(client, oracle.RunnerConfig{
		Domain:          cfg.Domain,
		MasterPrompt:    tpl.MasterPrompt,
		CategoryPrompts: tpl.CategoryPrompts(),
		Temperature:     cfg.Temperature,
	})

	writer, err := report.NewWriter(cfg.OutputDir, cfg.Domain, logger)
	if err != nil {
		return err
	}

	scheduler := oracle.NewScheduler(runner, oracle.SchedulerConfig{
		Concurrency: cfg.Concurrency,
		PacingDelay: cfg.PacingDelay,
		Logger:      logger,
		OnProgress: func(e oracle.ProgressEvent) {
			fmt.Printf("  [%s] %s %d/%d (%.0f%%)\n",
				e.Marker(), e.SimulationID, e.Completed, e.Total, e.Percent())
		},
		OnCategoryDone: func(cat string, results []oracle.SimulationResult) {
			if err := writer.SaveCategory(cat, results); err != nil {
				logger.Warn("failed to save category results",
					zap.String("category", cat), zap.Error(err))
			}
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := usage.NewTracker()
	ctx = usage.NewContext(ctx, tracker)

	start := time.Now()
	results, runErr := scheduler.RunAll(ctx, batches)
	elapsed := time.Since(start).Round(time.Second)

	if len(results) > 0 {
		if err := writer.SaveAll(results); err != nil {
			return err
		}
		if err := writer.WriteSummary(results); err != nil {
			return err
		}
	}

	fmt.Printf("\n  Completed %d/%d simulations in %s\n", len(results), totalHypotheses, elapsed)
	fmt.Printf("  Tokens used: %d\n", tracker.Total().Total())
	fmt.Printf("  Results in:  %s (run %s)\n", cfg.OutputDir, writer.RunID())

	if runErr != nil {
		if ctx.Err() != nil {
			fmt.Println("\n  Run interrupted; partial results were saved.")
		}
		return runErr
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
