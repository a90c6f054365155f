package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/internal/evaluate"
	"github.com/iwvelando/finance-calculators/internal/insight"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/output"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type rootOptions struct {
	configLocation string
	logLevel       string
	outputFormat   string
	outputFile     string
	insight        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "finance-calculators",
		Short: "Financial calculators for loans, investments, accounting and budgets",
		Long: `finance-calculators evaluates a worksheet of calculator sheets (percentage,
loan, investment, accounting, planner, vat) and prints the results, or serves
the calculators over HTTP.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorksheet(cmd.Context(), cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.configLocation, "config", constants.DefaultConfigFile, "path to worksheet file")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, xlsx")
	cmd.Flags().StringVar(&opts.outputFile, "output-file", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.insight, "insight", false, "request an insight for every computable sheet")

	cmd.AddCommand(newCalcCmd(opts))
	cmd.AddCommand(newCalculatorsCmd())
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}

func runWorksheet(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	conf, err := config.LoadConfiguration(opts.configLocation)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("worksheet %s not found; copy %s to get started: %w", opts.configLocation, constants.ExampleConfigFile, err)
		}
		return fmt.Errorf("failed to load configuration at %s: %w", opts.configLocation, err)
	}

	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over the worksheet
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	outputFile := conf.Output.File
	if opts.outputFile != "" {
		outputFile = opts.outputFile
	}
	if opts.insight {
		conf.Insight.Enabled = true
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	if err := validation.ValidateOutputTarget(outputFormat, outputFile); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	var gen calc.InsightGenerator
	if conf.Insight.Enabled {
		gen = insight.New(ctx, conf.Insight, logger)
	}

	results, err := evaluate.Evaluate(ctx, logger, *conf, gen)
	if err != nil {
		logger.Error("failed to evaluate worksheet",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return err
	}

	return writeReport(cmd, outputFormat, outputFile, results)
}

func writeReport(cmd *cobra.Command, outputFormat, outputFile string, results []evaluate.Evaluation) error {
	if outputFormat == constants.OutputFormatXLSX {
		return output.WriteXLSX(outputFile, results)
	}

	w := cmd.OutOrStdout()
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", outputFile, err)
		}
		defer func() { _ = file.Close() }()
		w = file
	}

	switch outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(w, results)
	default:
		output.PrettyFormat(w, results)
	}
	return nil
}

func newCalcCmd(root *rootOptions) *cobra.Command {
	var mode string
	var propagateFrom int
	var withInsight bool

	cmd := &cobra.Command{
		Use:   "calc <calculator> [key=value ...]",
		Short: "Run a single calculator from the command line",
		Long: `Run a single calculator. Field values are given as key=value pairs and are
kept as raw text, e.g.

  finance-calculators calc loan amount=250000 rate=4.5 years=30
  finance-calculators calc planner 1.income=5000 1.expenses=3200 --propagate-from 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initializeLogger(config.LoggingConfig{Format: "console", Level: "warn"}, root.logLevel)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			conf := config.Configuration{
				Insight: config.InsightConfig{
					Enabled:     withInsight,
					APIKey:      config.LookupAPIKey(),
					Model:       constants.DefaultInsightModel,
					Concurrency: 1,
				},
				Sheets: []config.Sheet{{
					Name:          args[0],
					Calculator:    args[0],
					Mode:          mode,
					Fields:        fields,
					PropagateFrom: propagateFrom,
				}},
			}
			if err := validation.ValidateCalculator(args[0]); err != nil {
				return err
			}

			var gen calc.InsightGenerator
			if withInsight {
				gen = insight.New(cmd.Context(), conf.Insight, logger)
			}
			results, err := evaluate.Evaluate(cmd.Context(), logger, conf, gen)
			if err != nil {
				return err
			}
			output.PrettyFormat(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "calculator mode")
	cmd.Flags().IntVar(&propagateFrom, "propagate-from", 0, "planner: copy this month into every later month")
	cmd.Flags().BoolVar(&withInsight, "insight", false, "request an insight for the result")
	return cmd
}

// parseAssignments splits key=value arguments. Values keep their raw text.
func parseAssignments(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

func newCalculatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calculators",
		Short: "List the calculators with their modes and fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, name := range validation.Calculators {
				c, err := evaluate.NewCalculator(name, nil)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\n", name)
				if switcher, ok := c.(calc.ModeSwitcher); ok {
					_, _ = fmt.Fprintf(w, "  modes:  %s (default %s)\n", strings.Join(switcher.Modes(), ", "), switcher.Mode())
				}
				_, _ = fmt.Fprintf(w, "  fields: %s\n", strings.Join(c.Keys(), ", "))
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
