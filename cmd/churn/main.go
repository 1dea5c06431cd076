package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/internal/pipeline"
	"github.com/Dawood-ML/uv-project-management/pkg/config"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/metrics"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
)

var version = "0.1.0"

// app holds what PersistentPreRunE sets up for a command.
type app struct {
	configFile string
	logLevel   string
	timeout    time.Duration

	cfg      *config.Config
	log      *zap.Logger
	runs     runstore.Store
	shutdown observability.ShutdownFunc
	cancel   context.CancelFunc
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	a := &app{}
	root := &cobra.Command{
		Use:   "churn",
		Short: "Customer churn prediction pipeline",
		Long: `churn trains, evaluates and serves customer churn models.

Data is read from local paths or s3:// and gs:// URLs, as CSV or Arrow IPC,
optionally compressed. Settings come from a YAML file (--config) with
CHURN_* environment overrides.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Minute, "Command timeout")

	root.AddCommand(
		versionCommand(),
		generateCommand(a),
		trainCommand(a),
		evaluateCommand(a),
		predictCommand(a),
		experimentCommand(a),
		runsCommand(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := root.ExecuteContext(ctx)
	a.teardown(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.Get().With(zap.String("component", "churn-cli"), zap.String("command", cmd.Name()))

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	a.cancel = cancel
	cmd.SetContext(ctx)

	if a.shutdown, err = observability.Init(ctx, cfg.Observability, os.Stderr); err != nil {
		return err
	}
	if a.runs, err = runstore.Open(ctx, cfg.Registry); err != nil {
		return err
	}
	return nil
}

// teardown flushes spans, closes the run store and pushes metrics. Failures
// are logged; the command's own result stands.
func (a *app) teardown(ctx context.Context) {
	if a.cfg == nil {
		return
	}
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("failed to flush traces", zap.Error(err))
		}
	}
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			a.log.Warn("failed to close run store", zap.Error(err))
		}
	}
	if err := metrics.Push(a.cfg.Observability.PushGateway, "churn"); err != nil {
		a.log.Warn("failed to push metrics", zap.Error(err))
	}
	if a.cancel != nil {
		a.cancel()
	}
	_ = logger.Sync()
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(a.cfg, a.log,
		pipeline.WithOutput(os.Stdout),
		pipeline.WithRunStore(a.runs))
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("churn v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func generateCommand(a *app) *cobra.Command {
	var (
		output string
		rows   int
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic customer dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.Data.Path
			}
			if err := a.pipeline().Generate(cmd.Context(), output, rows, seed); err != nil {
				return err
			}
			fmt.Printf("Created synthetic data: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV path (default: data.path)")
	cmd.Flags().IntVarP(&rows, "rows", "n", pipeline.DefaultSyntheticRows, "Number of customers")
	cmd.Flags().Int64Var(&seed, "seed", pipeline.DefaultSyntheticSeed, "Random seed")
	return cmd
}

// dataFlags binds the overrides shared by the training-side commands.
type dataFlags struct {
	data      string
	modelPath string
}

func (f *dataFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Data path or URL (default: data.path)")
	cmd.Flags().StringVar(&f.modelPath, "model-path", "", "Model bundle path (default: model.path)")
}

func (f *dataFlags) apply(cfg *config.Config) {
	if f.data != "" {
		cfg.Data.Path = f.data
	}
	if f.modelPath != "" {
		cfg.Model.Path = f.modelPath
	}
}

func trainCommand(a *app) *cobra.Command {
	var (
		flags     dataFlags
		modelType string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model and save its bundle",
		Long: `Train loads the data, splits it stratified by the target, standardizes
numeric features, fits the model, prints its evaluation and saves the
bundle. Model types: random_forest, gradient_boosting, logistic_regression.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(a.cfg)
			if modelType != "" {
				a.cfg.Model.Type = modelType
			}
			res, err := a.pipeline().Train(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("\nModel saved: %s (run %s)\n", res.ModelPath, res.RunID)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&modelType, "model", "m", "", "Model type (default: model.type)")
	return cmd
}

func evaluateCommand(a *app) *cobra.Command {
	var flags dataFlags
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a saved model on the held-out split",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(a.cfg)
			_, err := a.pipeline().Evaluate(cmd.Context())
			return err
		},
	}
	flags.bind(cmd)
	return cmd
}

func predictCommand(a *app) *cobra.Command {
	var (
		input, output, modelPath string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a dataset with a saved model",
		Long: `Predict writes the input rows with prediction and probability columns.
Rows with missing or infinite feature values are rejected, and no output is
written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath != "" {
				a.cfg.Model.Path = modelPath
			}
			res, err := a.pipeline().Predict(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			if output != "-" {
				fmt.Printf("Scored %d customers, %d predicted to churn: %s\n", res.Rows, res.Churners, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Data path or URL to score (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output CSV path, or - for stdout")
	cmd.Flags().StringVar(&modelPath, "model-path", "", "Model bundle path (default: model.path)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func experimentCommand(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Compare gradient boosting against the random forest baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" {
				a.cfg.Data.Path = data
			}
			_, err := a.pipeline().Experiment(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Data path or URL (default: data.path)")
	return cmd
}

func runsCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.pipeline().Runs(cmd.Context(), limit)
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum runs to show (0 for all)")
	return cmd
}
