package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antmicro/dram-power-analysis/internal/application"
	"github.com/antmicro/dram-power-analysis/internal/application/characterize"
	"github.com/antmicro/dram-power-analysis/internal/config"
	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
	"github.com/antmicro/dram-power-analysis/internal/infra/engine/pt"
	"github.com/antmicro/dram-power-analysis/internal/infra/report"
	minioStore "github.com/antmicro/dram-power-analysis/internal/infra/storage"
	"github.com/antmicro/dram-power-analysis/internal/infra/vcd"
)

var (
	// Global flags
	cfgPath     string
	verbose     bool
	frequencies string
	activities  string
	outDir      string

	traceFrequency float64
	traceWaveform  string
	traceScope     string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "power-analysis",
	Short: "Power characterization for the LPDDR4 DRAM controller",
	Long: `power-analysis drives an external static timing/power engine over the
synthesized DRAM controller netlist and emits one JSON power report per
operating corner.

Corners come either from a synthetic frequency x activity sweep, or from a
single trace-driven point whose switching activity is replayed from a
captured simulation waveform.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		required := cmd.Root().PersistentFlags().Changed("config")
		cfg, err = config.Load(cfgPath, required)
		if err != nil {
			return fmt.Errorf("config load error: %w", err)
		}
		// flags take final precedence over file and environment
		if frequencies != "" {
			fs, err := config.ParseFloatList(frequencies)
			if err != nil {
				return fmt.Errorf("--frequencies: %w", err)
			}
			cfg.Sweep.FrequenciesMHz = fs
		}
		if activities != "" {
			as, err := config.ParseFloatList(activities)
			if err != nil {
				return fmt.Errorf("--activities: %w", err)
			}
			cfg.Sweep.Activities = as
		}
		if outDir != "" {
			cfg.Report.OutDir = outDir
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Characterize power across a frequency x activity grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateSweep(); err != nil {
			return err
		}
		svc := newDriver(cmd.Context())
		res, err := svc.RunSweep(cmd.Context(), characterize.SweepCommand{
			FrequenciesMHz: cfg.Sweep.FrequenciesMHz,
			Activities:     cfg.Sweep.Activities,
			OutDir:         cfg.Report.OutDir,
			ClockPort:      cfg.Design.ClockPort,
			ResetPort:      cfg.Design.ResetPort,
		})
		if err != nil {
			return err
		}
		logger.Info("all corners written",
			zap.String("run_id", res.RunID),
			zap.Int("corners", res.Corners),
			zap.String("out_dir", cfg.Report.OutDir))
		return nil
	},
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Characterize power at one corner using waveform-driven activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if traceFrequency > 0 {
			cfg.Trace.FrequencyMHz = traceFrequency
		}
		if traceWaveform != "" {
			cfg.Trace.Waveform = traceWaveform
		}
		if traceScope != "" {
			cfg.Trace.Scope = traceScope
		}
		if err := cfg.ValidateTrace(); err != nil {
			return err
		}
		svc := newDriver(cmd.Context())
		res, err := svc.RunTrace(cmd.Context(), characterize.TraceCommand{
			FrequencyMHz: cfg.Trace.FrequencyMHz,
			OutDir:       cfg.Report.OutDir,
			ClockPort:    cfg.Design.ClockPort,
			Waveform:     cfg.Trace.Waveform,
			Scope:        cfg.Trace.Scope,
		})
		if err != nil {
			return err
		}
		logger.Info("trace corner written",
			zap.String("run_id", res.RunID),
			zap.Strings("files", res.Files))
		return nil
	},
}

// newDriver wires the characterization service: the engine session opener,
// the report writer, and whichever optional sinks are configured.
func newDriver(ctx context.Context) *characterize.Service {
	svc := &characterize.Service{
		OpenSession: func(ctx context.Context) (power.Session, error) {
			return pt.Open(ctx, pt.OpenParams{
				Binary:       cfg.Engine.Binary,
				Args:         cfg.Engine.Args,
				LibraryDir:   cfg.Inputs.LibraryDir,
				Netlist:      cfg.Inputs.Netlist,
				TopDesign:    cfg.Design.Top,
				Constraints:  cfg.Inputs.Constraints,
				Parasitics:   cfg.Inputs.Parasitics,
				QueryCommand: cfg.Engine.QueryCommand,
			}, logger)
		},
		Writer:     report.NewWriter(cfg.ReportPrefix()),
		Normalizer: vcd.Normalizer{},
		Clock:      application.SystemClock{},
		Log:        logger,
	}
	if hist, _ := openHistory(ctx); hist != nil {
		svc.History = hist
	}
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Warn("minio init failed, continuing without artifact upload", zap.Error(err))
		} else {
			svc.Artifacts = store
		}
	}
	return svc
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to yaml config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", "", "report output directory")

	sweepCmd.Flags().StringVar(&frequencies, "frequencies", "", "space-separated frequency list in MHz")
	sweepCmd.Flags().StringVar(&activities, "activities", "", "space-separated activity factors in [0,1]")

	traceCmd.Flags().Float64Var(&traceFrequency, "frequency", 0, "trace corner frequency in MHz")
	traceCmd.Flags().StringVar(&traceWaveform, "waveform", "", "captured VCD path")
	traceCmd.Flags().StringVar(&traceScope, "scope", "", "hierarchical scope of the design instance")

	rootCmd.AddCommand(sweepCmd, traceCmd, serveCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// logger may not exist if flag parsing failed
		if logger != nil {
			logger.Error("run failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
