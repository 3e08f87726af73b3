package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"memprobe/bench"
	"memprobe/buffers"
	"memprobe/config"
	"memprobe/kernels"
	"memprobe/output"
	"memprobe/sysinfo"
	"memprobe/timer"
	"memprobe/utils"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "memprobe",
	Short: "Measure memory bandwidth and latency for main memory and CPU caches",
	Long: `memprobe measures memory-subsystem performance on Linux: sequential
read/write/copy bandwidth and pointer-chase latency for main memory and for
the L1/L2 data caches (or one custom-sized buffer). Results are aggregated
across repeated loops and reported on the console, with an optional one-shot
JSON export.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.Uint64("buffersize", config.DefaultBufferSizeMB, "main memory buffer size in MB")
	flags.Int("iterations", config.DefaultIterations, "iterations per bandwidth measurement")
	flags.Int("loops", config.DefaultLoopCount, "number of full benchmark loops")
	flags.Int("threads", 0, "thread count for bandwidth tests (0 = all logical cores)")
	flags.String("cache-size", "", "test one custom cache buffer of this size (e.g. 192K, 4M) instead of L1/L2")
	flags.Int("latency-samples", config.DefaultLatencySamples, "per-access latency samples collected per cache latency test")
	flags.Bool("bandwidth-only", false, "run only bandwidth tests")
	flags.Bool("latency-only", false, "run only latency tests")
	flags.Bool("patterns", false, "run the access-pattern suite (forward/reverse/strided/random) instead")
	flags.Bool("non-cacheable", false, "hint buffer allocations away from aggressive caching (best effort)")
	flags.StringP("output", "o", "", "write JSON results to this file")
	flags.Bool("debug", false, "enable debug logging")
	flags.StringVar(&cfgFile, "config", "", "config file (default ./memprobe.yaml)")

	for _, name := range []string{
		"buffersize", "iterations", "loops", "threads", "cache-size",
		"latency-samples", "bandwidth-only", "latency-only", "patterns",
		"non-cacheable", "output", "debug",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig merges an optional config file under the CLI flags; flags win.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("memprobe")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("MEMPROBE")
	// Dashed flag names map to underscored env vars (MEMPROBE_LATENCY_SAMPLES).
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// buildConfig turns the merged flag/file/env view into a validated, derived
// benchmark configuration.
func buildConfig(info sysinfo.Info) (*config.Benchmark, error) {
	cfg := config.Default()
	cfg.BufferSizeMB = viper.GetUint64("buffersize")
	cfg.Iterations = viper.GetInt("iterations")
	cfg.LoopCount = viper.GetInt("loops")
	cfg.NumThreads = viper.GetInt("threads")
	cfg.UserThreads = cfg.NumThreads > 0
	cfg.LatencySamples = viper.GetInt("latency-samples")
	cfg.OnlyBandwidth = viper.GetBool("bandwidth-only")
	cfg.OnlyLatency = viper.GetBool("latency-only")
	cfg.RunPatterns = viper.GetBool("patterns")
	cfg.NonCacheable = viper.GetBool("non-cacheable")
	cfg.OutputFile = viper.GetString("output")
	cfg.Debug = viper.GetBool("debug")

	if sizeStr := viper.GetString("cache-size"); sizeStr != "" {
		size, err := utils.ParseSize(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --cache-size %q: %w", sizeStr, err)
		}
		cfg.Target = config.CustomTarget(uint64(size))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Derive(info); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func run() error {
	utils.SetupLogging(viper.GetBool("debug"))

	info := sysinfo.Detect()
	cfg, err := buildConfig(info)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	console := output.NewConsole(os.Stdout)
	console.PrintHeader(cfg, info)

	t, err := timer.New()
	if err != nil {
		return fmt.Errorf("timer: %w", err)
	}

	slog.Info("allocating buffers",
		"main_mb", cfg.BufferSizeMB,
		"l1_bytes", cfg.L1BufferSize,
		"l2_bytes", cfg.L2BufferSize,
		"custom_bytes", cfg.CustomBufferSize)
	bufs, err := buffers.Allocate(cfg)
	if err != nil {
		return err
	}
	defer bufs.Release()

	spinner := output.NewSpinner(os.Stderr)

	if cfg.RunPatterns {
		return runPatterns(cfg, info, console, spinner, t, bufs)
	}

	executor := bench.NewExecutor(kernels.Kernels{}, t, spinner)
	statistics := bench.NewStatistics(cfg)

	err = bench.RunAll(bufs, cfg, statistics, executor, func(loop int, results *bench.Results) {
		spinner.Clear()
		console.PrintLoop(loop, cfg, results)
	})
	spinner.Clear()
	if err != nil {
		return err
	}

	console.PrintStatistics(cfg, statistics)

	if cfg.OutputFile != "" {
		if err := output.WriteJSON(cfg.OutputFile, cfg, info, statistics); err != nil {
			return err
		}
		slog.Info("results exported", "path", cfg.OutputFile)
	}

	return nil
}

func runPatterns(cfg *config.Benchmark, info sysinfo.Info, console *output.Console,
	spinner *output.Spinner, t *timer.Timer, bufs *buffers.Set) error {
	executor := bench.NewPatternExecutor(kernels.Kernels{}, t, spinner)
	statistics := &bench.PatternStatistics{}

	err := bench.RunAllPatterns(bufs, cfg, statistics, executor, func(loop int, results *bench.PatternResults) {
		spinner.Clear()
		console.PrintPatternLoop(loop, cfg, results)
	})
	spinner.Clear()
	if err != nil {
		return err
	}

	console.PrintPatternStatistics(cfg, statistics)

	if cfg.OutputFile != "" {
		if err := output.WritePatternJSON(cfg.OutputFile, cfg, info, statistics); err != nil {
			return err
		}
		slog.Info("results exported", "path", cfg.OutputFile)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
