package output

import (
	"fmt"
	"os"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"memprobe/bench"
	"memprobe/config"
	"memprobe/stats"
	"memprobe/sysinfo"
)

// jsonSummary mirrors stats.Summary with export field names.
type jsonSummary struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median_p50"`
	P90     float64 `json:"p90"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// jsonMetric is one metric's per-loop values plus derived statistics.
type jsonMetric struct {
	Values     []float64    `json:"values"`
	Statistics *jsonSummary `json:"statistics,omitempty"`
}

type jsonBandwidth struct {
	ReadGBs  *jsonMetric `json:"read_gb_s,omitempty"`
	WriteGBs *jsonMetric `json:"write_gb_s,omitempty"`
	CopyGBs  *jsonMetric `json:"copy_gb_s,omitempty"`
}

type jsonLatency struct {
	AverageNs *jsonMetric `json:"average_ns,omitempty"`
	// Raw per-access samples and their Bessel-corrected statistics; the
	// samples are a draw from the access population, unlike the per-loop
	// averages above.
	SamplesNs         []float64    `json:"samples_ns,omitempty"`
	SamplesStatistics *jsonSummary `json:"samples_statistics,omitempty"`
}

type jsonRegion struct {
	Bandwidth *jsonBandwidth `json:"bandwidth,omitempty"`
	Latency   *jsonLatency   `json:"latency,omitempty"`
}

type jsonSystem struct {
	CPUName       string  `json:"cpu_name"`
	PhysicalCores int     `json:"physical_cores"`
	LogicalCores  int     `json:"logical_cores"`
	FrequencyMHz  float64 `json:"frequency_mhz,omitempty"`
	TotalMemory   uint64  `json:"total_memory_bytes"`
	Hostname      string  `json:"hostname,omitempty"`
	KernelVersion string  `json:"kernel_version,omitempty"`
	L1CacheSize   uint64  `json:"l1_cache_bytes,omitempty"`
	L2CacheSize   uint64  `json:"l2_cache_bytes,omitempty"`
}

type jsonConfiguration struct {
	BufferSizeMB   uint64 `json:"buffer_size_mb"`
	Iterations     int    `json:"iterations"`
	LoopCount      int    `json:"loop_count"`
	NumThreads     int    `json:"num_threads"`
	LatencySamples int    `json:"latency_sample_count"`
	CacheTarget    string `json:"cache_target"`
	CustomSize     uint64 `json:"custom_cache_bytes,omitempty"`
	OnlyBandwidth  bool   `json:"only_bandwidth,omitempty"`
	OnlyLatency    bool   `json:"only_latency,omitempty"`
	RunPatterns    bool   `json:"run_patterns,omitempty"`
	NonCacheable   bool   `json:"non_cacheable,omitempty"`
}

type jsonExport struct {
	GeneratedAt   string                    `json:"generated_at"`
	System        jsonSystem                `json:"system"`
	Configuration jsonConfiguration         `json:"configuration"`
	MainMemory    jsonRegion                `json:"main_memory"`
	Caches        map[string]jsonRegion     `json:"caches,omitempty"`
	Patterns      map[string]*jsonBandwidth `json:"patterns,omitempty"`
}

// WriteJSON exports the aggregated run to path in one shot. Per-loop scalar
// statistics use population variance; raw latency-sample statistics use
// sample variance.
func WriteJSON(path string, cfg *config.Benchmark, info sysinfo.Info, st *bench.Statistics) error {
	export := buildExport(cfg, info, st)

	data, err := sonnet.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing JSON export: %w", err)
	}
	return nil
}

// WritePatternJSON exports an aggregated pattern-suite run to path.
func WritePatternJSON(path string, cfg *config.Benchmark, info sysinfo.Info, st *bench.PatternStatistics) error {
	export := exportHeader(cfg, info)

	patterns := map[string]*jsonBandwidth{}
	for name, series := range map[string]bench.PatternSeries{
		"sequential_forward": st.Forward,
		"sequential_reverse": st.Reverse,
		"strided_64":         st.Strided64,
		"strided_4096":       st.Strided4096,
		"random_uniform":     st.Random,
	} {
		if bw := bandwidthSection(series.ReadGBs, series.WriteGBs, series.CopyGBs); bw != nil {
			patterns[name] = bw
		}
	}
	if len(patterns) > 0 {
		export.Patterns = patterns
	}

	data, err := sonnet.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing JSON export: %w", err)
	}
	return nil
}

func exportHeader(cfg *config.Benchmark, info sysinfo.Info) jsonExport {
	return jsonExport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		System: jsonSystem{
			CPUName:       info.CPUName,
			PhysicalCores: info.PhysicalCores,
			LogicalCores:  info.LogicalCores,
			FrequencyMHz:  info.FrequencyMHz,
			TotalMemory:   info.TotalMemory,
			Hostname:      info.Hostname,
			KernelVersion: info.KernelVersion,
			L1CacheSize:   cfg.L1CacheSize,
			L2CacheSize:   cfg.L2CacheSize,
		},
		Configuration: jsonConfiguration{
			BufferSizeMB:   cfg.BufferSizeMB,
			Iterations:     cfg.Iterations,
			LoopCount:      cfg.LoopCount,
			NumThreads:     cfg.NumThreads,
			LatencySamples: cfg.LatencySamples,
			CacheTarget:    targetName(cfg.Target),
			CustomSize:     cfg.Target.CustomSize,
			OnlyBandwidth:  cfg.OnlyBandwidth,
			OnlyLatency:    cfg.OnlyLatency,
			RunPatterns:    cfg.RunPatterns,
			NonCacheable:   cfg.NonCacheable,
		},
	}
}

func buildExport(cfg *config.Benchmark, info sysinfo.Info, st *bench.Statistics) jsonExport {
	export := exportHeader(cfg, info)

	export.MainMemory = jsonRegion{
		Bandwidth: bandwidthSection(st.AllReadBWGBs, st.AllWriteBWGBs, st.AllCopyBWGBs),
		Latency:   latencySection(st.AllAverageLatencyNs, st.AllMainMemLatencySamples),
	}

	caches := map[string]jsonRegion{}
	switch cfg.Target.Kind {
	case config.TargetCustom:
		if region, ok := cacheRegion(st.AllCustomReadBWGBs, st.AllCustomWriteBWGBs,
			st.AllCustomCopyBWGBs, st.AllCustomLatencyNs, st.AllCustomLatencySamples); ok {
			caches["custom"] = region
		}
	default:
		if region, ok := cacheRegion(st.AllL1ReadBWGBs, st.AllL1WriteBWGBs,
			st.AllL1CopyBWGBs, st.AllL1LatencyNs, st.AllL1LatencySamples); ok {
			caches["l1"] = region
		}
		if region, ok := cacheRegion(st.AllL2ReadBWGBs, st.AllL2WriteBWGBs,
			st.AllL2CopyBWGBs, st.AllL2LatencyNs, st.AllL2LatencySamples); ok {
			caches["l2"] = region
		}
	}
	if len(caches) > 0 {
		export.Caches = caches
	}

	return export
}

func targetName(t config.CacheTarget) string {
	if t.Kind == config.TargetCustom {
		return "custom"
	}
	return "l1l2"
}

func metric(values []float64) *jsonMetric {
	if len(values) == 0 {
		return nil
	}
	s := toJSONSummary(stats.Calculate(values, stats.Population))
	return &jsonMetric{Values: values, Statistics: &s}
}

func bandwidthSection(read, write, cp []float64) *jsonBandwidth {
	if len(read) == 0 && len(write) == 0 && len(cp) == 0 {
		return nil
	}
	return &jsonBandwidth{
		ReadGBs:  metric(read),
		WriteGBs: metric(write),
		CopyGBs:  metric(cp),
	}
}

func latencySection(perLoop, samples []float64) *jsonLatency {
	if len(perLoop) == 0 && len(samples) == 0 {
		return nil
	}
	lat := &jsonLatency{AverageNs: metric(perLoop)}
	if len(samples) > 0 {
		s := toJSONSummary(stats.Calculate(samples, stats.Sample))
		lat.SamplesNs = samples
		lat.SamplesStatistics = &s
	}
	return lat
}

func cacheRegion(read, write, cp, latency, samples []float64) (jsonRegion, bool) {
	region := jsonRegion{
		Bandwidth: bandwidthSection(read, write, cp),
		Latency:   latencySection(latency, samples),
	}
	return region, region.Bandwidth != nil || region.Latency != nil
}

func toJSONSummary(s stats.Summary) jsonSummary {
	return jsonSummary{
		Average: s.Average,
		Median:  s.Median,
		P90:     s.P90,
		P95:     s.P95,
		P99:     s.P99,
		StdDev:  s.StdDev,
		Min:     s.Min,
		Max:     s.Max,
	}
}
