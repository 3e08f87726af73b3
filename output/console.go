// Package output renders finished benchmark data for humans (console) and
// machines (JSON export). The benchmark core hands over plain data; nothing
// in here feeds back into measurement.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"memprobe/bench"
	"memprobe/config"
	"memprobe/stats"
	"memprobe/sysinfo"
	"memprobe/utils"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// Console writes the human-readable report.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// PrintHeader shows what is about to run and on what hardware.
func (c *Console) PrintHeader(cfg *config.Benchmark, info sysinfo.Info) {
	fmt.Fprintln(c.w, headerStyle.Render("--- memprobe: memory bandwidth & latency ---"))
	if info.CPUName != "" {
		fmt.Fprintf(c.w, "CPU:          %s (%d physical / %d logical cores)\n",
			info.CPUName, info.PhysicalCores, info.LogicalCores)
	}
	fmt.Fprintf(c.w, "Memory:       %s total, %s available\n",
		utils.FormatSize(int64(info.TotalMemory)), utils.FormatSize(int64(info.AvailMemory)))
	fmt.Fprintf(c.w, "Buffer size:  %d MB, iterations: %d, loops: %d, threads: %d\n",
		cfg.BufferSizeMB, cfg.Iterations, cfg.LoopCount, cfg.NumThreads)
	switch {
	case cfg.RunPatterns:
		fmt.Fprintln(c.w, "Mode:         access patterns (forward / reverse / strided / random)")
	case cfg.Target.Kind == config.TargetCustom:
		fmt.Fprintf(c.w, "Cache target: custom %s\n", utils.FormatSize(int64(cfg.Target.CustomSize)))
	default:
		fmt.Fprintf(c.w, "Cache target: L1 %s / L2 %s\n",
			utils.FormatSize(int64(cfg.L1CacheSize)), utils.FormatSize(int64(cfg.L2CacheSize)))
	}
	if !cfg.OnlyBandwidth && !cfg.RunPatterns {
		fmt.Fprintf(c.w, "Latency:      %s main-memory accesses, %d samples per cache test\n",
			utils.FormatCount(cfg.LatAccesses), cfg.LatencySamples)
	}
	fmt.Fprintln(c.w)
}

// PrintLoop writes one loop's results as they finish.
func (c *Console) PrintLoop(loop int, cfg *config.Benchmark, r *bench.Results) {
	fmt.Fprintln(c.w, labelStyle.Render(fmt.Sprintf("Loop %d/%d", loop+1, cfg.LoopCount)))

	if !cfg.OnlyLatency {
		fmt.Fprintf(c.w, "  Read:  %9.3f GB/s  %s\n", r.ReadBWGBs,
			dimStyle.Render(fmt.Sprintf("(%.3fs)", r.TotalReadTime)))
		fmt.Fprintf(c.w, "  Write: %9.3f GB/s  %s\n", r.WriteBWGBs,
			dimStyle.Render(fmt.Sprintf("(%.3fs)", r.TotalWriteTime)))
		fmt.Fprintf(c.w, "  Copy:  %9.3f GB/s  %s\n", r.CopyBWGBs,
			dimStyle.Render(fmt.Sprintf("(%.3fs)", r.TotalCopyTime)))

		switch cfg.Target.Kind {
		case config.TargetCustom:
			if cfg.CustomBufferSize > 0 {
				c.printCacheBandwidth("Custom", r.CustomReadBWGBs, r.CustomWriteBWGBs, r.CustomCopyBWGBs)
			}
		default:
			if cfg.L1BufferSize > 0 {
				c.printCacheBandwidth("L1", r.L1ReadBWGBs, r.L1WriteBWGBs, r.L1CopyBWGBs)
			}
			if cfg.L2BufferSize > 0 {
				c.printCacheBandwidth("L2", r.L2ReadBWGBs, r.L2WriteBWGBs, r.L2CopyBWGBs)
			}
		}
	}

	if !cfg.OnlyBandwidth {
		switch cfg.Target.Kind {
		case config.TargetCustom:
			if cfg.CustomBufferSize > 0 {
				fmt.Fprintf(c.w, "  Custom latency: %8.2f ns\n", r.CustomLatencyNs)
			}
		default:
			if cfg.L1BufferSize > 0 {
				fmt.Fprintf(c.w, "  L1 latency:     %8.2f ns\n", r.L1LatencyNs)
			}
			if cfg.L2BufferSize > 0 {
				fmt.Fprintf(c.w, "  L2 latency:     %8.2f ns\n", r.L2LatencyNs)
			}
		}
		fmt.Fprintf(c.w, "  Memory latency: %8.2f ns\n", r.AverageLatencyNs)
	}
}

func (c *Console) printCacheBandwidth(name string, read, write, cp float64) {
	fmt.Fprintf(c.w, "  %-6s read %9.3f / write %9.3f / copy %9.3f GB/s\n", name+":", read, write, cp)
}

// PrintStatistics writes the cross-loop summary block. Single-loop runs skip
// it; one sample has no distribution worth printing.
func (c *Console) PrintStatistics(cfg *config.Benchmark, st *bench.Statistics) {
	if cfg.LoopCount <= 1 {
		return
	}

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, headerStyle.Render(fmt.Sprintf("--- Statistics Across %d Loops ---", cfg.LoopCount)))

	if !cfg.OnlyLatency {
		c.printSummary("Read Bandwidth (GB/s)", stats.Calculate(st.AllReadBWGBs, stats.Population), 3)
		c.printSummary("Write Bandwidth (GB/s)", stats.Calculate(st.AllWriteBWGBs, stats.Population), 3)
		c.printSummary("Copy Bandwidth (GB/s)", stats.Calculate(st.AllCopyBWGBs, stats.Population), 3)

		switch cfg.Target.Kind {
		case config.TargetCustom:
			c.printCacheBandwidthStats("Custom", st.AllCustomReadBWGBs, st.AllCustomWriteBWGBs, st.AllCustomCopyBWGBs)
		default:
			c.printCacheBandwidthStats("L1", st.AllL1ReadBWGBs, st.AllL1WriteBWGBs, st.AllL1CopyBWGBs)
			c.printCacheBandwidthStats("L2", st.AllL2ReadBWGBs, st.AllL2WriteBWGBs, st.AllL2CopyBWGBs)
		}
	}

	if !cfg.OnlyBandwidth {
		fmt.Fprintln(c.w, labelStyle.Render("Cache Latency (ns)"))
		switch cfg.Target.Kind {
		case config.TargetCustom:
			c.printLatencyStats("Custom", st.AllCustomLatencySamples, st.AllCustomLatencyNs)
		default:
			c.printLatencyStats("L1", st.AllL1LatencySamples, st.AllL1LatencyNs)
			c.printLatencyStats("L2", st.AllL2LatencySamples, st.AllL2LatencyNs)
		}
		c.printSummary("Main Memory Latency (ns)",
			stats.ForLatency(st.AllMainMemLatencySamples, st.AllAverageLatencyNs), 2)
	}

	fmt.Fprintln(c.w, dimStyle.Render("----------------------------------"))
}

func (c *Console) printCacheBandwidthStats(name string, read, write, cp []float64) {
	if len(read) == 0 && len(write) == 0 && len(cp) == 0 {
		return
	}
	fmt.Fprintln(c.w, labelStyle.Render(name+" Cache Bandwidth (GB/s)"))
	if len(read) > 0 {
		c.printSummary("  Read", stats.Calculate(read, stats.Population), 3)
	}
	if len(write) > 0 {
		c.printSummary("  Write", stats.Calculate(write, stats.Population), 3)
	}
	if len(cp) > 0 {
		c.printSummary("  Copy", stats.Calculate(cp, stats.Population), 3)
	}
}

func (c *Console) printLatencyStats(name string, samples, perLoop []float64) {
	if len(samples) == 0 && len(perLoop) == 0 {
		return
	}
	c.printSummary("  "+name, stats.ForLatency(samples, perLoop), 2)
}

// PrintPatternLoop writes one pattern loop's results; every non-baseline
// pattern carries its percentage change against the sequential-forward
// numbers.
func (c *Console) PrintPatternLoop(loop int, cfg *config.Benchmark, r *bench.PatternResults) {
	fmt.Fprintln(c.w, labelStyle.Render(fmt.Sprintf("Pattern Loop %d/%d", loop+1, cfg.LoopCount)))
	c.printPatternTriple("Sequential Forward", r.Forward, bench.PatternTriple{})
	c.printPatternTriple("Sequential Reverse", r.Reverse, r.Forward)
	c.printPatternTriple("Strided (64 B)", r.Strided64, r.Forward)
	c.printPatternTriple("Strided (4096 B)", r.Strided4096, r.Forward)
	c.printPatternTriple("Random Uniform", r.Random, r.Forward)
	c.printPatternEfficiency(r)
}

func (c *Console) printPatternTriple(name string, t, baseline bench.PatternTriple) {
	if t.ReadGBs == 0 && t.WriteGBs == 0 && t.CopyGBs == 0 {
		fmt.Fprintf(c.w, "  %s %s\n", labelStyle.Render(name), dimStyle.Render("skipped"))
		return
	}
	fmt.Fprintln(c.w, "  "+labelStyle.Render(name))
	fmt.Fprintf(c.w, "    Read:  %9.3f GB/s%s\n", t.ReadGBs, pctChange(baseline.ReadGBs, t.ReadGBs))
	fmt.Fprintf(c.w, "    Write: %9.3f GB/s%s\n", t.WriteGBs, pctChange(baseline.WriteGBs, t.WriteGBs))
	fmt.Fprintf(c.w, "    Copy:  %9.3f GB/s%s\n", t.CopyGBs, pctChange(baseline.CopyGBs, t.CopyGBs))
}

func pctChange(baseline, value float64) string {
	if baseline == 0 {
		return ""
	}
	pct := (value - baseline) / baseline * 100.0
	return dimStyle.Render(fmt.Sprintf("  (%+.1f%%)", pct))
}

func (c *Console) printPatternEfficiency(r *bench.PatternResults) {
	eff := r.Efficiency()
	fmt.Fprintln(c.w, "  "+labelStyle.Render("Efficiency Analysis"))
	fmt.Fprintf(c.w, "    Sequential coherence:      %.1f%%\n", eff.SequentialCoherencePct)
	fmt.Fprintf(c.w, "    Prefetcher effectiveness:  %.1f%%\n", eff.PrefetchEffectivenessPct)
	fmt.Fprintf(c.w, "    Cache thrashing potential: %s\n", thrashingLevel(eff.CacheThrashingPct))
	fmt.Fprintf(c.w, "    TLB pressure:              %s\n", tlbLevel(eff.TLBPressurePct))
}

// thrashingLevel interprets page-stride throughput relative to the forward
// baseline: the less a page stride costs, the less the caches are thrashed.
func thrashingLevel(pct float64) string {
	switch {
	case pct > 70:
		return "Low"
	case pct > 40:
		return "Medium"
	default:
		return "High"
	}
}

// tlbLevel interprets random throughput relative to the page stride: random
// access spreads over far more pages, so a large drop signals TLB misses.
func tlbLevel(pct float64) string {
	switch {
	case pct > 50:
		return "Minimal"
	case pct > 20:
		return "Moderate"
	default:
		return "High"
	}
}

// PrintPatternStatistics writes the cross-loop pattern summary block.
// Single-loop runs skip it.
func (c *Console) PrintPatternStatistics(cfg *config.Benchmark, st *bench.PatternStatistics) {
	if cfg.LoopCount <= 1 {
		return
	}

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, headerStyle.Render(fmt.Sprintf("--- Pattern Statistics Across %d Loops ---", cfg.LoopCount)))
	c.printPatternSeries("Sequential Forward", st.Forward)
	c.printPatternSeries("Sequential Reverse", st.Reverse)
	c.printPatternSeries("Strided (64 B)", st.Strided64)
	c.printPatternSeries("Strided (4096 B)", st.Strided4096)
	c.printPatternSeries("Random Uniform", st.Random)
	fmt.Fprintln(c.w, dimStyle.Render("----------------------------------"))
}

func (c *Console) printPatternSeries(name string, s bench.PatternSeries) {
	if len(s.ReadGBs) == 0 && len(s.WriteGBs) == 0 && len(s.CopyGBs) == 0 {
		return
	}
	fmt.Fprintln(c.w, labelStyle.Render(name+" (GB/s)"))
	if len(s.ReadGBs) > 0 {
		c.printSummary("  Read", stats.Calculate(s.ReadGBs, stats.Population), 3)
	}
	if len(s.WriteGBs) > 0 {
		c.printSummary("  Write", stats.Calculate(s.WriteGBs, stats.Population), 3)
	}
	if len(s.CopyGBs) > 0 {
		c.printSummary("  Copy", stats.Calculate(s.CopyGBs, stats.Population), 3)
	}
}

func (c *Console) printSummary(name string, s stats.Summary, precision int) {
	fmt.Fprintf(c.w, "%s:\n", labelStyle.Render(name))
	fmt.Fprintf(c.w, "  Average:      %.*f\n", precision, s.Average)
	fmt.Fprintf(c.w, "  Median (p50): %.*f\n", precision, s.Median)
	fmt.Fprintf(c.w, "  P90:          %.*f\n", precision, s.P90)
	fmt.Fprintf(c.w, "  P95:          %.*f\n", precision, s.P95)
	fmt.Fprintf(c.w, "  P99:          %.*f\n", precision, s.P99)
	fmt.Fprintf(c.w, "  StdDev:       %.*f\n", precision, s.StdDev)
	fmt.Fprintf(c.w, "  Min:          %.*f\n", precision, s.Min)
	fmt.Fprintf(c.w, "  Max:          %.*f\n", precision, s.Max)
}
