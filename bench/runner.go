package bench

import (
	"fmt"
	"log/slog"

	"memprobe/buffers"
	"memprobe/config"
)

// LoopSink receives each loop's finished results, typically to print a
// per-loop line. The sink must not retain the Results past the call.
type LoopSink func(loop int, results *Results)

// RunAll drives the configured number of benchmark loops strictly
// sequentially: loop i+1 never starts before loop i's results have been
// calculated and collected. The first failing loop stops the run and the
// returned error names it; statistics gathered so far are abandoned by the
// caller's error path.
func RunAll(bufs *buffers.Set, cfg *config.Benchmark, st *Statistics, ex *Executor, sink LoopSink) error {
	for loop := 0; loop < cfg.LoopCount; loop++ {
		slog.Debug("starting benchmark loop", "loop", loop+1, "of", cfg.LoopCount)

		results, err := ex.RunLoop(bufs, cfg)
		if err != nil {
			return fmt.Errorf("benchmark loop %d: %w", loop+1, err)
		}

		st.Collect(results, cfg)

		if sink != nil {
			sink(loop, results)
		}
	}
	return nil
}
