package bench

import "memprobe/config"

// NewStatistics returns a Statistics aggregate with capacity for the
// configured loop count, so collection never reallocates mid-run. Only the
// metrics the configuration will actually produce get backing storage.
func NewStatistics(cfg *config.Benchmark) *Statistics {
	st := &Statistics{}
	loops := cfg.LoopCount
	if loops <= 0 {
		return st
	}

	if !cfg.OnlyLatency {
		st.AllReadBWGBs = make([]float64, 0, loops)
		st.AllWriteBWGBs = make([]float64, 0, loops)
		st.AllCopyBWGBs = make([]float64, 0, loops)
	}
	if !cfg.OnlyBandwidth {
		st.AllAverageLatencyNs = make([]float64, 0, loops)
	}

	sampleCap := loops * cfg.LatencySamples

	switch cfg.Target.Kind {
	case config.TargetCustom:
		if cfg.CustomBufferSize > 0 {
			if !cfg.OnlyLatency {
				st.AllCustomReadBWGBs = make([]float64, 0, loops)
				st.AllCustomWriteBWGBs = make([]float64, 0, loops)
				st.AllCustomCopyBWGBs = make([]float64, 0, loops)
			}
			if !cfg.OnlyBandwidth {
				st.AllCustomLatencyNs = make([]float64, 0, loops)
				st.AllCustomLatencySamples = make([]float64, 0, sampleCap)
			}
		}
	default:
		if cfg.L1BufferSize > 0 {
			if !cfg.OnlyLatency {
				st.AllL1ReadBWGBs = make([]float64, 0, loops)
				st.AllL1WriteBWGBs = make([]float64, 0, loops)
				st.AllL1CopyBWGBs = make([]float64, 0, loops)
			}
			if !cfg.OnlyBandwidth {
				st.AllL1LatencyNs = make([]float64, 0, loops)
				st.AllL1LatencySamples = make([]float64, 0, sampleCap)
			}
		}
		if cfg.L2BufferSize > 0 {
			if !cfg.OnlyLatency {
				st.AllL2ReadBWGBs = make([]float64, 0, loops)
				st.AllL2WriteBWGBs = make([]float64, 0, loops)
				st.AllL2CopyBWGBs = make([]float64, 0, loops)
			}
			if !cfg.OnlyBandwidth {
				st.AllL2LatencyNs = make([]float64, 0, loops)
				st.AllL2LatencySamples = make([]float64, 0, sampleCap)
			}
		}
	}

	return st
}

// Collect appends one loop's results to the aggregate. Scalars append in
// loop order; latency sample slices concatenate onto the running totals.
// Metrics inactive under the current mode are left untouched, so a
// sequence's length always equals the number of loops its metric ran in.
func (st *Statistics) Collect(results *Results, cfg *config.Benchmark) {
	if !cfg.OnlyLatency {
		st.AllReadBWGBs = append(st.AllReadBWGBs, results.ReadBWGBs)
		st.AllWriteBWGBs = append(st.AllWriteBWGBs, results.WriteBWGBs)
		st.AllCopyBWGBs = append(st.AllCopyBWGBs, results.CopyBWGBs)
	}
	if !cfg.OnlyBandwidth {
		st.AllAverageLatencyNs = append(st.AllAverageLatencyNs, results.AverageLatencyNs)
		st.AllMainMemLatencySamples = append(st.AllMainMemLatencySamples, results.LatencySamples...)
	}

	switch cfg.Target.Kind {
	case config.TargetCustom:
		if cfg.CustomBufferSize > 0 {
			if !cfg.OnlyLatency {
				st.AllCustomReadBWGBs = append(st.AllCustomReadBWGBs, results.CustomReadBWGBs)
				st.AllCustomWriteBWGBs = append(st.AllCustomWriteBWGBs, results.CustomWriteBWGBs)
				st.AllCustomCopyBWGBs = append(st.AllCustomCopyBWGBs, results.CustomCopyBWGBs)
			}
			if !cfg.OnlyBandwidth {
				st.AllCustomLatencyNs = append(st.AllCustomLatencyNs, results.CustomLatencyNs)
				st.AllCustomLatencySamples = append(st.AllCustomLatencySamples, results.CustomLatencySamples...)
			}
		}
	default:
		if cfg.L1BufferSize > 0 {
			if !cfg.OnlyLatency {
				st.AllL1ReadBWGBs = append(st.AllL1ReadBWGBs, results.L1ReadBWGBs)
				st.AllL1WriteBWGBs = append(st.AllL1WriteBWGBs, results.L1WriteBWGBs)
				st.AllL1CopyBWGBs = append(st.AllL1CopyBWGBs, results.L1CopyBWGBs)
			}
			if !cfg.OnlyBandwidth {
				st.AllL1LatencyNs = append(st.AllL1LatencyNs, results.L1LatencyNs)
				st.AllL1LatencySamples = append(st.AllL1LatencySamples, results.L1LatencySamples...)
			}
		}
		if cfg.L2BufferSize > 0 {
			if !cfg.OnlyLatency {
				st.AllL2ReadBWGBs = append(st.AllL2ReadBWGBs, results.L2ReadBWGBs)
				st.AllL2WriteBWGBs = append(st.AllL2WriteBWGBs, results.L2WriteBWGBs)
				st.AllL2CopyBWGBs = append(st.AllL2CopyBWGBs, results.L2CopyBWGBs)
			}
			if !cfg.OnlyBandwidth {
				st.AllL2LatencyNs = append(st.AllL2LatencyNs, results.L2LatencyNs)
				st.AllL2LatencySamples = append(st.AllL2LatencySamples, results.L2LatencySamples...)
			}
		}
	}
}
