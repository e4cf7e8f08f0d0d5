package mixer

import (
	"math"
	"time"
)

const (
	assumedTrackMinutes = 3.5
	maxTimeEstimate     = 200
	fallbackTrackMS     = 210_000
	useAllBuffer        = 1.05
)

// TargetRatios returns each source's share of the total weight.
func TargetRatios(sources []Source, ratios map[string]RatioConfig) map[string]float64 {
	total := 0.0
	for _, src := range sources {
		if cfg, ok := ratios[src.ID]; ok && cfg.Weight > 0 && len(src.Tracks) > 0 {
			total += cfg.Weight
		}
	}

	out := make(map[string]float64, len(sources))
	if total == 0 {
		return out
	}
	for _, src := range sources {
		if cfg, ok := ratios[src.ID]; ok && cfg.Weight > 0 && len(src.Tracks) > 0 {
			out[src.ID] = cfg.Weight / total
		}
	}
	return out
}

// EstimateTotal sizes the mix for strategy banding and, in use-all mode, for termination.
//
// Sources and ratios are expected to have passed through [Normalize].
func EstimateTotal(sources []Source, ratios map[string]RatioConfig, opts Options) int {
	switch opts.Mode() {
	case ModeTime:
		return estimateForDuration(opts.TargetDuration)
	case ModeUseAll:
		return estimateUseAll(sources, ratios)
	default:
		return opts.TotalSongs
	}
}

func estimateForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return min(int(math.Ceil(d.Minutes()/assumedTrackMinutes)), maxTimeEstimate)
}

// estimateUseAll returns the longest output the most constraining source allows.
// Any time-weighted source moves every source into duration space.
func estimateUseAll(sources []Source, ratios map[string]RatioConfig) int {
	targets := TargetRatios(sources, ratios)
	if len(targets) == 0 {
		return 0
	}

	byDuration := false
	for id := range targets {
		if ratios[id].WeightType == WeightTime {
			byDuration = true
			break
		}
	}

	overallAvg := averageDurationMS(sources...)
	limit := math.Inf(1)
	for _, src := range sources {
		target, ok := targets[src.ID]
		if !ok {
			continue
		}

		var songs float64
		if byDuration {
			available := float64(len(src.Tracks)) * averageDurationMS(src)
			songs = (available / target) / overallAvg
		} else {
			songs = math.Floor(float64(len(src.Tracks)) / target)
		}
		limit = math.Min(limit, songs)
	}

	return int(math.Floor(limit * useAllBuffer))
}

// averageDurationMS averages the known track durations, falling back to 210s when none are reported.
func averageDurationMS(sources ...Source) float64 {
	total, known := 0, 0
	for _, src := range sources {
		for _, t := range src.Tracks {
			if t.DurationMS > 0 {
				total += t.DurationMS
				known++
			}
		}
	}
	if known == 0 {
		return fallbackTrackMS
	}
	return float64(total) / float64(known)
}
