package mixer

import "time"

// sourceState tracks one source through a single mix.
type sourceState struct {
	id         string
	name       string
	cfg        RatioConfig
	target     float64
	pool       *Quadrants
	count      int
	durationMS int
	exhausted  bool
}

// mixingState is the working state of a single [Mixer.Mix] call.
type mixingState struct {
	opts      Options
	mode      Mode
	strategy  Strategy
	estimated int
	maxIter   int

	sources         []*sourceState
	output          []MixedTrack
	used            map[string]bool
	totalDurationMS int
	iterations      int
	hitCap          bool
}

func newMixingState(sources []Source, ratios map[string]RatioConfig, pools Pools, opts Options, strategy Strategy) *mixingState {
	targets := TargetRatios(sources, ratios)
	st := &mixingState{
		opts:      opts,
		mode:      opts.Mode(),
		strategy:  strategy,
		estimated: EstimateTotal(sources, ratios, opts),
		used:      make(map[string]bool),
	}

	for _, src := range sources {
		st.sources = append(st.sources, &sourceState{
			id:     src.ID,
			name:   src.Name,
			cfg:    ratios[src.ID],
			target: targets[src.ID],
			pool:   pools[src.ID],
		})
	}

	if st.mode == ModeUseAll {
		st.maxIter = st.estimated * 2
	} else {
		st.maxIter = max(opts.TotalSongs, st.estimated) * 10
	}

	return st
}

// run executes the allocation loop until a budget, exhaustion or the iteration cap ends it.
func (st *mixingState) run() {
	for st.shouldContinue() {
		if st.iterations >= st.maxIter {
			st.hitCap = true
			return
		}
		st.iterations++

		src := st.pick()
		if src == nil || st.shouldStopForExhaustion() {
			return
		}

		burst := st.burstSize(src)
		for range burst {
			if !st.shouldContinue() {
				break
			}
			if !st.draw(src) || src.exhausted {
				break
			}
		}

		if st.shouldStopForExhaustion() {
			return
		}
	}
}

func (st *mixingState) shouldContinue() bool {
	switch st.mode {
	case ModeTime:
		return time.Duration(st.totalDurationMS)*time.Millisecond < st.opts.TargetDuration
	case ModeUseAll:
		open := st.anyOpen()
		return (len(st.output) < st.estimated && open) || (st.opts.ContinueWhenPlaylistEmpty && open)
	default:
		return len(st.output) < st.opts.TotalSongs
	}
}

func (st *mixingState) shouldStopForExhaustion() bool {
	if !st.anyOpen() {
		return true
	}
	return !st.opts.ContinueWhenPlaylistEmpty && st.anyExhausted()
}

func (st *mixingState) anyOpen() bool {
	for _, s := range st.sources {
		if !s.exhausted {
			return true
		}
	}
	return false
}

func (st *mixingState) anyExhausted() bool {
	for _, s := range st.sources {
		if s.exhausted {
			return true
		}
	}
	return false
}

// currentRatio is the source's observed share of the output so far.
func (st *mixingState) currentRatio(s *sourceState) float64 {
	if s.cfg.WeightType == WeightTime {
		if st.totalDurationMS == 0 {
			return 0
		}
		return float64(s.durationMS) / float64(st.totalDurationMS)
	}
	if len(st.output) == 0 {
		return 0
	}
	return float64(s.count) / float64(len(st.output))
}

// pick returns the open source furthest below its target share.
// Sources with nothing left to draw are marked exhausted on the way.
func (st *mixingState) pick() *sourceState {
	var best *sourceState
	bestDeficit := 0.0

	for _, s := range st.sources {
		if s.exhausted {
			continue
		}
		if !st.hasUnused(s) {
			s.exhausted = true
			continue
		}

		deficit := s.target - st.currentRatio(s)
		if best == nil || deficit > bestDeficit {
			best, bestDeficit = s, deficit
		}
	}

	return best
}

// burstSize widens the burst to Max when the source lags its expected duration share.
func (st *mixingState) burstSize(s *sourceState) int {
	if s.cfg.Max <= s.cfg.Min {
		return s.cfg.Min
	}
	expected := float64(st.totalDurationMS) * s.target
	if float64(s.durationMS) < 0.8*expected {
		return s.cfg.Max
	}
	return s.cfg.Min
}

func (st *mixingState) hasUnused(s *sourceState) bool {
	if s.pool == nil {
		return false
	}
	for _, t := range s.pool.All() {
		if !st.used[t.ID] {
			return true
		}
	}
	return false
}

// draw appends the first unused candidate of s at the current position and reports whether one was found.
// The source is marked exhausted once its pool holds no unused track.
func (st *mixingState) draw(s *sourceState) bool {
	if s.pool == nil {
		s.exhausted = true
		return false
	}

	for _, t := range s.pool.Candidates(len(st.output), st.estimated, st.strategy) {
		if st.used[t.ID] {
			s.pool.Remove(t.ID)
			continue
		}

		st.used[t.ID] = true
		st.output = append(st.output, MixedTrack{Track: t.Track, SourcePlaylist: s.id})
		st.totalDurationMS += t.DurationMS
		s.count++
		s.durationMS += t.DurationMS
		s.pool.Remove(t.ID)

		if !st.hasUnused(s) {
			s.exhausted = true
		}
		return true
	}

	s.exhausted = true
	return false
}
