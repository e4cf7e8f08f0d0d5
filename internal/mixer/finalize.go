package mixer

import "time"

// finalize trims the output to the budget and attaches the result metadata.
func (st *mixingState) finalize() *Result {
	tracks := st.output
	if st.mode == ModeTime {
		tracks = trimToDuration(tracks, st.opts.TargetDuration)
	}

	res := &Result{
		Tracks:             tracks,
		ExhaustedPlaylists: []string{},
		Mode:               st.mode.String(),
		Strategy:           st.strategy,
		EstimatedTotal:     st.estimated,
		Iterations:         st.iterations,
		HitIterationCap:    st.hitCap,
	}
	if res.Tracks == nil {
		res.Tracks = []MixedTrack{}
	}

	for _, s := range st.sources {
		if !s.exhausted && !st.hasUnused(s) {
			s.exhausted = true
		}
		if s.exhausted {
			res.ExhaustedPlaylists = append(res.ExhaustedPlaylists, s.id)
		}
	}
	res.StoppedEarly = len(res.ExhaustedPlaylists) > 0 && !st.opts.ContinueWhenPlaylistEmpty

	counts := make(map[string]int, len(st.sources))
	durations := make(map[string]int, len(st.sources))
	for _, t := range res.Tracks {
		counts[t.SourcePlaylist]++
		durations[t.SourcePlaylist] += t.DurationMS
		res.TotalDurationMS += t.DurationMS
	}

	for _, s := range st.sources {
		stats := SourceStats{
			ID:          s.id,
			Name:        s.name,
			Count:       counts[s.id],
			DurationMS:  durations[s.id],
			TargetRatio: s.target,
			Exhausted:   s.exhausted,
		}
		switch {
		case s.cfg.WeightType == WeightTime && res.TotalDurationMS > 0:
			stats.ActualRatio = float64(stats.DurationMS) / float64(res.TotalDurationMS)
		case s.cfg.WeightType != WeightTime && len(res.Tracks) > 0:
			stats.ActualRatio = float64(stats.Count) / float64(len(res.Tracks))
		}
		res.Distribution = append(res.Distribution, stats)
	}

	return res
}

// trimToDuration returns the longest prefix whose cumulative duration fits within limit.
func trimToDuration(tracks []MixedTrack, limit time.Duration) []MixedTrack {
	total := time.Duration(0)
	for i, t := range tracks {
		total += t.Duration()
		if total > limit {
			return tracks[:i]
		}
	}
	return tracks
}
