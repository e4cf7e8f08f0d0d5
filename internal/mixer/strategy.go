package mixer

// Pools holds the remaining quadrants of every source in a mix, keyed by source ID.
type Pools map[string]*Quadrants

// Candidates returns the eligible tracks of one source at the given output position.
// Unknown sources have no candidates.
func (p Pools) Candidates(sourceID string, position, totalLength int, strategy Strategy) []*ScoredTrack {
	q, ok := p[sourceID]
	if !ok || q == nil {
		return nil
	}
	return q.Candidates(position, totalLength, strategy)
}

// Candidates orders this source's remaining tracks for the given output position.
//
// Tracks from the quadrants the strategy favors at this position come first, followed by every other remaining track,
// so a narrow band running dry never ends the mix on its own.
func (q *Quadrants) Candidates(position, totalLength int, strategy Strategy) []*ScoredTrack {
	all := q.All()
	if strategy == StrategyMixed || strategy == "" {
		return all
	}

	preferred := q.band(positionRatio(position, totalLength), strategy)
	if len(preferred) == 0 {
		return all
	}

	inBand := make(map[string]bool, len(preferred))
	for _, t := range preferred {
		inBand[t.ID] = true
	}
	out := make([]*ScoredTrack, 0, len(all))
	out = append(out, preferred...)
	for _, t := range all {
		if !inBand[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func positionRatio(position, totalLength int) float64 {
	if totalLength <= 0 {
		return 0
	}
	return float64(position) / float64(totalLength)
}

// band returns the strategy's preferred quadrants for a relative position in the mix.
func (q *Quadrants) band(ratio float64, strategy Strategy) []*ScoredTrack {
	switch strategy {
	case StrategyFrontLoaded:
		switch {
		case ratio < 0.3:
			return concat(q.TopHits, q.Popular)
		case ratio < 0.7:
			return concat(q.Moderate, q.Popular)
		default:
			return concat(q.DeepCuts, q.Moderate)
		}
	case StrategyMidPeak:
		switch {
		case ratio < 0.2:
			return concat(q.Moderate, q.DeepCuts)
		case ratio < 0.4:
			return concat(q.Popular, q.Moderate)
		case ratio < 0.6:
			return concat(q.TopHits, q.Popular)
		case ratio < 0.8:
			return concat(q.Popular, q.Moderate)
		default:
			return concat(q.Moderate, q.DeepCuts)
		}
	case StrategyCrescendo:
		switch {
		case ratio < 0.3:
			return concat(q.DeepCuts, q.Moderate)
		case ratio < 0.6:
			return concat(q.Moderate, q.Popular)
		default:
			return concat(q.Popular, q.TopHits)
		}
	default:
		return q.All()
	}
}
