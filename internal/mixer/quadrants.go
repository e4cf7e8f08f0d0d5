package mixer

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
)

const (
	maxPopularity     = 100.0
	maxRecencyBonus   = 20.0
	recencyWindowDays = 730.0
)

// Quadrants partitions one source into four popularity tiers, most popular first.
type Quadrants struct {
	TopHits  []*ScoredTrack
	Popular  []*ScoredTrack
	Moderate []*ScoredTrack
	DeepCuts []*ScoredTrack
}

// recencyBonus scores how recently a track was released: 20 points on release day, decaying linearly to 0 after two years.
func recencyBonus(released, now time.Time) float64 {
	days := now.Sub(released).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Max(0, maxRecencyBonus*(1-days/recencyWindowDays))
}

// Score computes the adjusted popularity of a single track.
func Score(t models.Track, recencyBoost bool, now time.Time) *ScoredTrack {
	st := &ScoredTrack{
		Track:              t,
		BasePopularity:     t.Popularity,
		AdjustedPopularity: float64(t.Popularity),
	}

	released, ok := t.Released()
	if ok {
		st.ReleaseYear = released.Year()
	}
	if recencyBoost && ok {
		st.RecencyBonus = recencyBonus(released, now)
		st.AdjustedPopularity = math.Min(maxPopularity, float64(t.Popularity)+st.RecencyBonus)
	}

	return st
}

// BuildQuadrants scores a source's tracks and splits them into quartiles by descending adjusted popularity.
//
// Each quadrant holds ceil(n/4) tracks and the last absorbs whatever remains, so small sources leave trailing quadrants empty.
// Equal scores keep their input order.
func BuildQuadrants(tracks []models.Track, recencyBoost bool, now time.Time) Quadrants {
	scored := make([]*ScoredTrack, len(tracks))
	for i, t := range tracks {
		scored[i] = Score(t, recencyBoost, now)
	}

	slices.SortStableFunc(scored, func(a, b *ScoredTrack) int {
		switch {
		case a.AdjustedPopularity > b.AdjustedPopularity:
			return -1
		case a.AdjustedPopularity < b.AdjustedPopularity:
			return 1
		default:
			return 0
		}
	})

	n := len(scored)
	size := (n + 3) / 4
	cut := func(i int) int { return min(i*size, n) }

	return Quadrants{
		TopHits:  slices.Clone(scored[cut(0):cut(1)]),
		Popular:  slices.Clone(scored[cut(1):cut(2)]),
		Moderate: slices.Clone(scored[cut(2):cut(3)]),
		DeepCuts: slices.Clone(scored[cut(3):]),
	}
}

// Shuffle permutes each quadrant independently; tracks never move between quadrants.
func (q *Quadrants) Shuffle(r *rand.Rand) {
	for _, group := range q.groups() {
		r.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
	}
}

// All returns every remaining track, quadrant by quadrant.
func (q *Quadrants) All() []*ScoredTrack {
	return concat(q.TopHits, q.Popular, q.Moderate, q.DeepCuts)
}

// Len returns the number of remaining tracks.
func (q *Quadrants) Len() int {
	return len(q.TopHits) + len(q.Popular) + len(q.Moderate) + len(q.DeepCuts)
}

// Remove deletes a track from whichever quadrant holds it and reports whether it was found.
func (q *Quadrants) Remove(id string) bool {
	for _, group := range []*[]*ScoredTrack{&q.TopHits, &q.Popular, &q.Moderate, &q.DeepCuts} {
		if i := slices.IndexFunc(*group, func(t *ScoredTrack) bool { return t.ID == id }); i >= 0 {
			*group = slices.Delete(*group, i, i+1)
			return true
		}
	}
	return false
}

func (q *Quadrants) groups() [][]*ScoredTrack {
	return [][]*ScoredTrack{q.TopHits, q.Popular, q.Moderate, q.DeepCuts}
}

func concat(groups ...[]*ScoredTrack) []*ScoredTrack {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]*ScoredTrack, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
