package mixer

import (
	"math/rand/v2"
	"time"
)

// Logger is the subset of [github.com/charmbracelet/log.Logger] the mixer writes to.
type Logger interface {
	Debug(msg any, keyvals ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}

// Mixer blends source playlists into a single ordered mix.
//
// A Mixer holds no per-call state and is safe for concurrent use.
type Mixer struct {
	logger Logger
	now    func() time.Time
}

// Option configures a [Mixer].
type Option func(*Mixer)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l Logger) Option {
	return func(m *Mixer) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(m *Mixer) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Mixer.
func New(opts ...Option) *Mixer {
	m := &Mixer{logger: nopLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mix validates the input and runs the allocation scheduler.
//
// Invalid input yields a [*ValidationError]; every other outcome is a result, possibly shorter than requested.
func (m *Mixer) Mix(in Input) (*Result, error) {
	if v := Validate(&in); !v.IsValid {
		return nil, &ValidationError{Errors: v.Errors}
	}

	opts := *in.Options
	strategy, _ := ParseStrategy(string(opts.Strategy))
	sources, ratios := Normalize(in.Sources, in.Ratios)

	var rng *rand.Rand
	if opts.ShuffleWithinGroups {
		seed := opts.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	now := m.now()
	pools := make(Pools, len(sources))
	for _, src := range sources {
		q := BuildQuadrants(src.Tracks, opts.RecencyBoost, now)
		if rng != nil {
			q.Shuffle(rng)
		}
		pools[src.ID] = &q
		m.logger.Debug("built quadrants", "source", src.ID,
			"top", len(q.TopHits), "popular", len(q.Popular), "moderate", len(q.Moderate), "deep", len(q.DeepCuts))
	}

	st := newMixingState(sources, ratios, pools, opts, strategy)
	m.logger.Debug("mixing", "mode", st.mode, "strategy", strategy, "estimated", st.estimated, "sources", len(sources))

	st.run()
	res := st.finalize()

	m.logger.Debug("mix finished", "tracks", len(res.Tracks), "iterations", res.Iterations,
		"exhausted", res.ExhaustedPlaylists, "stopped_early", res.StoppedEarly, "hit_cap", res.HitIterationCap)

	return res, nil
}
