// Package mixer blends several source playlists into one ordered mix.
//
// Each source gets a target share of the output from its weight. Its tracks are
// split into four popularity quadrants, and a strategy decides which quadrants
// supply which part of the mix. A deficit-driven scheduler then draws bursts from
// whichever source lags its share the most, until the budget is met or the
// sources run dry.
//
// Usage:
//
//	m := mixer.New(mixer.WithLogger(logger))
//	res, err := m.Mix(mixer.Input{
//		Sources: sources,
//		Ratios:  map[string]mixer.RatioConfig{"a": {Weight: 2}, "b": {Weight: 1}},
//		Options: &mixer.Options{TotalSongs: 30, Strategy: mixer.StrategyCrescendo},
//	})
//
// The package performs no I/O. Every call builds its own state, so a single
// [Mixer] can serve concurrent callers.
package mixer
