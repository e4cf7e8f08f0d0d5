package mixer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
)

// ErrInvalidInput is wrapped by every [ValidationError].
var ErrInvalidInput = errors.New("invalid mix input")

// ValidationResult is the structured outcome of [Validate].
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidationError is returned by [Mixer.Mix] when the input fails validation.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// validTrack reports whether a track carries the fields needed to place it in a playlist.
func validTrack(t models.Track) bool {
	return t.ID != "" && t.URI != "" && t.Title != ""
}

// Normalize drops malformed tracks, sources left empty and ratio entries that no longer reference an enabled source.
//
// Source order is preserved. Repeated track IDs within a source keep their first occurrence.
func Normalize(sources []Source, ratios map[string]RatioConfig) ([]Source, map[string]RatioConfig) {
	cleaned := make([]Source, 0, len(sources))
	cleanedRatios := make(map[string]RatioConfig, len(ratios))
	seenSource := make(map[string]bool, len(sources))

	for _, src := range sources {
		if src.ID == "" || seenSource[src.ID] {
			continue
		}
		cfg, ok := ratios[src.ID]
		if !ok || cfg.Weight <= 0 {
			continue
		}

		seen := make(map[string]bool, len(src.Tracks))
		tracks := make([]models.Track, 0, len(src.Tracks))
		for _, t := range src.Tracks {
			if !validTrack(t) || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			tracks = append(tracks, t)
		}
		if len(tracks) == 0 {
			continue
		}

		seenSource[src.ID] = true
		cleaned = append(cleaned, Source{ID: src.ID, Name: src.Name, Tracks: tracks})
		cleanedRatios[src.ID] = cfg.normalized()
	}

	return cleaned, cleanedRatios
}

// Validate checks an input before it reaches the scheduler.
func Validate(in *Input) ValidationResult {
	var errs []string

	if in == nil || in.Options == nil {
		return ValidationResult{Errors: []string{"mix configuration is required"}}
	}
	if len(in.Ratios) == 0 {
		errs = append(errs, "ratio configuration is empty")
	}

	for _, id := range slices.Sorted(maps.Keys(in.Ratios)) {
		if _, err := ParseWeightType(string(in.Ratios[id].WeightType)); err != nil {
			errs = append(errs, fmt.Sprintf("source %s: %v", id, err))
		}
	}

	if _, err := ParseStrategy(string(in.Options.Strategy)); err != nil {
		errs = append(errs, err.Error())
	}

	if len(in.Ratios) > 0 {
		if cleaned, _ := Normalize(in.Sources, in.Ratios); len(cleaned) == 0 {
			errs = append(errs, "no source playlist has both tracks and a positive weight")
		}
	}

	switch in.Options.Mode() {
	case ModeCount:
		if in.Options.TotalSongs <= 0 {
			errs = append(errs, "total songs must be greater than zero")
		}
	case ModeTime:
		if in.Options.TargetDuration <= 0 {
			errs = append(errs, "target duration must be greater than zero")
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
