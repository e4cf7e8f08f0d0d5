package tasks

import (
	"errors"
	"testing"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/shared"
)

func TestParseSourceRef(t *testing.T) {
	defaults := mixer.RatioConfig{Min: 1, Max: 2, WeightType: mixer.WeightFrequency}

	tests := []struct {
		name    string
		input   string
		want    SourceRef
		wantErr bool
	}{
		{
			name:  "bare id",
			input: "37i9dQZF1DXcBWIGoYBM5M",
			want:  SourceRef{ID: "37i9dQZF1DXcBWIGoYBM5M", Catalog: CatalogSpotify, Ratio: mixer.RatioConfig{Min: 1, Max: 2, Weight: 1, WeightType: mixer.WeightFrequency}},
		},
		{
			name:  "all fields",
			input: "abc:3:2:4:time",
			want:  SourceRef{ID: "abc", Catalog: CatalogSpotify, Ratio: mixer.RatioConfig{Min: 2, Max: 4, Weight: 3, WeightType: mixer.WeightTime}},
		},
		{
			name:  "empty fields keep defaults",
			input: "abc:0.5::3",
			want:  SourceRef{ID: "abc", Catalog: CatalogSpotify, Ratio: mixer.RatioConfig{Min: 1, Max: 3, Weight: 0.5, WeightType: mixer.WeightFrequency}},
		},
		{
			name:  "spotify uri",
			input: "spotify:playlist:abc:2",
			want:  SourceRef{ID: "abc", Catalog: CatalogSpotify, Ratio: mixer.RatioConfig{Min: 1, Max: 2, Weight: 2, WeightType: mixer.WeightFrequency}},
		},
		{
			name:  "open.spotify.com link",
			input: "https://open.spotify.com/playlist/abc?si=xyz:2",
			want:  SourceRef{ID: "abc", Catalog: CatalogSpotify, Ratio: mixer.RatioConfig{Min: 1, Max: 2, Weight: 2, WeightType: mixer.WeightFrequency}},
		},
		{
			name:  "json file",
			input: "sources/road-trip.json:1:1:1",
			want:  SourceRef{ID: "sources/road-trip.json", Catalog: CatalogFile, Ratio: mixer.RatioConfig{Min: 1, Max: 1, Weight: 1, WeightType: mixer.WeightFrequency}},
		},
		{name: "empty", input: " ", wantErr: true},
		{name: "missing id", input: ":2", wantErr: true},
		{name: "bad weight", input: "abc:heavy", wantErr: true},
		{name: "negative weight", input: "abc:-1", wantErr: true},
		{name: "bad min", input: "abc:1:x", wantErr: true},
		{name: "max below min", input: "abc:1:4:2", wantErr: true},
		{name: "bad type", input: "abc:1:1:1:loud", wantErr: true},
		{name: "too many fields", input: "abc:1:1:1:time:extra", wantErr: true},
		{name: "url without playlist", input: "https://open.spotify.com/album/abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSourceRef(tt.input, defaults)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSourceRef(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSourceRefs(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		got, err := ParseSourceRefs([]string{"b", "a:2"}, mixer.RatioConfig{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 || got[0].ID != "b" || got[1].Ratio.Weight != 2 {
			t.Errorf("unexpected refs %+v", got)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		if _, err := ParseSourceRefs([]string{"a", "spotify:playlist:a"}, mixer.RatioConfig{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
