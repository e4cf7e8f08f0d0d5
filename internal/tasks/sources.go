package tasks

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Catalog names used for routing and cache keys.
const (
	CatalogSpotify = "spotify"
	CatalogFile    = "file"
)

// SourceRef identifies one source playlist and how it is drawn from.
type SourceRef struct {
	ID      string
	Catalog string
	Ratio   mixer.RatioConfig
}

// ParseSourceRef parses ID[:weight[:min[:max[:type]]]].
//
// Missing fields keep the values in defaults. Spotify playlist URIs and open.spotify.com links are reduced to the bare ID.
// IDs ending in .json resolve to the local file catalog.
func ParseSourceRef(s string, defaults mixer.RatioConfig) (SourceRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SourceRef{}, fmt.Errorf("%w: empty source", shared.ErrInvalidArgument)
	}

	prefix := ""
	switch {
	case strings.HasPrefix(s, "spotify:playlist:"):
		s = strings.TrimPrefix(s, "spotify:playlist:")
	case strings.Contains(s, "://"):
		i := strings.Index(s, "://") + 3
		prefix, s = s[:i], s[i:]
	}

	parts := strings.Split(s, ":")
	if len(parts) > 5 {
		return SourceRef{}, fmt.Errorf("%w: source %q has too many fields", shared.ErrInvalidArgument, s)
	}

	id := prefix + parts[0]
	if prefix != "" {
		var err error
		if id, err = playlistIDFromURL(id); err != nil {
			return SourceRef{}, err
		}
	}
	if id == "" {
		return SourceRef{}, fmt.Errorf("%w: source %q has no id", shared.ErrInvalidArgument, s)
	}

	ref := SourceRef{ID: id, Catalog: CatalogSpotify, Ratio: defaults}
	if strings.HasSuffix(strings.ToLower(id), ".json") {
		ref.Catalog = CatalogFile
	}
	if ref.Ratio.Weight == 0 {
		ref.Ratio.Weight = 1
	}

	for i, field := range parts[1:] {
		if field == "" {
			continue
		}

		var err error
		switch i {
		case 0:
			ref.Ratio.Weight, err = strconv.ParseFloat(field, 64)
			if err == nil && ref.Ratio.Weight < 0 {
				err = fmt.Errorf("weight must not be negative")
			}
		case 1:
			ref.Ratio.Min, err = strconv.Atoi(field)
		case 2:
			ref.Ratio.Max, err = strconv.Atoi(field)
		case 3:
			ref.Ratio.WeightType, err = mixer.ParseWeightType(field)
		}
		if err != nil {
			return SourceRef{}, fmt.Errorf("%w: source %q: %v", shared.ErrInvalidArgument, s, err)
		}
	}

	if ref.Ratio.Min > 0 && ref.Ratio.Max > 0 && ref.Ratio.Max < ref.Ratio.Min {
		return SourceRef{}, fmt.Errorf("%w: source %q: max %d is below min %d", shared.ErrInvalidArgument, id, ref.Ratio.Max, ref.Ratio.Min)
	}

	return ref, nil
}

// ParseSourceRefs parses every ref and rejects duplicate IDs.
func ParseSourceRefs(values []string, defaults mixer.RatioConfig) ([]SourceRef, error) {
	refs := make([]SourceRef, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		ref, err := ParseSourceRef(v, defaults)
		if err != nil {
			return nil, err
		}
		if seen[ref.ID] {
			return nil, fmt.Errorf("%w: source %s listed twice", shared.ErrInvalidArgument, ref.ID)
		}
		seen[ref.ID] = true
		refs = append(refs, ref)
	}

	return refs, nil
}

func playlistIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad playlist url %q: %v", shared.ErrInvalidArgument, raw, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "playlist" && i+1 < len(segments) {
			return segments[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a playlist url", shared.ErrInvalidArgument, raw)
}
