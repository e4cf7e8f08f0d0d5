// package formatter renders playlists and mixes as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Format names accepted by [RenderExport] and [RenderMix].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat normalizes a format name, accepting md and text as aliases.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatText, "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: format %q (want one of %s)", shared.ErrInvalidFlag, s, strings.Join(Formats, ", "))
	}
}

func visibility(public bool) string {
	if public {
		return "Public"
	}
	return "Private"
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artists, Album, Release Date, Duration, Popularity, ISRC
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Release Date", "Duration", "Popularity", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist(),
			track.Album,
			track.ReleaseDate,
			shared.FormatDuration(track.DurationMS),
			strconv.Itoa(track.Popularity),
			track.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)

	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Playlist.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", visibility(export.Playlist.Public))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, markdownTrack(track))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist(), track.Title)
	}

	return buf.Bytes(), nil
}

// ExportMixToCSV converts a mix to CSV format, one row per position.
func ExportMixToCSV(result *mixer.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Source", "ID", "Title", "Artists", "Album", "Release Date", "Duration", "Popularity", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range result.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.SourcePlaylist,
			track.ID,
			track.Title,
			track.Artist(),
			track.Album,
			track.ReleaseDate,
			shared.FormatDuration(track.DurationMS),
			strconv.Itoa(track.Popularity),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportMixToMarkdown converts a mix to Markdown with a summary, a distribution table and the track list.
func ExportMixToMarkdown(result *mixer.Result, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Mix"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(result.Tracks))
	fmt.Fprintf(&buf, "**Duration**: %s\n", shared.FormatDuration(result.TotalDurationMS))
	fmt.Fprintf(&buf, "**Mode**: %s\n", result.Mode)
	fmt.Fprintf(&buf, "**Strategy**: %s\n", result.Strategy)
	if result.StoppedEarly {
		fmt.Fprintf(&buf, "**Stopped early**: exhausted %s\n", strings.Join(result.ExhaustedPlaylists, ", "))
	}
	buf.WriteString("\n")

	buf.WriteString("## Distribution\n\n")
	buf.WriteString("| Source | Tracks | Duration | Target | Actual | Exhausted |\n")
	buf.WriteString("|---|---:|---:|---:|---:|:---:|\n")
	for _, s := range result.Distribution {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		exhausted := ""
		if s.Exhausted {
			exhausted = "yes"
		}
		fmt.Fprintf(&buf, "| %s | %d | %s | %.1f%% | %.1f%% | %s |\n",
			escapeCell(name), s.Count, shared.FormatDuration(s.DurationMS), s.TargetRatio*100, s.ActualRatio*100, exhausted)
	}
	buf.WriteString("\n")

	buf.WriteString("## Tracks\n\n")
	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s · `%s`\n", i+1, markdownTrack(track.Track), track.SourcePlaylist)
	}

	return buf.Bytes(), nil
}

// ExportMixToText converts a mix to plain text, one numbered line per track.
func ExportMixToText(result *mixer.Result) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tracks: %d (%s)\n\n", len(result.Tracks), shared.FormatDuration(result.TotalDurationMS))
	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s] (%s)\n", i+1, track.Artist(), track.Title, shared.FormatDuration(track.DurationMS), track.SourcePlaylist)
	}

	return buf.Bytes(), nil
}

// RenderExport renders a playlist export in the given format.
func RenderExport(export *models.PlaylistExport, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	default:
		return shared.MarshalJSON(export, true)
	}
}

// RenderMix renders a mix in the given format. title is used by Markdown only.
func RenderMix(result *mixer.Result, title, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return ExportMixToCSV(result)
	case FormatMarkdown:
		return ExportMixToMarkdown(result, title)
	case FormatText:
		return ExportMixToText(result)
	default:
		return shared.MarshalJSON(result, true)
	}
}

// WriteExport renders a playlist export and writes it to path, creating parent directories.
func WriteExport(export *models.PlaylistExport, format, path string) error {
	data, err := RenderExport(export, format)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteMixExport renders a mix and writes it to path, creating parent directories.
func WriteMixExport(result *mixer.Result, title, format, path string) error {
	data, err := RenderMix(result, title, format)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func markdownTrack(track models.Track) string {
	albumPart := ""
	if track.Album != "" {
		albumPart = fmt.Sprintf(" (%s)", track.Album)
	}
	return fmt.Sprintf("%s - %s%s [%s]", track.Artist(), track.Title, albumPart, shared.FormatDuration(track.DurationMS))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
