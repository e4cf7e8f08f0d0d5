package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/tasks"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// settle runs cmd and feeds its messages back into the model until a completion message arrives.
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 100 {
		if cmd == nil {
			return
		}
		raw := cmd()
		msg, ok := raw.(Msg)
		if !ok {
			t.Fatalf("unexpected message type %T", raw)
		}
		_, cmd = m.Update(msg)
		if msg.kind != MsgProgressUpdate {
			return
		}
	}
	t.Fatal("job never completed")
}

func newTestModel(t *testing.T, spotify *tu.MockService) *Model {
	t.Helper()
	refs, err := tasks.ParseSourceRefs([]string{"A", "B"}, mixer.RatioConfig{Min: 1, Max: 1, Weight: 1})
	if err != nil {
		t.Fatalf("failed to parse refs: %v", err)
	}

	engine := tasks.NewPlaylistEngine(spotify, nil)
	req := tasks.MixRequest{
		Sources: refs,
		Options: mixer.Options{TotalSongs: 4, Seed: 7},
		Publish: &tasks.PublishOptions{Name: "ignored"},
	}
	return NewModel(context.Background(), engine, req, tasks.PublishOptions{Name: "Friday Mix"})
}

func mockSpotify() *tu.MockService {
	return tu.NewMockService("Spotify",
		tu.MakeExport("A", tu.MakeTracks("a", 4)),
		tu.MakeExport("B", tu.MakeTracks("b", 4)),
	)
}

func TestModel(t *testing.T) {
	t.Run("NewModel", func(t *testing.T) {
		m := newTestModel(t, mockSpotify())
		if m.view != MixingView {
			t.Errorf("expected MixingView, got %v", m.view)
		}
		if m.req.Publish != nil {
			t.Error("expected publish options stripped from the mix request")
		}
	})

	t.Run("Mix Then Preview", func(t *testing.T) {
		m := newTestModel(t, mockSpotify())
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		settle(t, m, m.Init())

		if m.view != PreviewView {
			t.Fatalf("expected PreviewView, got %v (err %v)", m.view, m.err)
		}
		if len(m.trackList.Items()) != 4 {
			t.Errorf("expected 4 list items, got %d", len(m.trackList.Items()))
		}

		view := m.View()
		for _, want := range []string{"Playlist A", "Playlist B", "strategy mixed"} {
			if !strings.Contains(view, want) {
				t.Errorf("preview missing %q", want)
			}
		}
	})

	t.Run("Save Flow", func(t *testing.T) {
		spotify := mockSpotify()
		m := newTestModel(t, spotify)
		settle(t, m, m.Init())

		m.Update(keyRunes("s"))
		if m.view != ConfirmView {
			t.Fatalf("expected ConfirmView, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Friday Mix") {
			t.Error("confirm view should name the playlist")
		}

		_, cmd := m.Update(keyRunes("y"))
		if m.view != PublishView {
			t.Fatalf("expected PublishView, got %v", m.view)
		}
		settle(t, m, cmd)

		if m.view != ResultView || m.err != nil {
			t.Fatalf("expected successful ResultView, got %v (err %v)", m.view, m.err)
		}
		if m.published == nil || m.published.ID != "imported-1" || m.published.TrackCount != 4 {
			t.Errorf("unexpected published playlist %+v", m.published)
		}
		imported := spotify.Imported()
		if len(imported) != 1 || imported[0].Playlist.Name != "Friday Mix" {
			t.Errorf("expected one import named Friday Mix, got %+v", imported)
		}
		if !strings.Contains(m.View(), "Playlist saved") {
			t.Error("result view should report success")
		}
	})

	t.Run("Decline Returns To Preview", func(t *testing.T) {
		spotify := mockSpotify()
		m := newTestModel(t, spotify)
		settle(t, m, m.Init())

		m.Update(keyRunes("s"))
		m.Update(keyRunes("n"))
		if m.view != PreviewView {
			t.Errorf("expected PreviewView, got %v", m.view)
		}
		if len(spotify.Imported()) != 0 {
			t.Error("declining should not publish")
		}
	})

	t.Run("Remix", func(t *testing.T) {
		spotify := mockSpotify()
		m := newTestModel(t, spotify)
		settle(t, m, m.Init())

		_, cmd := m.Update(keyRunes("r"))
		if m.view != MixingView {
			t.Fatalf("expected MixingView, got %v", m.view)
		}
		settle(t, m, cmd)
		if m.view != PreviewView {
			t.Errorf("expected PreviewView after remix, got %v", m.view)
		}
		if got := len(spotify.Exported()); got != 4 {
			t.Errorf("expected each source fetched twice, got %d exports", got)
		}
	})

	t.Run("Mix Error", func(t *testing.T) {
		spotify := mockSpotify()
		spotify.ExportErr = errors.New("boom")
		m := newTestModel(t, spotify)
		settle(t, m, m.Init())

		if m.view != ResultView || m.err == nil {
			t.Fatalf("expected error ResultView, got %v (err %v)", m.view, m.err)
		}
		if !strings.Contains(m.View(), "Error:") {
			t.Error("expected error in view")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != ResultView {
			t.Error("esc should not leave the error view without a mix")
		}
	})

	t.Run("Publish Error", func(t *testing.T) {
		spotify := mockSpotify()
		m := newTestModel(t, spotify)
		settle(t, m, m.Init())
		spotify.ImportErr = errors.New("quota")

		m.Update(keyRunes("s"))
		_, cmd := m.Update(keyRunes("y"))
		settle(t, m, cmd)

		if m.view != ResultView || m.err == nil {
			t.Fatalf("expected error ResultView, got %v", m.view)
		}
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != PreviewView {
			t.Errorf("expected esc back to the mix, got %v", m.view)
		}
	})

	t.Run("Progress", func(t *testing.T) {
		m := newTestModel(t, mockSpotify())
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.FetchSource, Step: 1, Total: 2, Message: "Fetched A"}))

		view := m.View()
		if !strings.Contains(view, "(1/2)") || !strings.Contains(view, "Fetched A") {
			t.Errorf("unexpected progress view:\n%s", view)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m := newTestModel(t, mockSpotify())
		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestTrackItems(t *testing.T) {
	tracks := tu.MakeTracks("a", 2)
	res := &mixer.Result{
		Tracks: []mixer.MixedTrack{
			{Track: tracks[0], SourcePlaylist: "A"},
			{Track: tracks[1], SourcePlaylist: "B"},
		},
		Distribution: []mixer.SourceStats{{ID: "A", Name: "Road Trip"}, {ID: "B"}},
	}

	items := trackItems(res)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0].(trackItem)
	if !strings.HasPrefix(first.Title(), " 1. ") {
		t.Errorf("unexpected title %q", first.Title())
	}
	if !strings.Contains(first.Description(), "from Road Trip") {
		t.Errorf("expected source name, got %q", first.Description())
	}
	if second := items[1].(trackItem); !strings.Contains(second.Description(), "from B") {
		t.Errorf("expected source ID fallback, got %q", second.Description())
	}
}
