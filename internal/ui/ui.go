package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MixingView ViewState = iota
	PreviewView
	ConfirmView
	PublishView
	ResultView
)

// job is a running engine call: progress updates followed by exactly one completion message.
type job struct {
	progress chan tasks.ProgressUpdate
	done     chan Msg
}

func newJob() *job {
	return &job{progress: make(chan tasks.ProgressUpdate, 50), done: make(chan Msg, 1)}
}

// finish delivers the completion message and closes the progress stream.
func (j *job) finish(msg Msg) {
	j.done <- msg
	close(j.progress)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	engine    *tasks.PlaylistEngine
	req       tasks.MixRequest
	publish   tasks.PublishOptions
	width     int
	height    int
	trackList list.Model
	job       *job
	progress  tasks.ProgressUpdate
	run       *tasks.MixRunResult
	published *models.Playlist
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model that mixes req and saves to Spotify under the publish options.
// Any Publish field in req is ignored; saving happens only after confirmation.
func NewModel(ctx context.Context, engine *tasks.PlaylistEngine, req tasks.MixRequest, publish tasks.PublishOptions) *Model {
	req.Publish = nil
	return &Model{
		ctx:     ctx,
		view:    MixingView,
		engine:  engine,
		req:     req,
		publish: publish,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the first mix.
func (m *Model) Init() tea.Cmd {
	return m.startMix()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.run != nil {
			m.trackList.SetSize(m.listSize())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgMixComplete:
		data := msg.data.(mixComplete)
		m.job = nil
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.err = nil
		m.run = data.result
		m.trackList = list.New(trackItems(data.result.Mix), list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Mix • %d tracks • %s", len(data.result.Mix.Tracks), shared.FormatDuration(data.result.Mix.TotalDurationMS))
		m.trackList.SetShowHelp(false)
		m.trackList.SetSize(m.listSize())
		m.view = PreviewView
		return m, nil

	case MsgPublishComplete:
		data := msg.data.(publishComplete)
		m.job = nil
		m.published = data.playlist
		m.err = data.err
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case MixingView:
		return m.renderProgress("Mixing playlists")
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case PublishView:
		return m.renderProgress("Saving to Spotify")
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.save):
		if m.run != nil && len(m.run.Mix.Tracks) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.remix):
		m.view = MixingView
		return m, m.startMix()
	}

	return m.updateList(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = PublishView
		return m, m.startPublish()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PreviewView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.run != nil {
			m.err = nil
			m.view = PreviewView
		}
	case key.Matches(msg, m.keys.remix):
		m.err = nil
		m.view = MixingView
		return m, m.startMix()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != PreviewView {
		return m, nil
	}
	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-12, 5)
}

func (m *Model) startMix() tea.Cmd {
	j := newJob()
	m.job = j
	m.progress = tasks.ProgressUpdate{Message: "Starting..."}
	engine, ctx, req := m.engine, m.ctx, m.req

	go func() {
		result, err := engine.Mix(ctx, j.progress, req)
		j.finish(mixCompleteMsg(result, err))
	}()

	return m.waitForProgress()
}

func (m *Model) startPublish() tea.Cmd {
	j := newJob()
	m.job = j
	m.progress = tasks.ProgressUpdate{Message: fmt.Sprintf("Creating %q...", m.publish.Name)}
	engine, ctx, mixed, opts := m.engine, m.ctx, m.run.Mix, m.publish

	go func() {
		playlist, err := engine.Publish(ctx, j.progress, mixed, opts)
		j.finish(publishCompleteMsg(playlist, err))
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	j := m.job
	if j == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-j.progress
		if !ok {
			return <-j.done
		}
		return progressUpdateMsg(update)
	}
}

// renderDistribution renders one colored cell per source with its count and share.
func (m *Model) renderDistribution() string {
	if m.run == nil {
		return ""
	}

	cells := make([]string, 0, len(m.run.Mix.Distribution))
	for i, s := range m.run.Mix.Distribution {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		cell := fmt.Sprintf("%s  %d tracks  %.0f%% (target %.0f%%)", styles.As(name, sourceColor(i)), s.Count, s.ActualRatio*100, s.TargetRatio*100)
		if s.Exhausted {
			cell += " " + styles.warn.Render("exhausted")
		}
		cells = append(cells, cell)
	}

	header := strings.Join(cells, "\n")
	mix := m.run.Mix
	meta := styles.help.Render(fmt.Sprintf("mode %s • strategy %s • %d iterations", mix.Mode, mix.Strategy, mix.Iterations))
	if mix.StoppedEarly {
		meta += " " + styles.warn.Render("• stopped early")
	}
	return styles.box.Render(lipgloss.JoinVertical(lipgloss.Left, header, meta))
}

func (m *Model) renderProgress(title string) string {
	step := ""
	if m.progress.Total > 0 {
		step = fmt.Sprintf(" (%d/%d)", m.progress.Step, m.progress.Total)
	}
	phase := m.progress.Phase.String()
	if phase == "" {
		phase = "working"
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s%s\n%s\n\n%s", styles.title.Render(title), phase, step, m.progress.Message, helpView)
}

func (m *Model) renderPreview() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.save, m.keys.remix, m.keys.up, m.keys.down, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.renderDistribution(), m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Save mix to Spotify as '%s'?", m.publish.Name))
	visibility := "private"
	if m.publish.Public {
		visibility = "public"
	}
	info := fmt.Sprintf("\nTracks: %d\nDuration: %s\nVisibility: %s\n",
		len(m.run.Mix.Tracks), shared.FormatDuration(m.run.Mix.TotalDurationMS), visibility)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		keys := []key.Binding{m.keys.remix, m.keys.quit}
		if m.run != nil {
			keys = []key.Binding{m.keys.back, m.keys.remix, m.keys.quit}
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), m.help.ShortHelpView(keys))
	}

	if m.published == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Playlist saved!")
	info := fmt.Sprintf("\nName: %s\nTracks: %d\nID: %s", m.published.Name, m.published.TrackCount, m.published.ID)
	if m.published.URI != "" {
		info += "\nURI: " + m.published.URI
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
