package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgMixComplete
	MsgPublishComplete
)

type mixComplete struct {
	result *tasks.MixRunResult
	err    error
}

type publishComplete struct {
	playlist *models.Playlist
	err      error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// mixCompleteMsg is the constructor for [MsgMixComplete]
func mixCompleteMsg(result *tasks.MixRunResult, err error) Msg {
	return Msg{kind: MsgMixComplete, data: mixComplete{result, err}}
}

// publishCompleteMsg is the constructor for [MsgPublishComplete]
func publishCompleteMsg(playlist *models.Playlist, err error) Msg {
	return Msg{kind: MsgPublishComplete, data: publishComplete{playlist, err}}
}
