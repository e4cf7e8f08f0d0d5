// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI previews a mix before anything is written to Spotify:
//  1. [MixingView] : Monitor source fetching and mixing progress
//  2. [PreviewView] : Browse the mixed tracks under a per-source distribution header
//  3. [ConfirmView] : Confirm saving the mix as a new playlist
//  4. [PublishView] : Monitor playlist creation
//  5. [ResultView] : Display the created playlist or the error
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Each engine call runs in a goroutine that streams progress over a channel and delivers exactly one completion message.
//
// Keyboard navigation uses vim-style bindings (j/k, s, r, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
