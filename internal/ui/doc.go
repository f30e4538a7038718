// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI shows the cached albums in a single list that can be sorted by most recent listen or by
// listen count. From the list the user can sync recent history from Tidal and start playback of the
// selected album.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Sync progress flows through a channel from [tasks.Syncer], providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, s, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
