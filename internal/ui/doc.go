// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow around the recognition pipeline:
//  1. [HomeView] : Choose what to do next
//  2. [SnapView] : Monitor the capture countdown and pipeline progress
//  3. [ResultView] : Display the saved track or the failure
//  4. [PlaylistListView] : Browse the user's Spotify playlists
//  5. [HistoryView] : Review past recognition outcomes
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the pipeline Engine, providing non-blocking status reporting during a run.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
