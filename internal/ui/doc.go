// Package ui implements a live sync progress view using bubbletea's Elm architecture.
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync context, providing
// non-blocking status reporting while files are processed; the view shows a
// spinner, a per-phase progress bar, and the most recent file events.
package ui
