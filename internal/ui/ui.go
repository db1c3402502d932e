package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/facesync/internal/tasks"
)

// maxRecent bounds the scrollback of per-file events shown under the bar.
const maxRecent = 8

// Msg represents all possible messages in the sync view (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

// MsgKind enumerates all message types in the application.
type MsgKind int

const (
	MsgProgress MsgKind = iota
	MsgSyncDone
	MsgChannelClosed
)

var _ tea.Msg = Msg{}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: update}
}

// syncDoneMsg is the constructor for [MsgSyncDone]
func syncDoneMsg(report *tasks.SyncReport, err error) Msg {
	return Msg{
		kind: MsgSyncDone,
		data: struct {
			report *tasks.SyncReport
			err    error
		}{report, err},
	}
}

// Model represents the sync progress view state.
type Model struct {
	updates  <-chan tasks.ProgressUpdate
	results  <-chan Msg
	spinner  spinner.Model
	bar      progress.Model
	current  tasks.ProgressUpdate
	recent   []string
	report   *tasks.SyncReport
	err      error
	finished bool
}

// NewModel creates a progress view fed by a sync context's update channel.
// results delivers the final report once Run returns; the caller constructs
// it with [SyncDone].
func NewModel(updates <-chan tasks.ProgressUpdate, results <-chan Msg) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return Model{
		updates: updates,
		results: results,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

// SyncDone builds the terminal message a driver sends when Run returns.
func SyncDone(report *tasks.SyncReport, err error) Msg {
	return syncDoneMsg(report, err)
}

// waitForUpdate turns the next channel event into a tea.Msg.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case update, ok := <-m.updates:
			if !ok {
				return Msg{kind: MsgChannelClosed}
			}
			return progressMsg(update)
		case msg := <-m.results:
			return msg
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgress:
			update := msg.data.(tasks.ProgressUpdate)
			m.current = update
			if update.Phase == tasks.FileDone {
				m.recent = append(m.recent, update.Message)
				if len(m.recent) > maxRecent {
					m.recent = m.recent[len(m.recent)-maxRecent:]
				}
			}
			return m, m.waitForUpdate()

		case MsgSyncDone:
			data := msg.data.(struct {
				report *tasks.SyncReport
				err    error
			})
			m.report = data.report
			m.err = data.err
			m.finished = true
			return m, tea.Quit

		case MsgChannelClosed:
			m.finished = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("facesync") + "\n")

	if m.finished {
		if m.err != nil {
			b.WriteString(styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)) + "\n")
		} else if m.report != nil {
			b.WriteString(styles.ok.Render(fmt.Sprintf(
				"Synced %d/%d files, %d faces, %d clusters",
				m.report.SyncedFiles, m.report.TotalFiles,
				m.report.SyncedFaces, m.report.Clusters)) + "\n")
			if len(m.report.FileErrors) > 0 {
				b.WriteString(styles.warn.Render(fmt.Sprintf("%d files failed", len(m.report.FileErrors))) + "\n")
			}
		}
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.current.Message))
	if m.current.Total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.current.Step)/float64(m.current.Total)) + "\n")
	}

	for _, line := range m.recent {
		b.WriteString(styles.help.Render(line) + "\n")
	}

	b.WriteString(styles.help.Render("press q to quit") + "\n")
	return b.String()
}
