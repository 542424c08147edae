// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

const progressWidth = 40

type emitMsg struct {
	emission testcomm.Emission
	done     uint64
	total    uint64
}

type runDoneMsg struct {
	err error
}

// Run TUI model
type runModel struct {
	runID    string
	connInfo string
	plan     *testcomm.Plan
	stats    *testcomm.Statistics
	spinner  spinner.Model
	cancel   context.CancelFunc
	started  time.Time
	eventLog []logEntry
	lastEmit *testcomm.Emission
	done     uint64
	total    uint64
	finished bool
	runErr   error
	width    int
	height   int
	quitting bool
}

func newRunModel(runID, connInfo string, plan *testcomm.Plan, stats *testcomm.Statistics, cancel context.CancelFunc) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statsValueStyle

	return runModel{
		runID:    runID,
		connInfo: connInfo,
		plan:     plan,
		stats:    stats,
		spinner:  s,
		cancel:   cancel,
		started:  time.Now(),
		eventLog: make([]logEntry, 0),
		total:    plan.TotalIndexes(),
		width:    80,
		height:   24,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logMsg:
		m.eventLog = appendLogEntry(m.eventLog, 100, string(msg), false)

	case emitMsg:
		em := msg.emission
		m.lastEmit = &em
		m.done = msg.done
		m.total = msg.total

	case runDoneMsg:
		m.finished = true
		m.runErr = msg.err
		switch {
		case msg.err == nil:
			m.done = m.total
			m.eventLog = appendLogEntry(m.eventLog, 100, "Plan finished", false)
		case errors.Is(msg.err, context.Canceled):
			m.eventLog = appendLogEntry(m.eventLog, 100, "Run stopped", false)
		default:
			m.eventLog = appendLogEntry(m.eventLog, 100, fmt.Sprintf("Run failed: %v", msg.err), true)
		}
	}

	return m, nil
}

// progressBar renders done/total as a fixed width bar
func progressBar(done, total uint64, width int) string {
	if total == 0 {
		return strings.Repeat("░", width)
	}
	filled := int(done * uint64(width) / total)
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m runModel) View() string {
	if m.quitting {
		return "Stopping run...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("BOARDSIM - TEST RUN"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Run %s | %s | Press '%s' to %s",
		m.runID[:8], m.connInfo, quitKeys.Help().Key, quitKeys.Help().Desc)))
	s.WriteString("\n\n")

	// Status line
	status := m.spinner.View() + " " + statsValueStyle.Render("Running")
	if m.finished {
		if m.runErr != nil && !errors.Is(m.runErr, context.Canceled) {
			status = errorStyle.Render("✗ Failed")
		} else {
			status = statsValueStyle.Render("✓ Finished")
		}
	}
	s.WriteString(fmt.Sprintf("%s   %s %s %s   %s %s\n\n",
		status,
		statsLabelStyle.Render("Board:"), statsValueStyle.Render(m.plan.Board.String()), headerStyle.Render(fmt.Sprintf("side %s, %s", m.plan.Side, m.plan.Mode)),
		statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatUptime(time.Since(m.started))),
	))

	// Progress
	percent := float64(0)
	if m.total > 0 {
		percent = float64(m.done) * 100.0 / float64(m.total)
	}
	progressContent := strings.Builder{}
	progressContent.WriteString(fmt.Sprintf("%s %s %s\n",
		statsLabelStyle.Render("Progress:"),
		statsValueStyle.Render(progressBar(m.done, m.total, progressWidth)),
		headerStyle.Render(fmt.Sprintf("%d/%d (%.1f%%)", m.done, m.total, percent)),
	))

	if em := m.lastEmit; em != nil {
		progressContent.WriteString(fmt.Sprintf("%s %d/%d   %s %d   %s %s   %s %s\n",
			statsLabelStyle.Render("Step:"), em.Step, len(m.plan.Steps),
			statsLabelStyle.Render("Index:"), em.Frame.Header.CommIndex,
			statsLabelStyle.Render("Last:"), statsValueStyle.Render(em.Kind.String()),
			statsLabelStyle.Render("ID:"), statsValueStyle.Render(testcomm.FormatID(em.ID)),
		))
	}

	c := m.stats.Snapshot()
	progressContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Emitted:"), statsValueStyle.Render(fmt.Sprintf("%d", c.FramesEmitted)),
		statsLabelStyle.Render("Writes:"), statsValueStyle.Render(fmt.Sprintf("%d", c.BusWrites)),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", c.EmitRate)),
	))
	if m.plan.Mode == testcomm.ModePeripheral {
		progressContent.WriteString(fmt.Sprintf("\n%s %s   %s %s   %s %s",
			statsLabelStyle.Render("Triggers:"), statsValueStyle.Render(fmt.Sprintf("%d", c.Triggers)),
			statsLabelStyle.Render("Ignored:"), headerStyle.Render(fmt.Sprintf("%d", c.Ignored)),
			statsLabelStyle.Render("Dropped:"), warningStyle.Render(fmt.Sprintf("%d", c.Dropped)),
		))
	}
	if failures := c.EmitFailures + c.PollFailures; failures > 0 {
		progressContent.WriteString(fmt.Sprintf("\n%s %s",
			statsLabelStyle.Render("Failures:"), errorStyle.Render(fmt.Sprintf("%d emit, %d poll", c.EmitFailures, c.PollFailures)),
		))
	}

	s.WriteString(boxStyle.Render(progressContent.String()))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(renderLog(m.eventLog, m.height-16)))

	return s.String()
}
