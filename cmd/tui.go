// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/boardsim/pkg/testcomm"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// Last good frame seen on the bus
type frameSummary struct {
	timestamp time.Time
	channel   int
	id        uint32
	kind      uint8
	index     uint16
	busTime   uint64
	boardTag  uint8
	runCmd    uint16
}

// Monitor TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *testcomm.Statistics
	eventLog      []logEntry
	maxLogEntries int
	perChannel    map[int]uint64
	width         int
	height        int
	quitting      bool
	lastFrame     *frameSummary
}

// Messages
type tickMsg time.Time
type frameMsg frameEvent
type logMsg string

var quitKeys = key.NewBinding(
	key.WithKeys("q", "ctrl+c"),
	key.WithHelp("q", "quit"),
)

// programLogWriter forwards log output to a running TUI as log lines
type programLogWriter struct {
	p *tea.Program
}

func (w programLogWriter) Write(b []byte) (int, error) {
	w.p.Send(logMsg(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         testcomm.NewStatistics(),
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		perChannel:    make(map[int]uint64),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case logMsg:
		m.eventLog = appendLogEntry(m.eventLog, m.maxLogEntries, string(msg), false)

	case frameMsg:
		ev := frameEvent(msg)
		m.stats.RecordReceived(ev.decodeErr, ev.validation)
		m.perChannel[ev.channel]++

		switch {
		case ev.decodeErr != nil:
			m.eventLog = appendLogEntry(m.eventLog, m.maxLogEntries,
				fmt.Sprintf("cha%d 0x%03X DECODE ERROR: %v", ev.channel+1, ev.raw.ID, ev.decodeErr), true)

		case len(ev.validation) > 0:
			kind := testcomm.FormatKindCode(ev.frame.Header.Kind)
			for _, err := range ev.validation {
				m.eventLog = appendLogEntry(m.eventLog, m.maxLogEntries,
					fmt.Sprintf("cha%d 0x%03X %s: %s", ev.channel+1, ev.raw.ID, kind, err.Message), true)
			}

		default:
			m.lastFrame = summarize(ev)
			if m.showAll {
				m.eventLog = appendLogEntry(m.eventLog, m.maxLogEntries,
					fmt.Sprintf("cha%d %s idx=%d (valid)", ev.channel+1, testcomm.FormatID(ev.raw.ID), ev.frame.Header.CommIndex), false)
			}
		}
	}

	return m, nil
}

func summarize(ev frameEvent) *frameSummary {
	return &frameSummary{
		timestamp: time.Now(),
		channel:   ev.channel,
		id:        ev.raw.ID,
		kind:      ev.frame.Header.Kind,
		index:     ev.frame.Header.CommIndex,
		busTime:   ev.frame.Header.TimestampUS,
		boardTag:  ev.frame.Payload[0],
		runCmd:    ev.frame.RunCommand(),
	}
}

// appendLogEntry appends an entry, keeping only the last limit entries
func appendLogEntry(entries []logEntry, limit int, message string, isError bool) []logEntry {
	entries = append(entries, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// renderLog renders the newest entries that fit in height lines
func renderLog(entries []logEntry, height int) string {
	if height < 5 {
		height = 5
	}
	if len(entries) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	var sb strings.Builder
	start := len(entries) - height
	if start < 0 {
		start = 0
	}
	for _, entry := range entries[start:] {
		timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
		if entry.isError {
			sb.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			sb.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}
	return sb.String()
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("BOARDSIM - BUS MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press '%s' to %s",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}(), quitKeys.Help().Key, quitKeys.Help().Desc)))
	s.WriteString("\n\n")

	// Statistics
	c := m.stats.Snapshot()
	var validPercent, errorPercent float64
	checksumErrors := c.CRCMErrors + c.CRCErrors
	totalErrors := c.DecodeErrors + checksumErrors + c.HeaderErrors
	if c.Received > 0 {
		validPercent = float64(c.ValidFrames) * 100.0 / float64(c.Received)
		errorPercent = float64(c.Received-c.ValidFrames) * 100.0 / float64(c.Received)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", c.Received)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", c.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if checksumErrors > 0 || c.DecodeErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("CRCM Errors:"), errorStyle.Render(fmt.Sprintf("%d", c.CRCMErrors)),
			statsLabelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", c.CRCErrors)),
			statsLabelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", c.DecodeErrors)),
		))
	}

	if c.HeaderErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Header Errors:"), warningStyle.Render(fmt.Sprintf("%d", c.HeaderErrors)),
		))
	}

	if len(m.perChannel) > 1 {
		parts := []string{}
		for ch := 0; ch <= maxChannel(m.perChannel); ch++ {
			parts = append(parts, fmt.Sprintf("cha%d=%d", ch+1, m.perChannel[ch]))
		}
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Per Channel:"), headerStyle.Render(strings.Join(parts, " ")),
		))
	}

	received := float64(0)
	if elapsed := time.Since(c.StartTime).Seconds(); elapsed > 0 {
		received = float64(c.Received) / elapsed
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", received)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if c.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", c.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", c.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Last good frame (only shown once one arrived)
	if f := m.lastFrame; f != nil {
		s.WriteString(statsLabelStyle.Render("Latest Frame:"))
		s.WriteString("\n")

		frameContent := strings.Builder{}
		frameContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("ID:"), statsValueStyle.Render(testcomm.FormatID(f.id)),
			statsLabelStyle.Render("Kind:"), statsValueStyle.Render(testcomm.FormatKindCode(f.kind)),
		))
		frameContent.WriteString(fmt.Sprintf("%s %d   %s %.6fs   %s cha%d\n",
			statsLabelStyle.Render("Index:"), f.index,
			statsLabelStyle.Render("Bus Time:"), float64(f.busTime)/1e6,
			statsLabelStyle.Render("Channel:"), f.channel+1,
		))
		frameContent.WriteString(fmt.Sprintf("%s 0x%02X   %s 0x%04X   %s %s ago",
			statsLabelStyle.Render("Board Tag:"), f.boardTag,
			statsLabelStyle.Render("Run Cmd:"), f.runCmd,
			statsLabelStyle.Render("Seen:"), formatUptime(time.Since(f.timestamp)),
		))

		s.WriteString(boxStyle.Render(frameContent.String()))
		s.WriteString("\n\n")
	}

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(renderLog(m.eventLog, m.height-15)))

	return s.String()
}

func maxChannel(counts map[int]uint64) int {
	highest := 0
	for ch := range counts {
		if ch > highest {
			highest = ch
		}
	}
	return highest
}
