// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type model struct {
	connInfo      string
	showAll       bool
	stats         *link.Statistics
	stations      *stationTracker
	stationTable  table.Model
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	discarded     int
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time

// frameMsg carries a decoded frame out of the reader goroutine. The payload
// itself is not sent since it aliases the parser buffer.
type frameMsg struct {
	timestamp  time.Time
	header     link.Header
	payloadLen int
	anomalies  []link.ValidationError
}

type parseErrorMsg struct {
	timestamp time.Time
	err       link.ParseError
}

type syncMsg struct {
	discarded int
}

func initialModel(connInfo string, showAll bool) model {
	t := table.New(
		table.WithColumns(stationColumns),
		table.WithHeight(5),
		table.WithFocused(true),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return model{
		connInfo:      connInfo,
		showAll:       showAll,
		stats:         link.NewStatistics(),
		stations:      newStationTracker(),
		stationTable:  t,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
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
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.stations = newStationTracker()
			m.stationTable.SetRows(nil)
			m.addLogEntry("Statistics reset", false)
			return m, nil
		}
		var cmd tea.Cmd
		m.stationTable, cmd = m.stationTable.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.stationTable.SetHeight(m.tableHeight())

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.discarded = msg.discarded
		if msg.discarded > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after discarding %d damaged frames", msg.discarded), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case parseErrorMsg:
		m.stats.RecordError(msg.err)
		m.addLogEntry(fmt.Sprintf("%s: %v", msg.err.Kind, msg.err), true)

	case frameMsg:
		m.stats.RecordFrame(msg.header, msg.payloadLen, msg.anomalies)
		m.stations.record(msg.timestamp, msg.header, msg.payloadLen, len(msg.anomalies))
		m.stationTable.SetRows(m.stations.rows())
		m.stationTable.SetHeight(m.tableHeight())

		fn := msg.header.Function().String()
		if len(msg.anomalies) > 0 {
			for _, a := range msg.anomalies {
				m.addLogEntry(fmt.Sprintf("%s %d->%d: %s", fn, msg.header.Source(), msg.header.Destination(), a.Message), true)
			}
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("%s %d->%d len=%d", fn, msg.header.Source(), msg.header.Destination(), msg.payloadLen), false)
		}
	}

	return m, nil
}

// tableHeight sizes the station table to its rows, leaving room for the log
func (m model) tableHeight() int {
	h := m.stations.len() + 1
	if limit := (m.height - 16) / 2; h > limit {
		h = limit
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("LINKSCOPE - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset, 'q' quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	if !m.synchronized {
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	} else {
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.discarded > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (discarded %d damaged frames)", m.discarded)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	st := m.stats
	errCount := st.Errors()
	var validPercent, errorPercent float64
	if st.TotalFrames > 0 {
		validPercent = float64(st.ValidFrames) * 100.0 / float64(st.TotalFrames)
		errorPercent = float64(errCount+st.AnomalousFrame) * 100.0 / float64(st.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", st.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", errCount+st.AnomalousFrame, errorPercent)),
	))

	if errCount > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Bad Length:"), errorStyle.Render(fmt.Sprintf("%d", st.BadLength)),
			statsLabelStyle.Render("Header CRC:"), errorStyle.Render(fmt.Sprintf("%d", st.BadHeaderCRC)),
			statsLabelStyle.Render("Body CRC:"), errorStyle.Render(fmt.Sprintf("%d", st.BadBodyCRC)),
		))
	}

	if st.AnomalousFrame > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", st.AnomalousFrame)),
		))
		parts := []string{}
		for t := link.AnomalyUnknownFunction; t <= link.AnomalyReservedAddress; t++ {
			if n := st.Anomalies[t]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", headerStyle.Render(t.String()), n))
			}
		}
		if len(parts) > 0 {
			statsContent.WriteString(" (" + strings.Join(parts, ", ") + ")")
		}
		statsContent.WriteString("\n")
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frm/s", st.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if st.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Stations
	if m.stations.len() > 0 {
		s.WriteString(statsLabelStyle.Render("Links:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.stationTable.View()))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 15 - m.tableHeight()
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
