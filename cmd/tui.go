// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/n2kbridge/pkg/status"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// Per-second rates between two snapshots
type statusRates struct {
	sent     float64
	received float64
	canRx    float64
	canTx    float64
}

// TUI model
type model struct {
	connInfo      string
	busInfo       string
	refresh       time.Duration
	source        func() status.Snapshot // nil when snapshots are pushed
	started       time.Time
	current       status.Snapshot
	previous      status.Snapshot
	hasSnapshot   bool
	rates         statusRates
	eventLog      []eventLogEntry
	maxLogEntries int
	spinner       spinner.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type snapshotMsg status.Snapshot
type disconnectedMsg struct {
	err error
}

// formatUptime formats uptime in milliseconds to human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	months := days / 30
	years := months / 12

	seconds %= 60
	minutes %= 60
	hours %= 24
	days %= 30
	months %= 12

	parts := []string{}
	if years > 0 {
		if years == 1 {
			parts = append(parts, "1 year")
		} else {
			parts = append(parts, fmt.Sprintf("%d years", years))
		}
	}
	if months > 0 {
		if months == 1 {
			parts = append(parts, "1 month")
		} else {
			parts = append(parts, fmt.Sprintf("%d months", months))
		}
	}
	if days > 0 {
		if days == 1 {
			parts = append(parts, "1 day")
		} else {
			parts = append(parts, fmt.Sprintf("%d days", days))
		}
	}
	if hours > 0 {
		if hours == 1 {
			parts = append(parts, "1 hour")
		} else {
			parts = append(parts, fmt.Sprintf("%d hours", hours))
		}
	}
	if minutes > 0 {
		if minutes == 1 {
			parts = append(parts, "1 minute")
		} else {
			parts = append(parts, fmt.Sprintf("%d minutes", minutes))
		}
	}
	if seconds > 0 || len(parts) == 0 {
		if seconds == 1 {
			parts = append(parts, "1 second")
		} else {
			parts = append(parts, fmt.Sprintf("%d seconds", seconds))
		}
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

func initialModel(connInfo, busInfo string, refresh time.Duration, source func() status.Snapshot) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return model{
		connInfo:      connInfo,
		busInfo:       busInfo,
		refresh:       refresh,
		source:        source,
		started:       time.Now(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		spinner:       sp,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
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
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.source != nil {
			m.apply(m.source())
		}
		return m, m.tickCmd()

	case snapshotMsg:
		m.apply(status.Snapshot(msg))

	case disconnectedMsg:
		m.addLogEntry(fmt.Sprintf("Disconnected: %v", msg.err), true)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply records a new snapshot, updating rates and the event log
func (m *model) apply(s status.Snapshot) {
	if !m.hasSnapshot {
		m.current = s
		m.previous = s
		m.hasSnapshot = true
		m.addLogEntry(fmt.Sprintf("Bridge online, %d devices", s.Devices), false)
		return
	}

	m.previous = m.current
	m.current = s

	if elapsed := s.Taken.Sub(m.previous.Taken).Seconds(); elapsed > 0 {
		m.rates = statusRates{
			sent:     rate(m.previous.Sent, s.Sent, elapsed),
			received: rate(m.previous.Received, s.Received, elapsed),
			canRx:    rate(m.previous.CANRx, s.CANRx, elapsed),
			canTx:    rate(m.previous.CANTx, s.CANTx, elapsed),
		}
	}

	if s.Devices != m.previous.Devices {
		m.addLogEntry(fmt.Sprintf("Devices: %d -> %d", m.previous.Devices, s.Devices), false)
	}
	if s.Dropped > m.previous.Dropped {
		m.addLogEntry(fmt.Sprintf("Bus busy: %d frames dropped", s.Dropped-m.previous.Dropped), true)
	}
	if s.FramingErrors > m.previous.FramingErrors {
		m.addLogEntry(fmt.Sprintf("Serial: %d corrupt frames", s.FramingErrors-m.previous.FramingErrors), true)
	}
	if s.Maintenance != m.previous.Maintenance {
		if s.Maintenance {
			m.addLogEntry("Maintenance started", false)
		} else {
			m.addLogEntry("Maintenance finished", false)
		}
	}
}

func rate(before, after uint64, seconds float64) float64 {
	if after < before {
		return 0
	}
	return float64(after-before) / seconds
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
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

	maintenanceStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("11")).
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("11")).
				Padding(1, 4)
)

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	if m.current.Maintenance {
		return m.maintenanceView()
	}

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("N2KBRIDGE - STATUS"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | Press 'q' to quit", m.connInfo, m.busInfo)))
	s.WriteString("\n\n")

	if !m.hasSnapshot {
		s.WriteString(m.spinner.View())
		s.WriteString(warningStyle.Render(" Waiting for status..."))
		s.WriteString("\n")
		return s.String()
	}

	st := m.current
	s.WriteString(m.spinner.View())
	s.WriteString(statsValueStyle.Render(fmt.Sprintf(" Running for %s", formatUptime(uint64(time.Since(m.started).Milliseconds())))))
	s.WriteString("\n\n")

	// Counters
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s\n",
		statsLabelStyle.Render("St:"), statsValueStyle.Render(fmt.Sprintf("%d devices", st.Devices)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f/s)", st.Sent, m.rates.sent)),
		statsLabelStyle.Render("Received:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f/s)", st.Received, m.rates.received)),
		statsLabelStyle.Render("Forwarded:"), statsValueStyle.Render(fmt.Sprintf("%d", st.Forwarded)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("Dropped:"), counterStyle(st.Dropped).Render(fmt.Sprintf("%d", st.Dropped)),
		statsLabelStyle.Render("Framing Errors:"), counterStyle(st.FramingErrors).Render(fmt.Sprintf("%d", st.FramingErrors)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Can Rx:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f/s)", st.CANRx, m.rates.canRx)),
		statsLabelStyle.Render("Can Tx:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f/s)", st.CANTx, m.rates.canTx)),
	))
	if st.CANDropped > 0 {
		statsContent.WriteString(fmt.Sprintf("   %s %s",
			statsLabelStyle.Render("Can Dropped:"), errorStyle.Render(fmt.Sprintf("%d", st.CANDropped)),
		))
	}

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 14 // Reserve space for header and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
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

// maintenanceView replaces the status screen while maintenance is active
func (m model) maintenanceView() string {
	box := maintenanceStyle.Render(m.spinner.View() + " Upload In Progress")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func counterStyle(v uint64) lipgloss.Style {
	if v > 0 {
		return errorStyle
	}
	return statsValueStyle
}
