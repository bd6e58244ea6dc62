package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-pulse/clock"
	"go-pulse/config"
	"go-pulse/midi"
)

// Tempo bounds for the +/- keys; the scheduler itself takes any positive bpm.
const (
	minTempo  = 30
	maxTempo  = 300
	tempoStep = 5
)

type Model struct {
	Sched *clock.PulseScheduler
	Ports *midi.PortManager
	Cfg   *config.Config

	portNames []string
	sinks     map[string]*midi.Sink
	status    string
	quitting  bool
}

type tickMsg time.Time

func NewModel(sched *clock.PulseScheduler, ports *midi.PortManager, cfg *config.Config) Model {
	m := Model{
		Sched: sched,
		Ports: ports,
		Cfg:   cfg,
		sinks: make(map[string]*midi.Sink),
	}
	m.portNames = ports.Ports()

	// Attach sinks for every port remembered in the config.
	for _, name := range cfg.MIDIPorts {
		if err := m.attach(name); err != nil {
			m.status = err.Error()
		}
	}
	return m
}

// tick drives the bar-position readout; the scheduler does its own timing.
func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Sched.Stop()
			return m, tea.Quit

		case " ":
			if m.Sched.Running() {
				m.Sched.Stop()
			} else {
				m.Sched.Start()
			}

		case "+", "=":
			m.bumpTempo(tempoStep)

		case "-", "_":
			m.bumpTempo(-tempoStep)

		case "r":
			m.portNames = m.Ports.Ports()
			m.status = fmt.Sprintf("%d MIDI ports", len(m.portNames))

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			idx := int(msg.String()[0] - '1')
			if idx < len(m.portNames) {
				m.togglePort(m.portNames[idx])
			}
		}

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m *Model) bumpTempo(delta float64) {
	bpm := m.Sched.Tempo() + delta
	if bpm < minTempo {
		bpm = minTempo
	}
	if bpm > maxTempo {
		bpm = maxTempo
	}
	m.Sched.SetTempo(bpm)
	m.Cfg.Tempo = bpm
}

// attach opens a port and stages a clock sink for it.
func (m *Model) attach(name string) error {
	sender, err := m.Ports.Sender(name)
	if err != nil {
		return err
	}
	sink := midi.NewSink(name, sender)
	m.sinks[name] = sink
	m.Sched.AddSink(sink)
	m.Cfg.AddMIDIPort(name)
	return nil
}

// togglePort stages or unstages a port's sink. While running, the change
// takes effect on the next start - the current run keeps its sinks.
func (m *Model) togglePort(name string) {
	if sink, ok := m.sinks[name]; ok {
		m.Sched.RemoveSink(sink)
		delete(m.sinks, name)
		m.Cfg.RemoveMIDIPort(name)
		m.status = "unstaged " + name
		return
	}
	if err := m.attach(name); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "staged " + name
	if m.Sched.Running() {
		m.status += " (joins at next start)"
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("84"))

	_, running, bpm := m.Sched.State()
	playState := "STOP"
	if running {
		playState = "PLAY"
	}

	header := headerStyle.Render(fmt.Sprintf("go-pulse  %s  %5.1fbpm  bar %6.2f", playState, bpm, m.Sched.Position()))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	if len(m.portNames) == 0 {
		out.WriteString(dimStyle.Render("  no MIDI output ports (r to rescan)"))
		out.WriteString("\n")
	}
	for i, name := range m.portNames {
		if _, ok := m.sinks[name]; ok {
			out.WriteString(onStyle.Render(fmt.Sprintf("  %d [x] %s", i+1, name)))
		} else {
			out.WriteString(dimStyle.Render(fmt.Sprintf("  %d [ ] %s", i+1, name)))
		}
		out.WriteString("\n")
	}

	if m.Cfg.OSC.Enabled {
		out.WriteString(dimStyle.Render(fmt.Sprintf("  osc: listening on %s", m.Cfg.OSC.Host)))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render("space:start/stop  +/-:tempo  1-9:toggle port  r:rescan  q:quit"))

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
	}

	return out.String()
}
