package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/opc-classic/client"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	branchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	host     *host
	srv      *client.Server
	status   string
	result   string
	path     []string
	elems    []client.BrowseElement
	values   map[string]string
	input    textinput.Model
	selected int
	state    modelState
}

type modelState int

const (
	stateBrowse modelState = iota
	stateWrite
	stateShowResult
)

func newInteractiveModel(h *host) *interactiveModel {
	return &interactiveModel{host: h, state: stateBrowse}
}

type connectedMsg struct {
	err    error
	srv    *client.Server
	status string
}

type levelMsg struct {
	err    error
	elems  []client.BrowseElement
	values map[string]string
}

type writeResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.connect
}

func (m *interactiveModel) connect() tea.Msg {
	srv, err := m.host.client.CreateServer(m.host.clsid)
	if err != nil {
		return connectedMsg{err: err}
	}
	st, err := srv.GetStatus()
	if err != nil {
		return connectedMsg{err: err}
	}
	return connectedMsg{
		srv:    srv,
		status: fmt.Sprintf("%s %s", st.VendorInfo, srv.Version()),
	}
}

func (m *interactiveModel) position() string {
	if len(m.path) == 0 {
		return ""
	}
	return m.path[len(m.path)-1]
}

// loadLevel browses the current position and reads every item on it.
func (m *interactiveModel) loadLevel() tea.Msg {
	elems, err := m.srv.BrowseAll(client.BrowseRequest{ItemID: m.position(), Filter: da.FilterAll})
	if err != nil {
		return levelMsg{err: err}
	}
	var ids []string
	for _, e := range elems {
		if e.IsItem {
			ids = append(ids, e.ItemID)
		}
	}
	values := make(map[string]string, len(ids))
	if len(ids) > 0 {
		vals, codes, err := m.srv.ReadItems(ids, nil)
		if err != nil {
			return levelMsg{err: err}
		}
		for i, id := range ids {
			if codes[i].Failed() {
				values[id] = codes[i].String()
				continue
			}
			values[id] = fmt.Sprintf("%s [%s]", vals[i].Value, da.QualityString(vals[i].Quality))
		}
	}
	return levelMsg{elems: elems, values: values}
}

func (m *interactiveModel) writeSelected() tea.Msg {
	e := m.elems[m.selected]
	codes, err := m.srv.WriteItems([]string{e.ItemID}, []client.VQT{{Value: com.NewString(m.input.Value())}})
	if err != nil {
		return writeResultMsg{err: err}
	}
	return writeResultMsg{result: fmt.Sprintf("%s: %s", e.ItemID, describe(m.srv, codes[0]))}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateWrite {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.elems)-1 {
				m.selected++
			}

		case "enter", "right", "l":
			switch m.state {
			case stateBrowse:
				if len(m.elems) == 0 {
					break
				}
				e := m.elems[m.selected]
				if e.HasChildren {
					m.path = append(m.path, e.ItemID)
					m.selected = 0
					return m, m.loadLevel
				}
				return m, m.loadLevel

			case stateWrite:
				if msg.String() == "enter" {
					return m, m.writeSelected
				}

			case stateShowResult:
				m.state = stateBrowse
				m.result = ""
				m.err = nil
				return m, m.loadLevel
			}

		case "backspace", "left", "h":
			if m.state == stateBrowse && len(m.path) > 0 {
				m.path = m.path[:len(m.path)-1]
				m.selected = 0
				return m, m.loadLevel
			}

		case "r":
			if m.state == stateBrowse {
				return m, m.loadLevel
			}

		case "w":
			if m.state == stateBrowse && len(m.elems) > 0 && m.elems[m.selected].IsItem {
				ti := textinput.New()
				ti.Prompt = m.elems[m.selected].Name + " = "
				ti.Placeholder = "value"
				ti.Width = 40
				ti.Focus()
				m.input = ti
				m.state = stateWrite
				return m, textinput.Blink
			}

		case "esc":
			switch m.state {
			case stateWrite, stateShowResult:
				m.state = stateBrowse
				m.result = ""
				m.err = nil
			}
		}

	case connectedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.srv = msg.srv
		m.status = msg.status
		return m, m.loadLevel

	case levelMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateShowResult
			return m, nil
		}
		m.elems = msg.elems
		m.values = msg.values
		if m.selected >= len(m.elems) {
			m.selected = 0
		}

	case writeResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateWrite {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.srv == nil {
		return "Connecting..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("OPC DA Browser"))
	b.WriteString(" ")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("/" + m.position()))
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		if len(m.elems) == 0 {
			b.WriteString("(empty)\n")
		}
		for i, e := range m.elems {
			name, detail := m.formatElement(e)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + e.Name))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString(detail)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • ← up • w write • r reload • q quit"))

	case stateWrite:
		e := m.elems[m.selected]
		b.WriteString(fmt.Sprintf("Writing %s\n\n", itemStyle.Render(e.ItemID)))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter write • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatElement(e client.BrowseElement) (name, detail string) {
	if !e.IsItem {
		return branchStyle.Render(e.Name), "/"
	}
	return itemStyle.Render(e.Name), "  " + resultStyle.Render(m.values[e.ItemID])
}

func runInteractive(h *host) error {
	p := tea.NewProgram(newInteractiveModel(h), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
