package main

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Southclaws/pawn-requests/host/jshost"
	"github.com/Southclaws/pawn-requests/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	printStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// historyLimit bounds the scrollback kept in the view.
const historyLimit = 200

type lineKind int

const (
	lineInput lineKind = iota
	linePrint
	lineResult
	lineError
)

type line struct {
	kind lineKind
	text string
}

type interactiveModel struct {
	host    *jshost.Host
	sess    *session.Session
	input   textinput.Model
	lines   []line
	pending bool
	height  int
}

// printMsg carries script output. It may arrive from a callback running on
// a background goroutine.
type printMsg string

type evalMsg struct {
	result string
	err    error
}

// programWriter forwards print output into the running program. Output
// written before the program starts goes to stdout.
type programWriter struct {
	p atomic.Pointer[tea.Program]
}

func (w *programWriter) Write(b []byte) (int, error) {
	p := w.p.Load()
	if p == nil {
		return os.Stdout.Write(b)
	}
	p.Send(printMsg(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}

func newInteractiveModel(sess *session.Session, h *jshost.Host) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("> ")
	ti.Placeholder = "print(JsonNodeType(JsonInt(1)))"
	ti.Width = 80
	ti.Focus()
	return &interactiveModel{host: h, sess: sess, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) eval(src string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.host.Eval(src)
		return evalMsg{result: result, err: err}
	}
}

func (m *interactiveModel) push(l line) {
	m.lines = append(m.lines, l)
	if len(m.lines) > historyLimit {
		m.lines = m.lines[len(m.lines)-historyLimit:]
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "ctrl+l":
			m.lines = nil
			return m, nil

		case "enter":
			src := strings.TrimSpace(m.input.Value())
			if src == "" || m.pending {
				return m, nil
			}
			m.input.SetValue("")
			m.push(line{kind: lineInput, text: src})
			m.pending = true
			return m, m.eval(src)
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - 4

	case printMsg:
		m.push(line{kind: linePrint, text: string(msg)})
		return m, nil

	case evalMsg:
		m.pending = false
		switch {
		case msg.err != nil:
			m.push(line{kind: lineError, text: msg.err.Error()})
		case msg.result != "":
			m.push(line{kind: lineResult, text: msg.result})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Requests Console"))
	b.WriteString(" ")
	b.WriteString(m.sess.ID())
	b.WriteString("\n\n")

	lines := m.lines
	// title, blank, input, blank, help
	if room := m.height - 5; m.height > 0 && len(lines) > room && room > 0 {
		lines = lines[len(lines)-room:]
	}
	for _, l := range lines {
		switch l.kind {
		case lineInput:
			b.WriteString(promptStyle.Render("> ") + l.text)
		case linePrint:
			b.WriteString(printStyle.Render(l.text))
		case lineResult:
			b.WriteString(resultStyle.Render(l.text))
		case lineError:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", l.text)))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	help := "enter evaluate • ctrl+l clear • ctrl+c quit"
	if m.pending {
		help = "evaluating..."
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// runInteractive starts a console over a JavaScript host. script, when set,
// is run before the prompt appears.
func runInteractive(sess *session.Session, script string) error {
	defer sess.Close()

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}

	w := &programWriter{}
	h := jshost.New(sess, jshost.WithOutput(w))
	defer h.Close()

	if script != "" {
		src, err := os.ReadFile(script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		if err := h.Run(script, string(src)); err != nil {
			return fmt.Errorf("run %s: %w", script, err)
		}
	}

	p := tea.NewProgram(newInteractiveModel(sess, h), tea.WithAltScreen())
	w.p.Store(p)
	_, err := p.Run()
	return err
}
