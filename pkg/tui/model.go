// Package tui is a terminal reader. Key presses go to the host through an
// Input; the model redraws from the session's viewport after each command.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mylibrary/mylibrary/pkg/host"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/reader"
)

// viewMsg is a snapshot of the session taken after a command ran.
type viewMsg struct {
	frame    reader.Frame
	hasFrame bool
	position reader.PositionDescriptor
	open     bool
}

type Model struct {
	book    *models.Book
	session *reader.Session
	input   *Input
	keys    KeyMap
	help    help.Model
	bar     progress.Model

	width  int
	height int
	view   viewMsg
}

// New builds a model for a session that is already open on book.
func New(book *models.Book, session *reader.Session, input *Input) Model {
	m := Model{
		book:    book,
		session: session,
		input:   input,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		bar:     progress.New(progress.WithSolidFill(string(Accent)), progress.WithoutPercentage()),
	}
	m.view = snapshot(session)
	return m
}

func snapshot(s *reader.Session) viewMsg {
	frame, hasFrame := s.Viewport().Frame()
	pos, open := s.Position()
	return viewMsg{frame: frame, hasFrame: hasFrame, position: pos, open: open}
}

// command runs cmd against the host off the update loop and reports the
// resulting view.
func (m Model) command(cmd host.Command) tea.Cmd {
	input, session := m.input, m.session
	return func() tea.Msg {
		input.Dispatch(cmd)
		return snapshot(session)
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Next):
			return m, m.command(host.CommandNext)
		case key.Matches(msg, m.keys.Previous):
			return m, m.command(host.CommandPrevious)
		case key.Matches(msg, m.keys.Close):
			return m, m.command(host.CommandClose)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case viewMsg:
		m.view = msg
		if !msg.open {
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

// Percent is the normalized progress of the current view.
func (m Model) Percent() int {
	if !m.view.open {
		return 0
	}
	return reader.Normalize(m.view.position)
}

func (m Model) View() string {
	if !m.view.open {
		return ""
	}

	var b strings.Builder
	title := m.book.Title
	if author := m.book.DisplayAuthor(); author != "" {
		title += " · " + author
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.renderFrame())
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(float64(m.Percent()) / 100))
	b.WriteString(captionStyle.Render(fmt.Sprintf(" %d%%", m.Percent())))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderFrame() string {
	if !m.view.hasFrame {
		return errorStyle.Render("Nothing to display.")
	}
	f := m.view.frame

	width := m.width - 6
	if width < 20 {
		width = 72
	}
	style := pageStyle.Width(width)

	var body string
	switch {
	case f.Text != "":
		body = f.Text
		if m.height > 0 {
			body = truncateLines(lipgloss.NewStyle().Width(width-4).Render(body), m.height-10)
		}
	case f.Handle == "":
		body = errorStyle.Render("This page could not be displayed.")
	default:
		body = fmt.Sprintf("[%s %dx%d]", f.MimeType, f.Width, f.Height)
	}
	return style.Render(body) + "\n" + captionStyle.Render(f.Caption)
}

func truncateLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n")
}
