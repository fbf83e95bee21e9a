package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/reader"
)

// PollInterval is how often the status view re-reads the checkpoint.
const PollInterval = 2 * time.Second

type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
}

type statusMsg struct {
	status *reader.RunStatus
	err    error
}

type tickMsg time.Time

// StatusModel is the Bubble Tea model for the live status view.
type StatusModel struct {
	reader  *reader.Reader
	spinner spinner.Model

	status   *reader.RunStatus
	err      error
	loaded   bool
	width    int
	quitting bool
}

// NewStatusModel creates a status model polling the given reader.
func NewStatusModel(r *reader.Reader) StatusModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return StatusModel{reader: r, spinner: sp}
}

// Init implements tea.Model.
func (m StatusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m StatusModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), PollInterval)
		defer cancel()
		status, err := m.reader.Status(ctx)
		return statusMsg{status: status, err: err}
	}
}

// Update implements tea.Model.
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, m.poll()
		}
		return m, nil

	case statusMsg:
		m.loaded = true
		m.status = msg.status
		m.err = msg.err
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), tick())

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

// View implements tea.Model.
func (m StatusModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Dredge Crawl Status"))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View())
		b.WriteString(" loading checkpoint...")
	case m.err != nil && errors.Is(m.err, checkpoint.ErrNotFound):
		b.WriteString(WarningStyle.Render("no checkpoint found"))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("Start a crawl with: dredge run"))
	case m.err != nil:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("error: %v", m.err)))
	default:
		b.WriteString(m.renderStatus())
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("r refresh · q quit"))
	return b.String()
}

func (m StatusModel) renderStatus() string {
	s := m.status

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Run:"),
		ValueStyle.Render(s.RunID)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Source:"),
		ValueStyle.Render(fmt.Sprintf("%s:%s", s.Source.Type, s.Source.ID))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Phase:"),
		ValueStyle.Render(string(s.Phase))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Saved:"),
		ValueStyle.Render(fmt.Sprintf("%s (%s ago)",
			s.SavedAt.Format("15:04:05"),
			s.Age(time.Now()).Round(time.Second)))))
	b.WriteString("\n")

	boxes := []string{
		m.renderStatBox("Discovered", s.Discovered, highlightColor),
		m.renderStatBox("Pending", s.Pending, warningColor),
		m.renderStatBox("Done", s.Done, successColor),
		m.renderStatBox("Errored", s.Errored, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Progress:"),
		ValueStyle.Render(fmt.Sprintf("%.1f%%", s.Progress()))))

	switch {
	case s.CompletedSuccessfully:
		b.WriteString(SuccessStyle.Render("run completed successfully"))
		b.WriteString("\n")
	case s.CompletedWithErrors:
		b.WriteString(WarningStyle.Render("completed with errors: retry with dredge recheck --requeue"))
		b.WriteString("\n")
	case s.DiscoveredComplete:
		b.WriteString(SuccessStyle.Render("discovery complete"))
		b.WriteString("\n")
	default:
		b.WriteString(fmt.Sprintf("%s %s\n",
			m.spinner.View(),
			WarningStyle.Render("discovering")))
	}
	if s.AuthExpired {
		b.WriteString(ErrorStyle.Render("session expired: refresh credentials and resume"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m StatusModel) renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatusTUI runs the live status view until the user quits.
func RunStatusTUI(r *reader.Reader) error {
	p := tea.NewProgram(NewStatusModel(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
