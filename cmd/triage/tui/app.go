package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/triage/types"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

// historyLines is how many recent moves are listed under the input.
const historyLines = 3

// Options configures the TUI application.
type Options struct {
	// Session must already have an active root.
	Session *workspace.Session
	DryRun  bool
}

// Model is the Bubble Tea model for the triage TUI.
type Model struct {
	session *workspace.Session
	options Options
	view    types.View
	input   textinput.Model

	// tagCursor indexes view.RecentTags while tab-cycling, -1 otherwise.
	tagCursor int

	status    string
	statusErr bool

	logger *logging.Logger

	// Window dimensions
	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "tag"
	ti.Prompt = "Tag: "
	ti.CharLimit = 128
	ti.Focus()

	m := Model{
		session:   opts.Session,
		options:   opts,
		input:     ti,
		tagCursor: -1,
		logger:    logging.Get("tui"),
		width:     80,
		height:    24,
	}
	m.refresh()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-12, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		m.classify()
		return m, nil

	case "ctrl+s":
		m.skip()
		return m, nil

	case "ctrl+z":
		m.undo()
		return m, nil

	case "ctrl+r":
		m.reconcile()
		return m, nil

	case "tab":
		m.cycleTag(1)
		return m, nil

	case "shift+tab":
		m.cycleTag(-1)
		return m, nil
	}

	m.tagCursor = -1
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.view = m.session.CurrentView()
	if m.tagCursor >= len(m.view.RecentTags) {
		m.tagCursor = -1
	}
}

func (m *Model) setStatus(msg string) {
	m.status = msg
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.logger.Debug("action failed", "error", err)
	m.status = types.UserMessage(err)
	m.statusErr = true
}

func (m *Model) classify() {
	action, err := m.session.Classify(m.input.Value())
	switch {
	case errors.Is(err, types.ErrNothingToClassify):
		m.setStatus("Nothing left to classify.")
	case err != nil:
		m.setError(err)
	default:
		m.setStatus(fmt.Sprintf("Moved %s to %s.", action.Source.Base(), action.Tag))
		m.input.Reset()
		m.tagCursor = -1
	}
	m.refresh()
}

func (m *Model) skip() {
	if m.view.Image != nil {
		m.setStatus("Skipped " + m.view.Image.Name + ".")
	}
	m.session.Skip()
	m.refresh()
}

func (m *Model) undo() {
	res, err := m.session.Undo()
	switch {
	case err != nil:
		m.setError(err)
	case !res.Performed:
		m.setStatus("Nothing to undo.")
	case res.Skipped:
		m.setStatus(fmt.Sprintf("%s was no longer in %s; removed it from history.",
			res.Action.Destination.Base(), filepath.Base(res.Action.Destination.Dir())))
	default:
		m.setStatus("Restored " + res.Action.Source.Base() + ".")
	}
	m.refresh()
}

func (m *Model) reconcile() {
	if err := m.session.Reconcile(); err != nil {
		m.setError(err)
	} else {
		m.setStatus("Rescanned folder.")
	}
	m.refresh()
}

// cycleTag fills the input with the next (dir > 0) or previous recent tag.
func (m *Model) cycleTag(dir int) {
	n := len(m.view.RecentTags)
	if n == 0 {
		return
	}
	switch {
	case m.tagCursor < 0 && dir > 0:
		m.tagCursor = 0
	case m.tagCursor < 0:
		m.tagCursor = n - 1
	default:
		m.tagCursor = (m.tagCursor + dir + n) % n
	}
	m.input.SetValue(m.view.RecentTags[m.tagCursor])
	m.input.CursorEnd()
}

// View renders the current state.
func (m Model) View() string {
	var b strings.Builder
	innerWidth := max(m.width-4, 20)

	b.WriteString(renderHeader(m.view, m.options.DryRun))
	b.WriteString("\n")
	b.WriteString(divider(innerWidth))
	b.WriteString("\n\n")

	if img := m.view.Image; img != nil {
		b.WriteString(" " + imageNameStyle.Render(img.Name))
		b.WriteString("  " + sizeStyle.Render(img.HumanSize()))
		if !img.ModTime.IsZero() {
			b.WriteString("  " + mutedTextStyle.Render(img.ModTime.Format("2006-01-02 15:04")))
		}
		b.WriteString("\n")
		b.WriteString(" " + mutedTextStyle.Render(string(img.Path)))
		b.WriteString("\n\n")
	} else {
		b.WriteString(" " + successTextStyle.Render("All images sorted."))
		b.WriteString("\n\n")
	}

	b.WriteString(" " + m.input.View())
	b.WriteString("\n")
	if tags := m.renderTags(); tags != "" {
		b.WriteString(" " + tags)
		b.WriteString("\n")
	}

	if len(m.view.History) > 0 {
		b.WriteString("\n")
		for i, action := range m.view.History {
			if i == historyLines {
				break
			}
			b.WriteString(mutedTextStyle.Render(fmt.Sprintf("   %s → %s", action.Source.Base(), action.Tag)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		style := successTextStyle
		if m.statusErr {
			style = errorTextStyle
		}
		b.WriteString(" " + style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(divider(innerWidth))
	b.WriteString("\n")
	b.WriteString(renderHelp())

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) renderTags() string {
	if len(m.view.RecentTags) == 0 {
		return ""
	}
	chips := make([]string, 0, len(m.view.RecentTags))
	for i, tag := range m.view.RecentTags {
		if i == m.tagCursor {
			chips = append(chips, selectedTagStyle.Render(tag))
		} else {
			chips = append(chips, tagStyle.Render(tag))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

// Run starts the TUI application.
func Run(opts Options) error {
	if opts.Session == nil || opts.Session.Root() == "" {
		return errors.New("tui: session has no active folder")
	}
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
