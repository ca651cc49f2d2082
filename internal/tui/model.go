// Package tui renders a chat widget in the terminal.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
	chatService "github.com/zhouzirui/z-shop/backend/internal/service/chat"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
)

// Widget is the slice of chat.Widget the terminal view drives.
type Widget interface {
	Snapshot() chat.Snapshot
	Subscribe(buffer int) (<-chan chat.Snapshot, func())
	UpdateDraft(text string)
	SendDraft() bool
}

var _ Widget = (*chatService.Widget)(nil)

type snapshotMsg chat.Snapshot

type unmountedMsg struct{}

// Model is the Bubble Tea model for one widget.
type Model struct {
	widget      Widget
	title       string
	updates     <-chan chat.Snapshot
	unsubscribe func()

	snapshot chat.Snapshot
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	styles   Styles
	width    int
}

// New subscribes to widget and prepares the view.
func New(widget Widget, title string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = defaultWidth - 4
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := DefaultStyles()
	sp.Style = styles.Typing
	ti.PromptStyle = styles.Prompt

	updates, unsubscribe := widget.Subscribe(16)

	m := Model{
		widget:      widget,
		title:       title,
		updates:     updates,
		unsubscribe: unsubscribe,
		snapshot:    widget.Snapshot(),
		viewport:    viewport.New(defaultWidth, defaultHeight-inputHeight-2),
		input:       ti,
		spinner:     sp,
		styles:      styles,
		width:       defaultWidth,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForSnapshot(m.updates))
}

func waitForSnapshot(updates <-chan chat.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return unmountedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.unsubscribe()
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.snapshot.Busy && m.widget.SendDraft() {
				m.input.Reset()
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if after := m.input.Value(); after != before {
			m.widget.UpdateDraft(after)
		}
		return m, cmd

	case snapshotMsg:
		// The input owns the draft; frames may lag behind local keystrokes.
		m.snapshot = chat.Snapshot(msg)
		m.refresh()
		return m, waitForSnapshot(m.updates)

	case unmountedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-2, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil
	}

	return m, nil
}

// refresh re-renders the transcript and scrolls to the latest message.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	bubbleWidth := max(m.width*2/3, 20)

	var sb strings.Builder
	for _, msg := range m.snapshot.Transcript {
		switch msg.Sender {
		case chat.RoleUser:
			bubble := m.styles.User.Width(bubbleWidth).Render(msg.Text)
			sb.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble))
		default:
			sb.WriteString(m.styles.Bot.Width(bubbleWidth).Render(msg.Text))
		}
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if m.snapshot.Busy {
		sb.WriteString(m.spinner.View() + m.styles.Typing.Render(" Typing..."))
	}
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	return sb.String()
}
