// Package tui is the interactive presentation view built on Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"presentation-assistant/internal/conversation"
	"presentation-assistant/internal/session"
	"presentation-assistant/internal/state"
	"presentation-assistant/internal/voice"
)

type mode int

const (
	modeControl mode = iota
	modeInput
)

// changedMsg is delivered when the presenter reports a change
type changedMsg struct{}

// actionDoneMsg reports the result of a blocking presenter call
type actionDoneMsg struct {
	action string
	err    error
}

// Model is the presentation view. Blocking presenter calls run as commands;
// everything shown is read from presenter snapshots.
type Model struct {
	ctx       context.Context
	presenter *session.Presenter
	changes   chan struct{}

	snap     session.Snapshot
	mode     mode
	input    textinput.Model
	viewport viewport.Model
	notice   string
	width    int
	height   int
	quitting bool
}

// New creates the view and subscribes it to presenter changes
func New(ctx context.Context, presenter *session.Presenter) Model {
	changes := make(chan struct{}, 1)
	presenter.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	in := textinput.New()
	in.Placeholder = "Ask about this slide..."
	in.CharLimit = 2000

	m := Model{
		ctx:       ctx,
		presenter: presenter,
		changes:   changes,
		snap:      presenter.Snapshot(),
		input:     in,
		viewport:  viewport.New(80, 10),
		width:     80,
		height:    24,
	}
	m.layout()
	return m
}

// Run starts the view in the alternate screen until quit or ctx ends
func Run(ctx context.Context, presenter *session.Presenter) error {
	p := tea.NewProgram(New(ctx, presenter), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return changedMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case actionDoneMsg:
		if msg.err != nil {
			m.notice = describe(msg.action, msg.err)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeInput {
			return m.updateInput(msg)
		}
		return m.updateControl(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateControl(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case " ":
		if m.snap.Playback.Mode == state.ModeNotStarted {
			m.notice = describe("start", m.presenter.Start(m.ctx))
		} else {
			_, err := m.presenter.Toggle()
			m.notice = describe("toggle", err)
		}

	case "right", "n":
		_, err := m.presenter.Next()
		m.notice = describe("next", err)

	case "left", "p":
		_, err := m.presenter.Previous()
		m.notice = describe("previous", err)

	case "r":
		_, err := m.presenter.Reload()
		m.notice = describe("reload", err)

	case "tab", "/":
		m.mode = modeInput
		return m, m.input.Focus()

	case "e":
		if m.snap.Conversation.Draft != "" {
			m.input.SetValue(m.snap.Conversation.Draft)
			m.input.CursorEnd()
			m.mode = modeInput
			return m, m.input.Focus()
		}

	case "enter":
		if m.snap.Conversation.Draft != "" {
			return m, m.run("ask", func(ctx context.Context) error {
				return m.presenter.SubmitDraft(ctx)
			})
		}

	case "m":
		return m.toggleRecording()

	case "x":
		m.presenter.DiscardRecording()
		m.notice = describe("discard", m.presenter.DiscardDraft())

	case "c":
		m.presenter.Resume()

	case "a":
		if id := lastAnswerWithAudio(m.snap.Messages); id > 0 {
			m.notice = describe("play answer", m.presenter.PlayAnswer(id))
		}

	case "d":
		m.presenter.Dismiss()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.refresh()
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.input.Blur()
		m.mode = modeControl
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		editingDraft := m.snap.Conversation.Draft != ""
		m.input.Reset()
		m.input.Blur()
		m.mode = modeControl
		return m, m.run("ask", func(ctx context.Context) error {
			if editingDraft {
				if err := m.presenter.SetDraft(text); err != nil {
					return err
				}
				return m.presenter.SubmitDraft(ctx)
			}
			return m.presenter.Ask(ctx, text)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.snap.Recorder != voice.StateRecording {
		m.notice = describe("record", m.presenter.StartRecording(m.ctx))
		m.refresh()
		return m, nil
	}

	if _, err := m.presenter.StopRecording(); err != nil {
		m.notice = describe("record", err)
		m.refresh()
		return m, nil
	}
	m.refresh()
	return m, m.run("transcribe", func(ctx context.Context) error {
		_, err := m.presenter.SubmitRecording(ctx)
		return err
	})
}

// run executes a blocking presenter call off the update loop
func (m Model) run(action string, f func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: f(ctx)}
	}
}

func (m *Model) refresh() {
	m.snap = m.presenter.Snapshot()
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) layout() {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	h := m.height - m.slideHeight() - 5
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
	m.viewport.SetContent(m.renderMessages())
}

func (m Model) slideHeight() int {
	return m.height * 2 / 5
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader() + "\n")
	b.WriteString(m.renderSlide() + "\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(m.renderStatus() + "\n")

	if m.mode == modeInput {
		b.WriteString(statusBarStyle.Render("Ask: ") + m.input.View())
	} else {
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

func (m Model) renderHeader() string {
	pb := m.snap.Playback
	deckName := m.snap.DeckName
	if deckName == "" {
		deckName = "Presentation"
	}

	title := titleStyle.Render(deckName)
	info := dimStyle.Render(fmt.Sprintf("  [%s]  slide %d/%d  ", m.snap.Language, pb.Index+1, pb.Total))
	return title + info + renderMode(pb.Mode)
}

func renderMode(mode state.Mode) string {
	switch mode {
	case state.ModePlaying:
		return playingStyle.Render("▶ playing")
	case state.ModePaused:
		return pausedStyle.Render("⏸ paused")
	default:
		return dimStyle.Render("■ press space to start")
	}
}

func (m Model) renderSlide() string {
	slide := m.snap.Playback.Slide
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	body := slideTitleStyle.Render(slide.Title) + "\n\n" + slide.Content
	lines := strings.Split(lipgloss.NewStyle().Width(width-2).Render(body), "\n")
	if limit := m.slideHeight() - 2; limit > 0 && len(lines) > limit {
		lines = append(lines[:limit-1], dimStyle.Render("..."))
	}
	return slideBoxStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderMessages() string {
	if len(m.snap.Messages) == 0 {
		return dimStyle.Render("No questions yet. Press tab to type one or m to speak.")
	}

	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, msg := range m.snap.Messages {
		role := userRoleStyle.Render(" You ")
		if msg.Role == conversation.RoleAssistant {
			role = assistantRoleStyle.Render(" Assistant ")
		}
		b.WriteString(role)
		if !msg.Audio.Empty() {
			b.WriteString(dimStyle.Render("  ♪ a: play"))
		}
		b.WriteString("\n" + wrap.Render(msg.Text) + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderStatus() string {
	var parts []string
	pb := m.snap.Playback

	if pb.Loading {
		parts = append(parts, dimStyle.Render("loading narration..."))
	} else if pb.LastError != nil {
		parts = append(parts, dimStyle.Render("no narration for this slide"))
	}

	switch m.snap.Recorder {
	case voice.StateRecording:
		parts = append(parts, recordingStyle.Render("● REC  m: stop"))
	case voice.StateCaptured:
		parts = append(parts, dimStyle.Render("recording ready"))
	}

	conv := m.snap.Conversation
	if conv.Pending {
		parts = append(parts, dimStyle.Render("thinking..."))
	}
	if conv.Draft != "" {
		parts = append(parts, draftStyle.Render("Heard: "+conv.Draft)+dimStyle.Render("  enter: send  e: edit  x: discard"))
	}
	if conv.LastError != nil {
		parts = append(parts, errorStyle.Render(describeConversationError(conv.LastError))+dimStyle.Render("  d: dismiss"))
	}
	if m.snap.PausedForQuestion {
		parts = append(parts, dimStyle.Render("c: continue presentation"))
	}
	if m.notice != "" {
		parts = append(parts, errorStyle.Render(m.notice))
	}

	return strings.Join(parts, "  ")
}

func (m Model) renderHelp() string {
	return helpStyle.Render("  space: play/pause  ←/→: slides  r: reload  tab: ask  m: speak  q: quit")
}

func lastAnswerWithAudio(msgs []conversation.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleAssistant && !msgs[i].Audio.Empty() {
			return msgs[i].ID
		}
	}
	return 0
}

// describe turns a control error into a one-line notice
func describe(action string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, voice.ErrDeviceUnavailable):
		return "Microphone unavailable"
	case errors.Is(err, conversation.ErrBusy):
		return "Still answering the previous question"
	case errors.Is(err, conversation.ErrTranscriptionFailed):
		// shown from the conversation state
		return ""
	case errors.Is(err, conversation.ErrEmptyQuestion), errors.Is(err, conversation.ErrNoDraft):
		return ""
	default:
		return fmt.Sprintf("%s failed: %v", action, err)
	}
}

func describeConversationError(err error) string {
	var tfe *conversation.TranscriptionFailedError
	if errors.As(err, &tfe) {
		return "Could not understand the question: " + tfe.Reason
	}
	if conversation.IsAnswerFailure(err) {
		return "The answer service is unavailable"
	}
	return err.Error()
}
