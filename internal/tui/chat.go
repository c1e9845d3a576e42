// Package tui is the interactive chat screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/uma-oracle/dlogic/internal"
)

const helpText = `/predict <race_id>   予想を実行 (条件を4つ選択してから)
/conditions [n...]   条件一覧、番号で選択・解除 (例: /conditions 1 3 5 7)
/conditions clear    選択をすべて解除
/clear               会話をリセット
/quit                終了`

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230"))
)

// revealChunk runes of a long reply are shown per revealInterval
const (
	revealChunk    = 24
	revealInterval = 15 * time.Millisecond
)

type replyMsg struct {
	msg internal.Message
	err error
}

// storeChangedMsg is sent when the chat store changes outside Update
type storeChangedMsg struct{}

type revealMsg struct{ id string }

// reveal tracks a reply being shown progressively
type reveal struct {
	id    string
	full  []rune
	shown int
}

// Model is the bubbletea model of the chat screen
type Model struct {
	ctx     context.Context
	session *internal.ChatSession

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width    int
	ready    bool
	inflight int
	status   string
	failed   bool

	reveal      reveal
	changes     chan struct{}
	unsubscribe func()
}

// New creates the chat screen for session
func New(ctx context.Context, session *internal.ChatSession) Model {
	ti := textinput.New()
	ti.Placeholder = "メッセージを入力 (/help でコマンド一覧)"
	ti.Prompt = "❯ "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	changes := make(chan struct{}, 1)
	unsubscribe := session.Store().Subscribe(func(internal.ChatState) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	return Model{
		ctx:         ctx,
		session:     session,
		input:       ti,
		spinner:     sp,
		viewport:    viewport.New(80, 20),
		width:       80,
		changes:     changes,
		unsubscribe: unsubscribe,
	}
}

// Close stops listening to the session's store
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the cursor blink, the spinner and the store listener
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForChange())
}

// waitForChange delivers the next store change as a storeChangedMsg
func (m Model) waitForChange() tea.Cmd {
	changes, done := m.changes, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-changes:
			return storeChangedMsg{}
		case <-done:
			return nil
		}
	}
}

// Update handles keys, window resizes and finished requests
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 4
		height := msg.Height - 4
		if height < 3 {
			height = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = height
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				break
			}
			m.finishReveal()
			var cmd tea.Cmd
			m, cmd = m.submit(text)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case replyMsg:
		m.inflight--
		switch {
		case errors.Is(msg.err, internal.ErrStaleResponse):
			internal.LogDebug("Ignoring superseded reply")
		case msg.err != nil:
			m.setStatus(internal.UserMessage(msg.err), true)
		default:
			m.setStatus("", false)
			if cmd := m.startReveal(msg.msg); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case revealMsg:
		if cmd := m.advanceReveal(msg.id); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case storeChangedMsg:
		cmds = append(cmds, m.waitForChange())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.refresh()
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit dispatches a slash command or sends text as a chat message
func (m Model) submit(text string) (Model, tea.Cmd) {
	if !strings.HasPrefix(text, "/") {
		m.inflight++
		m.setStatus("", false)
		return m, m.send(text)
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		m.session.Reset()
		m.setStatus("会話をリセットしました", false)
	case "/help":
		m.setStatus(helpText, false)
	case "/conditions":
		m.selectConditions(fields[1:])
	case "/predict":
		if len(fields) < 2 {
			m.setStatus("使い方: /predict <race_id>", true)
			break
		}
		if !m.session.Selector().CanSubmit() {
			m.setStatus(fmt.Sprintf("条件を%d個選択してください (/conditions)", internal.MaxConditions), true)
			break
		}
		m.inflight++
		m.setStatus("", false)
		return m, m.predict(fields[1])
	default:
		m.setStatus("不明なコマンドです: "+fields[0], true)
	}
	return m, nil
}

// selectConditions toggles each numbered condition in turn, the way a
// click on a condition card selects or deselects it
func (m *Model) selectConditions(args []string) {
	sel := m.session.Selector()
	if len(args) == 0 {
		m.setStatus(conditionList(sel), false)
		return
	}
	if len(args) == 1 && args[0] == "clear" {
		sel.Reset()
		m.setStatus(conditionList(sel), false)
		return
	}

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(internal.Catalog) {
			m.setStatus("条件番号は1から8です: "+arg, true)
			return
		}
		ids = append(ids, internal.Catalog[n-1].ID)
	}
	for _, id := range ids {
		if _, err := sel.Toggle(id); err != nil {
			m.setStatus(conditionList(sel)+"\n"+internal.UserMessage(err), true)
			return
		}
	}
	m.setStatus(conditionList(sel), false)
}

func conditionList(sel *internal.Selector) string {
	var b strings.Builder
	for i, c := range internal.Catalog {
		mark := " "
		suffix := ""
		if p := sel.Priority(c.ID); p > 0 {
			mark = "✓"
			suffix = fmt.Sprintf(" [%s %d%%]", internal.PriorityLabel(p), internal.PriorityWeights[p-1])
		}
		fmt.Fprintf(&b, "%s %d. %s%s\n", mark, i+1, c.Name, suffix)
	}
	fmt.Fprintf(&b, "state: %s", sel.State())
	return b.String()
}

func (m Model) send(text string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		msg, err := session.Send(ctx, text)
		return replyMsg{msg: msg, err: err}
	}
}

func (m Model) predict(raceID string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		msg, err := session.Predict(ctx, raceID)
		return replyMsg{msg: msg, err: err}
	}
}

// startReveal shows a long text reply a chunk at a time. The stored
// message is shortened and grown back through the store, so it must be
// the last message.
func (m *Model) startReveal(msg internal.Message) tea.Cmd {
	full := []rune(msg.Content)
	if msg.Prediction != nil || len(full) <= revealChunk {
		return nil
	}
	if !m.session.Store().UpdateLastMessage(msg.ID, string(full[:revealChunk])) {
		return nil
	}
	m.reveal = reveal{id: msg.ID, full: full, shown: revealChunk}
	return revealTick(msg.ID)
}

func (m *Model) advanceReveal(id string) tea.Cmd {
	if m.reveal.id == "" || m.reveal.id != id {
		return nil
	}
	m.reveal.shown += revealChunk
	if m.reveal.shown >= len(m.reveal.full) {
		m.finishReveal()
		return nil
	}
	if !m.session.Store().UpdateLastMessage(id, string(m.reveal.full[:m.reveal.shown])) {
		m.reveal = reveal{}
		return nil
	}
	return revealTick(id)
}

// finishReveal puts the complete reply back in place
func (m *Model) finishReveal() {
	if m.reveal.id == "" {
		return
	}
	m.session.Store().UpdateLastMessage(m.reveal.id, string(m.reveal.full))
	m.reveal = reveal{}
}

func revealTick(id string) tea.Cmd {
	return tea.Tick(revealInterval, func(time.Time) tea.Msg { return revealMsg{id: id} })
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// refresh redraws the transcript from the store
func (m *Model) refresh() {
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for _, msg := range m.session.Store().Messages() {
		if msg.Role == internal.RoleUser {
			b.WriteString(userStyle.Render("あなた"))
		} else {
			b.WriteString(assistantStyle.Render("D-Logic"))
		}
		b.WriteString("\n")
		if msg.Prediction != nil {
			b.WriteString(internal.RenderPrediction(msg.Prediction))
		} else {
			b.WriteString(internal.WrapText(msg.Content, width))
			if msg.DLogic != nil && m.reveal.id != msg.ID {
				b.WriteString("\n")
				b.WriteString(internal.RenderDLogic(msg.DLogic))
			}
		}
		b.WriteString("\n\n")
	}
	if m.session.Store().Snapshot().Loading {
		b.WriteString(m.spinner.View() + " 考え中...\n")
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// View draws the transcript, the status line and the input
func (m Model) View() string {
	header := headerStyle.Render("🏇 D-Logic AI")
	if race := m.session.Store().Snapshot().CurrentRace; race != "" {
		header += statusStyle.Render("  race " + race)
	}

	status := ""
	if m.status != "" {
		if m.failed {
			status = errStyle.Render(m.status)
		} else {
			status = statusStyle.Render(m.status)
		}
		status += "\n"
	}
	return fmt.Sprintf("%s\n%s\n%s%s", header, m.viewport.View(), status, m.input.View())
}

// Run shows the chat screen until the user quits. Log output is muted
// while the screen is active.
func Run(ctx context.Context, session *internal.ChatSession) error {
	internal.SetLogOutput(io.Discard)
	defer internal.SetLogOutput(os.Stderr)

	model := New(ctx, session)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
