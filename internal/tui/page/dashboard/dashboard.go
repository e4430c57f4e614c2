package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/ansi"

	"github.com/guilhermegouw/cadence/internal/bridge"
	"github.com/guilhermegouw/cadence/internal/debug"
	"github.com/guilhermegouw/cadence/internal/events"
	"github.com/guilhermegouw/cadence/internal/realtime"
	"github.com/guilhermegouw/cadence/internal/store"
	"github.com/guilhermegouw/cadence/internal/tui/components/input"
	"github.com/guilhermegouw/cadence/internal/tui/components/logo"
	"github.com/guilhermegouw/cadence/internal/tui/styles"
)

const (
	refreshInterval = time.Second
	actionTimeout   = 15 * time.Second
	maxLogLines     = 200
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

type (
	tickMsg     time.Time
	snapshotMsg Snapshot

	// actionMsg reports the outcome of a user action.
	actionMsg struct {
		err  error
		text string
	}
)

type logLine struct {
	at   time.Time
	kind events.Kind
	text string
}

// Model is the dashboard page.
type Model struct { //nolint:govet // fieldalignment: preserving logical field order
	backend  Backend
	input    *input.Input
	commands *CommandRegistry
	now      func() time.Time

	snapshot Snapshot
	log      []logLine
	dialog   *events.DialogOpenEvent

	status    string
	statusErr bool

	width  int
	height int
}

// New creates the dashboard.
func New(backend Backend) *Model {
	return &Model{
		backend:  backend,
		input:    input.New(),
		commands: NewCommandRegistry(),
		now:      time.Now,
	}
}

// Init loads the first snapshot and starts the refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) refresh() tea.Cmd {
	b := m.backend
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return snapshotMsg(takeSnapshot(ctx, b, now))
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case snapshotMsg:
		m.snapshot = Snapshot(msg)
		if m.snapshot.Err != nil {
			debug.Error("dashboard", m.snapshot.Err, "loading reminders")
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus(msg.text, false)
		}
		return m, m.refresh()

	case bridge.BusEventMsg:
		return m, m.handleEvent(msg)

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(msg bridge.BusEventMsg) tea.Cmd {
	env := msg.Event
	if line := Describe(env.Payload); line != "" {
		m.appendLog(logLine{at: env.Timestamp, kind: env.Kind, text: line})
	}

	switch ev := env.Payload.(type) {
	case events.DialogOpenEvent:
		m.dialog = &ev
	case events.ReminderEvent, events.NotificationReceivedEvent, events.ChannelStateEvent:
		return m.refresh()
	case events.TaskEvent:
		if ev.Type != events.TaskEventStart {
			return m.refresh()
		}
	}
	return nil
}

func (m *Model) appendLog(l logLine) {
	if l.at.IsZero() {
		l.at = m.now()
	}
	m.log = append(m.log, l)
	if over := len(m.log) - maxLogLines; over > 0 {
		m.log = append(m.log[:0], m.log[over:]...)
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (*Model, tea.Cmd) {
	if m.input.Focused() {
		switch msg.String() {
		case "enter":
			return m, m.submit(m.input.Submit())
		case "esc":
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "s":
		return m, m.syncNow()
	case "c":
		return m, m.reconnect()
	case "d", "esc":
		m.dialog = nil
		return m, nil
	case "y":
		return m, m.copyReport()
	case "i", "tab":
		return m, m.input.Focus()
	case "/":
		m.input.SetValue("/")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) submit(value string) tea.Cmd {
	if value == "" {
		return nil
	}

	parsed, ok := m.commands.Parse(value)
	if !ok {
		return m.send(value)
	}

	switch c := parsed.(type) {
	case RemindMsg:
		return m.remind(c)
	case DoneMsg:
		return m.complete(c)
	case SyncMsg:
		return m.syncNow()
	case ReconnectMsg:
		return m.reconnect()
	case UsageMsg:
		m.setStatus("usage: "+c.Usage, true)
	case UnknownCommandMsg:
		m.setStatus("unknown command /"+c.Command, true)
	}
	return nil
}

func (m *Model) send(text string) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		if err := b.SendMessage(text); err != nil {
			return actionMsg{err: fmt.Errorf("send: %w", err)}
		}
		return actionMsg{text: "message sent"}
	}
}

func (m *Model) remind(c RemindMsg) tea.Cmd {
	b := m.backend
	due := m.now().Add(c.In)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := b.CreateReminder(ctx, c.Title, due); err != nil {
			return actionMsg{err: fmt.Errorf("remind: %w", err)}
		}
		return actionMsg{text: fmt.Sprintf("reminder %q due %s", c.Title, due.Format("15:04"))}
	}
}

func (m *Model) complete(c DoneMsg) tea.Cmd {
	r, err := m.findReminder(c.Prefix)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}

	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := b.CompleteReminder(ctx, r.ID); err != nil {
			return actionMsg{err: fmt.Errorf("done: %w", err)}
		}
		return actionMsg{text: fmt.Sprintf("completed %q", r.Title)}
	}
}

func (m *Model) findReminder(prefix string) (store.Reminder, error) {
	var found []store.Reminder
	for _, r := range m.snapshot.Reminders {
		if strings.HasPrefix(r.ID, prefix) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return store.Reminder{}, fmt.Errorf("no reminder matches %q", prefix)
	case 1:
		return found[0], nil
	default:
		return store.Reminder{}, fmt.Errorf("%d reminders match %q", len(found), prefix)
	}
}

func (m *Model) syncNow() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if !b.SyncNow(ctx) {
			return actionMsg{text: "sync already requested"}
		}
		return actionMsg{text: "sync requested"}
	}
}

func (m *Model) reconnect() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		b.Reconnect(ctx)
		return actionMsg{text: "reconnecting"}
	}
}

func (m *Model) copyReport() tea.Cmd {
	report := Report(m.snapshot)
	return func() tea.Msg {
		if err := writeClipboard(report); err != nil {
			return actionMsg{err: fmt.Errorf("copy failed: %w", err)}
		}
		return actionMsg{text: "status copied"}
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// Typing reports whether keys go to the input.
func (m *Model) Typing() bool {
	return m.input.Focused()
}

// SetSize sets the page size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width)
}

// Cursor returns the input cursor positioned on screen.
func (m *Model) Cursor() *tea.Cursor {
	c := m.input.Cursor()
	if c == nil {
		return nil
	}
	// Input box sits directly above the help line.
	c.Y += m.height - lipgloss.Height(m.input.View())
	c.X += 2
	return c
}

// View renders the page.
func (m *Model) View() string {
	t := styles.CurrentTheme()

	header := m.renderHeader()
	inputView := m.input.View()
	help := t.S().Subtle.Render(m.helpText())

	var parts []string
	parts = append(parts, header)
	if m.dialog != nil {
		parts = append(parts, m.renderDialog())
	}
	parts = append(parts, m.renderPanels())

	used := 0
	for _, p := range parts {
		used += lipgloss.Height(p)
	}
	statusView := m.renderStatus()
	logHeight := m.height - used - lipgloss.Height(statusView) - lipgloss.Height(inputView) - 1
	if logHeight > 0 {
		parts = append(parts, m.renderLog(logHeight))
	}

	parts = append(parts, statusView, inputView, help)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	t := styles.CurrentTheme()

	ch := m.snapshot.Channel
	state := channelState(ch)
	var badge string
	switch {
	case ch.Exhausted:
		badge = t.S().Error.Render("● " + state)
	case ch.State == realtime.StateOpen:
		badge = t.S().Success.Render("● " + state)
	case ch.State == realtime.StateConnecting:
		badge = t.S().Warning.Render("● " + state)
	default:
		badge = t.S().Muted.Render("○ " + state)
	}
	if ch.Queued > 0 {
		badge += t.S().Muted.Render(fmt.Sprintf("  %d queued", ch.Queued))
	}

	right := lipgloss.JoinVertical(lipgloss.Left,
		badge,
		t.S().Muted.Render("deferred "+deferredSummary(m.snapshot)),
	)
	if m.height < logo.Height()+10 {
		return lipgloss.JoinHorizontal(lipgloss.Top, t.S().Title.Render("cadence")+"  ", right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, logo.Render(), "   ", right)
}

func deferredSummary(s Snapshot) string {
	d := s.Deferred
	if !d.Supported {
		return "unsupported"
	}
	tags := "none"
	if len(d.Tags) > 0 {
		tags = strings.Join(d.Tags, ", ")
	}
	return fmt.Sprintf("%s · notifications %s", tags, d.NotificationPermission)
}

func (m *Model) renderDialog() string {
	t := styles.CurrentTheme()
	body := t.S().Title.Render(m.dialog.Title)
	if m.dialog.Body != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, t.S().Text.Render(m.dialog.Body))
	}
	body = lipgloss.JoinVertical(lipgloss.Left, body, t.S().Subtle.Render("d to dismiss"))
	return t.S().Banner.Width(max(m.width-2, 20)).Render(body)
}

func (m *Model) renderPanels() string {
	half := max(m.width/2, 20)
	tasks := m.renderTasks(half)
	reminders := m.renderReminders(m.width - half)
	if m.width < 60 {
		return lipgloss.JoinVertical(lipgloss.Left, tasks, reminders)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tasks, reminders)
}

func (m *Model) renderTasks(width int) string {
	t := styles.CurrentTheme()
	now := m.snapshot.Taken

	lines := []string{t.S().Subtitle.Render("Tasks")}
	if len(m.snapshot.Tasks) == 0 {
		lines = append(lines, t.S().Muted.Render("no tasks"))
	}
	for _, st := range m.snapshot.Tasks {
		name := st.Name
		if !st.Enabled {
			name = t.S().Muted.Render(name + " (off)")
		} else if st.Running {
			name = t.S().Info.Render(name + " …")
		}
		line := fmt.Sprintf("%s  %s", name, t.S().Muted.Render(cadence(st)))
		detail := fmt.Sprintf("last %s · next %s · %d runs", relative(st.LastRun, now), relative(st.NextRun, now), st.Runs)
		if st.Failures > 0 {
			detail += t.S().Error.Render(fmt.Sprintf(" · %d failed", st.Failures))
		}
		lines = append(lines, line, "  "+t.S().Subtle.Render(detail))
	}
	return m.panel(width, lines)
}

func (m *Model) renderReminders(width int) string {
	t := styles.CurrentTheme()
	now := m.snapshot.Taken

	lines := []string{t.S().Subtitle.Render("Reminders")}
	if m.snapshot.Err != nil {
		lines = append(lines, t.S().Error.Render(m.snapshot.Err.Error()))
	}
	open := 0
	for _, r := range m.snapshot.Reminders {
		if r.Done {
			continue
		}
		open++
		due := relative(r.DueAt, now)
		style := t.S().Text
		if !r.DueAt.IsZero() && r.DueAt.Before(now) {
			style = t.S().Warning
		}
		mark := ""
		if r.Dirty() {
			mark = t.S().Muted.Render(" ↑")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s%s",
			t.S().Muted.Render(shortID(r.ID)), style.Render(r.Title), t.S().Subtle.Render(due), mark))
	}
	if open == 0 && m.snapshot.Err == nil {
		lines = append(lines, t.S().Muted.Render("nothing due"))
	}
	return m.panel(width, lines)
}

func (m *Model) panel(width int, lines []string) string {
	t := styles.CurrentTheme()
	inner := max(width-4, 10)
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, inner, "…")
	}
	return t.S().Panel.Width(max(width-2, 12)).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderLog(height int) string {
	t := styles.CurrentTheme()
	width := max(m.width-2, 10)

	start := max(len(m.log)-height, 0)
	lines := make([]string, 0, height)
	for _, l := range m.log[start:] {
		stamp := t.S().Subtle.Render(l.at.Format("15:04:05"))
		style := t.S().Text
		switch l.kind {
		case events.KindTaskError, events.KindReconnectExhausted, events.KindHealthWarning:
			style = t.S().Error
		case events.KindNotificationReceived, events.KindDialogOpen:
			style = t.S().Info
		case events.KindActive, events.KindUserActive, events.KindIdle, events.KindVisibilityChanged:
			style = t.S().Muted
		}
		lines = append(lines, ansi.Truncate(stamp+" "+style.Render(l.text), width, "…"))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return " " + strings.Join(lines, "\n ")
}

func (m *Model) renderStatus() string {
	t := styles.CurrentTheme()
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return t.S().Error.Render(m.status)
	}
	return t.S().Info.Render(m.status)
}

func (m *Model) helpText() string {
	if m.input.Focused() {
		return "enter send · ↑/↓ history · esc leave input"
	}
	return "s sync · c reconnect · d dismiss · y copy status · i type · q quit"
}
