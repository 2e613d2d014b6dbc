// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/metasim/pkg/capture"
	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/Thermoquad/metasim/pkg/watch"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the simulated watch with an interactive display",
	Long: `Run the simulated watch and show its display, indicators and frame log.

Keys a-f and p press the watch buttons. Tab cycles how long the next press is
held (immediate, hold, long hold). The frame log scrolls with the arrow and
page keys.

Supports both serial and WebSocket connections.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVar(&capturePath, "capture", "", "Record the session to a capture file")
}

// Log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for frames and notices
}

// Messages
type tickMsg time.Time
type stateMsg struct{}
type snapshotMsg struct {
	snap  watch.Snapshot
	stats metawatch.Statistics
}
type frameMsg struct {
	dir   capture.Direction
	frame *metawatch.Frame
	err   error
}
type logMsg logEntry
type pressMsg struct {
	button uint8
	press  metawatch.PressType
	sent   bool
	err    error
}
type sessionDoneMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Key bindings
//////////////////////////////////////////////////////////////

type keyMap struct {
	Buttons  key.Binding
	Hold     key.Binding
	View     key.Binding
	Reset    key.Binding
	Scroll   key.Binding
	Help     key.Binding
	Quit     key.Binding
	buttonID map[string]uint8
}

func newKeyMap() keyMap {
	return keyMap{
		Buttons: key.NewBinding(
			key.WithKeys("a", "b", "c", "d", "e", "f", "p"),
			key.WithHelp("a-f/p", "press button"),
		),
		Hold: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "press length"),
		),
		View: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "view buffer"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset watch"),
		),
		Scroll: key.NewBinding(
			key.WithKeys("up", "down", "pgup", "pgdown"),
			key.WithHelp("↑/↓", "scroll log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		buttonID: map[string]uint8{
			"a": metawatch.ButtonA,
			"b": metawatch.ButtonB,
			"c": metawatch.ButtonC,
			"d": metawatch.ButtonD,
			"e": metawatch.ButtonE,
			"f": metawatch.ButtonF,
			"p": metawatch.ButtonPull,
		},
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Buttons, k.Hold, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Buttons, k.Hold},
		{k.View, k.Reset},
		{k.Scroll, k.Help, k.Quit},
	}
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

// TUI model
type model struct {
	ctx      context.Context
	session  *watch.Session
	connInfo string

	snap     watch.Snapshot
	haveSnap bool
	stats    metawatch.Statistics

	// press lengths cycled with tab, chosen to land in each press class
	holds     []time.Duration
	holdIndex int
	hold      time.Duration
	longHold  time.Duration
	lastPress string

	// -1 follows the active mode
	viewMode int

	log           []logEntry
	maxLogEntries int
	viewport      viewport.Model
	help          help.Model
	keys          keyMap

	startTime time.Time
	width     int
	height    int
	quitting  bool
	done      bool // link closed
}

// pressLengths returns one duration per press class for the thresholds
func pressLengths(hold, longHold time.Duration) []time.Duration {
	return []time.Duration{0, (hold + longHold) / 2, longHold + hold}
}

func initialModel(ctx context.Context, session *watch.Session, connInfo string, hold, longHold time.Duration) model {
	vp := viewport.New(76, 8)
	return model{
		ctx:           ctx,
		session:       session,
		connInfo:      connInfo,
		holds:         pressLengths(hold, longHold),
		hold:          hold,
		longHold:      longHold,
		viewMode:      -1,
		log:           make([]logEntry, 0),
		maxLogEntries: 500,
		viewport:      vp,
		help:          help.New(),
		keys:          newKeyMap(),
		startTime:     time.Now(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.refreshCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd fetches a snapshot from the session loop
func (m model) refreshCmd() tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		snap, err := session.Snapshot(ctx)
		if err != nil {
			return nil
		}
		stats, err := session.Stats(ctx)
		if err != nil {
			return nil
		}
		return snapshotMsg{snap: snap, stats: stats}
	}
}

func (m model) pressCmd(button uint8, held time.Duration) tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	press := watch.ClassifyPress(held, m.hold, m.longHold)
	return func() tea.Msg {
		sent, err := session.Press(ctx, button, held)
		return pressMsg{button: button, press: press, sent: sent, err: err}
	}
}

func (m model) resetCmd() tea.Cmd {
	if m.session == nil {
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		if err := session.Reset(ctx); err != nil {
			return logMsg{timestamp: time.Now(), message: "reset failed: " + err.Error(), isError: true}
		}
		return stateMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeLog()

	case tickMsg:
		return m, tea.Batch(tickCmd(), m.refreshCmd())

	case stateMsg:
		return m, m.refreshCmd()

	case snapshotMsg:
		m.snap = msg.snap
		m.stats = msg.stats
		m.haveSnap = true

	case frameMsg:
		m.addFrame(msg)

	case logMsg:
		m.addLogEntry(logEntry(msg))

	case pressMsg:
		m.lastPress = formatPress(msg)
		if msg.err != nil {
			m.addLogEntry(logEntry{timestamp: time.Now(), message: "press failed: " + msg.err.Error(), isError: true})
		}

	case sessionDoneMsg:
		m.done = true
		if msg.err != nil {
			m.addLogEntry(logEntry{timestamp: time.Now(), message: "link closed: " + msg.err.Error(), isError: true})
		} else {
			m.addLogEntry(logEntry{timestamp: time.Now(), message: "link closed"})
		}
	}

	return m, nil
}

func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Buttons):
		return m, m.pressCmd(m.keys.buttonID[msg.String()], m.holds[m.holdIndex])

	case key.Matches(msg, m.keys.Hold):
		m.holdIndex = (m.holdIndex + 1) % len(m.holds)

	case key.Matches(msg, m.keys.View):
		m.viewMode++
		if m.viewMode >= metawatch.NumModes {
			m.viewMode = -1
		}

	case key.Matches(msg, m.keys.Reset):
		return m, m.resetCmd()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeLog()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Rows outside the log: header, display box with its title, log border
const fixedRows = 1 + (displayRows + 3) + 2

func (m *model) resizeLog() {
	m.viewport.Width = max(m.width-4, 20)
	helpRows := 1
	if m.help.ShowAll {
		helpRows = 3
	}
	m.viewport.Height = max(m.height-fixedRows-helpRows, 3)
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *model) addFrame(msg frameMsg) {
	text := strings.TrimRight(metawatch.FormatFrame(msg.frame), "\n")
	text = strings.ReplaceAll(text, "\n", "\n    ")
	entry := logEntry{
		timestamp: msg.frame.Timestamp(),
		message:   fmt.Sprintf("%s %s", msg.dir, text),
	}
	if msg.err != nil {
		entry.message += "\n    " + msg.err.Error()
		entry.isError = true
	}
	m.addLogEntry(entry)
}

func (m *model) addLogEntry(entry logEntry) {
	atBottom := m.viewport.AtBottom()
	m.log = append(m.log, entry)

	// Keep only last N entries
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}

	m.viewport.SetContent(m.renderLog())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	screenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("255"))
)

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("METASIM - WATCH SIMULATOR"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | up %s", m.connInfo, formatUptime(time.Since(m.startTime)))))
	if m.done {
		s.WriteString(" ")
		s.WriteString(errorStyle.Render("LINK CLOSED"))
	}
	s.WriteString("\n")

	if !m.haveSnap {
		s.WriteString(warningStyle.Render("Waiting for the simulator..."))
		s.WriteString("\n")
	} else {
		display := boxStyle.Render(m.renderDisplay())
		side := lipgloss.JoinVertical(lipgloss.Left,
			boxStyle.Render(m.renderStatus()),
			boxStyle.Render(m.renderStats()),
		)
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, display, side))
		s.WriteString("\n")
	}

	s.WriteString(boxStyle.Render(m.viewport.View()))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

// shownMode is the mode whose buffer is on screen
func (m model) shownMode() metawatch.Mode {
	if m.viewMode < 0 {
		return m.snap.Mode
	}
	return metawatch.Mode(m.viewMode)
}

func (m model) renderDisplay() string {
	mode := m.shownMode()
	title := labelStyle.Render(mode.String())
	if mode != m.snap.Mode {
		title += headerStyle.Render(" (inactive)")
	}
	return title + "\n" + screenStyle.Render(renderFramebuffer(m.snap.Buffers[mode]))
}

func (m model) renderStatus() string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), value)
	}

	mode := valueStyle.Render(m.snap.Mode.String())
	if m.snap.ModeTimeoutPending {
		mode += headerStyle.Render(" (timeout pending)")
	}
	row("Mode:", mode)
	row("LED:", indicator(m.snap.LED))
	row("Vibrate:", indicator(m.snap.Vibrating))
	row("Clock:", valueStyle.Render(m.formatClock()))
	row("Buttons:", valueStyle.Render(fmt.Sprintf("%d mapped", len(m.snap.Buttons))))

	press := watch.ClassifyPress(m.holds[m.holdIndex], m.hold, m.longHold)
	row("Press:", valueStyle.Render(fmt.Sprintf("%s (%v)", press, m.holds[m.holdIndex])))
	if m.lastPress != "" {
		row("Last:", headerStyle.Render(m.lastPress))
	}

	for _, id := range shownRegisters {
		reg, ok := metawatch.LookupNval(id)
		if !ok {
			continue
		}
		v, ok := m.snap.Nval[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render(fmt.Sprintf("%-22s", reg.Name)), reg.FormatValue(v))
	}
	return strings.TrimRight(b.String(), "\n")
}

// NVAL registers shown in the status panel
var shownRegisters = []uint16{
	metawatch.NvalApplicationTimeout,
	metawatch.NvalNotificationTimeout,
	metawatch.NvalTimeFormat,
	metawatch.NvalDateFormat,
	metawatch.NvalShowSeconds,
}

func (m model) formatClock() string {
	layout := "Jan 02 03:04:05 PM"
	if v, ok := m.snap.Nval[metawatch.NvalTimeFormat]; ok && v == metawatch.TimeFormat24h {
		layout = "Jan 02 15:04:05"
	}
	if v, ok := m.snap.Nval[metawatch.NvalDateFormat]; ok && v == metawatch.DateDayFirst {
		layout = strings.Replace(layout, "Jan 02", "02 Jan", 1)
	}
	return m.snap.Clock.Format(layout)
}

func (m model) renderStats() string {
	st := m.stats
	var validPercent float64
	if st.TotalFrames > 0 {
		validPercent = float64(st.ValidFrames) * 100.0 / float64(st.TotalFrames)
	}

	errCount := valueStyle.Render("0")
	if st.Errors() > 0 {
		errCount = errorStyle.Render(fmt.Sprintf("%d", st.Errors()))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s %s\n",
		labelStyle.Render("RX:"), valueStyle.Render(fmt.Sprintf("%d (%.0f%% ok)", st.TotalFrames, validPercent)),
		labelStyle.Render("TX:"), valueStyle.Render(fmt.Sprintf("%d", st.OutboundFrames)),
	)
	fmt.Fprintf(&b, "%s %s", labelStyle.Render("Errors:"), errCount)
	if st.Errors() > 0 {
		fmt.Fprintf(&b, " %s", headerStyle.Render(fmt.Sprintf("(crc %d, invalid %d, unimpl %d, handler %d)",
			st.ChecksumErrors, st.InvalidMessages, st.NotImplemented, st.HandlerErrors)))
	}
	if st.SkippedBytes > 0 {
		fmt.Fprintf(&b, "\n%s %s", labelStyle.Render("Skipped:"), warningStyle.Render(fmt.Sprintf("%d bytes", st.SkippedBytes)))
	}
	return b.String()
}

func (m model) renderLog() string {
	if len(m.log) == 0 {
		return headerStyle.Render("  (no frames yet)")
	}

	var b strings.Builder
	for i, entry := range m.log {
		if i > 0 {
			b.WriteString("\n")
		}
		timestamp := headerStyle.Render(entry.timestamp.Format("15:04:05.000"))
		if entry.isError {
			fmt.Fprintf(&b, "%s %s", timestamp, errorStyle.Render("✗ "+entry.message))
		} else {
			fmt.Fprintf(&b, "%s %s", timestamp, entry.message)
		}
	}
	return b.String()
}

func indicator(on bool) string {
	if on {
		return warningStyle.Render("● on")
	}
	return headerStyle.Render("○ off")
}

func formatPress(msg pressMsg) string {
	label, ok := metawatch.ButtonLabels[msg.button]
	if !ok {
		label = fmt.Sprintf("#%d", msg.button)
	}
	result := "unmapped"
	if msg.sent {
		result = "event sent"
	}
	return fmt.Sprintf("%s %s, %s", label, msg.press, result)
}

// Rendered display size in terminal cells, 2x4 pixels per braille cell
const (
	displayCols = metawatch.DisplayWidth / 2
	displayRows = metawatch.DisplayHeight / 4
)

// braille dot bits for pixel (dx, dy) inside a cell
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// renderFramebuffer draws dark pixels as braille dots
func renderFramebuffer(fb *watch.Framebuffer) string {
	if fb == nil {
		fb = watch.NewFramebuffer()
	}

	var b strings.Builder
	for cy := 0; cy < displayRows; cy++ {
		if cy > 0 {
			b.WriteByte('\n')
		}
		for cx := 0; cx < displayCols; cx++ {
			r := rune(0x2800)
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if !fb.White(cx*2+dx, cy*4+dy) {
						r |= brailleDots[dy][dx]
					}
				}
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// formatUptime formats a duration to a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := uint64(d / time.Second)
	if seconds == 0 {
		return "0 seconds"
	}

	units := []struct {
		name string
		size uint64
	}{
		{"day", 24 * 60 * 60},
		{"hour", 60 * 60},
		{"minute", 60},
		{"second", 1},
	}

	parts := []string{}
	for _, u := range units {
		n := seconds / u.size
		seconds %= u.size
		switch {
		case n == 1:
			parts = append(parts, "1 "+u.name)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

// tuiLogHook forwards warnings and errors to the frame log
type tuiLogHook struct {
	send func(tea.Msg)
}

func (h *tuiLogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *tuiLogHook) Fire(e *logrus.Entry) error {
	message := e.Message
	if t, ok := e.Data["msg_type"]; ok {
		message = fmt.Sprintf("%v: %s", t, message)
	}
	if err, ok := e.Data[logrus.ErrorKey]; ok {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	h.send(logMsg{timestamp: e.Time, message: message, isError: e.Level <= logrus.ErrorLevel})
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The screen belongs to the TUI; log entries reach it through the hook
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.GetLevel())

	var p *tea.Program
	send := func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
		}
	}
	log.AddHook(&tuiLogHook{send: send})

	opts := deviceOptions(log)
	opts.Observer = func(watch.Event) {
		send(stateMsg{})
	}

	session := watch.NewSession(conn, opts)
	session.OnFrame(func(dir capture.Direction, f *metawatch.Frame, err error) {
		send(frameMsg{dir: dir, frame: f, err: err})
	})

	if capturePath != "" {
		w, err := capture.Create(capturePath)
		if err != nil {
			conn.Close()
			return err
		}
		defer w.Close()
		session.SetCapture(w)
	}

	m := initialModel(ctx, session, connInfo, cfg.HoldThreshold, cfg.LongHoldThreshold)
	p = tea.NewProgram(m, tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := session.Run(ctx)
		send(sessionDoneMsg{err: err})
		done <- err
	}()

	_, runErr := p.Run()
	cancel()
	sessionErr := <-done

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	if errors.Is(sessionErr, io.EOF) {
		return nil
	}
	return sessionErr
}
