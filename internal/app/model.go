package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cozy/blocknote/document"
	"github.com/cozy/blocknote/editor"
	"github.com/cozy/blocknote/internal/grapheme"
	"github.com/cozy/blocknote/session"
	"github.com/cozy/blocknote/transform"
	"github.com/rs/zerolog"
)

// runMsg carries a timer callback into the event loop.
type runMsg func()

type noticeMsg document.Notice

type savedMsg struct{ err error }

// Model is the bubbletea model of the page editor.
type Model struct {
	ed     *editor.Editor
	saver  *document.Saver
	views  *surfaces
	keys   KeyMap
	help   help.Model
	styles Styles
	log    zerolog.Logger

	titleMode bool
	notice    string
	err       error
	width     int
}

type Option func(*Model)

func WithStyles(st Styles) Option {
	return func(m *Model) { m.styles = st }
}

func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Model) { m.log = log }
}

// New returns a model editing the page of ed, whose surfaces must come from
// views. The first block gets the focus.
func New(ed *editor.Editor, saver *document.Saver, views *surfaces, opts ...Option) Model {
	m := Model{
		ed:     ed,
		saver:  saver,
		views:  views,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		styles: DefaultStyles(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if blocks := ed.Blocks(); len(blocks) > 0 {
		m.err = ed.Focus(blocks[0], transform.Caret(0))
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		msg()
	case noticeMsg:
		m.notice = document.Notice(msg).String()
	case savedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			m.notice = "saved"
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Save):
			return m, m.save()
		}
		m.err = m.handleKey(msg)
		if m.err != nil {
			m.log.Error().Err(m.err).Str("key", msg.String()).Msg("key press failed")
		}
	}
	return m, nil
}

func (m Model) save() tea.Cmd {
	saver := m.saver
	return func() tea.Msg {
		return savedMsg{err: saver.Flush(context.Background())}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) error {
	if m.titleMode {
		return m.titleKey(msg)
	}
	if key.Matches(msg, m.keys.Title) {
		m.titleMode = true
		if id := m.ed.Focused(); id != "" {
			return m.ed.Blur(id)
		}
		return nil
	}
	if m.ed.Menu() != nil {
		if done, err := m.menuKey(msg); done {
			return err
		}
	}

	id := m.ed.Focused()
	if id == "" {
		return m.unfocusedKey(msg)
	}
	s := m.ed.Session(id)
	caret := s.Caret()
	switch {
	case key.Matches(msg, m.keys.Blur):
		return m.ed.Blur(id)
	case key.Matches(msg, m.keys.Enter):
		_, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeyEnter})
		return err
	case key.Matches(msg, m.keys.SoftBreak):
		out, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeyEnter, Shift: true})
		if err != nil || out.Handled {
			return err
		}
		return m.insert(s, "\n")
	case key.Matches(msg, m.keys.Backspace):
		out, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeyBackspace})
		if err != nil || out.Handled {
			return err
		}
		return m.erase(s, -1)
	case key.Matches(msg, m.keys.Delete):
		out, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeyDelete})
		if err != nil || out.Handled {
			return err
		}
		return m.erase(s, 1)
	case key.Matches(msg, m.keys.Up):
		out, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeyArrowUp})
		if err != nil || out.Handled {
			return err
		}
		return m.ed.Select(id, transform.Caret(lineStart(s.Content(), caret.Start, true)))
	case key.Matches(msg, m.keys.Down):
		out, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeyArrowDown})
		if err != nil || out.Handled {
			return err
		}
		return m.ed.Select(id, transform.Caret(lineEnd(s.Content(), caret.End, true)))
	case key.Matches(msg, m.keys.Left):
		return m.ed.Select(id, transform.Caret(prevBoundary(s.Content(), caret.Start)))
	case key.Matches(msg, m.keys.Right):
		return m.ed.Select(id, transform.Caret(nextBoundary(s.Content(), caret.End)))
	case key.Matches(msg, m.keys.Home):
		return m.ed.Select(id, transform.Caret(lineStart(s.Content(), caret.Start, false)))
	case key.Matches(msg, m.keys.End):
		return m.ed.Select(id, transform.Caret(lineEnd(s.Content(), caret.End, false)))
	}

	text := typed(msg)
	if text == "" {
		return nil
	}
	if text == session.KeySlash {
		out, err := m.ed.KeyDown(id, session.KeyEvent{Key: session.KeySlash})
		if err != nil || out.Handled {
			return err
		}
	}
	return m.insert(s, text)
}

// typed returns the text entered by msg, if any.
func typed(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyRunes:
		return string(msg.Runes)
	case tea.KeySpace:
		return " "
	}
	return ""
}

// menuKey handles keys while the type menu is open. It reports false when
// the key closed the menu and must still be handled by the block.
func (m *Model) menuKey(msg tea.KeyMsg) (bool, error) {
	menu := m.ed.Menu()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.ed.MoveMenu(-1)
		return true, nil
	case key.Matches(msg, m.keys.Down):
		m.ed.MoveMenu(1)
		return true, nil
	case key.Matches(msg, m.keys.Enter):
		return true, m.ed.SelectMenuItem()
	case key.Matches(msg, m.keys.Blur):
		m.ed.CloseMenu()
		return true, nil
	}
	if text := typed(msg); len(text) == 1 && text[0] >= '1' && text[0] <= '9' {
		if n := int(text[0] - '1'); n < len(menu.Items) {
			return true, m.ed.SelectType(menu.Items[n])
		}
	}
	m.ed.CloseMenu()
	return false, nil
}

func (m *Model) unfocusedKey(msg tea.KeyMsg) error {
	blocks := m.ed.Blocks()
	if len(blocks) == 0 {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		last := blocks[len(blocks)-1]
		return m.ed.Focus(last, transform.Caret(utf8.RuneCountInString(m.ed.Session(last).Content())))
	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.Enter):
		return m.ed.Focus(blocks[0], transform.Caret(0))
	}
	return nil
}

func (m *Model) titleKey(msg tea.KeyMsg) error {
	title := m.ed.Title()
	switch {
	case key.Matches(msg, m.keys.Enter):
		m.titleMode = false
		return m.ed.TitleEnter()
	case key.Matches(msg, m.keys.Title), key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.Blur):
		m.titleMode = false
		if blocks := m.ed.Blocks(); len(blocks) > 0 {
			return m.ed.Focus(blocks[0], transform.Caret(0))
		}
		return nil
	case key.Matches(msg, m.keys.Backspace):
		if title == "" {
			return nil
		}
		runes := []rune(title)
		return m.ed.SetTitle(string(runes[:prevBoundary(title, len(runes))]))
	}
	if text := typed(msg); text != "" {
		return m.ed.SetTitle(title + text)
	}
	return nil
}

// insert replaces the selection of s with text, as typing does.
func (m *Model) insert(s *session.Session, text string) error {
	sel := s.Caret().Normalize()
	runes := []rune(s.Content())
	sel = sel.Clamp(len(runes))
	next := string(runes[:sel.Start]) + text + string(runes[sel.End:])
	return m.input(s, next, sel.Start+utf8.RuneCountInString(text))
}

// erase removes the selection of s, or the character before (dir < 0) or
// after the caret.
func (m *Model) erase(s *session.Session, dir int) error {
	source := s.Content()
	runes := []rune(source)
	sel := s.Caret().Normalize().Clamp(len(runes))
	start, end := sel.Start, sel.End
	if sel.Collapsed() {
		if dir < 0 {
			start = prevBoundary(source, start)
		} else {
			end = nextBoundary(source, end)
		}
	}
	if start == end {
		return nil
	}
	return m.input(s, string(runes[:start])+string(runes[end:]), start)
}

func (m *Model) input(s *session.Session, text string, caret int) error {
	return m.ed.Input(s.ID(), session.InputEvent{Text: text, Caret: transform.Caret(caret)})
}

func prevBoundary(text string, pos int) int {
	b := grapheme.Boundaries(text)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < pos {
			return b[i]
		}
	}
	return 0
}

func nextBoundary(text string, pos int) int {
	for _, b := range grapheme.Boundaries(text) {
		if b > pos {
			return b
		}
	}
	return utf8.RuneCountInString(text)
}

// lineStart returns the start of the line holding pos. With prev set and pos
// already at a line start, it returns the start of the previous line.
func lineStart(text string, pos int, prev bool) int {
	runes := []rune(text)
	if pos > len(runes) {
		pos = len(runes)
	}
	i := pos
	for i > 0 && runes[i-1] != '\n' {
		i--
	}
	if prev && i == pos && i > 0 {
		return lineStart(text, i-1, false)
	}
	return i
}

// lineEnd returns the end of the line holding pos. With next set and pos
// already at a line end, it returns the end of the next line.
func lineEnd(text string, pos int, next bool) int {
	runes := []rune(text)
	if pos < 0 {
		pos = 0
	}
	i := pos
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	if next && i == pos && i < len(runes) {
		return lineEnd(text, i+1, false)
	}
	return i
}

func (m Model) View() string {
	var b strings.Builder

	title := m.ed.Title()
	if m.titleMode {
		title = m.styles.Source(title, utf8.RuneCountInString(title))
	} else if title == "" {
		title = m.styles.Placeholder.Render("Untitled")
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	menu := m.ed.Menu()
	for _, id := range m.ed.Blocks() {
		b.WriteString(m.block(id))
		b.WriteString("\n")
		if menu != nil && menu.BlockID == id {
			b.WriteString(m.menu(menu))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(m.styles.Notice.Render(m.err.Error()))
	case m.notice != "":
		b.WriteString(m.styles.Notice.Render(m.notice))
	default:
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
	}
	return b.String()
}

func (m Model) block(id string) string {
	s := m.ed.Session(id)
	if s == nil {
		return ""
	}
	v := m.views.get(id)
	focused := m.ed.Focused() == id

	var body string
	switch {
	case s.Content() == "":
		body = m.styles.Placeholder.Render(document.PlaceholderText(s.Type()))
		if focused {
			body = m.styles.Caret.Render(caretGlyph) + body
		}
	case v == nil || typing(s):
		caret := -1
		if focused {
			caret = s.Caret().Start
		}
		body = m.styles.Source(s.Content(), caret)
	default:
		caret := -1
		if focused {
			caret = transform.MapText(s.Content(), s.Caret(), v.frame.Doc).Start.Pos
		}
		body = m.styles.Doc(v.frame.Doc, caret)
	}

	if focused {
		return indent(body, m.styles.Gutter.Render(focusMark), gutter)
	}
	return indent(body, gutter, gutter)
}

// typing reports whether the source of s changed since its last frame. The
// block then shows the source as typed.
func typing(s *session.Session) bool {
	switch s.State() {
	case session.Deleting, session.Composing:
		return true
	}
	return s.Pending()
}

func (m Model) menu(menu *editor.Menu) string {
	lines := make([]string, len(menu.Items))
	for i, t := range menu.Items {
		line := fmt.Sprintf("%d %s", i+1, t.Label())
		if i == menu.Selected {
			line = m.styles.Selected.Render(line)
		}
		lines[i] = line
	}
	return indent(m.styles.Menu.Render(strings.Join(lines, "\n")), gutter, gutter)
}
