package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cozy/blocknote/config"
	"github.com/cozy/blocknote/document"
	"github.com/cozy/blocknote/test/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	enter     = tea.KeyMsg{Type: tea.KeyEnter}
	backspace = tea.KeyMsg{Type: tea.KeyBackspace}
	left      = tea.KeyMsg{Type: tea.KeyLeft}
	tab       = tea.KeyMsg{Type: tea.KeyTab}
	ctrlS     = tea.KeyMsg{Type: tea.KeyCtrlS}
	ctrlC     = tea.KeyMsg{Type: tea.KeyCtrlC}
)

type fixture struct {
	m   Model
	w   *workspace
	clk *clock.Manual
}

func newFixture(t *testing.T, dbPath string) *fixture {
	cfg := config.Default()
	cfg.DBPath = dbPath
	cfg.SaveDelay = time.Hour
	clk := clock.New()

	w, err := open(context.Background(), cfg, zerolog.Nop(), clk, func(document.Notice) {})
	require.NoError(t, err)
	t.Cleanup(func() { w.close() })

	return &fixture{
		m:   New(w.ed, w.saver, w.views, WithStyles(PlainStyles())),
		w:   w,
		clk: clk,
	}
}

func (f *fixture) send(msgs ...tea.Msg) {
	for _, msg := range msgs {
		next, _ := f.m.Update(msg)
		f.m = next.(Model)
	}
}

func (f *fixture) typeText(text string) {
	for _, r := range text {
		if r == ' ' {
			f.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (f *fixture) focused(t *testing.T) string {
	id := f.m.ed.Focused()
	require.NotEmpty(t, id)
	return id
}

func testDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "notes.db")
}

func TestHeadingWhileTyping(t *testing.T) {
	f := newFixture(t, testDB(t))
	require.Equal(t, []string{document.PlaceholderID}, f.m.ed.Blocks())
	assert.Contains(t, f.m.View(), focusMark+caretGlyph+document.PlaceholderText(document.Paragraph))

	f.typeText("# Title")
	id := f.focused(t)
	assert.NotEqual(t, document.PlaceholderID, id)
	assert.Equal(t, "# Title", f.m.ed.Session(id).Content())
	assert.Contains(t, f.m.View(), "# Title"+caretGlyph)

	f.clk.Advance(300 * time.Millisecond)
	view := f.m.View()
	assert.Contains(t, view, focusMark+"Title"+caretGlyph)
	assert.NotContains(t, view, "# Title")
}

func TestTypeMenu(t *testing.T) {
	f := newFixture(t, testDB(t))

	f.typeText("/")
	menu := f.m.ed.Menu()
	require.NotNil(t, menu)
	view := f.m.View()
	assert.Contains(t, view, "1 Heading 1")
	assert.Contains(t, view, "6 Numbered list")
	assert.Equal(t, "", f.m.ed.Session(document.PlaceholderID).Content())

	f.typeText("2")
	assert.Nil(t, f.m.ed.Menu())
	f.typeText("Intro")
	f.clk.Advance(300 * time.Millisecond)

	page, err := f.w.docs.Page(f.w.pageID)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, document.Heading2, page.Blocks[0].Type)
	assert.Equal(t, "Intro", page.Blocks[0].Content)
	assert.Contains(t, f.m.View(), "Intro"+caretGlyph)
}

func TestMenuNavigation(t *testing.T) {
	f := newFixture(t, testDB(t))
	f.typeText("/")
	f.send(tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyUp})
	require.NotNil(t, f.m.ed.Menu())
	assert.Equal(t, 1, f.m.ed.Menu().Selected)

	f.send(enter)
	assert.Nil(t, f.m.ed.Menu())
	assert.Equal(t, document.Heading2, f.m.ed.Session(document.PlaceholderID).Type())

	f.typeText("/")
	f.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, f.m.ed.Menu())
	assert.Equal(t, document.PlaceholderID, f.m.ed.Focused())
}

func TestEnterAndBackspace(t *testing.T) {
	f := newFixture(t, testDB(t))
	f.typeText("a")
	first := f.focused(t)

	f.send(enter)
	blocks := f.m.ed.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, blocks[1], f.focused(t))

	f.send(backspace)
	assert.Equal(t, []string{first}, f.m.ed.Blocks())
	assert.Equal(t, first, f.focused(t))
	assert.Equal(t, 1, f.m.ed.Session(first).Caret().Start)
}

func TestEditsByGrapheme(t *testing.T) {
	f := newFixture(t, testDB(t))
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ae\u0301")})
	id := f.focused(t)
	s := f.m.ed.Session(id)
	assert.Equal(t, 3, s.Caret().Start)

	f.send(left)
	assert.Equal(t, 1, s.Caret().Start)

	f.send(tea.KeyMsg{Type: tea.KeyRight}, backspace)
	assert.Equal(t, "a", s.Content())
	assert.Equal(t, 1, s.Caret().Start)

	f.clk.Advance(500 * time.Millisecond)
	assert.Contains(t, f.m.View(), focusMark+"a"+caretGlyph)
}

func TestSoftBreakAndLines(t *testing.T) {
	f := newFixture(t, testDB(t))
	f.typeText("one")
	f.send(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	f.typeText("two")
	s := f.m.ed.Session(f.focused(t))
	assert.Equal(t, "one\ntwo", s.Content())
	require.Len(t, f.m.ed.Blocks(), 1)

	f.send(tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 4, s.Caret().Start)
	f.send(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, s.Caret().Start)
	f.send(tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, 3, s.Caret().Start)
	f.send(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 7, s.Caret().Start)

	f.clk.Advance(300 * time.Millisecond)
	assert.Contains(t, f.m.View(), "one\n  two"+caretGlyph)
}

func TestTitle(t *testing.T) {
	f := newFixture(t, testDB(t))
	f.send(tab)
	assert.Empty(t, f.m.ed.Focused())
	f.typeText("My page")
	f.send(backspace)
	f.typeText("e!")
	assert.Contains(t, f.m.View(), "My page!"+caretGlyph)

	f.send(enter)
	assert.Equal(t, "My page!", f.m.ed.Title())
	blocks := f.m.ed.Blocks()
	require.Len(t, blocks, 1)
	assert.NotEqual(t, document.PlaceholderID, blocks[0])
	assert.Equal(t, blocks[0], f.focused(t))
}

func TestSaveAndReopen(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	f.typeText("hello")

	_, cmd := f.m.Update(ctrlS)
	require.NotNil(t, cmd)
	f.send(cmd())
	assert.Contains(t, f.m.View(), "saved")

	page, err := f.w.store.LoadPage(context.Background(), f.w.pageID)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "hello", page.Blocks[0].Content)

	again := newFixture(t, db)
	assert.Equal(t, f.w.pageID, again.w.pageID)
	assert.Equal(t, "hello", again.m.ed.Session(again.m.ed.Blocks()[0]).Content())
}

func TestMessages(t *testing.T) {
	f := newFixture(t, testDB(t))

	ran := false
	f.send(runMsg(func() { ran = true }))
	assert.True(t, ran)

	f.send(noticeMsg(document.Notice{PageID: "p1", Err: errors.New("disk full")}))
	assert.Contains(t, f.m.View(), "could not save page p1: disk full")

	_, cmd := f.m.Update(ctrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
