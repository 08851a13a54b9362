package editor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cozy/blocknote/document"
	"github.com/cozy/blocknote/session"
	"github.com/cozy/blocknote/test/clock"
	"github.com/cozy/blocknote/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type surface struct {
	frames []session.Frame
	focus  []transform.Selection
}

func (s *surface) Render(f session.Frame)          { s.frames = append(s.frames, f) }
func (s *surface) Focus(caret transform.Selection) { s.focus = append(s.focus, caret) }

func (s *surface) html() string {
	return s.frames[len(s.frames)-1].HTML
}

type surfaces struct {
	byID      map[string]*surface
	unmounted []string
}

func newSurfaces() *surfaces {
	return &surfaces{byID: make(map[string]*surface)}
}

func (h *surfaces) Mount(id string) session.Surface {
	s := &surface{}
	h.byID[id] = s
	return s
}

func (h *surfaces) Unmount(id string) {
	delete(h.byID, id)
	h.unmounted = append(h.unmounted, id)
}

func (h *surfaces) Rekey(oldID, newID string) {
	h.byID[newID] = h.byID[oldID]
	delete(h.byID, oldID)
}

type memoryHost struct {
	mu    sync.Mutex
	pages map[string]document.Page
}

func (h *memoryHost) LoadPage(_ context.Context, id string) (*document.Page, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[id]
	if !ok {
		return nil, document.ErrPageNotFound
	}
	return &p, nil
}

func (h *memoryHost) SavePage(_ context.Context, id string, u document.PageUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pages[id]
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Blocks != nil {
		p.Blocks = append([]document.Block(nil), u.Blocks...)
	}
	h.pages[id] = p
	return nil
}

func (h *memoryHost) blocks(id string) []document.Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pages[id].Blocks
}

type fixture struct {
	host     *memoryHost
	saver    *document.Saver
	model    *document.Model
	clk      *clock.Manual
	surfaces *surfaces
	ed       *Editor
}

func newFixture(t *testing.T, blocks ...document.Block) *fixture {
	t.Helper()
	n := 0
	f := &fixture{
		host:     &memoryHost{pages: map[string]document.Page{"p": {ID: "p", Blocks: blocks}}},
		clk:      clock.New(),
		surfaces: newSurfaces(),
	}
	f.saver = document.NewSaver(f.host, time.Hour)
	f.model = document.NewModel(
		document.WithHost(f.host),
		document.WithSaver(f.saver),
		document.WithIDs(func() string { n++; return fmt.Sprintf("b%d", n) }),
	)
	_, err := f.model.LoadPage(context.Background(), "p")
	require.NoError(t, err)
	f.ed, err = New(f.model, "p", f.surfaces, WithClock(f.clk))
	require.NoError(t, err)
	t.Cleanup(f.ed.Close)
	return f
}

// typeText types into the focused block, one rune at a time.
func (f *fixture) typeText(t *testing.T, text string) {
	t.Helper()
	for _, r := range text {
		id := f.ed.Focused()
		s := f.ed.Session(id)
		require.NotNil(t, s)
		source := s.Content() + string(r)
		require.NoError(t, f.ed.Input(id, session.InputEvent{
			Text:  source,
			Caret: transform.Caret(utf8.RuneCountInString(source)),
		}))
		f.clk.Advance(20 * time.Millisecond)
	}
}

func (f *fixture) key(t *testing.T, key string) session.Outcome {
	t.Helper()
	out, err := f.ed.KeyDown(f.ed.Focused(), session.KeyEvent{Key: key})
	require.NoError(t, err)
	return out
}

func (f *fixture) page(t *testing.T) document.Page {
	t.Helper()
	p, err := f.model.Page("p")
	require.NoError(t, err)
	return p
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{document.PlaceholderID}, f.ed.Blocks())
	require.NoError(t, f.ed.Focus(document.PlaceholderID, transform.Caret(0)))

	// typing materializes the placeholder
	f.typeText(t, "Hello")
	assert.Equal(t, []string{"b1"}, f.ed.Blocks())
	assert.Equal(t, "b1", f.ed.Focused())
	require.Contains(t, f.surfaces.byID, "b1")

	out := f.key(t, session.KeyEnter)
	assert.True(t, out.Handled)
	assert.Equal(t, []string{"b1", "b2"}, f.ed.Blocks())
	assert.Equal(t, "b2", f.ed.Focused())
	assert.Equal(t, []transform.Selection{transform.Caret(0)}, f.surfaces.byID["b2"].focus)

	require.NoError(t, f.saver.Flush(context.Background()))
	assert.Equal(t, []document.Block{
		{ID: "b1", Type: document.Paragraph, Content: "Hello", Order: 0},
		{ID: "b2", Type: document.Paragraph, Content: "", Order: 1},
	}, f.host.blocks("p"))

	// the heading trigger renders right away
	second := f.surfaces.byID["b2"]
	f.typeText(t, "## ")
	assert.Equal(t, "<h2></h2>", second.html())
	f.typeText(t, "World")
	f.clk.Advance(300 * time.Millisecond)
	assert.Equal(t, "<h2>World</h2>", second.html())
	assert.Equal(t, "## World", f.page(t).Blocks[1].Content)

	// a quick run of backspaces settles into one transform
	frames := len(second.frames)
	s := f.ed.Session("b2")
	for i := 0; i < 9; i++ {
		f.key(t, session.KeyBackspace)
		if content := []rune(s.Content()); len(content) > 0 {
			content = content[:len(content)-1]
			require.NoError(t, f.ed.Input("b2", session.InputEvent{
				Text:  string(content),
				Caret: transform.Caret(len(content)),
			}))
		}
		assert.True(t, s.Deleting())
		f.clk.Advance(50 * time.Millisecond)
	}
	assert.Len(t, second.frames, frames)
	assert.Equal(t, []string{"b1", "b2"}, f.ed.Blocks())

	f.clk.Advance(500 * time.Millisecond)
	assert.False(t, s.Deleting())
	assert.Len(t, second.frames, frames+1)
	assert.Equal(t, "<p></p>", second.html())

	require.NoError(t, f.saver.Flush(context.Background()))
	blocks := f.host.blocks("p")
	require.Len(t, blocks, 2)
	assert.Equal(t, "", blocks[1].Content)
	assert.Equal(t, "Hello", blocks[0].Content)
}

func TestBackspaceDeletesEmptyBlock(t *testing.T) {
	f := newFixture(t,
		document.Block{ID: "a", Type: document.Paragraph, Content: "Hello", Order: 0},
		document.Block{ID: "b", Type: document.Paragraph, Order: 1},
	)
	require.NoError(t, f.ed.Focus("b", transform.Caret(0)))

	out := f.key(t, session.KeyBackspace)
	assert.True(t, out.Handled)
	assert.Equal(t, []string{"a"}, f.ed.Blocks())
	assert.Equal(t, "a", f.ed.Focused())
	assert.Equal(t, []transform.Selection{transform.Caret(5)}, f.surfaces.byID["a"].focus)
	assert.Contains(t, f.surfaces.unmounted, "b")
	assert.Len(t, f.page(t).Blocks, 1)
}

func TestDeletingLastBlockShowsPlaceholder(t *testing.T) {
	f := newFixture(t, document.Block{ID: "a", Type: document.Paragraph})
	require.NoError(t, f.ed.Focus("a", transform.Caret(0)))

	f.key(t, session.KeyBackspace)
	assert.Equal(t, []string{document.PlaceholderID}, f.ed.Blocks())
	assert.Equal(t, document.PlaceholderID, f.ed.Focused())

	// the placeholder itself is never deleted
	out := f.key(t, session.KeyBackspace)
	assert.True(t, out.Handled)
	assert.Equal(t, []string{document.PlaceholderID}, f.ed.Blocks())
}

func TestEnterOnEmptyPlaceholder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ed.Focus(document.PlaceholderID, transform.Caret(0)))
	f.key(t, session.KeyEnter)
	assert.Equal(t, []string{"b1"}, f.ed.Blocks())
	assert.Equal(t, "b1", f.ed.Focused())
}

func TestArrowNavigation(t *testing.T) {
	f := newFixture(t,
		document.Block{ID: "a", Type: document.Paragraph, Content: "one", Order: 0},
		document.Block{ID: "b", Type: document.Paragraph, Content: "two", Order: 1},
	)
	require.NoError(t, f.ed.Focus("a", transform.Caret(3)))

	f.key(t, session.KeyArrowDown)
	assert.Equal(t, "b", f.ed.Focused())
	assert.Equal(t, transform.Caret(0), f.ed.Session("b").Caret())

	// already at the last block
	f.ed.Select("b", transform.Caret(3))
	f.key(t, session.KeyArrowDown)
	assert.Equal(t, "b", f.ed.Focused())

	f.ed.Select("b", transform.Caret(0))
	f.key(t, session.KeyArrowUp)
	assert.Equal(t, "a", f.ed.Focused())
	assert.Equal(t, transform.Caret(3), f.ed.Session("a").Caret())
}

func TestTypeMenu(t *testing.T) {
	f := newFixture(t, document.Block{ID: "a", Type: document.Paragraph})
	require.NoError(t, f.ed.Focus("a", transform.Caret(0)))

	out := f.key(t, session.KeySlash)
	assert.True(t, out.Handled)
	menu := f.ed.Menu()
	require.NotNil(t, menu)
	assert.Equal(t, "a", menu.BlockID)
	assert.Equal(t, document.BlockTypes, menu.Items)

	f.ed.MoveMenu(-1)
	assert.Equal(t, len(document.BlockTypes)-1, f.ed.Menu().Selected)
	f.ed.MoveMenu(2)
	assert.Equal(t, 1, f.ed.Menu().Selected)

	require.NoError(t, f.ed.SelectMenuItem())
	assert.Nil(t, f.ed.Menu())
	assert.Equal(t, document.Heading2, f.page(t).Blocks[0].Type)
	assert.Equal(t, document.Heading2, f.ed.Session("a").Type())
	assert.Equal(t, "a", f.ed.Focused())

	f.key(t, session.KeySlash)
	require.NoError(t, f.ed.Blur("a"))
	assert.Nil(t, f.ed.Menu())
}

func TestPlaceholderKeepsMenuType(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ed.Focus(document.PlaceholderID, transform.Caret(0)))
	f.key(t, session.KeySlash)
	require.NoError(t, f.ed.SelectType(document.Bullet))

	f.typeText(t, "x")
	p := f.page(t)
	require.Len(t, p.Blocks, 1)
	assert.Equal(t, document.Bullet, p.Blocks[0].Type)
	assert.Equal(t, "x", p.Blocks[0].Content)
}

func TestOrdinals(t *testing.T) {
	assert.Equal(t, []int{1, 2, 0, 1}, Ordinals([]document.Block{
		{Type: document.Number}, {Type: document.Number}, {Type: document.Paragraph}, {Type: document.Number},
	}))

	f := newFixture(t,
		document.Block{ID: "a", Type: document.Number, Content: "one", Order: 0},
		document.Block{ID: "b", Type: document.Number, Content: "two", Order: 1},
		document.Block{ID: "c", Type: document.Paragraph, Content: "three", Order: 2},
	)
	assert.Equal(t, `<ol start="2"><li><p>two</p></li></ol>`, f.surfaces.byID["b"].html())

	require.NoError(t, f.ed.Focus("c", transform.Caret(0)))
	f.key(t, session.KeySlash)
	require.NoError(t, f.ed.SelectType(document.Number))
	assert.Equal(t, `<ol start="3"><li><p>three</p></li></ol>`, f.surfaces.byID["c"].html())
}

func TestTitle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ed.SetTitle("Groceries"))
	assert.Equal(t, "Groceries", f.ed.Title())

	require.NoError(t, f.ed.TitleEnter())
	assert.Equal(t, []string{"b1"}, f.ed.Blocks())
	assert.Equal(t, "b1", f.ed.Focused())
	assert.Contains(t, f.surfaces.unmounted, document.PlaceholderID)

	require.NoError(t, f.saver.Flush(context.Background()))
	f.host.mu.Lock()
	assert.Equal(t, "Groceries", f.host.pages["p"].Title)
	f.host.mu.Unlock()
}

func TestUnknownBlock(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ed.Focus("nope", transform.Caret(0)), document.ErrBlockNotFound)
	_, err := f.ed.KeyDown("nope", session.KeyEvent{Key: session.KeyEnter})
	assert.ErrorIs(t, err, document.ErrBlockNotFound)
	assert.ErrorIs(t, f.ed.Input("nope", session.InputEvent{}), document.ErrBlockNotFound)
}

func TestCloseUnmountsEverything(t *testing.T) {
	f := newFixture(t, document.Block{ID: "a", Type: document.Paragraph})
	require.NoError(t, f.ed.Input("a", session.InputEvent{Text: "x", Caret: transform.Caret(1)}))
	f.ed.Close()
	assert.Empty(t, f.ed.Blocks())
	assert.Empty(t, f.surfaces.byID)
	assert.Equal(t, 0, f.clk.Pending())
}
