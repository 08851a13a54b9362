package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Model holds the pages being edited. Pages are immutable snapshots: every
// mutation builds a new page and swaps it in, so a snapshot obtained from
// Page stays consistent while edits continue. Mutations never wait for the
// host; the resulting snapshot is handed to the Saver.
type Model struct {
	host  PageHost
	saver *Saver
	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	pages map[string]*Page
}

type Option func(*Model)

// WithHost sets the host pages are loaded from.
func WithHost(host PageHost) Option {
	return func(m *Model) { m.host = host }
}

// WithSaver sets the saver receiving page changes.
func WithSaver(s *Saver) Option {
	return func(m *Model) { m.saver = s }
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Model) { m.log = log }
}

// WithNow sets the time source for UpdatedAt.
func WithNow(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithIDs sets the generator of block ids.
func WithIDs(newID func() string) Option {
	return func(m *Model) { m.newID = newID }
}

func NewModel(opts ...Option) *Model {
	m := &Model{
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: NewBlockID,
		pages: make(map[string]*Page),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadPage fetches a page from the host and makes it editable.
func (m *Model) LoadPage(ctx context.Context, id string) (Page, error) {
	if m.host == nil {
		return Page{}, errors.New("load page: no page host")
	}
	p, err := m.host.LoadPage(ctx, id)
	if err != nil {
		return Page{}, fmt.Errorf("load page %s: %w", id, err)
	}
	return m.AddPage(*p), nil
}

// AddPage makes p editable, replacing any page with the same id. Blocks are
// sorted by Order and renumbered.
func (m *Model) AddPage(p Page) Page {
	page := p.clone()
	sort.SliceStable(page.Blocks, func(i, j int) bool {
		return page.Blocks[i].Order < page.Blocks[j].Order
	})
	renumber(page.Blocks)

	m.mu.Lock()
	m.pages[page.ID] = page
	m.mu.Unlock()
	return *page
}

// Page returns the current snapshot of a page. The Blocks slice is shared
// and must not be modified.
func (m *Model) Page(id string) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return Page{}, fmt.Errorf("page %s: %w", id, ErrPageNotFound)
	}
	return *p, nil
}

// View returns the blocks to display: the page blocks, or the placeholder
// when the page has none.
func (m *Model) View(id string) ([]Block, error) {
	p, err := m.Page(id)
	if err != nil {
		return nil, err
	}
	if len(p.Blocks) == 0 {
		return []Block{Placeholder()}, nil
	}
	return p.Blocks, nil
}

// InsertBlock appends b to the page. An empty id is replaced by a fresh one.
func (m *Model) InsertBlock(pageID string, b Block) (Block, error) {
	return m.insert(pageID, b, func(p *Page) (int, error) {
		return len(p.Blocks), nil
	})
}

// InsertBlockAfter inserts b right after the block afterID, or first when
// afterID is empty.
func (m *Model) InsertBlockAfter(pageID, afterID string, b Block) (Block, error) {
	return m.insert(pageID, b, func(p *Page) (int, error) {
		if afterID == "" {
			return 0, nil
		}
		i := p.Index(afterID)
		if i < 0 {
			return 0, fmt.Errorf("insert after %s: %w", afterID, ErrBlockNotFound)
		}
		return i + 1, nil
	})
}

func (m *Model) insert(pageID string, b Block, at func(*Page) (int, error)) (Block, error) {
	if b.IsPlaceholder() {
		return Block{}, fmt.Errorf("insert block: %w", ErrPlaceholder)
	}
	if b.Type == "" {
		b.Type = Paragraph
	}
	if !b.Type.Valid() {
		return Block{}, fmt.Errorf("insert block %q: %w", b.Type, ErrInvalidType)
	}
	if b.ID == "" {
		b.ID = m.newID()
	}

	var inserted Block
	err := m.mutate(pageID, func(p *Page) error {
		if p.Index(b.ID) >= 0 {
			return fmt.Errorf("insert block %s: %w", b.ID, ErrDuplicateBlock)
		}
		i, err := at(p)
		if err != nil {
			return err
		}
		p.Blocks = append(p.Blocks, Block{})
		copy(p.Blocks[i+1:], p.Blocks[i:])
		p.Blocks[i] = b
		renumber(p.Blocks)
		inserted = p.Blocks[i]
		return nil
	})
	return inserted, err
}

// UpdateBlock applies a partial update to a block.
func (m *Model) UpdateBlock(pageID, blockID string, patch Patch) (Block, error) {
	if blockID == PlaceholderID {
		return Block{}, fmt.Errorf("update block: %w", ErrPlaceholder)
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return Block{}, fmt.Errorf("update block %q: %w", *patch.Type, ErrInvalidType)
	}

	var updated Block
	err := m.mutate(pageID, func(p *Page) error {
		i := p.Index(blockID)
		if i < 0 {
			return fmt.Errorf("update block %s: %w", blockID, ErrBlockNotFound)
		}
		if patch.Type != nil {
			p.Blocks[i].Type = *patch.Type
		}
		if patch.Content != nil {
			p.Blocks[i].Content = *patch.Content
		}
		updated = p.Blocks[i]
		return nil
	})
	return updated, err
}

// SetContent replaces the content of a block.
func (m *Model) SetContent(pageID, blockID, content string) (Block, error) {
	return m.UpdateBlock(pageID, blockID, Patch{Content: &content})
}

// RetypeBlock changes the type of a block, keeping its content.
func (m *Model) RetypeBlock(pageID, blockID string, t BlockType) (Block, error) {
	return m.UpdateBlock(pageID, blockID, Patch{Type: &t})
}

// DeleteBlock removes a block. The placeholder can not be deleted.
func (m *Model) DeleteBlock(pageID, blockID string) error {
	if blockID == PlaceholderID {
		return fmt.Errorf("delete block: %w", ErrPlaceholder)
	}
	return m.mutate(pageID, func(p *Page) error {
		i := p.Index(blockID)
		if i < 0 {
			return fmt.Errorf("delete block %s: %w", blockID, ErrBlockNotFound)
		}
		p.Blocks = append(p.Blocks[:i], p.Blocks[i+1:]...)
		return nil
	})
}

// UpdateTitle sets the title of a page.
func (m *Model) UpdateTitle(pageID, title string) error {
	return m.mutateWith(pageID, func(p *Page) error {
		p.Title = title
		return nil
	}, func(p *Page) PageUpdate {
		return PageUpdate{Title: &p.Title}
	})
}

// Materialize turns the placeholder of an empty page into a real block with
// a fresh id.
func (m *Model) Materialize(pageID string, t BlockType, content string) (Block, error) {
	if t == "" {
		t = Paragraph
	}
	if !t.Valid() {
		return Block{}, fmt.Errorf("materialize %q: %w", t, ErrInvalidType)
	}
	b := Block{ID: m.newID(), Type: t, Content: content}
	err := m.mutate(pageID, func(p *Page) error {
		if len(p.Blocks) > 0 {
			return fmt.Errorf("materialize: page %s has blocks: %w", pageID, ErrPlaceholder)
		}
		p.Blocks = []Block{b}
		return nil
	})
	if err != nil {
		return Block{}, err
	}
	m.log.Debug().Str("page", pageID).Str("block", b.ID).Msg("placeholder materialized")
	return b, nil
}

func (m *Model) mutate(pageID string, fn func(*Page) error) error {
	return m.mutateWith(pageID, fn, func(p *Page) PageUpdate {
		return PageUpdate{Blocks: p.Blocks}
	})
}

func (m *Model) mutateWith(pageID string, fn func(*Page) error, update func(*Page) PageUpdate) error {
	m.mu.Lock()
	cur, ok := m.pages[pageID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	next := cur.clone()
	if err := fn(next); err != nil {
		m.mu.Unlock()
		return err
	}
	renumber(next.Blocks)
	next.UpdatedAt = m.now()
	m.pages[pageID] = next
	m.mu.Unlock()

	if m.saver != nil {
		m.saver.Enqueue(pageID, update(next))
	}
	return nil
}
