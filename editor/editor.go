// Package editor edits one page: it mounts a session per block, applies the
// intents raised by key presses and keeps the document model up to date.
package editor

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cozy/blocknote/document"
	"github.com/cozy/blocknote/render"
	"github.com/cozy/blocknote/schedule"
	"github.com/cozy/blocknote/session"
	"github.com/cozy/blocknote/transform"
	"github.com/rs/zerolog"
)

// SurfaceHost creates the surfaces displaying blocks, looked up by block
// id.
type SurfaceHost interface {
	Mount(id string) session.Surface
	Unmount(id string)
	// Rekey moves the surface of oldID to newID.
	Rekey(oldID, newID string)
}

// Menu is the open type menu of a block.
type Menu struct {
	BlockID  string
	Items    []document.BlockType
	Selected int
}

// Editor is driven from a single event loop and is not safe for concurrent
// use.
type Editor struct {
	model  *document.Model
	pageID string
	host   SurfaceHost
	clock  schedule.Clock
	tr     *render.Transformer
	log    zerolog.Logger

	transformDelay time.Duration
	settleDelay    time.Duration

	sessions map[string]*session.Session
	order    []string
	focused  string
	menu     *Menu
}

type Option func(*Editor)

func WithClock(c schedule.Clock) Option {
	return func(e *Editor) { e.clock = c }
}

func WithTransformer(tr *render.Transformer) Option {
	return func(e *Editor) { e.tr = tr }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Editor) { e.log = log }
}

// WithDelays sets the transform debounce and deletion settle windows.
func WithDelays(transform, settle time.Duration) Option {
	return func(e *Editor) {
		e.transformDelay = transform
		e.settleDelay = settle
	}
}

// New opens the page pageID of model, which must already be loaded.
func New(model *document.Model, pageID string, host SurfaceHost, opts ...Option) (*Editor, error) {
	e := &Editor{
		model:    model,
		pageID:   pageID,
		host:     host,
		log:      zerolog.Nop(),
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = schedule.NewClock(nil)
	}
	if e.tr == nil {
		e.tr = render.New(render.WithLogger(e.log))
	}
	if err := e.sync(); err != nil {
		return nil, err
	}
	return e, nil
}

// PageID returns the id of the edited page.
func (e *Editor) PageID() string { return e.pageID }

// Blocks returns the ids of the displayed blocks in order.
func (e *Editor) Blocks() []string {
	return append([]string(nil), e.order...)
}

// Session returns the session of a block, or nil.
func (e *Editor) Session(id string) *session.Session {
	return e.sessions[id]
}

// Focused returns the id of the focused block, or "".
func (e *Editor) Focused() string { return e.focused }

// Menu returns the open type menu, or nil.
func (e *Editor) Menu() *Menu { return e.menu }

// sync mounts and unmounts sessions to match the page.
func (e *Editor) sync() error {
	view, err := e.model.View(e.pageID)
	if err != nil {
		return err
	}
	ordinals := Ordinals(view)

	keep := make(map[string]bool, len(view))
	for _, b := range view {
		keep[b.ID] = true
	}
	for id, s := range e.sessions {
		if !keep[id] {
			e.unmount(id, s)
		}
	}

	e.order = e.order[:0]
	for i, b := range view {
		e.order = append(e.order, b.ID)
		if s, ok := e.sessions[b.ID]; ok {
			s.SetOrdinal(ordinals[i])
			continue
		}
		e.mount(b, ordinals[i])
	}
	return nil
}

func (e *Editor) mount(b document.Block, ordinal int) {
	e.sessions[b.ID] = session.New(session.Config{
		ID:             b.ID,
		Type:           b.Type,
		Content:        b.Content,
		Ordinal:        ordinal,
		Clock:          e.clock,
		Transformer:    e.tr,
		Surface:        e.host.Mount(b.ID),
		OnChange:       e.write,
		TransformDelay: e.transformDelay,
		SettleDelay:    e.settleDelay,
		Logger:         &e.log,
	})
}

func (e *Editor) unmount(id string, s *session.Session) {
	s.Close()
	delete(e.sessions, id)
	e.host.Unmount(id)
	if e.focused == id {
		e.focused = ""
	}
	if e.menu != nil && e.menu.BlockID == id {
		e.menu = nil
	}
}

// Ordinals returns the number shown by each block: numbered blocks count
// from 1 within each run of consecutive numbered blocks, other blocks get 0.
func Ordinals(blocks []document.Block) []int {
	ordinals := make([]int, len(blocks))
	n := 0
	for i, b := range blocks {
		if b.Type != document.Number {
			n = 0
			continue
		}
		n++
		ordinals[i] = n
	}
	return ordinals
}

// write stores the content of a block. The placeholder becomes a real block
// on its first edit.
func (e *Editor) write(id, content string) {
	if id != document.PlaceholderID {
		if _, err := e.model.SetContent(e.pageID, id, content); err != nil {
			e.log.Error().Err(err).Str("block", id).Msg("update block")
		}
		return
	}

	s := e.sessions[id]
	b, err := e.model.Materialize(e.pageID, s.Type(), content)
	if err != nil {
		e.log.Error().Err(err).Msg("materialize placeholder")
		return
	}
	s.Rekey(b.ID)
	delete(e.sessions, id)
	e.sessions[b.ID] = s
	e.host.Rekey(id, b.ID)
	for i, o := range e.order {
		if o == id {
			e.order[i] = b.ID
		}
	}
	if e.focused == id {
		e.focused = b.ID
	}
	if e.menu != nil && e.menu.BlockID == id {
		e.menu.BlockID = b.ID
	}
}

// Focus moves the focus to a block. The previously focused block is
// blurred.
func (e *Editor) Focus(id string, caret transform.Selection) error {
	s, ok := e.sessions[id]
	if !ok {
		return fmt.Errorf("focus %s: %w", id, document.ErrBlockNotFound)
	}
	if e.focused != "" && e.focused != id {
		if prev, ok := e.sessions[e.focused]; ok {
			prev.Blur()
		}
	}
	e.focused = id
	s.Focus(caret)
	return nil
}

func (e *Editor) focusEnd(id string) error {
	s, ok := e.sessions[id]
	if !ok {
		return fmt.Errorf("focus %s: %w", id, document.ErrBlockNotFound)
	}
	return e.Focus(id, transform.Caret(utf8.RuneCountInString(s.Content())))
}

func (e *Editor) session(id string) (*session.Session, error) {
	s, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("block %s: %w", id, document.ErrBlockNotFound)
	}
	return s, nil
}

// Input forwards a user edit to a block.
func (e *Editor) Input(id string, ev session.InputEvent) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.Input(ev)
	return nil
}

// Select moves the caret of a block.
func (e *Editor) Select(id string, caret transform.Selection) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.Select(caret)
	return nil
}

func (e *Editor) CompositionStart(id string) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.CompositionStart()
	return nil
}

func (e *Editor) CompositionUpdate(id, text string) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.CompositionUpdate(text)
	return nil
}

func (e *Editor) CompositionEnd(id, text string, caret transform.Selection) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.CompositionEnd(text, caret)
	return nil
}

// Blur removes the focus from a block and closes its menu.
func (e *Editor) Blur(id string) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.Blur()
	if e.focused == id {
		e.focused = ""
	}
	if e.menu != nil && e.menu.BlockID == id {
		e.menu = nil
	}
	return nil
}

// KeyDown forwards a key press to a block and carries out the intents it
// raises. The returned outcome tells whether the key was consumed.
func (e *Editor) KeyDown(id string, ev session.KeyEvent) (session.Outcome, error) {
	s, err := e.session(id)
	if err != nil {
		return session.Outcome{}, err
	}
	out := s.KeyDown(ev)
	var errs []error
	for _, in := range out.Intents {
		if err := e.apply(in); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

func (e *Editor) apply(in session.Intent) error {
	switch in.Kind {
	case session.IntentSplit:
		return e.split(in.BlockID, in.Content)
	case session.IntentDeleteBlock:
		return e.deleteBlock(in.BlockID)
	case session.IntentFocusPrev:
		if i := e.index(in.BlockID); i > 0 {
			return e.focusEnd(e.order[i-1])
		}
	case session.IntentFocusNext:
		if i := e.index(in.BlockID); i >= 0 && i+1 < len(e.order) {
			return e.Focus(e.order[i+1], transform.Caret(0))
		}
	case session.IntentOpenMenu:
		e.menu = &Menu{BlockID: in.BlockID, Items: document.BlockTypes}
	}
	return nil
}

func (e *Editor) index(id string) int {
	for i, o := range e.order {
		if o == id {
			return i
		}
	}
	return -1
}

// split inserts an empty paragraph after the block and focuses it.
func (e *Editor) split(id, content string) error {
	after := id
	if id == document.PlaceholderID {
		after = ""
		if content != "" {
			// Normally done by the first edit already.
			e.write(id, content)
			after = e.order[0]
		}
	}
	b, err := e.model.InsertBlockAfter(e.pageID, after, document.Block{Type: document.Paragraph})
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	if err := e.sync(); err != nil {
		return err
	}
	return e.Focus(b.ID, transform.Caret(0))
}

// deleteBlock removes the block and focuses the end of the previous one.
func (e *Editor) deleteBlock(id string) error {
	i := e.index(id)
	if err := e.model.DeleteBlock(e.pageID, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := e.sync(); err != nil {
		return err
	}
	switch {
	case i > 0:
		return e.focusEnd(e.order[i-1])
	case len(e.order) > 0:
		return e.Focus(e.order[0], transform.Caret(0))
	}
	return nil
}

// MoveMenu moves the selection of the open menu by delta, wrapping around.
func (e *Editor) MoveMenu(delta int) {
	if e.menu == nil || len(e.menu.Items) == 0 {
		return
	}
	n := len(e.menu.Items)
	e.menu.Selected = ((e.menu.Selected+delta)%n + n) % n
}

// SelectType retypes the block of the open menu and gives it the focus.
func (e *Editor) SelectType(t document.BlockType) error {
	if e.menu == nil {
		return nil
	}
	id := e.menu.BlockID
	e.menu = nil
	if !t.Valid() {
		return fmt.Errorf("select type %q: %w", t, document.ErrInvalidType)
	}
	s, err := e.session(id)
	if err != nil {
		return err
	}
	if id != document.PlaceholderID {
		if _, err := e.model.RetypeBlock(e.pageID, id, t); err != nil {
			return fmt.Errorf("select type: %w", err)
		}
	}
	s.Retype(t)
	if err := e.sync(); err != nil {
		return err
	}
	return e.Focus(id, s.Caret())
}

// SelectMenuItem retypes with the selected menu entry.
func (e *Editor) SelectMenuItem() error {
	if e.menu == nil {
		return nil
	}
	return e.SelectType(e.menu.Items[e.menu.Selected])
}

func (e *Editor) CloseMenu() { e.menu = nil }

// Title returns the title of the page.
func (e *Editor) Title() string {
	p, err := e.model.Page(e.pageID)
	if err != nil {
		return ""
	}
	return p.Title
}

func (e *Editor) SetTitle(title string) error {
	return e.model.UpdateTitle(e.pageID, title)
}

// TitleEnter appends an empty paragraph to the page and focuses it.
func (e *Editor) TitleEnter() error {
	b, err := e.model.InsertBlock(e.pageID, document.Block{Type: document.Paragraph})
	if err != nil {
		return fmt.Errorf("title enter: %w", err)
	}
	if err := e.sync(); err != nil {
		return err
	}
	return e.Focus(b.ID, transform.Caret(0))
}

// Close unmounts every block.
func (e *Editor) Close() {
	for id, s := range e.sessions {
		e.unmount(id, s)
	}
	e.order = nil
}
