// Package session runs the editing state machine of a single block: it keeps
// the source of the block, decides when to render it and turns key presses
// into page level intents.
package session

import (
	"time"
	"unicode/utf8"

	"github.com/cozy/blocknote/document"
	"github.com/cozy/blocknote/render"
	"github.com/cozy/blocknote/schedule"
	"github.com/cozy/blocknote/transform"
	"github.com/rs/zerolog"
)

// Config describes the block a session edits.
type Config struct {
	ID      string
	Type    document.BlockType
	Content string
	// Ordinal of numbered blocks, starting at 1.
	Ordinal int

	Clock       schedule.Clock
	Transformer *render.Transformer
	Surface     Surface
	// OnChange is called with the new content after every user edit.
	OnChange func(id, content string)

	TransformDelay time.Duration
	SettleDelay    time.Duration
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Session is the editing state of a mounted block. It is driven from a
// single event loop and is not safe for concurrent use.
type Session struct {
	id      string
	typ     document.BlockType
	ordinal int
	source  string
	caret   transform.Selection
	state   State
	focused bool
	closed  bool

	gate     *schedule.Gate
	tr       *render.Transformer
	surface  Surface
	onChange func(id, content string)
	base     zerolog.Logger
	log      zerolog.Logger

	lastHTML string
	rendered bool
	stats    Stats
}

// New mounts a block and renders its content.
func New(cfg Config) *Session {
	if cfg.Transformer == nil {
		cfg.Transformer = render.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = schedule.NewClock(nil)
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func(string, string) {}
	}
	if cfg.Type == "" {
		cfg.Type = document.Paragraph
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	s := &Session{
		id:       cfg.ID,
		typ:      cfg.Type,
		ordinal:  cfg.Ordinal,
		source:   cfg.Content,
		tr:       cfg.Transformer,
		surface:  cfg.Surface,
		onChange: cfg.OnChange,
		base:     log,
		log:      log.With().Str("block", cfg.ID).Logger(),
	}
	s.gate = schedule.NewGate(cfg.Clock, schedule.Options{
		TransformDelay: cfg.TransformDelay,
		SettleDelay:    cfg.SettleDelay,
		Logger:         &s.log,
	})
	s.transform(false)
	return s
}

func (s *Session) ID() string                        { return s.id }
func (s *Session) Type() document.BlockType          { return s.typ }
func (s *Session) Content() string                   { return s.source }
func (s *Session) Caret() transform.Selection        { return s.caret }
func (s *Session) State() State                      { return s.state }
func (s *Session) Stats() Stats                      { return s.stats }
func (s *Session) Focused() bool                     { return s.focused }
func (s *Session) Placeholder() bool                 { return s.id == document.PlaceholderID }
func (s *Session) Composition() schedule.Composition { return s.gate.Composition() }

// Deleting reports whether a deletion run is in progress.
func (s *Session) Deleting() bool { return s.gate.Deleting() }

// Pending reports whether a debounced transform is waiting.
func (s *Session) Pending() bool { return s.gate.Pending() }

func (s *Session) length() int {
	return utf8.RuneCountInString(s.source)
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", state).Msg("state change")
	s.state = state
}

// Input handles a user edit. Edits raised by the engine's own rendering and
// the echo of a committed composition are dropped.
func (s *Session) Input(ev InputEvent) {
	if s.closed {
		return
	}
	if !s.gate.Admit(ev.Text) {
		s.stats.Dropped++
		return
	}
	if s.state == Composing {
		s.update(ev)
		return
	}
	s.edit(ev)
}

// edit records the new source and schedules its rendering.
func (s *Session) edit(ev InputEvent) {
	prev := s.source
	s.update(ev)
	if s.state == Idle {
		s.setState(Editing)
	}
	d := s.gate.Decide(prev, s.source, s.flat())
	s.gate.Apply(d, func() { s.transform(true) })
}

func (s *Session) update(ev InputEvent) {
	changed := ev.Text != s.source
	s.source = ev.Text
	s.caret = ev.Caret.Normalize().Clamp(s.length())
	if changed {
		s.onChange(s.id, s.source)
	}
}

// Select moves the caret without editing.
func (s *Session) Select(caret transform.Selection) {
	s.caret = caret.Normalize().Clamp(s.length())
}

// KeyDown handles a key press before its default action.
func (s *Session) KeyDown(ev KeyEvent) Outcome {
	if s.closed || s.state == Composing {
		return Outcome{}
	}
	switch ev.Key {
	case KeyEnter:
		if ev.Shift {
			return Outcome{}
		}
		return s.intent(IntentSplit)

	case KeyBackspace, KeyDelete:
		if s.source != "" {
			s.setState(Deleting)
			s.gate.NoteDelete(s.settle)
			return Outcome{}
		}
		if s.gate.Deleting() {
			// Still inside a deletion run: the block stays, the run goes on.
			s.gate.NoteDelete(s.settle)
			return Outcome{Handled: true}
		}
		if ev.Key != KeyBackspace || !s.caret.Collapsed() || s.caret.Start != 0 {
			return Outcome{}
		}
		if s.Placeholder() {
			return Outcome{Handled: true}
		}
		return s.intent(IntentDeleteBlock)

	case KeyArrowUp:
		if s.caret.Collapsed() && s.caret.Start == 0 {
			return s.intent(IntentFocusPrev)
		}

	case KeyArrowDown:
		if s.caret.Collapsed() && s.caret.Start == s.length() {
			return s.intent(IntentFocusNext)
		}

	case KeySlash:
		if s.source == "" {
			return s.intent(IntentOpenMenu)
		}
	}
	return Outcome{}
}

func (s *Session) intent(kind IntentKind) Outcome {
	s.log.Debug().Stringer("intent", kind).Msg("key intent")
	return Outcome{
		Handled: true,
		Intents: []Intent{{Kind: kind, BlockID: s.id, Content: s.source}},
	}
}

// settle ends a deletion run with one rendering. The caret left by the
// deletion is kept.
func (s *Session) settle() {
	if s.closed {
		return
	}
	s.setState(Idle)
	s.transform(false)
}

// CompositionStart suspends rendering until the composition ends.
func (s *Session) CompositionStart() {
	if s.closed {
		return
	}
	s.setState(Composing)
	s.gate.StartComposition()
}

// CompositionUpdate records the text being composed.
func (s *Session) CompositionUpdate(text string) {
	if s.closed || s.state != Composing {
		return
	}
	s.update(InputEvent{Text: text, Caret: s.caret})
}

// CompositionEnd processes the committed text as one input event.
func (s *Session) CompositionEnd(text string, caret transform.Selection) {
	if s.closed {
		return
	}
	s.gate.EndComposition(text)
	s.setState(Editing)
	s.edit(InputEvent{Text: text, Caret: caret})
}

// Focus gives the block the focus with the caret at the given position.
func (s *Session) Focus(caret transform.Selection) {
	if s.closed {
		return
	}
	s.focused = true
	s.Select(caret)
	if s.surface != nil {
		s.surface.Focus(s.caret)
	}
}

// Blur ends any editing and renders the current source right away.
func (s *Session) Blur() {
	if s.closed {
		return
	}
	s.focused = false
	s.gate.Stop()
	s.setState(Idle)
	s.transform(false)
}

// Retype changes the block type and renders it again.
func (s *Session) Retype(t document.BlockType) {
	if s.closed || t == s.typ {
		return
	}
	s.typ = t
	s.gate.CancelTransform()
	s.transform(true)
}

// SetOrdinal changes the number shown by a numbered block.
func (s *Session) SetOrdinal(n int) {
	if s.closed || n == s.ordinal {
		return
	}
	s.ordinal = n
	if s.typ == document.Number {
		s.transform(true)
	}
}

// Rekey changes the id of the block, when the placeholder becomes a real
// block.
func (s *Session) Rekey(id string) {
	s.log.Debug().Str("id", id).Msg("rekey")
	s.id = id
	s.log = s.base.With().Str("block", id).Logger()
}

// Close unmounts the block. Pending timers are cancelled.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.gate.Stop()
	s.closed = true
	s.focused = false
}

func (s *Session) flat() bool {
	_, ok := s.typ.HeadingLevel()
	return ok
}

func (s *Session) options() render.Options {
	if level, ok := s.typ.HeadingLevel(); ok {
		return render.Options{Kind: render.KindFlat, Level: level}
	}
	switch s.typ {
	case document.Bullet:
		return render.Options{Kind: render.KindBullet}
	case document.Number:
		return render.Options{Kind: render.KindNumbered, Order: s.ordinal}
	}
	return render.Options{Kind: render.KindMarkdown}
}

// transform renders the source to the surface. With restore set and the
// block focused, the caret is carried over to the new rendering.
func (s *Session) transform(restore bool) {
	res := s.tr.Render(s.source, s.options())
	if s.rendered && res.HTML == s.lastHTML {
		s.stats.Skipped++
		return
	}
	frame := Frame{Doc: res.Doc, HTML: res.HTML, Fallback: res.Fallback}
	if restore && s.focused {
		rng := transform.MapText(s.source, s.caret, res.Doc)
		frame.Selection = &rng
	}
	if s.surface != nil {
		s.gate.Render(func() { s.surface.Render(frame) })
	}
	s.lastHTML = res.HTML
	s.rendered = true
	s.stats.Transforms++
}
