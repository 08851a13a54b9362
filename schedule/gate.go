package schedule

import (
	"fmt"
	"time"

	"github.com/cozy/blocknote/render"
	"github.com/rs/zerolog"
)

// Default quiet windows.
const (
	DefaultTransformDelay = 300 * time.Millisecond
	DefaultSettleDelay    = 500 * time.Millisecond
)

// Decision is what to do with a block after an input event.
type Decision int

const (
	// Suppressed schedules nothing.
	Suppressed Decision = iota
	// Immediate transforms right away.
	Immediate
	// Debounced transforms after the quiet window.
	Debounced
)

func (d Decision) String() string {
	switch d {
	case Suppressed:
		return "suppressed"
	case Immediate:
		return "immediate"
	case Debounced:
		return "debounced"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Composition is the state of the input method gate.
type Composition int

const (
	NotComposing Composition = iota
	Composing
	// JustEnded follows a committed composition until the next input event.
	JustEnded
)

func (c Composition) String() string {
	switch c {
	case NotComposing:
		return "not-composing"
	case Composing:
		return "composing"
	case JustEnded:
		return "just-ended"
	}
	return fmt.Sprintf("Composition(%d)", int(c))
}

// Decide picks the action for an edit turning prev into next, ignoring the
// composition and deletion state. A heading trigger appearing for the first
// time is applied at once, except on flat blocks which never expand markup.
func Decide(prev, next string, flat bool) Decision {
	if flat {
		return Debounced
	}
	_, was := HeadingTriggered(prev)
	_, is := HeadingTriggered(next)
	if is && !was {
		return Immediate
	}
	return Debounced
}

// HeadingTriggered reports whether source starts with a heading trigger.
func HeadingTriggered(source string) (int, bool) {
	return render.HeadingTrigger(source)
}

// Options configure a Gate.
type Options struct {
	TransformDelay time.Duration
	SettleDelay    time.Duration
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Gate holds the scheduling state of one block: the re-entrancy guard, the
// deletion run, the composition gate and the two pending timers. A Gate
// belongs to a single event loop and is not safe for concurrent use.
type Gate struct {
	transform *Debouncer
	settle    *Debouncer
	log       zerolog.Logger

	rendering   int
	deleting    bool
	composition Composition
	committed   string
}

// NewGate returns a Gate scheduling on clock. Zero delays use the defaults.
func NewGate(clock Clock, opts Options) *Gate {
	if opts.TransformDelay <= 0 {
		opts.TransformDelay = DefaultTransformDelay
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Gate{
		transform: NewDebouncer(clock, opts.TransformDelay),
		settle:    NewDebouncer(clock, opts.SettleDelay),
		log:       log,
	}
}

// Render runs fn with the re-entrancy guard raised. Input reported while fn
// runs is attributed to the engine.
func (g *Gate) Render(fn func()) {
	g.rendering++
	defer func() { g.rendering-- }()
	fn()
}

// Reentrant reports whether the engine is currently writing the block.
func (g *Gate) Reentrant() bool {
	return g.rendering > 0
}

// Deleting reports whether a deletion run is in progress.
func (g *Gate) Deleting() bool {
	return g.deleting
}

// Composition returns the state of the composition gate.
func (g *Gate) Composition() Composition {
	return g.composition
}

// Pending reports whether a debounced transform is waiting.
func (g *Gate) Pending() bool {
	return g.transform.Pending()
}

// Admit filters an input event carrying text. It returns false for input
// caused by the engine itself and for the echo of a just committed
// composition.
func (g *Gate) Admit(text string) bool {
	if g.Reentrant() {
		g.log.Debug().Msg("dropping input raised while rendering")
		return false
	}
	if g.composition == JustEnded {
		g.composition = NotComposing
		if text == g.committed {
			g.log.Debug().Msg("dropping duplicate input after composition")
			return false
		}
	}
	return true
}

// StartComposition closes the gate. Pending transforms are dropped until
// the composition ends.
func (g *Gate) StartComposition() {
	g.composition = Composing
	g.transform.Cancel()
}

// EndComposition opens the gate, remembering the committed text.
func (g *Gate) EndComposition(text string) {
	g.composition = JustEnded
	g.committed = text
}

// Decide picks the action for an edit turning prev into next.
func (g *Gate) Decide(prev, next string, flat bool) Decision {
	if g.composition == Composing || g.deleting {
		return Suppressed
	}
	return Decide(prev, next, flat)
}

// Apply carries out d with fn as the transform. An immediate transform
// supersedes the pending one.
func (g *Gate) Apply(d Decision, fn func()) {
	g.log.Debug().Stringer("decision", d).Msg("scheduling transform")
	switch d {
	case Immediate:
		g.transform.Cancel()
		fn()
	case Debounced:
		g.transform.Schedule(fn)
	}
}

// CancelTransform drops the pending transform.
func (g *Gate) CancelTransform() bool {
	return g.transform.Cancel()
}

// NoteDelete records a delete keystroke. The first one starts a deletion
// run, each one restarts the settle window. When the window expires the run
// ends and onSettle is called once.
func (g *Gate) NoteDelete(onSettle func()) {
	g.deleting = true
	g.transform.Cancel()
	g.settle.Schedule(func() {
		g.deleting = false
		onSettle()
	})
}

// Stop cancels every pending timer and ends any deletion run.
func (g *Gate) Stop() {
	g.transform.Cancel()
	g.settle.Cancel()
	g.deleting = false
	g.composition = NotComposing
}
