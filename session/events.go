package session

import (
	"fmt"

	"github.com/cozy/blocknote/model"
	"github.com/cozy/blocknote/transform"
)

// State of a block session.
type State int

const (
	Idle State = iota
	Editing
	Composing
	Deleting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Composing:
		return "composing"
	case Deleting:
		return "deleting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Key names understood by KeyDown.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeyArrowUp   = "ArrowUp"
	KeyArrowDown = "ArrowDown"
	KeySlash     = "/"
)

type KeyEvent struct {
	Key   string
	Shift bool
}

// InputEvent reports the source of the block after a user edit, with the
// caret measured in runes of Text.
type InputEvent struct {
	Text  string
	Caret transform.Selection
}

// IntentKind identifies a page level action requested by a block.
type IntentKind int

const (
	// IntentSplit asks for an empty paragraph after the block.
	IntentSplit IntentKind = iota
	// IntentDeleteBlock asks for the block to be removed.
	IntentDeleteBlock
	IntentFocusPrev
	IntentFocusNext
	// IntentOpenMenu asks for the type menu of the block.
	IntentOpenMenu
)

func (k IntentKind) String() string {
	switch k {
	case IntentSplit:
		return "split"
	case IntentDeleteBlock:
		return "delete-block"
	case IntentFocusPrev:
		return "focus-prev"
	case IntentFocusNext:
		return "focus-next"
	case IntentOpenMenu:
		return "open-menu"
	}
	return fmt.Sprintf("IntentKind(%d)", int(k))
}

type Intent struct {
	Kind    IntentKind
	BlockID string
	// Content of the block when the intent was raised.
	Content string
}

// Outcome of a key press. Handled means the default action of the key must
// not happen.
type Outcome struct {
	Handled bool
	Intents []Intent
}

// Frame is a rendering of the block.
type Frame struct {
	Doc      *model.Node
	HTML     string
	Fallback bool
	// Selection to restore, nil when the current caret is kept.
	Selection *transform.Range
}

// Surface displays a block. Writes made by Render are attributed to the
// engine: input reported while Render runs is ignored.
type Surface interface {
	Render(Frame)
	Focus(caret transform.Selection)
}

// Stats counts what a session did.
type Stats struct {
	// Transforms is the number of renderings written to the surface.
	Transforms int
	// Skipped is the number of renderings identical to the displayed one.
	Skipped int
	// Dropped is the number of input events ignored.
	Dropped int
}
