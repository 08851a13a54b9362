// Package document holds the pages and blocks being edited and keeps them in
// sync with a page host.
package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPageNotFound   = errors.New("page not found")
	ErrBlockNotFound  = errors.New("block not found")
	ErrPlaceholder    = errors.New("operation not allowed on the placeholder block")
	ErrDuplicateBlock = errors.New("duplicate block id")
	ErrInvalidType    = errors.New("invalid block type")
)

type BlockType string

const (
	Heading1  BlockType = "heading1"
	Heading2  BlockType = "heading2"
	Heading3  BlockType = "heading3"
	Paragraph BlockType = "paragraph"
	Bullet    BlockType = "bullet"
	Number    BlockType = "number"
)

// BlockTypes lists every block type in menu order.
var BlockTypes = []BlockType{Heading1, Heading2, Heading3, Paragraph, Bullet, Number}

// ParseBlockType returns the block type named s.
func ParseBlockType(s string) (BlockType, error) {
	t := BlockType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidType)
	}
	return t, nil
}

func (t BlockType) Valid() bool {
	switch t {
	case Heading1, Heading2, Heading3, Paragraph, Bullet, Number:
		return true
	}
	return false
}

// HeadingLevel returns the level of a heading type.
func (t BlockType) HeadingLevel() (int, bool) {
	switch t {
	case Heading1:
		return 1, true
	case Heading2:
		return 2, true
	case Heading3:
		return 3, true
	}
	return 0, false
}

// Label is the name of the type in the type menu.
func (t BlockType) Label() string {
	switch t {
	case Heading1:
		return "Heading 1"
	case Heading2:
		return "Heading 2"
	case Heading3:
		return "Heading 3"
	case Paragraph:
		return "Text"
	case Bullet:
		return "Bulleted list"
	case Number:
		return "Numbered list"
	}
	return string(t)
}

// PlaceholderText is the hint shown in an empty block of type t.
func PlaceholderText(t BlockType) string {
	switch t {
	case Heading1:
		return "Heading 1"
	case Heading2:
		return "Heading 2"
	case Heading3:
		return "Heading 3"
	case Bullet, Number:
		return "List item"
	}
	return `Type "/" for commands`
}

// PlaceholderID identifies the ephemeral block shown on an empty page.
const PlaceholderID = "placeholder"

// Block is a unit of page content. Content is the source of truth, the
// rendered form is derived from it.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
	Order   int       `json:"order"`
}

func (b Block) IsPlaceholder() bool {
	return b.ID == PlaceholderID
}

// Placeholder returns the placeholder block of an empty page.
func Placeholder() Block {
	return Block{ID: PlaceholderID, Type: Paragraph}
}

// NewBlockID returns a fresh block identifier.
func NewBlockID() string {
	return uuid.NewString()
}

type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Index returns the position of the block with the given id, or -1.
func (p *Page) Index(blockID string) int {
	for i, b := range p.Blocks {
		if b.ID == blockID {
			return i
		}
	}
	return -1
}

// Block returns the block with the given id.
func (p *Page) Block(blockID string) (Block, error) {
	i := p.Index(blockID)
	if i < 0 {
		return Block{}, fmt.Errorf("block %s: %w", blockID, ErrBlockNotFound)
	}
	return p.Blocks[i], nil
}

func (p *Page) clone() *Page {
	c := *p
	c.Blocks = make([]Block, len(p.Blocks))
	copy(c.Blocks, p.Blocks)
	return &c
}

// renumber sets Order to the index of every block.
func renumber(blocks []Block) {
	for i := range blocks {
		blocks[i].Order = i
	}
}

// Patch is a partial block update. Nil fields are left unchanged.
type Patch struct {
	Type    *BlockType
	Content *string
}
