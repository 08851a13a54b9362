package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cozy/blocknote/model"
	"github.com/cozy/blocknote/session"
	"github.com/cozy/blocknote/transform"
)

const (
	caretGlyph = "▏"
	gutter     = "  "
	focusMark  = "▌ "
)

// Styles of the terminal editor.
type Styles struct {
	Title       lipgloss.Style
	Heading     lipgloss.Style
	Strong      lipgloss.Style
	Em          lipgloss.Style
	Code        lipgloss.Style
	Link        lipgloss.Style
	Placeholder lipgloss.Style
	Caret       lipgloss.Style
	Gutter      lipgloss.Style
	Menu        lipgloss.Style
	Selected    lipgloss.Style
	Notice      lipgloss.Style
}

// DefaultStyles returns the styles used on a color terminal.
func DefaultStyles() Styles {
	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Heading:     lipgloss.NewStyle().Bold(true).Underline(true),
		Strong:      lipgloss.NewStyle().Bold(true),
		Em:          lipgloss.NewStyle().Italic(true),
		Code:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Background(lipgloss.Color("236")),
		Link:        lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39")),
		Placeholder: lipgloss.NewStyle().Faint(true),
		Caret:       lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Gutter:      lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Menu:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		Selected:    lipgloss.NewStyle().Reverse(true),
		Notice:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// PlainStyles returns styles that add nothing to the text.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title: plain, Heading: plain, Strong: plain, Em: plain, Code: plain,
		Link: plain, Placeholder: plain, Caret: plain, Gutter: plain,
		Menu: plain, Selected: plain, Notice: plain,
	}
}

// surface keeps the last frame rendered for a block.
type surface struct {
	frame session.Frame
}

func (v *surface) Render(f session.Frame) {
	v.frame = f
}

// Focus is a no-op: the caret is drawn from the session.
func (v *surface) Focus(transform.Selection) {}

// surfaces implements editor.SurfaceHost for the terminal.
type surfaces struct {
	views map[string]*surface
}

func newSurfaces() *surfaces {
	return &surfaces{views: make(map[string]*surface)}
}

func (h *surfaces) Mount(id string) session.Surface {
	v := &surface{}
	h.views[id] = v
	return v
}

func (h *surfaces) Unmount(id string) {
	delete(h.views, id)
}

func (h *surfaces) Rekey(oldID, newID string) {
	if v, ok := h.views[oldID]; ok {
		delete(h.views, oldID)
		h.views[newID] = v
	}
}

func (h *surfaces) get(id string) *surface {
	return h.views[id]
}

// Doc returns the terminal text of a rendered tree. When caret is not
// negative, the caret is drawn at that offset of the flattened text.
func (st Styles) Doc(doc *model.Node, caret int) string {
	if doc == nil {
		return st.Source("", caret)
	}
	p := &printer{st: st, caret: caret}
	out := p.block(doc)
	if caret >= 0 && !p.drawn {
		out += st.Caret.Render(caretGlyph)
	}
	return out
}

// Source returns text with the caret drawn at the rune offset caret.
func (st Styles) Source(text string, caret int) string {
	if caret < 0 {
		return text
	}
	runes := []rune(text)
	if caret > len(runes) {
		caret = len(runes)
	}
	return string(runes[:caret]) + st.Caret.Render(caretGlyph) + string(runes[caret:])
}

type printer struct {
	st    Styles
	caret int
	pos   int
	drawn bool
}

func (p *printer) block(n *model.Node) string {
	switch n.Type.Name {
	case "heading":
		return p.inline(n, p.st.Heading)
	case "paragraph":
		return p.inline(n, lipgloss.NewStyle())
	case "code_block":
		return p.inline(n, p.st.Code)
	case "horizontal_rule":
		return "───"
	case "bullet_list":
		return p.items(n, func(int) string { return "• " })
	case "ordered_list":
		start := intAttr(n.Attr("order"), 1)
		return p.items(n, func(i int) string { return fmt.Sprintf("%d. ", start+i) })
	case "blockquote":
		return indent(p.children(n), "│ ", "│ ")
	}
	if n.IsTextblock() {
		return p.inline(n, lipgloss.NewStyle())
	}
	return p.children(n)
}

func (p *printer) children(n *model.Node) string {
	var parts []string
	n.ForEach(func(child *model.Node, _, _ int) {
		parts = append(parts, p.block(child))
	})
	return strings.Join(parts, "\n")
}

func (p *printer) items(n *model.Node, marker func(int) string) string {
	var parts []string
	n.ForEach(func(item *model.Node, _, i int) {
		m := marker(i)
		parts = append(parts, indent(p.children(item), m, strings.Repeat(" ", len([]rune(m)))))
	})
	return strings.Join(parts, "\n")
}

func (p *printer) inline(n *model.Node, style lipgloss.Style) string {
	var b strings.Builder
	n.ForEach(func(child *model.Node, _, _ int) {
		switch {
		case child.IsText():
			b.WriteString(p.text(*child.Text, p.marked(child, style)))
		case child.Type.Name == "hard_break":
			b.WriteString("\n")
		case child.Type.Name == "image":
			b.WriteString(fmt.Sprintf("[%v]", child.Attr("alt")))
		}
	})
	return b.String()
}

func (p *printer) marked(n *model.Node, style lipgloss.Style) lipgloss.Style {
	for _, m := range n.Marks {
		switch m.Type.Name {
		case "strong":
			style = style.Inherit(p.st.Strong)
		case "em":
			style = style.Inherit(p.st.Em)
		case "code":
			style = style.Inherit(p.st.Code)
		case "link":
			style = style.Inherit(p.st.Link)
		}
	}
	return style
}

func (p *printer) text(text string, style lipgloss.Style) string {
	runes := []rune(text)
	start := p.pos
	p.pos += len(runes)
	if p.drawn || p.caret < start || p.caret > p.pos {
		return style.Render(text)
	}
	p.drawn = true
	at := p.caret - start
	var b strings.Builder
	if at > 0 {
		b.WriteString(style.Render(string(runes[:at])))
	}
	b.WriteString(p.st.Caret.Render(caretGlyph))
	if at < len(runes) {
		b.WriteString(style.Render(string(runes[at:])))
	}
	return b.String()
}

// indent prefixes the first line of text with first and the others with
// rest.
func indent(text, first, rest string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = first + line
		} else {
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}

func intAttr(v interface{}, def int) int {
	switch v := v.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
