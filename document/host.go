package document

import "context"

// PageUpdate carries the changed parts of a page. Nil fields are unchanged.
// A non-nil Blocks replaces the whole sequence.
type PageUpdate struct {
	Title  *string
	Blocks []Block
}

func (u *PageUpdate) merge(newer PageUpdate) {
	if newer.Title != nil {
		u.Title = newer.Title
	}
	if newer.Blocks != nil {
		u.Blocks = newer.Blocks
	}
}

// PageHost loads and stores pages.
type PageHost interface {
	LoadPage(ctx context.Context, id string) (*Page, error)
	SavePage(ctx context.Context, id string, update PageUpdate) error
}
