package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cozy/blocknote/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "notes", "blocknote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePages(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	p, err := s.CreatePage(ctx, "First")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	loaded, err := s.LoadPage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", loaded.Title)
	assert.Empty(t, loaded.Blocks)

	_, err = s.CreatePage(ctx, "Second")
	require.NoError(t, err)
	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	require.NoError(t, s.DeletePage(ctx, p.ID))
	_, err = s.LoadPage(ctx, p.ID)
	assert.ErrorIs(t, err, document.ErrPageNotFound)
	assert.ErrorIs(t, s.DeletePage(ctx, p.ID), document.ErrPageNotFound)
}

func TestStoreSavePage(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p, err := s.CreatePage(ctx, "")
	require.NoError(t, err)

	title := "Notes"
	require.NoError(t, s.SavePage(ctx, p.ID, document.PageUpdate{
		Title: &title,
		Blocks: []document.Block{
			{ID: "a", Type: document.Paragraph, Content: "Hello  ", Order: 5},
			{ID: "", Type: document.Paragraph, Content: "no id"},
			{ID: "b", Type: "table"},
			{ID: "a", Type: document.Paragraph, Content: "again"},
			{ID: document.PlaceholderID, Type: document.Paragraph},
			{ID: "c", Type: document.Heading2, Content: "## World"},
		},
	}))

	loaded, err := s.LoadPage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notes", loaded.Title)
	assert.Equal(t, []document.Block{
		{ID: "a", Type: document.Paragraph, Content: "Hello  ", Order: 0},
		{ID: "c", Type: document.Heading2, Content: "## World", Order: 1},
	}, loaded.Blocks)

	// a title-only update keeps the blocks
	title = "Renamed"
	require.NoError(t, s.SavePage(ctx, p.ID, document.PageUpdate{Title: &title}))
	loaded, err = s.LoadPage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Title)
	assert.Len(t, loaded.Blocks, 2)

	// an empty sequence clears the page
	require.NoError(t, s.SavePage(ctx, p.ID, document.PageUpdate{Blocks: []document.Block{}}))
	loaded, err = s.LoadPage(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Blocks)

	err = s.SavePage(ctx, "missing", document.PageUpdate{Title: &title})
	assert.ErrorIs(t, err, document.ErrPageNotFound)
}

func TestStoreWithModel(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p, err := s.CreatePage(ctx, "Draft")
	require.NoError(t, err)

	saver := document.NewSaver(s, 0)
	m := document.NewModel(document.WithHost(s), document.WithSaver(saver))
	_, err = m.LoadPage(ctx, p.ID)
	require.NoError(t, err)

	b, err := m.Materialize(p.ID, document.Paragraph, "Hello")
	require.NoError(t, err)
	_, err = m.InsertBlockAfter(p.ID, b.ID, document.Block{Type: document.Paragraph})
	require.NoError(t, err)
	require.NoError(t, saver.Flush(ctx))

	loaded, err := s.LoadPage(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Blocks, 2)
	assert.Equal(t, "Hello", loaded.Blocks[0].Content)
	assert.Equal(t, "", loaded.Blocks[1].Content)
}
