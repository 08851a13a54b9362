// Package app runs the page editor in a terminal.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cozy/blocknote/config"
	"github.com/cozy/blocknote/document"
	"github.com/cozy/blocknote/editor"
	"github.com/cozy/blocknote/logging"
	"github.com/cozy/blocknote/schedule"
	"github.com/cozy/blocknote/storage/sqlite"
	"github.com/rs/zerolog"
)

// Main parses args, opens the page and runs the editor until the user quits.
func Main(ctx context.Context, args []string) error {
	cfg, err := config.Parse(args, os.Getenv)
	if err != nil {
		return err
	}

	logData, err := logging.New().FromPath(cfg.LogPath).Level(cfg.LogLevel).Make()
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logData.Close()
	log := logData.Logger

	// Timers and notices fire on other goroutines; they are handed to the
	// event loop as messages.
	var prog *tea.Program
	send := func(msg tea.Msg) {
		if prog != nil {
			prog.Send(msg)
		}
	}
	clock := schedule.NewClock(func(f func()) { send(runMsg(f)) })
	notices := func(n document.Notice) { send(noticeMsg(n)) }

	w, err := open(ctx, cfg, log, clock, notices)
	if err != nil {
		return err
	}
	log.Info().Str("page", w.pageID).Str("db", cfg.DBPath).Msg("editor started")

	prog = tea.NewProgram(New(w.ed, w.saver, w.views, WithLogger(log)), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := prog.Run()
	return errors.Join(runErr, w.close())
}

// workspace is what a run of the editor opens.
type workspace struct {
	pageID string
	store  *sqlite.Store
	saver  *document.Saver
	docs   *document.Model
	views  *surfaces
	ed     *editor.Editor
}

func open(ctx context.Context, cfg *config.Config, log zerolog.Logger, clock schedule.Clock, notices func(document.Notice)) (*workspace, error) {
	store, err := sqlite.Open(cfg.DBPath, sqlite.WithLogger(log))
	if err != nil {
		return nil, err
	}
	w := &workspace{store: store}

	w.pageID, err = pickPage(ctx, store, cfg.PageID)
	if err != nil {
		store.Close()
		return nil, err
	}

	w.saver = document.NewSaver(store, cfg.SaveDelay,
		document.WithSaverLogger(log),
		document.WithNotices(notices),
	)
	w.docs = document.NewModel(
		document.WithHost(store),
		document.WithSaver(w.saver),
		document.WithLogger(log),
	)
	if _, err := w.docs.LoadPage(ctx, w.pageID); err != nil {
		store.Close()
		return nil, err
	}

	w.views = newSurfaces()
	w.ed, err = editor.New(w.docs, w.pageID, w.views,
		editor.WithClock(clock),
		editor.WithLogger(log),
		editor.WithDelays(cfg.TransformDelay, cfg.SettleDelay),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return w, nil
}

// close stops the editor and writes the changes not saved yet.
func (w *workspace) close() error {
	w.ed.Close()
	flushErr := w.saver.Flush(context.Background())
	return errors.Join(flushErr, w.store.Close())
}

// pickPage returns id, or else the most recently updated page, or else a
// new page.
func pickPage(ctx context.Context, store *sqlite.Store, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	pages, err := store.ListPages(ctx)
	if err != nil {
		return "", err
	}
	if len(pages) > 0 {
		return pages[0].ID, nil
	}
	p, err := store.CreatePage(ctx, "")
	if err != nil {
		return "", err
	}
	return p.ID, nil
}
