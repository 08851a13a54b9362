package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"
)

// DefaultSaveDelay is the quiet window after which pending page changes are
// written to the host.
const DefaultSaveDelay = 500 * time.Millisecond

// Notice reports a failed save. The in-memory page is kept as is.
type Notice struct {
	PageID string
	Err    error
}

func (n Notice) String() string {
	return fmt.Sprintf("could not save page %s: %v", n.PageID, n.Err)
}

// Saver coalesces page changes and writes them to a PageHost once edits
// stop for a while. Writes for a page never overlap and happen in the order
// the changes were made.
type Saver struct {
	host   PageHost
	delay  time.Duration
	log    zerolog.Logger
	notify func(Notice)

	mu        sync.Mutex
	pending   map[string]*PageUpdate
	debounced map[string]func(func())

	// serializes host writes
	writeMu sync.Mutex
}

type SaverOption func(*Saver)

// WithNotices sets the function receiving one Notice per failed save. It is
// called from the goroutine doing the save.
func WithNotices(fn func(Notice)) SaverOption {
	return func(s *Saver) { s.notify = fn }
}

func WithSaverLogger(log zerolog.Logger) SaverOption {
	return func(s *Saver) { s.log = log }
}

// NewSaver returns a Saver writing to host after delay. A zero delay uses
// DefaultSaveDelay.
func NewSaver(host PageHost, delay time.Duration, opts ...SaverOption) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	s := &Saver{
		host:      host,
		delay:     delay,
		log:       zerolog.Nop(),
		notify:    func(Notice) {},
		pending:   make(map[string]*PageUpdate),
		debounced: make(map[string]func(func())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue records a change of a page and (re)starts its quiet window.
func (s *Saver) Enqueue(pageID string, update PageUpdate) {
	s.mu.Lock()
	if p, ok := s.pending[pageID]; ok {
		p.merge(update)
	} else {
		u := update
		s.pending[pageID] = &u
	}
	fn, ok := s.debounced[pageID]
	if !ok {
		fn = debounce.New(s.delay)
		s.debounced[pageID] = fn
	}
	s.mu.Unlock()

	fn(func() {
		_ = s.save(context.Background(), pageID)
	})
}

// Pending reports whether changes of the page are waiting to be written.
func (s *Saver) Pending(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[pageID]
	return ok
}

// Flush writes every pending change now.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.save(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Saver) save(ctx context.Context, pageID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	update, ok := s.pending[pageID]
	delete(s.pending, pageID)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	err := s.host.SavePage(ctx, pageID, *update)
	if err == nil {
		s.log.Debug().Str("page", pageID).Int("blocks", len(update.Blocks)).Msg("page saved")
		return nil
	}

	err = fmt.Errorf("save page %s: %w", pageID, err)
	s.log.Error().Err(err).Str("page", pageID).Msg("save failed, keeping local changes")

	// Keep the failed change so the next save of the page carries it.
	s.mu.Lock()
	if newer, ok := s.pending[pageID]; ok {
		update.merge(*newer)
	}
	s.pending[pageID] = update
	s.mu.Unlock()

	s.notify(Notice{PageID: pageID, Err: err})
	return err
}
