package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/calvinalkan/bookshelf/internal/app"
	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/config"
	"github.com/calvinalkan/bookshelf/internal/locale"
	"github.com/calvinalkan/bookshelf/internal/results"
	"github.com/calvinalkan/bookshelf/internal/store"
)

// ErrIDRequired is returned by commands that need a book reference.
var ErrIDRequired = errors.New("book ID is required")

// session is the per-invocation state shared by commands. The store is
// opened on first use and closed by Run.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	store  *store.Store
	locale locale.Formatter
}

func newSession(cfg config.Config, logger *zap.Logger) *session {
	return &session{cfg: cfg, logger: logger}
}

// open returns the store, opening it on first call.
func (s *session) open(ctx context.Context, o *IO) (*store.Store, error) {
	if s.store != nil {
		return s.store, nil
	}

	st, err := store.Open(ctx, store.Options{Path: s.cfg.StoreAbs, SeedPath: s.cfg.SeedAbs})
	if err != nil {
		return nil, err
	}

	s.store = st

	if st.Seeded() {
		s.logger.Info("seeded store", zap.String("store", st.Path()), zap.String("seed", s.cfg.SeedAbs))
	}

	s.logger.Debug("opened store", zap.String("store", st.Path()), zap.Int("books", st.Count()))

	s.locale = locale.FromEnv(s.cfg.Env)

	if s.cfg.Locale != "" {
		f, err := locale.Parse(s.cfg.Locale)
		if err != nil {
			o.Warn(fmt.Sprintf("unknown locale %q", s.cfg.Locale), "dates use "+f.String())
		}

		s.locale = f
	}

	return st, nil
}

func (s *session) options() app.Options {
	return app.Options{
		Fatal:      app.LogFatal(s.logger),
		Logger:     s.logger,
		Locale:     s.locale,
		UndoLevels: s.cfg.UndoLevels,
	}
}

// list opens the store and returns an activated list controller.
func (s *session) list(ctx context.Context, o *IO) (*app.List, *app.ListModel, error) {
	st, err := s.open(ctx, o)
	if err != nil {
		return nil, nil, err
	}

	model := &app.ListModel{Logger: s.logger}

	l, err := app.NewList(st.Main(), model, s.options())
	if err != nil {
		return nil, nil, err
	}

	err = l.Activate()
	if err != nil {
		l.Close()

		return nil, nil, err
	}

	return l, model, nil
}

// resolve finds the list row of a book reference.
func resolve(l *app.List, ref string) (book.Book, results.Path, error) {
	b, err := l.Tx().Resolve(ref)
	if err != nil {
		return book.Book{}, results.Path{}, err
	}

	p, ok := l.PathOf(b.ID)
	if !ok {
		return book.Book{}, results.Path{}, fmt.Errorf("%w: %s", store.ErrNotFound, ref)
	}

	return b, p, nil
}

func (s *session) close() error {
	if s.store == nil {
		return nil
	}

	err := s.store.Close()
	s.store = nil

	return err
}
