package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/locale"
	"github.com/calvinalkan/bookshelf/internal/results"
	"github.com/calvinalkan/bookshelf/internal/store"
)

// ListView renders the sectioned book list.
//
// Mutations arrive between BeginUpdates and EndUpdates and are sequential:
// each path is relative to the list as left by the previous call.
type ListView interface {
	Reload(sections []results.Section)
	BeginUpdates()
	InsertSection(index int, title string)
	DeleteSection(index int)
	InsertRow(p results.Path, b book.Book)
	DeleteRow(p results.Path)
	ReloadRow(p results.Path, b book.Book)
	EndUpdates()
}

// ListRequest is the list's fetch: by author, then title, sectioned by author.
var ListRequest = results.Request{
	Sort:      []store.SortKey{{Field: book.Author}, {Field: book.Title}},
	SectionBy: book.Author,
}

// List is the controller of the book list screen.
type List struct {
	tx      *store.Tx
	view    ListView
	opts    Options
	results *results.Controller
}

// NewList returns a list controller over tx. Call [List.Activate] to load.
func NewList(tx *store.Tx, view ListView, opts Options) (*List, error) {
	if view == nil {
		return nil, errors.New("list: view is nil")
	}

	rc, err := results.New(tx, ListRequest)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	l := &List{tx: tx, view: view, opts: opts.withDefaults(), results: rc}
	rc.SetDelegate(listDelegate{l})

	return l, nil
}

// Tx returns the transaction the list edits.
func (l *List) Tx() *store.Tx { return l.tx }

// Activate performs the fetch and renders the list. A failed fetch is fatal.
func (l *List) Activate() error {
	err := l.results.PerformFetch()
	if err != nil {
		l.opts.Fatal("fetch books", err)

		return err
	}

	l.view.Reload(l.results.Sections())

	return nil
}

// Sections returns the number of sections.
func (l *List) Sections() int { return len(l.results.Sections()) }

// TitleForHeader returns the header of section s.
func (l *List) TitleForHeader(s int) string {
	sections := l.results.Sections()
	if s < 0 || s >= len(sections) {
		return ""
	}

	return sections[s].Name
}

// Rows returns the number of rows in section s.
func (l *List) Rows(s int) int {
	sections := l.results.Sections()
	if s < 0 || s >= len(sections) {
		return 0
	}

	return len(sections[s].Objects)
}

// Object returns the book at p.
func (l *List) Object(p results.Path) (book.Book, error) {
	return l.results.Object(p)
}

// PathOf returns the row of the book with id.
func (l *List) PathOf(id uuid.UUID) (results.Path, bool) {
	return l.results.PathOf(id)
}

// Delete removes the book at p and commits. A failed commit is fatal.
func (l *List) Delete(ctx context.Context, p results.Path) error {
	b, err := l.results.Object(p)
	if err != nil {
		return err
	}

	err = l.tx.Delete(b.ID)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	err = l.tx.Commit(ctx)
	if err != nil {
		l.opts.Fatal("save after delete", err)

		return err
	}

	l.opts.Logger.Debug("deleted book", zap.String("id", b.ShortID()))

	return nil
}

// Add starts the add flow: a child scope holding a new empty book.
func (l *List) Add(view DetailView) (*Add, error) {
	child := l.tx.Child()

	b, err := child.Insert(book.Book{})
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	return newAdd(l.tx, child, b.ID, view, l.opts)
}

// Show returns the detail controller for the book at p.
func (l *List) Show(p results.Path, view DetailView) (*Detail, error) {
	b, err := l.results.Object(p)
	if err != nil {
		return nil, err
	}

	return NewDetail(l.tx, b.ID, view, l.opts)
}

// LocaleChanged sets the locale for details and adds opened afterwards.
func (l *List) LocaleChanged(f locale.Formatter) { l.opts.Locale = f }

// Close stops tracking changes.
func (l *List) Close() { l.results.Close() }

type listDelegate struct{ l *List }

func (d listDelegate) WillChange() { d.l.view.BeginUpdates() }

func (d listDelegate) DidChange() { d.l.view.EndUpdates() }

func (d listDelegate) SectionChanged(c results.SectionChange) {
	switch c.Kind {
	case results.Insert:
		d.l.view.InsertSection(c.Index, c.Name)
	case results.Delete:
		d.l.view.DeleteSection(c.Index)
	case results.Update, results.Move:
	}
}

func (d listDelegate) ObjectChanged(c results.Change) {
	switch c.Kind {
	case results.Insert:
		d.l.view.InsertRow(c.New, d.current(c))
	case results.Delete:
		d.l.view.DeleteRow(c.Old)
	case results.Move:
		d.l.view.DeleteRow(c.Old)
		d.l.view.InsertRow(c.New, d.current(c))
	case results.Update:
		d.l.view.ReloadRow(c.New, d.current(c))
	}
}

// current returns the current content of the changed row.
func (d listDelegate) current(c results.Change) book.Book {
	if p, ok := d.l.results.PathOf(c.ID); ok {
		if b, err := d.l.results.Object(p); err == nil {
			return b
		}
	}

	return book.Book{ID: c.ID}
}
