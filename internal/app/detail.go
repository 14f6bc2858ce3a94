package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/event"
	"github.com/calvinalkan/bookshelf/internal/locale"
	"github.com/calvinalkan/bookshelf/internal/store"
	"github.com/calvinalkan/bookshelf/internal/undo"
)

// DetailRow is one rendered field of a book.
type DetailRow struct {
	Field book.Field
	Label string
	Value string
}

// DetailView renders a single book.
type DetailView interface {
	Render(rows []DetailRow)
	SetSaveEnabled(enabled bool)
}

// Detail is the controller of the book detail screen.
//
// Outside edit mode it only renders. Entering edit mode attaches an undo
// journal to the book's scope; leaving it commits the scope.
type Detail struct {
	tx      *store.Tx
	id      uuid.UUID
	view    DetailView
	opts    Options
	editing bool

	// ownsJournal is set when SetEditing attached the journal and must
	// detach it again.
	ownsJournal bool

	subs     event.Group
	editSubs event.Group
}

// NewDetail returns a detail controller for the book with id in tx and
// renders it once.
func NewDetail(tx *store.Tx, id uuid.UUID, view DetailView, opts Options) (*Detail, error) {
	if view == nil {
		return nil, errors.New("detail: view is nil")
	}

	_, err := tx.Get(id)
	if err != nil {
		return nil, fmt.Errorf("detail: %w", err)
	}

	d := &Detail{tx: tx, id: id, view: view, opts: opts.withDefaults()}

	d.subs.Add(tx.Subscribe(func(c store.Changes) {
		if slices.Contains(c.Updated, id) || slices.Contains(c.Inserted, id) || slices.Contains(c.Deleted, id) {
			d.render()
		}
	}))

	d.render()

	return d, nil
}

// ID returns the ID of the shown book.
func (d *Detail) ID() uuid.UUID { return d.id }

// Book returns the current state of the shown book.
func (d *Detail) Book() (book.Book, error) { return d.tx.Get(d.id) }

// Editing reports whether the controller is in edit mode.
func (d *Detail) Editing() bool { return d.editing }

// CanSave reports whether the book is valid for update.
func (d *Detail) CanSave() bool {
	b, err := d.Book()

	return err == nil && book.IsValid(b)
}

// SetEditing enters or leaves edit mode.
//
// Leaving edit mode commits the scope; a failed commit is fatal. It is
// refused with [book.ErrInvalid] while the book is not valid.
func (d *Detail) SetEditing(ctx context.Context, editing bool) error {
	if editing == d.editing {
		return nil
	}

	if editing {
		d.beginEditing()

		return nil
	}

	b, err := d.Book()
	if err != nil {
		return err
	}

	err = book.Validate(b)
	if err != nil {
		return err
	}

	d.endEditing()

	err = d.tx.Commit(ctx)
	if err != nil {
		d.opts.Fatal("save book", err)

		return err
	}

	d.opts.Logger.Debug("saved book", zap.String("id", book.ShortID(d.id)))
	d.render()

	return nil
}

func (d *Detail) beginEditing() {
	journal := d.tx.UndoJournal()
	if journal == nil {
		journal = undo.New(d.opts.UndoLevels)
		d.tx.SetUndoJournal(journal)
		d.ownsJournal = true
	}

	refresh := func(undo.Event) { d.render() }
	d.editSubs.Add(journal.OnUndo(refresh), journal.OnRedo(refresh))

	d.editing = true
	d.render()
}

func (d *Detail) endEditing() {
	d.editSubs.Close()

	if d.ownsJournal {
		d.tx.SetUndoJournal(nil)
		d.ownsJournal = false
	}

	d.editing = false
}

// SelectRow returns an editor for the field at row. Edit mode only.
func (d *Detail) SelectRow(row int) (*FieldEditor, error) {
	if !d.editing {
		return nil, ErrNotEditing
	}

	f, ok := book.FieldAt(row)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchRow, row)
	}

	return newFieldEditor(d.tx, d.id, f, d.opts.Now), nil
}

// Undo reverts the last field edit.
func (d *Detail) Undo() error {
	j := d.tx.UndoJournal()
	if j == nil {
		return undo.ErrNothingToUndo
	}

	return j.Undo()
}

// Redo reapplies the last undone field edit.
func (d *Detail) Redo() error {
	j := d.tx.UndoJournal()
	if j == nil {
		return undo.ErrNothingToRedo
	}

	return j.Redo()
}

// UndoActionName returns the label of the next undo, "" if none.
func (d *Detail) UndoActionName() string {
	if j := d.tx.UndoJournal(); j != nil && j.CanUndo() {
		return j.UndoActionName()
	}

	return ""
}

// LocaleChanged re-renders with f.
func (d *Detail) LocaleChanged(f locale.Formatter) {
	d.opts.Locale = f
	d.render()
}

// Close releases the controller's subscriptions and, in edit mode, its
// journal. Uncommitted edits stay in the scope.
func (d *Detail) Close() {
	if d.editing {
		d.endEditing()
	}

	d.subs.Close()
}

func (d *Detail) render() {
	b, err := d.Book()
	if err != nil {
		d.view.Render(nil)
		d.view.SetSaveEnabled(false)

		return
	}

	fields := book.Fields()
	rows := make([]DetailRow, 0, len(fields))

	for _, f := range fields {
		v := b.Get(f)

		text := v.Text()
		if f.Kind() == book.KindDate {
			text = d.opts.Locale.Date(v.Date())
		}

		rows = append(rows, DetailRow{Field: f, Label: f.DisplayName(), Value: text})
	}

	d.view.Render(rows)
	d.view.SetSaveEnabled(book.IsValid(b))
}
