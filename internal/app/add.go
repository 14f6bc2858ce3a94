package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/store"
)

// Add is the controller of the add-book screen. It edits a new book in a
// child scope that reaches the parent only on Save.
type Add struct {
	parent   *store.Tx
	child    *store.Tx
	detail   *Detail
	opts     Options
	finished bool
}

func newAdd(parent, child *store.Tx, id uuid.UUID, view DetailView, opts Options) (*Add, error) {
	d, err := NewDetail(child, id, view, opts)
	if err != nil {
		child.Rollback()

		return nil, err
	}

	// The child is new, so this always attaches a fresh journal.
	err = d.SetEditing(context.Background(), true)
	if err != nil {
		d.Close()
		child.Rollback()

		return nil, err
	}

	return &Add{parent: parent, child: child, detail: d, opts: opts.withDefaults()}, nil
}

// Detail returns the detail controller editing the new book.
func (a *Add) Detail() *Detail { return a.detail }

// Book returns the new book as currently edited.
func (a *Add) Book() (book.Book, error) { return a.detail.Book() }

// SelectRow returns an editor for the field at row.
func (a *Add) SelectRow(row int) (*FieldEditor, error) {
	if a.finished {
		return nil, ErrFinished
	}

	return a.detail.SelectRow(row)
}

// Undo reverts the last field edit.
func (a *Add) Undo() error {
	if a.finished {
		return ErrFinished
	}

	return a.detail.Undo()
}

// Redo reapplies the last undone field edit.
func (a *Add) Redo() error {
	if a.finished {
		return ErrFinished
	}

	return a.detail.Redo()
}

// CanSave reports whether Save would be accepted.
func (a *Add) CanSave() bool { return !a.finished && a.detail.CanSave() }

// Save commits the child into the parent and then the parent. Invalid
// books are refused with [book.ErrInvalid]; failed commits are fatal.
func (a *Add) Save(ctx context.Context) error {
	if a.finished {
		return ErrFinished
	}

	b, err := a.detail.Book()
	if err != nil {
		return err
	}

	err = book.Validate(b)
	if err != nil {
		return err
	}

	// Commits the child into the parent.
	err = a.detail.SetEditing(ctx, false)
	if err != nil {
		return err
	}

	a.finish()

	err = a.parent.Commit(ctx)
	if err != nil {
		a.opts.Fatal("save new book", err)

		return fmt.Errorf("save: %w", err)
	}

	a.opts.Logger.Info("added book", zap.String("id", b.ShortID()), zap.String("title", b.Title))

	return nil
}

// Cancel discards the new book.
func (a *Add) Cancel() error {
	if a.finished {
		return ErrFinished
	}

	a.child.Rollback()
	a.finish()

	return nil
}

func (a *Add) finish() {
	a.detail.Close()
	a.finished = true
}
