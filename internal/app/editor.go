package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/store"
)

// FieldEditor edits one field of one book. It finishes on Confirm or
// Cancel and cannot be reused afterwards.
type FieldEditor struct {
	tx    *store.Tx
	id    uuid.UUID
	field book.Field
	name  string
	now   func() time.Time
	done  bool
}

func newFieldEditor(tx *store.Tx, id uuid.UUID, f book.Field, now func() time.Time) *FieldEditor {
	return &FieldEditor{tx: tx, id: id, field: f, name: f.DisplayName(), now: now}
}

// Field returns the edited field.
func (e *FieldEditor) Field() book.Field { return e.field }

// DisplayName is the label used for the field and its undo action.
func (e *FieldEditor) DisplayName() string { return e.name }

// Kind returns the kind of input the editor takes.
func (e *FieldEditor) Kind() book.Kind { return e.field.Kind() }

// Done reports whether the editor has finished.
func (e *FieldEditor) Done() bool { return e.done }

// SetField retargets the editor. Its kind and display name follow.
func (e *FieldEditor) SetField(f book.Field) {
	e.field = f
	e.name = f.DisplayName()
}

// Current returns the value to show in the input. An unset date starts
// at today.
func (e *FieldEditor) Current() (book.Value, error) {
	b, err := e.tx.Get(e.id)
	if err != nil {
		return book.Value{}, err
	}

	v := b.Get(e.field)

	if e.field.Kind() == book.KindDate && v.IsZero() {
		y, m, d := e.now().Date()

		return book.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)), nil
	}

	return v, nil
}

// Confirm writes v as one undoable action named after the field.
func (e *FieldEditor) Confirm(v book.Value) error {
	if e.done {
		return ErrEditorDone
	}

	if j := e.tx.UndoJournal(); j != nil {
		j.BeginGroup()
		defer j.EndGroup()

		j.SetActionName(e.name)
	}

	err := e.tx.Set(e.id, e.field, v)
	if err != nil {
		return err
	}

	e.done = true

	return nil
}

// ConfirmString parses s for the field and confirms it.
func (e *FieldEditor) ConfirmString(s string) error {
	if e.done {
		return ErrEditorDone
	}

	v, err := e.field.Parse(s)
	if err != nil {
		return err
	}

	return e.Confirm(v)
}

// Cancel finishes without writing.
func (e *FieldEditor) Cancel() error {
	if e.done {
		return ErrEditorDone
	}

	e.done = true

	return nil
}
