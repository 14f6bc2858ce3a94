// Package book defines the Book record and typed access to its fields.
package book

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the input format for date fields.
const DateLayout = "2006-01-02"

var (
	// ErrUnknownField reports a field key outside {title, author, copyright}.
	ErrUnknownField = errors.New("unknown field")

	// ErrKindMismatch reports a text value written to a date field or vice versa.
	ErrKindMismatch = errors.New("value kind does not match field")
)

// Book is a single record in the store.
// A zero Copyright means the date is unset.
type Book struct {
	ID        uuid.UUID
	Title     string `validate:"required,nonblank"`
	Author    string `validate:"required,nonblank"`
	Copyright time.Time
}

// ShortID returns the display form of the ID: the last 12 hex digits.
// UUIDv7 puts the timestamp first, so the tail is the random part.
func (b Book) ShortID() string {
	return ShortID(b.ID)
}

// ShortID returns the display form of id. See [Book.ShortID].
func ShortID(id uuid.UUID) string {
	s := id.String()

	return s[len(s)-12:]
}

// Get returns the value of field f.
func (b Book) Get(f Field) Value {
	switch f {
	case Title:
		return Text(b.Title)
	case Author:
		return Text(b.Author)
	case Copyright:
		return Date(b.Copyright)
	}

	return Value{}
}

// Set writes v to field f.
func (b *Book) Set(f Field, v Value) error {
	if !f.Valid() {
		return fmt.Errorf("set: %w: %d", ErrUnknownField, int(f))
	}

	if v.Kind() != f.Kind() {
		return fmt.Errorf("set %s: %w", f.Key(), ErrKindMismatch)
	}

	switch f {
	case Title:
		b.Title = v.text
	case Author:
		b.Author = v.text
	case Copyright:
		b.Copyright = v.date
	}

	return nil
}

// Kind distinguishes text fields from date fields.
type Kind int

// Field kinds.
const (
	KindText Kind = iota
	KindDate
)

func (k Kind) String() string {
	if k == KindDate {
		return "date"
	}

	return "text"
}

// Field is one of the editable attributes of a [Book].
type Field int

// Editable fields, in display order.
const (
	Title Field = iota
	Author
	Copyright
)

var fieldKeys = [...]string{"title", "author", "copyright"}

// Fields returns all fields in display order.
func Fields() []Field {
	return []Field{Title, Author, Copyright}
}

// FieldAt maps a detail row to its field: 0 title, 1 author, 2 copyright.
func FieldAt(row int) (Field, bool) {
	if row < 0 || row >= len(fieldKeys) {
		return 0, false
	}

	return Field(row), true
}

// ParseField looks up a field by key. Keys are case-insensitive.
func ParseField(key string) (Field, error) {
	for i, k := range fieldKeys {
		if strings.EqualFold(k, strings.TrimSpace(key)) {
			return Field(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownField, key)
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	return f >= Title && f <= Copyright
}

// Key returns the storage key ("title", "author", "copyright").
func (f Field) Key() string {
	if !f.Valid() {
		return fmt.Sprintf("field(%d)", int(f))
	}

	return fieldKeys[f]
}

func (f Field) String() string { return f.Key() }

// DisplayName is the user-visible label, also used as the undo action name.
func (f Field) DisplayName() string {
	return f.Key()
}

// Kind reports whether f holds text or a date.
func (f Field) Kind() Kind {
	if f == Copyright {
		return KindDate
	}

	return KindText
}

// Parse converts user input into a value for f.
// Dates use [DateLayout]; an empty string clears a date.
func (f Field) Parse(s string) (Value, error) {
	if !f.Valid() {
		return Value{}, fmt.Errorf("parse: %w: %d", ErrUnknownField, int(f))
	}

	if f.Kind() == KindText {
		return Text(s), nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return Date(time.Time{}), nil
	}

	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Value{}, fmt.Errorf("parse %s: expected %s: %w", f.Key(), DateLayout, err)
	}

	return Date(t), nil
}

// Value is a field value tagged with its kind.
type Value struct {
	kind Kind
	text string
	date time.Time
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Date returns a date value. The zero time means unset.
func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// Text returns the text of a text value, "" for dates.
func (v Value) Text() string { return v.text }

// Date returns the date of a date value, the zero time for text.
func (v Value) Date() time.Time { return v.date }

// IsZero reports whether v is empty text or an unset date.
func (v Value) IsZero() bool {
	if v.kind == KindDate {
		return v.date.IsZero()
	}

	return v.text == ""
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	if v.kind == KindDate {
		return v.date.Equal(o.date)
	}

	return v.text == o.text
}

func (v Value) String() string {
	if v.kind == KindDate {
		if v.date.IsZero() {
			return ""
		}

		return v.date.Format(DateLayout)
	}

	return v.text
}
