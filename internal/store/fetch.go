package store

import (
	"bytes"
	"slices"
	"strings"

	"github.com/calvinalkan/bookshelf/internal/book"
)

// SortKey orders fetched books by one field.
type SortKey struct {
	Field      book.Field
	Descending bool
}

// Request describes a fetch. A nil Filter matches every book.
// Books with equal sort keys are ordered by ID.
type Request struct {
	Sort   []SortKey
	Filter func(book.Book) bool
}

// Compare orders a before b (negative), after (positive) or equal (zero)
// according to the request's sort keys and the ID tie-break.
func (r Request) Compare(a, b book.Book) int {
	for _, k := range r.Sort {
		c := CompareValues(a.Get(k.Field), b.Get(k.Field))
		if k.Descending {
			c = -c
		}

		if c != 0 {
			return c
		}
	}

	return bytes.Compare(a.ID[:], b.ID[:])
}

// CompareValues compares two values of the same kind. Text compares
// byte-wise; an unset date sorts before any set date.
func CompareValues(a, b book.Value) int {
	if a.Kind() == book.KindDate || b.Kind() == book.KindDate {
		da, db := a.Date(), b.Date()

		switch {
		case da.IsZero() && db.IsZero():
			return 0
		case da.IsZero():
			return -1
		case db.IsZero():
			return 1
		}

		return da.Compare(db)
	}

	return strings.Compare(a.Text(), b.Text())
}

// apply filters and sorts books in place and returns the result.
func (r Request) apply(books []book.Book) []book.Book {
	if r.Filter != nil {
		books = slices.DeleteFunc(books, func(b book.Book) bool { return !r.Filter(b) })
	}

	slices.SortFunc(books, r.Compare)

	return books
}
