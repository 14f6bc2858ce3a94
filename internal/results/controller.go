// Package results keeps a sectioned, sorted view of the books in a
// transaction and reports incremental changes to a delegate.
package results

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/event"
	"github.com/calvinalkan/bookshelf/internal/store"
)

// ErrSectionSort reports a request whose first sort key is not the
// section field; sections would not be contiguous.
var ErrSectionSort = errors.New("first sort key must be the section field")

// ErrNotFetched is returned when the controller is read before PerformFetch.
var ErrNotFetched = errors.New("results not fetched")

// Path addresses a row within a section.
type Path struct {
	Section int
	Row     int
}

func (p Path) String() string { return fmt.Sprintf("%d.%d", p.Section, p.Row) }

// ChangeKind classifies a change event.
type ChangeKind int

// Change kinds.
const (
	Insert ChangeKind = iota + 1
	Delete
	Update
	Move
)

func (k ChangeKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Update:
		return "update"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

// Change reports a row change.
//
//   - Insert: New is the inserted row.
//   - Delete: Old is the removed row.
//   - Move: remove the row at Old, then insert it at New.
//   - Update: the row at New (== Old) has new content.
type Change struct {
	Kind ChangeKind
	ID   uuid.UUID
	Old  Path
	New  Path
}

// SectionChange reports an inserted or deleted section.
type SectionChange struct {
	Kind  ChangeKind
	Index int
	Name  string
}

// Delegate receives change notifications.
//
// Paths are sequential: each event is relative to the list as left by the
// events before it in the same WillChange/DidChange bracket.
type Delegate interface {
	WillChange()
	SectionChanged(c SectionChange)
	ObjectChanged(c Change)
	DidChange()
}

// Section is a run of books sharing the section field value.
type Section struct {
	Name    string
	Objects []book.Book
}

// Request describes the fetch. Sort must begin with SectionBy.
type Request struct {
	Sort      []store.SortKey
	SectionBy book.Field
	Filter    func(book.Book) bool
}

// Controller keeps the fetched sections of a transaction current.
type Controller struct {
	tx       *store.Tx
	req      Request
	delegate Delegate
	sections []Section
	fetched  bool
	sub      *event.Subscription
	err      error
}

// New returns a controller for req over tx. Nothing is fetched until
// [Controller.PerformFetch].
func New(tx *store.Tx, req Request) (*Controller, error) {
	if tx == nil {
		return nil, errors.New("results: tx is nil")
	}

	if !req.SectionBy.Valid() {
		return nil, fmt.Errorf("results: invalid section field %d", req.SectionBy)
	}

	if len(req.Sort) == 0 || req.Sort[0].Field != req.SectionBy {
		return nil, ErrSectionSort
	}

	return &Controller{tx: tx, req: req}, nil
}

// SetDelegate sets the receiver of change notifications. nil disables them.
func (c *Controller) SetDelegate(d Delegate) { c.delegate = d }

// Tx returns the transaction the controller observes.
func (c *Controller) Tx() *store.Tx { return c.tx }

// PerformFetch runs the query and starts tracking changes.
func (c *Controller) PerformFetch() error {
	sections, err := c.fetch()
	if err != nil {
		return fmt.Errorf("perform fetch: %w", err)
	}

	c.sections = sections
	c.fetched = true

	if c.sub == nil {
		c.sub = c.tx.Subscribe(c.changed)
	}

	return nil
}

// Err returns the last error hit while refetching after a change.
func (c *Controller) Err() error { return c.err }

// Sections returns the current sections. Callers must not modify them.
func (c *Controller) Sections() []Section { return c.sections }

// Object returns the book at p.
func (c *Controller) Object(p Path) (book.Book, error) {
	if !c.fetched {
		return book.Book{}, ErrNotFetched
	}

	if p.Section < 0 || p.Section >= len(c.sections) {
		return book.Book{}, fmt.Errorf("section %d out of range", p.Section)
	}

	objects := c.sections[p.Section].Objects
	if p.Row < 0 || p.Row >= len(objects) {
		return book.Book{}, fmt.Errorf("row %s out of range", p)
	}

	return objects[p.Row], nil
}

// PathOf returns the path of the book with id.
func (c *Controller) PathOf(id uuid.UUID) (Path, bool) {
	for s, sec := range c.sections {
		for r, b := range sec.Objects {
			if b.ID == id {
				return Path{Section: s, Row: r}, true
			}
		}
	}

	return Path{}, false
}

// Close stops tracking changes.
func (c *Controller) Close() {
	c.sub.Close()
	c.sub = nil
}

func (c *Controller) fetch() ([]Section, error) {
	books, err := c.tx.Fetch(store.Request{Sort: c.req.Sort, Filter: c.req.Filter})
	if err != nil {
		return nil, err
	}

	var sections []Section

	for _, b := range books {
		name := b.Get(c.req.SectionBy).String()

		if n := len(sections); n == 0 || sections[n-1].Name != name {
			sections = append(sections, Section{Name: name})
		}

		last := &sections[len(sections)-1]
		last.Objects = append(last.Objects, b)
	}

	return sections, nil
}

func (c *Controller) compareNames(a, b string) int {
	cmp := strings.Compare(a, b)
	if c.req.Sort[0].Descending {
		return -cmp
	}

	return cmp
}

func (c *Controller) changed(store.Changes) {
	next, err := c.fetch()
	if err != nil {
		c.err = err

		return
	}

	steps := diff(c.sections, next, c.compareNames)
	c.sections = next

	if c.delegate == nil || len(steps) == 0 {
		return
	}

	c.delegate.WillChange()

	for _, s := range steps {
		if s.section != nil {
			c.delegate.SectionChanged(*s.section)
		} else {
			c.delegate.ObjectChanged(*s.object)
		}
	}

	c.delegate.DidChange()
}
