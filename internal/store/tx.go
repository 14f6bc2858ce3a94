package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/event"
	"github.com/calvinalkan/bookshelf/internal/undo"
)

// Changes lists the IDs affected by one mutation or merge, as seen by the
// scope that publishes it.
type Changes struct {
	Inserted []uuid.UUID
	Updated  []uuid.UUID
	Deleted  []uuid.UUID
}

// Empty reports whether c names no IDs.
func (c Changes) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Tx is an editing scope over the store.
//
// A Tx is an overlay: it records the books it wrote and the IDs it deleted,
// and reads fall through to its parent (or to the committed snapshot for
// the root scope). A child is invisible to its parent until it commits.
//
// Obtain the root scope with [Store.Main] and nested scopes with [Tx.Child].
type Tx struct {
	store   *Store
	parent  *Tx
	written map[uuid.UUID]book.Book
	deleted map[uuid.UUID]struct{}
	journal *undo.Journal
	changes event.Feed[Changes]
}

func newTx(s *Store, parent *Tx) *Tx {
	return &Tx{
		store:   s,
		parent:  parent,
		written: make(map[uuid.UUID]book.Book),
		deleted: make(map[uuid.UUID]struct{}),
	}
}

// Child opens a nested scope whose parent is tx.
func (tx *Tx) Child() *Tx { return newTx(tx.store, tx) }

// Parent returns the enclosing scope, or nil for the root.
func (tx *Tx) Parent() *Tx { return tx.parent }

// Store returns the store tx belongs to.
func (tx *Tx) Store() *Store { return tx.store }

// Subscribe registers fn for the changes visible in this scope.
func (tx *Tx) Subscribe(fn func(Changes)) *event.Subscription {
	return tx.changes.Subscribe(fn)
}

// SetUndoJournal attaches j to the scope. Subsequent mutations register
// their inverse with it. A nil j detaches.
func (tx *Tx) SetUndoJournal(j *undo.Journal) { tx.journal = j }

// UndoJournal returns the attached journal, or nil.
func (tx *Tx) UndoJournal() *undo.Journal { return tx.journal }

// HasChanges reports whether the scope holds uncommitted writes or deletes.
func (tx *Tx) HasChanges() bool {
	return len(tx.written) > 0 || len(tx.deleted) > 0
}

// Get returns the book with id as visible in this scope.
func (tx *Tx) Get(id uuid.UUID) (book.Book, error) {
	if tx.store.closed {
		return book.Book{}, ErrClosed
	}

	b, ok := tx.lookup(id)
	if !ok {
		return book.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return b, nil
}

func (tx *Tx) lookup(id uuid.UUID) (book.Book, bool) {
	for s := tx; s != nil; s = s.parent {
		if _, gone := s.deleted[id]; gone {
			return book.Book{}, false
		}

		if b, ok := s.written[id]; ok {
			return b, true
		}
	}

	b, ok := tx.store.base[id]

	return b, ok
}

func (tx *Tx) visible() map[uuid.UUID]book.Book {
	var all map[uuid.UUID]book.Book
	if tx.parent == nil {
		all = maps.Clone(tx.store.base)
	} else {
		all = tx.parent.visible()
	}

	for id := range tx.deleted {
		delete(all, id)
	}

	maps.Copy(all, tx.written)

	return all
}

// Resolve finds a book by full UUID, by short ID or by a unique prefix of
// either. Matching is case-insensitive.
func (tx *Tx) Resolve(ref string) (book.Book, error) {
	if tx.store.closed {
		return book.Book{}, ErrClosed
	}

	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return book.Book{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	if id, err := uuid.Parse(ref); err == nil {
		return tx.Get(id)
	}

	var matches []book.Book

	for id, b := range tx.visible() {
		if strings.HasPrefix(book.ShortID(id), ref) || strings.HasPrefix(id.String(), ref) {
			matches = append(matches, b)
		}
	}

	switch len(matches) {
	case 0:
		return book.Book{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return book.Book{}, fmt.Errorf("%w: %q matches %d books", ErrAmbiguous, ref, len(matches))
	}
}

// Fetch returns the books visible in this scope, filtered and sorted per req.
func (tx *Tx) Fetch(req Request) ([]book.Book, error) {
	if tx.store.closed {
		return nil, ErrClosed
	}

	return req.apply(slices.Collect(maps.Values(tx.visible()))), nil
}

// Insert adds b to the scope and returns it with its ID filled in.
// A nil ID is replaced with a fresh UUIDv7.
func (tx *Tx) Insert(b book.Book) (book.Book, error) {
	if tx.store.closed {
		return book.Book{}, ErrClosed
	}

	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return book.Book{}, fmt.Errorf("insert: generate id: %w", err)
		}

		b.ID = id
	}

	if _, ok := tx.lookup(b.ID); ok {
		return book.Book{}, fmt.Errorf("%w: %s", ErrExists, b.ID)
	}

	tx.put(b)
	tx.changes.Send(Changes{Inserted: []uuid.UUID{b.ID}})

	if tx.journal != nil {
		id := b.ID
		tx.journal.Register(
			func() { _ = tx.Delete(id) },
			func() { _, _ = tx.Insert(b) },
		)
	}

	return b, nil
}

// Set writes one field of the book with id. Writing the current value is a
// no-op.
func (tx *Tx) Set(id uuid.UUID, f book.Field, v book.Value) error {
	b, err := tx.Get(id)
	if err != nil {
		return err
	}

	old := b.Get(f)
	if old.Equal(v) {
		return nil
	}

	err = b.Set(f, v)
	if err != nil {
		return fmt.Errorf("set %s: %w", f, err)
	}

	tx.put(b)
	tx.changes.Send(Changes{Updated: []uuid.UUID{id}})

	if tx.journal != nil {
		tx.journal.Register(
			func() { _ = tx.Set(id, f, old) },
			func() { _ = tx.Set(id, f, v) },
		)
	}

	return nil
}

// Delete removes the book with id from the scope.
func (tx *Tx) Delete(id uuid.UUID) error {
	b, err := tx.Get(id)
	if err != nil {
		return err
	}

	tx.remove(id)
	tx.changes.Send(Changes{Deleted: []uuid.UUID{id}})

	if tx.journal != nil {
		tx.journal.Register(
			func() { _, _ = tx.Insert(b) },
			func() { _ = tx.Delete(id) },
		)
	}

	return nil
}

func (tx *Tx) put(b book.Book) {
	delete(tx.deleted, b.ID)
	tx.written[b.ID] = b
}

func (tx *Tx) remove(id uuid.UUID) {
	delete(tx.written, id)

	if tx.inherited(id) {
		tx.deleted[id] = struct{}{}
	}
}

// inherited reports whether id is visible below this scope.
func (tx *Tx) inherited(id uuid.UUID) bool {
	if tx.parent != nil {
		_, ok := tx.parent.lookup(id)

		return ok
	}

	_, ok := tx.store.base[id]

	return ok
}

// Commit publishes the scope's changes one level down.
//
// A child merges into its parent, which then notifies its own subscribers.
// The root writes everything to SQLite in one transaction. Either way the
// scope is empty afterwards. Committing an unchanged scope is a no-op.
func (tx *Tx) Commit(ctx context.Context) error {
	if ctx == nil {
		return errors.New("commit: context is nil")
	}

	if tx.store.closed {
		return ErrClosed
	}

	if !tx.HasChanges() {
		return nil
	}

	written := sortedBooks(tx.written)
	deleted := sortedIDs(tx.deleted)

	if tx.parent == nil {
		err := tx.store.write(ctx, written, deleted)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		tx.clear()

		return nil
	}

	p := tx.parent

	var merged Changes

	for _, id := range deleted {
		if _, ok := p.lookup(id); ok {
			p.remove(id)
			merged.Deleted = append(merged.Deleted, id)
		}
	}

	for _, b := range written {
		if _, ok := p.lookup(b.ID); ok {
			merged.Updated = append(merged.Updated, b.ID)
		} else {
			merged.Inserted = append(merged.Inserted, b.ID)
		}

		p.put(b)
	}

	tx.clear()

	if !merged.Empty() {
		p.changes.Send(merged)
	}

	return nil
}

// Rollback discards the scope's changes and clears the attached journal.
// Subscribers receive the changes that restore the parent's view.
func (tx *Tx) Rollback() {
	var reverted Changes

	for _, id := range sortedIDs(tx.deleted) {
		reverted.Inserted = append(reverted.Inserted, id)
	}

	for _, b := range sortedBooks(tx.written) {
		if tx.inherited(b.ID) {
			reverted.Updated = append(reverted.Updated, b.ID)
		} else {
			reverted.Deleted = append(reverted.Deleted, b.ID)
		}
	}

	tx.clear()

	if tx.journal != nil {
		tx.journal.RemoveAll()
	}

	if !reverted.Empty() {
		tx.changes.Send(reverted)
	}
}

func (tx *Tx) clear() {
	clear(tx.written)
	clear(tx.deleted)
}

func sortedBooks(m map[uuid.UUID]book.Book) []book.Book {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(a, b book.Book) int { return bytes.Compare(a.ID[:], b.ID[:]) })

	return out
}

func sortedIDs(m map[uuid.UUID]struct{}) []uuid.UUID {
	out := slices.Collect(maps.Keys(m))
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	return out
}
