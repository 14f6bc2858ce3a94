package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/store"
	"github.com/calvinalkan/bookshelf/internal/undo"
)

func recordChanges(tx *store.Tx) *[]store.Changes {
	var got []store.Changes

	tx.Subscribe(func(c store.Changes) { got = append(got, c) })

	return &got
}

func Test_Child_Insert_Is_Invisible_To_Parent_Until_Child_Commits(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	main := s.Main()
	child := main.Child()

	b := mustInsert(t, child, "Dune", "Bob")

	if _, err := main.Get(b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("parent get err = %v, want ErrNotFound", err)
	}

	if _, err := child.Get(b.ID); err != nil {
		t.Fatalf("child get: %v", err)
	}

	parentChanges := recordChanges(main)

	if err := child.Commit(t.Context()); err != nil {
		t.Fatalf("child commit: %v", err)
	}

	if child.HasChanges() {
		t.Fatal("child should be empty after commit")
	}

	if _, err := main.Get(b.ID); err != nil {
		t.Fatalf("parent get after child commit: %v", err)
	}

	want := []store.Changes{{Inserted: []uuid.UUID{b.ID}}}
	if diff := cmp.Diff(want, *parentChanges); diff != "" {
		t.Fatalf("parent changes mismatch (-want +got):\n%s", diff)
	}

	if s.Count() != 0 {
		t.Fatal("nothing should reach disk before the root commits")
	}

	if err := main.Commit(t.Context()); err != nil {
		t.Fatalf("root commit: %v", err)
	}

	if s.Count() != 1 {
		t.Fatalf("committed count = %d, want 1", s.Count())
	}
}

func Test_Child_Commit_Merges_Updates_And_Deletes_Into_Parent(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	main := s.Main()

	keep := mustInsert(t, main, "Dune", "Bob")
	drop := mustInsert(t, main, "Foo", "Amy")

	child := main.Child()

	if err := child.Set(keep.ID, book.Title, book.Text("Dune Messiah")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := child.Delete(drop.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got, _ := main.Get(keep.ID); got.Title != "Dune" {
		t.Fatalf("parent title = %q before merge, want Dune", got.Title)
	}

	parentChanges := recordChanges(main)

	if err := child.Commit(t.Context()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	want := []store.Changes{{Updated: []uuid.UUID{keep.ID}, Deleted: []uuid.UUID{drop.ID}}}
	if diff := cmp.Diff(want, *parentChanges); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}

	if got, _ := main.Get(keep.ID); got.Title != "Dune Messiah" {
		t.Fatalf("parent title = %q, want Dune Messiah", got.Title)
	}

	if _, err := main.Get(drop.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted book still visible: %v", err)
	}
}

func Test_Rollback_Discards_Child_And_Publishes_Reverting_Changes(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	main := s.Main()
	existing := mustInsert(t, main, "Dune", "Bob")

	child := main.Child()
	added := mustInsert(t, child, "New", "Amy")

	if err := child.Delete(existing.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got := recordChanges(child)

	child.Rollback()

	if child.HasChanges() {
		t.Fatal("rollback should empty the scope")
	}

	want := []store.Changes{{Inserted: []uuid.UUID{existing.ID}, Deleted: []uuid.UUID{added.ID}}}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}

	if _, err := child.Get(existing.ID); err != nil {
		t.Fatalf("existing should be visible again: %v", err)
	}

	if _, err := main.Get(added.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rolled back insert leaked into parent: %v", err)
	}
}

func Test_Commit_Is_NoOp_When_Scope_Unchanged(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	got := recordChanges(s.Main())

	if err := s.Main().Child().Commit(t.Context()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(*got) != 0 {
		t.Fatalf("got %d change events, want 0", len(*got))
	}
}

func Test_Insert_Rejects_Duplicate_ID(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	b := mustInsert(t, s.Main(), "Dune", "Bob")

	if _, err := s.Main().Insert(b); !errors.Is(err, store.ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}
}

func Test_Set_Publishes_Nothing_When_Value_Unchanged(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	b := mustInsert(t, s.Main(), "Dune", "Bob")

	if err := s.Main().Commit(t.Context()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got := recordChanges(s.Main())

	if err := s.Main().Set(b.ID, book.Title, book.Text("Dune")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if len(*got) != 0 || s.Main().HasChanges() {
		t.Fatal("same-value set should not change the scope")
	}
}

func Test_Resolve_Matches_Full_Short_And_Prefix_References(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	tx := s.Main()

	a, err := tx.Insert(book.Book{ID: uuid.MustParse("0190f3a1-7b2c-7def-8123-456789abcdef"), Title: "A", Author: "X"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = tx.Insert(book.Book{ID: uuid.MustParse("0190f3a1-7b2c-7def-8123-456700000000"), Title: "B", Author: "X"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	for _, ref := range []string{a.ID.String(), "456789abcdef", "45678", "456789ABCDEF"} {
		got, err := tx.Resolve(ref)
		if err != nil {
			t.Fatalf("resolve %q: %v", ref, err)
		}

		if got.ID != a.ID {
			t.Fatalf("resolve %q = %s, want %s", ref, got.ID, a.ID)
		}
	}

	if _, err := tx.Resolve("4567"); !errors.Is(err, store.ErrAmbiguous) {
		t.Fatalf("ambiguous err = %v", err)
	}

	if _, err := tx.Resolve("ffff"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func Test_Undo_Journal_Reverts_Mutations_Made_Through_Tx(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	tx := s.Main()
	b := mustInsert(t, tx, "Dune", "Bob")

	j := undo.New(3)
	tx.SetUndoJournal(j)

	if err := tx.Set(b.ID, book.Author, book.Text("Frank")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := tx.Delete(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := j.Undo(); err != nil {
		t.Fatalf("undo delete: %v", err)
	}

	got, err := tx.Get(b.ID)
	if err != nil {
		t.Fatalf("get after undo delete: %v", err)
	}

	if got.Author != "Frank" {
		t.Fatalf("author = %q, want Frank", got.Author)
	}

	if err := j.Undo(); err != nil {
		t.Fatalf("undo set: %v", err)
	}

	if got, _ := tx.Get(b.ID); got.Author != "Bob" {
		t.Fatalf("author = %q, want Bob", got.Author)
	}

	if err := j.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}

	if got, _ := tx.Get(b.ID); got.Author != "Frank" {
		t.Fatalf("author after redo = %q, want Frank", got.Author)
	}
}

func Test_Rollback_Clears_Attached_Journal(t *testing.T) {
	t.Parallel()

	s := openStore(t, store.Options{})
	child := s.Main().Child()
	j := undo.New(3)
	child.SetUndoJournal(j)

	mustInsert(t, child, "Dune", "Bob")
	child.Rollback()

	if j.CanUndo() {
		t.Fatal("journal should be cleared by rollback")
	}
}

func Test_Root_Commit_Survives_Reopen_After_Child_Merge(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "books.sqlite")

	s, err := store.Open(t.Context(), store.Options{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	child := s.Main().Child()
	b := mustInsert(t, child, "Dune", "Bob")

	if err := child.Commit(t.Context()); err != nil {
		t.Fatalf("child commit: %v", err)
	}

	if err := s.Main().Commit(t.Context()); err != nil {
		t.Fatalf("root commit: %v", err)
	}

	_ = s.Close()

	reopened := openStore(t, store.Options{Path: path})

	got, err := reopened.Main().Get(b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Title != "Dune" {
		t.Fatalf("title = %q, want Dune", got.Title)
	}
}
