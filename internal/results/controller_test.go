package results_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/results"
	"github.com/calvinalkan/bookshelf/internal/store"
)

var byAuthorTitle = results.Request{
	Sort:      []store.SortKey{{Field: book.Author}, {Field: book.Title}},
	SectionBy: book.Author,
}

func openTx(t *testing.T) *store.Tx {
	t.Helper()

	s, err := store.Open(t.Context(), store.Options{Path: filepath.Join(t.TempDir(), "books.sqlite")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s.Main()
}

// replay applies delegate events to a rendered copy of the list, the way a
// table view would.
type replay struct {
	names []string
	rows  [][]uuid.UUID
	log   []string
	open  bool
	t     *testing.T
}

func newReplay(t *testing.T, sections []results.Section) *replay {
	r := &replay{t: t}

	for _, s := range sections {
		r.names = append(r.names, s.Name)

		ids := make([]uuid.UUID, 0, len(s.Objects))
		for _, b := range s.Objects {
			ids = append(ids, b.ID)
		}

		r.rows = append(r.rows, ids)
	}

	return r
}

func (r *replay) WillChange() {
	if r.open {
		r.t.Fatal("nested WillChange")
	}

	r.open = true
}

func (r *replay) DidChange() {
	if !r.open {
		r.t.Fatal("DidChange without WillChange")
	}

	r.open = false
}

func (r *replay) SectionChanged(c results.SectionChange) {
	r.log = append(r.log, fmt.Sprintf("section %s %d %s", c.Kind, c.Index, c.Name))

	switch c.Kind {
	case results.Insert:
		r.names = slices.Insert(r.names, c.Index, c.Name)
		r.rows = slices.Insert(r.rows, c.Index, []uuid.UUID(nil))
	case results.Delete:
		if len(r.rows[c.Index]) != 0 {
			r.t.Fatalf("deleting non-empty section %q", c.Name)
		}

		r.names = slices.Delete(r.names, c.Index, c.Index+1)
		r.rows = slices.Delete(r.rows, c.Index, c.Index+1)
	default:
		r.t.Fatalf("unexpected section change %v", c.Kind)
	}
}

func (r *replay) ObjectChanged(c results.Change) {
	r.log = append(r.log, fmt.Sprintf("row %s %s>%s", c.Kind, c.Old, c.New))

	switch c.Kind {
	case results.Insert:
		r.insert(c.New, c.ID)
	case results.Delete:
		r.remove(c.Old, c.ID)
	case results.Move:
		r.remove(c.Old, c.ID)
		r.insert(c.New, c.ID)
	case results.Update:
		if got := r.rows[c.New.Section][c.New.Row]; got != c.ID {
			r.t.Fatalf("update at %s hits %s, want %s", c.New, got, c.ID)
		}
	}
}

func (r *replay) insert(p results.Path, id uuid.UUID) {
	r.rows[p.Section] = slices.Insert(r.rows[p.Section], p.Row, id)
}

func (r *replay) remove(p results.Path, id uuid.UUID) {
	if got := r.rows[p.Section][p.Row]; got != id {
		r.t.Fatalf("remove at %s hits %s, want %s", p, got, id)
	}

	r.rows[p.Section] = slices.Delete(r.rows[p.Section], p.Row, p.Row+1)
}

func (r *replay) requireMatches(sections []results.Section) {
	r.t.Helper()

	want := newReplay(r.t, sections)

	if diff := cmp.Diff(want.names, r.names, cmpopts.EquateEmpty()); diff != "" {
		r.t.Fatalf("section names mismatch (-want +got):\n%s\nlog: %v", diff, r.log)
	}

	if diff := cmp.Diff(want.rows, r.rows, cmpopts.EquateEmpty()); diff != "" {
		r.t.Fatalf("rows mismatch (-want +got):\n%s\nlog: %v", diff, r.log)
	}
}

func sectionTitles(sections []results.Section) map[string][]string {
	out := make(map[string][]string)

	for _, s := range sections {
		for _, b := range s.Objects {
			out[s.Name] = append(out[s.Name], b.Title)
		}
	}

	return out
}

func Test_PerformFetch_Groups_Books_By_Author_In_Sort_Order(t *testing.T) {
	t.Parallel()

	tx := openTx(t)

	for _, b := range []book.Book{
		{Title: "Dune", Author: "Bob", Copyright: time.Date(1965, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "Foo", Author: "Amy", Copyright: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
	} {
		if _, err := tx.Insert(b); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	c, err := results.New(tx, byAuthorTitle)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	defer c.Close()

	if err := c.PerformFetch(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	var got []string
	for _, s := range c.Sections() {
		got = append(got, s.Name+"→"+s.Objects[0].Title)
	}

	want := []string{"Amy→Foo", "Bob→Dune"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}

	b, err := c.Object(results.Path{Section: 1, Row: 0})
	if err != nil || b.Title != "Dune" {
		t.Fatalf("Object(1.0) = %v, %v", b.Title, err)
	}

	p, ok := c.PathOf(b.ID)
	if !ok || p != (results.Path{Section: 1, Row: 0}) {
		t.Fatalf("PathOf = %v, %v", p, ok)
	}

	if _, err := c.Object(results.Path{Section: 2}); err == nil {
		t.Fatal("out of range section should fail")
	}
}

func Test_New_Rejects_Sort_Not_Led_By_Section_Field(t *testing.T) {
	t.Parallel()

	_, err := results.New(openTx(t), results.Request{
		Sort:      []store.SortKey{{Field: book.Title}},
		SectionBy: book.Author,
	})
	if !errors.Is(err, results.ErrSectionSort) {
		t.Fatalf("err = %v, want ErrSectionSort", err)
	}
}

func Test_Object_Returns_ErrNotFetched_Before_PerformFetch(t *testing.T) {
	t.Parallel()

	c, err := results.New(openTx(t), byAuthorTitle)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := c.Object(results.Path{}); !errors.Is(err, results.ErrNotFetched) {
		t.Fatalf("err = %v, want ErrNotFetched", err)
	}
}

func Test_Controller_Reports_Section_And_Row_Insert_When_New_Author_Added(t *testing.T) {
	t.Parallel()

	tx := openTx(t)

	if _, err := tx.Insert(book.Book{Title: "Dune", Author: "Bob"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	c, err := results.New(tx, byAuthorTitle)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	defer c.Close()

	if err := c.PerformFetch(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	r := newReplay(t, c.Sections())
	c.SetDelegate(r)

	if _, err := tx.Insert(book.Book{Title: "Foo", Author: "Amy"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	want := []string{"section insert 0 Amy", "row insert 0.0>0.0"}
	if diff := cmp.Diff(want, r.log); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	r.requireMatches(c.Sections())
}

func Test_Controller_Reports_Move_And_Section_Delete_When_Author_Changes(t *testing.T) {
	t.Parallel()

	tx := openTx(t)

	dune, err := tx.Insert(book.Book{Title: "Dune", Author: "Bob"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := tx.Insert(book.Book{Title: "Foo", Author: "Amy"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	c, err := results.New(tx, byAuthorTitle)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	defer c.Close()

	if err := c.PerformFetch(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	r := newReplay(t, c.Sections())
	c.SetDelegate(r)

	if err := tx.Set(dune.ID, book.Author, book.Text("Amy")); err != nil {
		t.Fatalf("set: %v", err)
	}

	want := []string{"row move 1.0>0.0", "section delete 1 Bob"}
	if diff := cmp.Diff(want, r.log); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	r.requireMatches(c.Sections())

	if diff := cmp.Diff(map[string][]string{"Amy": {"Dune", "Foo"}}, sectionTitles(c.Sections())); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func Test_Controller_Reports_Update_When_Copyright_Changes(t *testing.T) {
	t.Parallel()

	tx := openTx(t)

	b, err := tx.Insert(book.Book{Title: "Dune", Author: "Bob"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	c, err := results.New(tx, byAuthorTitle)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	defer c.Close()

	_ = c.PerformFetch()
	r := newReplay(t, c.Sections())
	c.SetDelegate(r)

	if err := tx.Set(b.ID, book.Copyright, book.Date(time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("set: %v", err)
	}

	want := []string{"row update 0.0>0.0"}
	if diff := cmp.Diff(want, r.log); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func Test_Controller_Stops_Reporting_When_Closed(t *testing.T) {
	t.Parallel()

	tx := openTx(t)

	c, err := results.New(tx, byAuthorTitle)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_ = c.PerformFetch()
	r := newReplay(t, c.Sections())
	c.SetDelegate(r)
	c.Close()

	if _, err := tx.Insert(book.Book{Title: "Dune", Author: "Bob"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if len(r.log) != 0 {
		t.Fatalf("got events after close: %v", r.log)
	}
}

// Test_Controller_Events_Replay_To_Fresh_Fetch drives random mutations,
// single and batched through child commits, and checks that applying the
// reported events in order to the previous list yields the fresh result.
func Test_Controller_Events_Replay_To_Fresh_Fetch(t *testing.T) {
	t.Parallel()

	authors := []string{"Amy", "Bob", "Cy", "Dee", "amy"}
	titles := []string{"A", "B", "C", "D", "E", "F", "b"}

	for seed := range uint64(20) {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewPCG(seed, seed*7+1))
			tx := openTx(t)

			c, err := results.New(tx, byAuthorTitle)
			if err != nil {
				t.Fatalf("new: %v", err)
			}

			defer c.Close()

			if err := c.PerformFetch(); err != nil {
				t.Fatalf("fetch: %v", err)
			}

			r := newReplay(t, c.Sections())
			c.SetDelegate(r)

			var ids []uuid.UUID

			mutate := func(scope *store.Tx) {
				switch op := rng.IntN(10); {
				case op < 4 || len(ids) == 0:
					b, err := scope.Insert(book.Book{
						Title:  titles[rng.IntN(len(titles))],
						Author: authors[rng.IntN(len(authors))],
					})
					if err != nil {
						t.Fatalf("insert: %v", err)
					}

					ids = append(ids, b.ID)
				case op < 6:
					id := ids[rng.IntN(len(ids))]
					_ = scope.Set(id, book.Author, book.Text(authors[rng.IntN(len(authors))]))
				case op < 8:
					id := ids[rng.IntN(len(ids))]
					_ = scope.Set(id, book.Title, book.Text(titles[rng.IntN(len(titles))]))
				default:
					i := rng.IntN(len(ids))
					if err := scope.Delete(ids[i]); err == nil {
						ids = slices.Delete(ids, i, i+1)
					}
				}
			}

			for range 60 {
				if rng.IntN(4) == 0 {
					child := tx.Child()
					for range 1 + rng.IntN(6) {
						mutate(child)
					}

					if err := child.Commit(t.Context()); err != nil {
						t.Fatalf("child commit: %v", err)
					}
				} else {
					mutate(tx)
				}

				r.requireMatches(c.Sections())

				fresh, err := results.New(tx, byAuthorTitle)
				if err != nil {
					t.Fatalf("new: %v", err)
				}

				if err := fresh.PerformFetch(); err != nil {
					t.Fatalf("fresh fetch: %v", err)
				}

				r.requireMatches(fresh.Sections())
				fresh.Close()

				r.log = r.log[:0]
			}
		})
	}
}
