package results

import (
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/calvinalkan/bookshelf/internal/book"
)

// step is one delegate callback in emission order.
type step struct {
	section *SectionChange
	object  *Change
}

// layout is the working copy of the rendered list the diff mutates while it
// emits events, so every emitted path is valid for the state at that point.
type layout struct {
	names []string
	rows  [][]uuid.UUID
}

func layoutOf(sections []Section) *layout {
	l := &layout{
		names: make([]string, len(sections)),
		rows:  make([][]uuid.UUID, len(sections)),
	}

	for i, s := range sections {
		l.names[i] = s.Name
		l.rows[i] = make([]uuid.UUID, len(s.Objects))

		for j, b := range s.Objects {
			l.rows[i][j] = b.ID
		}
	}

	return l
}

func (l *layout) find(id uuid.UUID) (Path, bool) {
	for s, row := range l.rows {
		if r := slices.Index(row, id); r >= 0 {
			return Path{Section: s, Row: r}, true
		}
	}

	return Path{}, false
}

func (l *layout) section(name string) int {
	return slices.Index(l.names, name)
}

func (l *layout) insertRow(p Path, id uuid.UUID) {
	l.rows[p.Section] = slices.Insert(l.rows[p.Section], p.Row, id)
}

func (l *layout) deleteRow(p Path) {
	l.rows[p.Section] = slices.Delete(l.rows[p.Section], p.Row, p.Row+1)
}

// diff computes the events that turn the rendered sections old into next.
//
// Events are sequential: each path is relative to the state produced by
// the events before it. Order of emission:
//  1. deletes of removed books, last row first
//  2. inserts of new sections, in section order
//  3. inserts and moves in final order; books on the longest increasing
//     subsequence of the old order that kept their section stay put
//  4. deletes of sections that became empty, last first
//  5. updates of books that stayed put but changed, at their final path
func diff(old, next []Section, compareNames func(a, b string) int) []step {
	var steps []step

	work := layoutOf(old)

	oldBooks := make(map[uuid.UUID]book.Book)
	oldSection := make(map[uuid.UUID]string)

	for _, s := range old {
		for _, b := range s.Objects {
			oldBooks[b.ID] = b
			oldSection[b.ID] = s.Name
		}
	}

	finalIndex := make(map[uuid.UUID]int)
	nextSection := make(map[uuid.UUID]string)
	nextNames := make(map[string]struct{}, len(next))

	k := 0

	for _, s := range next {
		nextNames[s.Name] = struct{}{}

		for _, b := range s.Objects {
			finalIndex[b.ID] = k
			nextSection[b.ID] = s.Name
			k++
		}
	}

	// 1. Removed books, scanned backwards so earlier paths stay valid.
	for s := len(work.rows) - 1; s >= 0; s-- {
		for r := len(work.rows[s]) - 1; r >= 0; r-- {
			id := work.rows[s][r]
			if _, kept := finalIndex[id]; kept {
				continue
			}

			p := Path{Section: s, Row: r}
			work.deleteRow(p)
			steps = append(steps, step{object: &Change{Kind: Delete, ID: id, Old: p}})
		}
	}

	// Books that keep their section and relative order stay in place.
	var (
		candidates []uuid.UUID
		order      []int
	)

	for _, row := range work.rows {
		for _, id := range row {
			if oldSection[id] == nextSection[id] {
				candidates = append(candidates, id)
				order = append(order, finalIndex[id])
			}
		}
	}

	stable := make(map[uuid.UUID]struct{}, len(candidates))
	for _, i := range longestIncreasing(order) {
		stable[candidates[i]] = struct{}{}
	}

	// 2. New sections, inserted at their sorted position.
	for _, s := range next {
		if work.section(s.Name) >= 0 {
			continue
		}

		at := sort.Search(len(work.names), func(i int) bool {
			return compareNames(work.names[i], s.Name) > 0
		})

		work.names = slices.Insert(work.names, at, s.Name)
		work.rows = slices.Insert(work.rows, at, []uuid.UUID(nil))
		steps = append(steps, step{section: &SectionChange{Kind: Insert, Index: at, Name: s.Name}})
	}

	// 3. Inserts and moves, each placed right after its final predecessor.
	for _, s := range next {
		for r, b := range s.Objects {
			if _, ok := stable[b.ID]; ok {
				continue
			}

			change := Change{Kind: Insert, ID: b.ID}

			if _, existed := oldBooks[b.ID]; existed {
				from, _ := work.find(b.ID)
				work.deleteRow(from)
				change.Kind = Move
				change.Old = from
			}

			to := Path{Section: work.section(s.Name)}

			if r > 0 {
				prev, _ := work.find(s.Objects[r-1].ID)
				to.Row = prev.Row + 1
			}

			work.insertRow(to, b.ID)
			change.New = to
			steps = append(steps, step{object: &change})
		}
	}

	// 4. Sections that no longer exist are empty by now.
	for i := len(work.names) - 1; i >= 0; i-- {
		name := work.names[i]
		if _, ok := nextNames[name]; ok {
			continue
		}

		work.names = slices.Delete(work.names, i, i+1)
		work.rows = slices.Delete(work.rows, i, i+1)
		steps = append(steps, step{section: &SectionChange{Kind: Delete, Index: i, Name: name}})
	}

	// 5. Content changes of books that did not move.
	for si, s := range next {
		for r, b := range s.Objects {
			if _, ok := stable[b.ID]; !ok {
				continue
			}

			if sameBook(oldBooks[b.ID], b) {
				continue
			}

			p := Path{Section: si, Row: r}
			steps = append(steps, step{object: &Change{Kind: Update, ID: b.ID, Old: p, New: p}})
		}
	}

	return steps
}

func sameBook(a, b book.Book) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Author == b.Author &&
		a.Copyright.Equal(b.Copyright)
}

// longestIncreasing returns the indices into seq of one longest strictly
// increasing subsequence, in ascending order.
func longestIncreasing(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}

	// tails[l] is the index in seq of the smallest tail of an increasing
	// run of length l+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))

	for i, v := range seq {
		l := sort.Search(len(tails), func(j int) bool { return seq[tails[j]] >= v })

		if l > 0 {
			prev[i] = tails[l-1]
		} else {
			prev[i] = -1
		}

		if l == len(tails) {
			tails = append(tails, i)
		} else {
			tails[l] = i
		}
	}

	out := make([]int, len(tails))

	for i, at := len(tails)-1, tails[len(tails)-1]; i >= 0; i-- {
		out[i] = at
		at = prev[at]
	}

	return out
}
