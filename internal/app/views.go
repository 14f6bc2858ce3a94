package app

import (
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"

	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/results"
)

// ModelSection is one rendered section of a [ListModel].
type ModelSection struct {
	Title string
	Rows  []book.Book
}

// ListModel is an in-memory [ListView]. It applies every mutation to its
// rendered sections, so after each update it mirrors what a table on
// screen would show.
type ListModel struct {
	Sections []ModelSection

	// Logger, when set, receives one debug entry per mutation.
	Logger *zap.Logger

	updating bool
}

var _ ListView = (*ListModel)(nil)

func (m *ListModel) logf(msg string, fields ...zap.Field) {
	if m.Logger != nil {
		m.Logger.Debug(msg, fields...)
	}
}

// Reload replaces the rendered sections.
func (m *ListModel) Reload(sections []results.Section) {
	m.Sections = make([]ModelSection, len(sections))

	for i, s := range sections {
		m.Sections[i] = ModelSection{Title: s.Name, Rows: slices.Clone(s.Objects)}
	}

	m.logf("reload", zap.Int("sections", len(sections)))
}

// BeginUpdates opens a batch.
func (m *ListModel) BeginUpdates() {
	m.updating = true
	m.logf("begin updates")
}

// EndUpdates closes a batch.
func (m *ListModel) EndUpdates() {
	m.updating = false
	m.logf("end updates")
}

// Updating reports whether a batch is open.
func (m *ListModel) Updating() bool { return m.updating }

// InsertSection inserts an empty section.
func (m *ListModel) InsertSection(index int, title string) {
	m.Sections = slices.Insert(m.Sections, index, ModelSection{Title: title})
	m.logf("insert section", zap.Int("index", index), zap.String("title", title))
}

// DeleteSection removes a section.
func (m *ListModel) DeleteSection(index int) {
	m.Sections = slices.Delete(m.Sections, index, index+1)
	m.logf("delete section", zap.Int("index", index))
}

// InsertRow inserts b at p.
func (m *ListModel) InsertRow(p results.Path, b book.Book) {
	s := &m.Sections[p.Section]
	s.Rows = slices.Insert(s.Rows, p.Row, b)
	m.logf("insert row", zap.Stringer("path", p), zap.String("id", b.ShortID()))
}

// DeleteRow removes the row at p.
func (m *ListModel) DeleteRow(p results.Path) {
	s := &m.Sections[p.Section]
	s.Rows = slices.Delete(s.Rows, p.Row, p.Row+1)
	m.logf("delete row", zap.Stringer("path", p))
}

// ReloadRow replaces the row at p with b.
func (m *ListModel) ReloadRow(p results.Path, b book.Book) {
	m.Sections[p.Section].Rows[p.Row] = b
	m.logf("reload row", zap.Stringer("path", p), zap.String("id", b.ShortID()))
}

// WriteTo renders the list as text: one header line per author and one
// indented line per book.
func (m *ListModel) WriteTo(w io.Writer) (int64, error) {
	var n int64

	for _, s := range m.Sections {
		k, err := fmt.Fprintln(w, s.Title)
		n += int64(k)

		if err != nil {
			return n, err
		}

		for _, b := range s.Rows {
			k, err = fmt.Fprintf(w, "  %s  %s\n", b.ShortID(), b.Title)
			n += int64(k)

			if err != nil {
				return n, err
			}
		}
	}

	return n, nil
}

// DetailModel is an in-memory [DetailView].
type DetailModel struct {
	Rows        []DetailRow
	SaveEnabled bool
	Renders     int
}

var _ DetailView = (*DetailModel)(nil)

// Render stores rows.
func (m *DetailModel) Render(rows []DetailRow) {
	m.Rows = rows
	m.Renders++
}

// SetSaveEnabled stores enabled.
func (m *DetailModel) SetSaveEnabled(enabled bool) { m.SaveEnabled = enabled }

// Value returns the rendered value of f.
func (m *DetailModel) Value(f book.Field) string {
	for _, r := range m.Rows {
		if r.Field == f {
			return r.Value
		}
	}

	return ""
}

// WriteTo renders the rows as "label: value" lines.
func (m *DetailModel) WriteTo(w io.Writer) (int64, error) {
	var n int64

	for _, r := range m.Rows {
		k, err := fmt.Fprintf(w, "%-10s %s\n", r.Label+":", r.Value)
		n += int64(k)

		if err != nil {
			return n, err
		}
	}

	return n, nil
}
