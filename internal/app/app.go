// Package app holds the headless controllers behind bk's list, detail,
// field editor and add screens.
//
// Controllers are driven from a single goroutine. They talk to their
// screens through the [ListView] and [DetailView] interfaces and never
// reload a whole list in response to a change.
package app

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/calvinalkan/bookshelf/internal/locale"
)

var (
	// ErrNotEditing is returned by row selection outside edit mode.
	ErrNotEditing = errors.New("not in edit mode")

	// ErrNoSuchRow reports a row index without a field.
	ErrNoSuchRow = errors.New("no such row")

	// ErrEditorDone is returned when a confirmed or cancelled editor is reused.
	ErrEditorDone = errors.New("field editor already finished")

	// ErrFinished is returned when a saved or cancelled add flow is reused.
	ErrFinished = errors.New("add already finished")
)

// FatalFunc handles unrecoverable persistence failures. The default
// terminates the process; it may also return, in which case the caller
// returns err.
type FatalFunc func(msg string, err error)

// LogFatal returns a FatalFunc that logs through logger.Fatal.
func LogFatal(logger *zap.Logger) FatalFunc {
	return func(msg string, err error) {
		logger.Fatal(msg, zap.Error(err))
	}
}

// DefaultUndoLevels bounds the edit journal when Options leaves it unset.
const DefaultUndoLevels = 3

// Options configures the controllers. Zero fields get defaults.
type Options struct {
	Fatal      FatalFunc
	Logger     *zap.Logger
	Locale     locale.Formatter
	UndoLevels int
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	if o.Fatal == nil {
		o.Fatal = LogFatal(o.Logger)
	}

	if o.Locale.Tag().IsRoot() {
		o.Locale = locale.Default()
	}

	if o.UndoLevels <= 0 {
		o.UndoLevels = DefaultUndoLevels
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}
