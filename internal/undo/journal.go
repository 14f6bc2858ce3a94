// Package undo implements a bounded undo/redo journal with named actions.
package undo

import (
	"errors"

	"github.com/calvinalkan/bookshelf/internal/event"
)

var (
	// ErrNothingToUndo is returned by [Journal.Undo] on an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by [Journal.Redo] on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Event is published after an undo or redo ran.
type Event struct {
	// Name is the action name of the group that was undone or redone.
	Name string
}

type step struct {
	undo func()
	redo func()
}

type group struct {
	name  string
	steps []step
}

// Journal records reversible steps grouped into named actions.
//
// A Journal is not safe for concurrent use. It is meant to be driven from
// the single goroutine that owns the edited records.
type Journal struct {
	levels    int
	undoStack []*group
	redoStack []*group
	open      *group
	depth     int
	replaying bool

	didUndo event.Feed[Event]
	didRedo event.Feed[Event]
}

// New returns a journal that keeps at most levels undoable actions.
// levels <= 0 keeps everything.
func New(levels int) *Journal {
	return &Journal{levels: levels}
}

// Levels returns the configured depth.
func (j *Journal) Levels() int { return j.levels }

// Register records one reversible step. undo reverts the change, redo
// reapplies it.
//
// Registrations made while the journal itself is running an undo or redo
// are ignored. A new registration clears the redo stack.
func (j *Journal) Register(undo, redo func()) {
	if j.replaying {
		return
	}

	s := step{undo: undo, redo: redo}

	if j.open != nil {
		j.open.steps = append(j.open.steps, s)

		return
	}

	j.push(&group{steps: []step{s}})
}

// BeginGroup opens an action group; registrations until the matching
// [Journal.EndGroup] undo together. Groups nest; only the outermost counts.
func (j *Journal) BeginGroup() {
	j.depth++
	if j.depth == 1 {
		j.open = &group{}
	}
}

// EndGroup closes the group opened by [Journal.BeginGroup]. Empty groups
// are discarded.
func (j *Journal) EndGroup() {
	if j.depth == 0 {
		return
	}

	j.depth--
	if j.depth > 0 {
		return
	}

	g := j.open
	j.open = nil

	if len(g.steps) > 0 {
		j.push(g)
	}
}

// SetActionName names the open group, or the most recent action when no
// group is open.
func (j *Journal) SetActionName(name string) {
	if j.open != nil {
		j.open.name = name

		return
	}

	if n := len(j.undoStack); n > 0 {
		j.undoStack[n-1].name = name
	}
}

// CanUndo reports whether an action is available to undo.
func (j *Journal) CanUndo() bool { return len(j.undoStack) > 0 }

// CanRedo reports whether an action is available to redo.
func (j *Journal) CanRedo() bool { return len(j.redoStack) > 0 }

// UndoActionName returns the name of the next action Undo would revert.
func (j *Journal) UndoActionName() string {
	if n := len(j.undoStack); n > 0 {
		return j.undoStack[n-1].name
	}

	return ""
}

// RedoActionName returns the name of the next action Redo would reapply.
func (j *Journal) RedoActionName() string {
	if n := len(j.redoStack); n > 0 {
		return j.redoStack[n-1].name
	}

	return ""
}

// Undo reverts the most recent action and publishes an undo event.
func (j *Journal) Undo() error {
	n := len(j.undoStack)
	if n == 0 {
		return ErrNothingToUndo
	}

	g := j.undoStack[n-1]
	j.undoStack = j.undoStack[:n-1]

	j.replaying = true
	for i := len(g.steps) - 1; i >= 0; i-- {
		g.steps[i].undo()
	}
	j.replaying = false

	j.redoStack = append(j.redoStack, g)
	j.didUndo.Send(Event{Name: g.name})

	return nil
}

// Redo reapplies the most recently undone action and publishes a redo event.
func (j *Journal) Redo() error {
	n := len(j.redoStack)
	if n == 0 {
		return ErrNothingToRedo
	}

	g := j.redoStack[n-1]
	j.redoStack = j.redoStack[:n-1]

	j.replaying = true
	for _, s := range g.steps {
		s.redo()
	}
	j.replaying = false

	j.undoStack = append(j.undoStack, g)
	j.trim()
	j.didRedo.Send(Event{Name: g.name})

	return nil
}

// RemoveAll clears both stacks and any open group.
func (j *Journal) RemoveAll() {
	j.undoStack = nil
	j.redoStack = nil
	j.open = nil
	j.depth = 0
}

// OnUndo subscribes fn to undo events.
func (j *Journal) OnUndo(fn func(Event)) *event.Subscription {
	return j.didUndo.Subscribe(fn)
}

// OnRedo subscribes fn to redo events.
func (j *Journal) OnRedo(fn func(Event)) *event.Subscription {
	return j.didRedo.Subscribe(fn)
}

func (j *Journal) push(g *group) {
	j.undoStack = append(j.undoStack, g)
	j.redoStack = nil
	j.trim()
}

func (j *Journal) trim() {
	if j.levels <= 0 {
		return
	}

	if extra := len(j.undoStack) - j.levels; extra > 0 {
		j.undoStack = append([]*group(nil), j.undoStack[extra:]...)
	}
}
