package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bookshelf/internal/app"
	"github.com/calvinalkan/bookshelf/internal/book"
)

// ErrAssignmentRequired is returned by edit without field=value pairs.
var ErrAssignmentRequired = errors.New("at least one field=value is required")

// ErrBadAssignment reports an argument that is not field=value.
var ErrBadAssignment = errors.New("expected field=value")

// EditCmd returns the edit command.
func EditCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("edit", flag.ContinueOnError),
		Usage: "edit <id> <field>=<value>...",
		Short: "Edit fields of a book",
		Long: `Set one or more fields and save. Fields: title, author, copyright.
Copyright takes YYYY-MM-DD; an empty value clears it.
Nothing is saved if the result has no title or no author.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execEdit(ctx, io, s, args)
		},
	}
}

type assignment struct {
	field book.Field
	value string
}

func parseAssignments(args []string) ([]assignment, error) {
	if len(args) == 0 {
		return nil, ErrAssignmentRequired
	}

	out := make([]assignment, 0, len(args))

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadAssignment, arg)
		}

		f, err := book.ParseField(key)
		if err != nil {
			return nil, err
		}

		out = append(out, assignment{field: f, value: value})
	}

	return out, nil
}

func execEdit(ctx context.Context, io *IO, s *session, args []string) error {
	if len(args) == 0 {
		return ErrIDRequired
	}

	assignments, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}

	l, _, err := s.list(ctx, io)
	if err != nil {
		return err
	}

	defer l.Close()

	_, p, err := resolve(l, args[0])
	if err != nil {
		return err
	}

	view := &app.DetailModel{}

	d, err := l.Show(p, view)
	if err != nil {
		return err
	}

	defer d.Close()

	err = d.SetEditing(ctx, true)
	if err != nil {
		return err
	}

	for _, a := range assignments {
		editor, err := d.SelectRow(int(a.field))
		if err != nil {
			return err
		}

		err = editor.ConfirmString(a.value)
		if err != nil {
			return err
		}
	}

	err = d.SetEditing(ctx, false)
	if err != nil {
		return err
	}

	_, err = view.WriteTo(io.Out())

	return err
}
