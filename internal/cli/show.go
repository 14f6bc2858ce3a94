package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bookshelf/internal/app"
)

// ShowCmd returns the show command.
func ShowCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <id>",
		Short: "Show book details",
		Long:  "Display title, author and copyright of a book. <id> is a full ID, a short ID or a unique prefix.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execShow(ctx, io, s, args)
		},
	}
}

func execShow(ctx context.Context, io *IO, s *session, args []string) error {
	if len(args) == 0 {
		return ErrIDRequired
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

	io.Println("id:       ", d.ID())

	_, err = view.WriteTo(io.Out())

	return err
}
