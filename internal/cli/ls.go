package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// LsCmd returns the ls command.
func LsCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("ls", flag.ContinueOnError),
		Usage: "ls",
		Short: "List books by author",
		Long:  "List all books grouped by author, sorted by author then title.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execLs(ctx, io, s)
		},
	}
}

func execLs(ctx context.Context, io *IO, s *session) error {
	l, model, err := s.list(ctx, io)
	if err != nil {
		return err
	}

	defer l.Close()

	if len(model.Sections) == 0 {
		io.Println("no books")

		return nil
	}

	_, err = model.WriteTo(io.Out())

	return err
}
