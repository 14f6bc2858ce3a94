package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// RmCmd returns the rm command.
func RmCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <id>",
		Short: "Delete a book",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execRm(ctx, io, s, args)
		},
	}
}

func execRm(ctx context.Context, io *IO, s *session, args []string) error {
	if len(args) == 0 {
		return ErrIDRequired
	}

	l, _, err := s.list(ctx, io)
	if err != nil {
		return err
	}

	defer l.Close()

	b, p, err := resolve(l, args[0])
	if err != nil {
		return err
	}

	err = l.Delete(ctx, p)
	if err != nil {
		return err
	}

	io.Println("deleted", b.ShortID(), b.Title)

	return nil
}
