package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bookshelf/internal/app"
	"github.com/calvinalkan/bookshelf/internal/book"
)

// AddCmd returns the add command.
func AddCmd(s *session) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.StringP("title", "t", "", "Book `title` (required)")
	fs.StringP("author", "a", "", "Book `author` (required)")
	fs.String("copyright", "", "Copyright `date` as YYYY-MM-DD")

	return &Command{
		Flags: fs,
		Usage: "add -t <title> -a <author> [flags]",
		Short: "Add a book",
		Long:  "Add a book and print its short ID. Title and author are required.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execAdd(ctx, io, s, fs, args)
		},
	}
}

func execAdd(ctx context.Context, io *IO, s *session, fs *flag.FlagSet, _ []string) error {
	values := make([]string, 0, len(book.Fields()))

	for _, f := range book.Fields() {
		v, err := fs.GetString(f.Key())
		if err != nil {
			return err
		}

		values = append(values, v)
	}

	l, _, err := s.list(ctx, io)
	if err != nil {
		return err
	}

	defer l.Close()

	add, err := l.Add(&app.DetailModel{})
	if err != nil {
		return err
	}

	for row, v := range values {
		if v == "" {
			continue
		}

		editor, err := add.SelectRow(row)
		if err != nil {
			return errors.Join(err, add.Cancel())
		}

		err = editor.ConfirmString(v)
		if err != nil {
			return errors.Join(err, add.Cancel())
		}
	}

	b, err := add.Book()
	if err != nil {
		return errors.Join(err, add.Cancel())
	}

	err = add.Save(ctx)
	if err != nil {
		if errors.Is(err, book.ErrInvalid) {
			_ = add.Cancel()
		}

		return err
	}

	io.Println(b.ShortID())

	return nil
}
