package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bookshelf/internal/app"
	"github.com/calvinalkan/bookshelf/internal/book"
	"github.com/calvinalkan/bookshelf/internal/locale"
)

var (
	errNoDetail     = errors.New("no book selected (use show <id> or add)")
	errAddActive    = errors.New("an add is in progress (save or cancel it first)")
	errNoAdd        = errors.New("no add in progress")
	errStillEditing = errors.New("finish editing first (done)")
	errSetUsage     = errors.New("usage: set <field> <value>")
)

// ShellCmd returns the interactive shell command.
func ShellCmd(s *session, in io.Reader) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Interactive session",
		Long: `Start an interactive session over the book list.
Type 'help' inside the shell for its commands. Pending changes are saved
on exit.`,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execShell(ctx, io, s, in)
		},
	}
}

// lineReader is satisfied by *liner.State.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// plainReader reads lines from a non-terminal input without prompting.
type plainReader struct {
	sc *bufio.Scanner
}

func (r *plainReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}

	err := r.sc.Err()
	if err != nil {
		return "", err
	}

	return "", io.EOF
}

func (r *plainReader) AppendHistory(string) {}

func (r *plainReader) Close() error { return nil }

var shellCommands = []string{
	"help", "ls", "show", "edit", "set", "undo", "redo", "done",
	"add", "save", "cancel", "rm", "locale", "quit", "exit",
}

func newLineReader(in io.Reader) lineReader {
	f, ok := in.(*os.File)
	if ok && f == os.Stdin && isTerminal(f) && liner.TerminalSupported() {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		state.SetCompleter(func(line string) []string {
			var out []string

			for _, c := range shellCommands {
				if strings.HasPrefix(c, strings.ToLower(line)) {
					out = append(out, c)
				}
			}

			return out
		})

		return state
	}

	if in == nil {
		in = strings.NewReader("")
	}

	return &plainReader{sc: bufio.NewScanner(in)}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()

	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

type shell struct {
	io *IO
	s  *session

	list  *app.List
	model *app.ListModel

	detail     *app.Detail
	detailView *app.DetailModel
	add        *app.Add
}

func execShell(ctx context.Context, o *IO, s *session, in io.Reader) error {
	l, model, err := s.list(ctx, o)
	if err != nil {
		return err
	}

	sh := &shell{io: o, s: s, list: l, model: model}
	defer sh.close()

	reader := newLineReader(in)
	defer func() { _ = reader.Close() }()

	for ctx.Err() == nil {
		line, err := reader.Prompt("bk> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		reader.AppendHistory(line)

		quit, err := sh.exec(ctx, line)
		if err != nil {
			o.ErrPrintln("error:", err)
		}

		if quit {
			break
		}
	}

	return sh.saveOnExit(ctx)
}

// exec runs one shell line. It reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		sh.printHelp()
	case "ls", "list":
		return false, sh.printList()
	case "show":
		return false, sh.show(args)
	case "edit":
		return false, sh.edit(ctx)
	case "set":
		return false, sh.set(args, line)
	case "undo":
		return false, sh.undo(true)
	case "redo":
		return false, sh.undo(false)
	case "done":
		return false, sh.done(ctx)
	case "add":
		return false, sh.startAdd()
	case "save":
		return false, sh.save(ctx)
	case "cancel":
		return false, sh.cancel()
	case "rm":
		return false, sh.rm(ctx, args)
	case "locale":
		return false, sh.setLocale(args)
	default:
		return false, fmt.Errorf("unknown command: %s (type 'help')", cmd)
	}

	return false, nil
}

func (sh *shell) printHelp() {
	sh.io.Println(`Commands:
  ls                      List books
  show <id>               Select a book
  edit                    Enter edit mode on the selected book
  set <field> <value>     Set title, author or copyright (YYYY-MM-DD)
  undo / redo             Undo or redo the last field change
  done                    Leave edit mode and save
  add                     Start adding a book
  save / cancel           Finish the add
  rm <id>                 Delete a book
  locale <name>           Change the date locale (e.g. de_DE)
  quit                    Save pending changes and exit`)
}

func (sh *shell) printList() error {
	if len(sh.model.Sections) == 0 {
		sh.io.Println("no books")

		return nil
	}

	_, err := sh.model.WriteTo(sh.io.Out())

	return err
}

func (sh *shell) printDetail() {
	mode := "viewing"
	if sh.current() != nil && sh.current().Editing() {
		mode = "editing"
	}

	if sh.add != nil {
		mode = "adding"
	}

	sh.io.Printf("[%s]\n", mode)
	_, _ = sh.detailView.WriteTo(sh.io.Out())
}

// current returns the detail being shown or added.
func (sh *shell) current() *app.Detail {
	if sh.add != nil {
		return sh.add.Detail()
	}

	return sh.detail
}

func (sh *shell) show(args []string) error {
	if len(args) == 0 {
		return ErrIDRequired
	}

	if sh.add != nil {
		return errAddActive
	}

	if sh.detail != nil && sh.detail.Editing() {
		return errStillEditing
	}

	_, p, err := resolve(sh.list, args[0])
	if err != nil {
		return err
	}

	view := &app.DetailModel{}

	d, err := sh.list.Show(p, view)
	if err != nil {
		return err
	}

	sh.closeDetail()
	sh.detail, sh.detailView = d, view
	sh.printDetail()

	return nil
}

func (sh *shell) edit(ctx context.Context) error {
	if sh.add != nil {
		return errAddActive
	}

	if sh.detail == nil {
		return errNoDetail
	}

	err := sh.detail.SetEditing(ctx, true)
	if err != nil {
		return err
	}

	sh.printDetail()

	return nil
}

func (sh *shell) set(args []string, line string) error {
	d := sh.current()
	if d == nil {
		return errNoDetail
	}

	if len(args) == 0 {
		return errSetUsage
	}

	f, err := book.ParseField(args[0])
	if err != nil {
		return err
	}

	// Keep the value's inner spacing: everything after the field name.
	_, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	_, value, _ := strings.Cut(strings.TrimSpace(rest), " ")

	editor, err := d.SelectRow(int(f))
	if err != nil {
		return err
	}

	err = editor.ConfirmString(strings.TrimSpace(value))
	if err != nil {
		return err
	}

	sh.printDetail()

	return nil
}

func (sh *shell) undo(isUndo bool) error {
	d := sh.current()
	if d == nil {
		return errNoDetail
	}

	var err error
	if isUndo {
		err = d.Undo()
	} else {
		err = d.Redo()
	}

	if err != nil {
		return err
	}

	sh.printDetail()

	return nil
}

func (sh *shell) done(ctx context.Context) error {
	if sh.add != nil {
		return sh.save(ctx)
	}

	if sh.detail == nil {
		return errNoDetail
	}

	err := sh.detail.SetEditing(ctx, false)
	if err != nil {
		return err
	}

	sh.printDetail()

	return nil
}

func (sh *shell) startAdd() error {
	if sh.add != nil {
		return errAddActive
	}

	if sh.detail != nil && sh.detail.Editing() {
		return errStillEditing
	}

	view := &app.DetailModel{}

	a, err := sh.list.Add(view)
	if err != nil {
		return err
	}

	sh.add, sh.detailView = a, view
	sh.printDetail()

	return nil
}

func (sh *shell) save(ctx context.Context) error {
	if sh.add == nil {
		return errNoAdd
	}

	b, err := sh.add.Book()
	if err != nil {
		return err
	}

	err = sh.add.Save(ctx)
	if err != nil {
		return err
	}

	sh.add = nil
	sh.io.Println("added", b.ShortID())

	return nil
}

func (sh *shell) cancel() error {
	if sh.add == nil {
		return errNoAdd
	}

	err := sh.add.Cancel()
	sh.add = nil

	return err
}

func (sh *shell) rm(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrIDRequired
	}

	b, p, err := resolve(sh.list, args[0])
	if err != nil {
		return err
	}

	if sh.detail != nil && sh.detail.ID() == b.ID {
		if sh.detail.Editing() {
			return errStillEditing
		}

		sh.closeDetail()
	}

	err = sh.list.Delete(ctx, p)
	if err != nil {
		return err
	}

	sh.io.Println("deleted", b.ShortID(), b.Title)

	return nil
}

func (sh *shell) setLocale(args []string) error {
	if len(args) == 0 {
		sh.io.Println(sh.s.locale.String())

		return nil
	}

	f, err := locale.Parse(args[0])
	if err != nil {
		return err
	}

	sh.s.locale = f
	sh.list.LocaleChanged(f)

	if d := sh.current(); d != nil {
		d.LocaleChanged(f)
		sh.printDetail()
	}

	return nil
}

func (sh *shell) closeDetail() {
	if sh.detail != nil {
		sh.detail.Close()
		sh.detail = nil
	}
}

// saveOnExit commits pending main-scope edits. A failed save is fatal.
func (sh *shell) saveOnExit(ctx context.Context) error {
	if sh.add != nil {
		_ = sh.add.Cancel()
		sh.add = nil
	}

	root := sh.list.Tx()

	if sh.detail != nil && sh.detail.Editing() && !sh.detail.CanSave() {
		root.Rollback()
		sh.io.Warn("unsaved edit was not valid", "changes discarded")
	}

	sh.closeDetail()

	if !root.HasChanges() {
		return nil
	}

	err := root.Commit(ctx)
	if err != nil {
		app.LogFatal(sh.s.logger)("save on exit", err)

		return err
	}

	sh.s.logger.Info("saved pending changes on exit")
	sh.io.Println("saved pending changes")

	return nil
}

func (sh *shell) close() {
	sh.closeDetail()
	sh.list.Close()
	_ = sh.s.logger.Sync()
}

var _ lineReader = (*liner.State)(nil)
