package cli_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/bookshelf/internal/cli"
)

func Test_Shell_Adds_Book(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.RunWithInput(`add
set title Dune Messiah
set author Frank Herbert
set copyright 1969-10-15
save
ls
quit
`, "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, stdout, "[adding]")
	cli.AssertContains(t, stdout, "added ")
	cli.AssertContains(t, stdout, "Frank Herbert\n")

	ls := c.MustRun("ls")
	cli.AssertContains(t, ls, "Dune Messiah")
}

func Test_Shell_Cancel_Discards_New_Book(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	_, stderr, code := c.RunWithInput("add\nset title Dune\ncancel\n", "shell")

	require.Equal(t, 0, code, stderr)
	require.Equal(t, "no books", c.MustRun("ls"))
}

func Test_Shell_Refuses_Save_Of_Invalid_Book(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	_, stderr, code := c.RunWithInput("add\nset title Dune\nsave\n", "shell")

	require.Equal(t, 0, code)
	cli.AssertContains(t, stderr, "author required")
	require.Equal(t, "no books", c.MustRun("ls"))
}

func Test_Shell_Undo_Reverts_Field_Change(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	id := c.AddBook("Dune", "Herbert")

	stdout, stderr, code := c.RunWithInput("show "+id+`
edit
set title Dune Messiah
undo
redo
undo
done
`, "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, stdout, "[viewing]")
	cli.AssertContains(t, stdout, "[editing]")
	cli.AssertContains(t, stdout, "Dune Messiah")

	show := c.MustRun("show", id)
	cli.AssertNotContains(t, show, "Messiah")
}

func Test_Shell_Done_Saves_Edit(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	id := c.AddBook("Dune", "Herbert")

	_, stderr, code := c.RunWithInput("show "+id+"\nedit\nset author Frank Herbert\ndone\n", "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, c.MustRun("ls"), "Frank Herbert")
}

func Test_Shell_Saves_Pending_Edit_On_Exit(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	id := c.AddBook("Dune", "Herbert")

	stdout, stderr, code := c.RunWithInput("show "+id+"\nedit\nset title Dune Messiah\n", "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, stdout, "saved pending changes")
	cli.AssertContains(t, c.MustRun("show", id), "Dune Messiah")
}

func Test_Shell_Discards_Invalid_Edit_On_Exit(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	id := c.AddBook("Dune", "Herbert")

	_, stderr, code := c.RunWithInput("show "+id+"\nedit\nset author\nquit\n", "shell")

	require.Equal(t, 0, code)
	cli.AssertContains(t, stderr, "changes discarded")
	cli.AssertContains(t, c.MustRun("show", id), "Herbert")
}

func Test_Shell_Locale_Changes_Date_Format(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	id := c.AddBook("Dune", "Herbert", "--copyright", "1965-08-01")

	stdout, stderr, code := c.RunWithInput("show "+id+"\nlocale ja_JP\n", "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, stdout, "Aug 1, 1965")
	cli.AssertContains(t, stdout, "1965/08/01")
}

func Test_Shell_Reports_Errors_And_Continues(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	id := c.AddBook("Dune", "Herbert")

	stdout, stderr, code := c.RunWithInput("bogus\nedit\nrm "+id+"\nls\n", "shell")

	require.Equal(t, 0, code)
	cli.AssertContains(t, stderr, "unknown command: bogus")
	cli.AssertContains(t, stderr, "no book selected")
	cli.AssertContains(t, stdout, "deleted "+id)
	cli.AssertContains(t, stdout, "no books")
}

func Test_Shell_Locale_Applies_To_Books_Shown_Afterwards(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	first := c.AddBook("Dune", "Herbert", "--copyright", "1965-08-01")
	second := c.AddBook("Emma", "Austen", "--copyright", "1815-12-23")

	stdout, stderr, code := c.RunWithInput("show "+first+"\nlocale de_DE\nshow "+second+"\n", "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, stdout, "01.08.1965")
	cli.AssertContains(t, stdout, "23.12.1815")
	cli.AssertNotContains(t, stdout, "Dec 23, 1815")
}

func Test_Shell_Locale_Applies_To_Add_Started_Afterwards(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout, stderr, code := c.RunWithInput("locale ja_JP\nadd\nset copyright 1965-08-01\ncancel\n", "shell")

	require.Equal(t, 0, code, stderr)
	cli.AssertContains(t, stdout, "1965/08/01")
}

func Test_Shell_Edit_Fails_While_Adding(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, code := c.RunWithInput("add\nedit\ncancel\n", "shell")

	require.Equal(t, 0, code)
	cli.AssertContains(t, stderr, "an add is in progress")
}
