package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one bk subcommand: its flags, help text and handler.
type Command struct {
	// Flags holds the subcommand's own flags; global flags are parsed by Run.
	Flags *flag.FlagSet

	// Usage follows "bk" in help output and starts with the command name,
	// e.g. "edit <id> <field>=<value>...".
	Usage string

	// Short is the summary shown in the command list.
	Short string

	// Long replaces Short in "bk <command> --help" when set.
	Long string

	// Exec receives the arguments left after flag parsing.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name is the first word of Usage; Run dispatches on it.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine formats the command for the list printed by "bk --help".
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-34s %s", c.Usage, c.Short)
}

// PrintHelp writes usage, description and flags to stdout.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: bk", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		o.Printf("%s", c.Flags.FlagUsages())
	}
}

// Run parses args against Flags and calls Exec. Flag errors print the
// command help after the message. Returns the exit code: 0 on success,
// 1 when parsing or Exec failed.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
