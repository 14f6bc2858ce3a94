package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calvinalkan/bookshelf/internal/config"
	"github.com/calvinalkan/bookshelf/internal/logging"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitFatal = 2
)

// fatalExit is the panic value raised by the logger's fatal hook and
// recovered by Run.
type fatalExit struct{}

type fatalHook struct{}

func (fatalHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {
	panic(fatalExit{})
}

// Run is the main entry point. Returns exit code.
// A fatal log entry (an unrecoverable save failure) ends the run with exit code 2.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) (code int) {
	globalFlags := flag.NewFlagSet("bk", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagStore := globalFlags.String("store", "", "Override store `path`")
	flagLocale := globalFlags.String("locale", "", "Override date `locale` (e.g. de_DE)")
	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")

	if len(args) == 0 {
		args = []string{"bk"}
	}

	err := globalFlags.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printGlobalOptions(errOut, globalFlags)

		return exitError
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: *flagCwd,
		ConfigPath:      *flagConfig,
		StoreOverride:   *flagStore,
		LocaleOverride:  *flagLocale,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return exitError
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		Console:   errOut,
		File:      cfg.LogFileAbs,
		FatalHook: fatalHook{},
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return exitError
	}

	s := newSession(cfg, logger)

	defer func() {
		closeErr := s.close()
		if closeErr != nil {
			fprintln(errOut, "error: closing store:", closeErr)

			if code == exitOK {
				code = exitError
			}
		}

		_ = closeLog()
	}()

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if _, ok := r.(fatalExit); !ok {
			panic(r)
		}

		code = exitFatal
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	commands := []*Command{
		LsCmd(s),
		ShowCmd(s),
		AddCmd(s),
		EditCmd(s),
		RmCmd(s),
		ShellCmd(s, in),
		PrintConfigCmd(cfg),
	}

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	rest := globalFlags.Args()

	if *flagHelp || len(rest) == 0 {
		printUsage(out, globalFlags, commands)

		return exitOK
	}

	cmdName := rest[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, globalFlags, commands)

		return exitError
	}

	o := NewIO(out, errOut)

	return cmd.Run(ctx, o, rest[1:])
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printGlobalOptions(w io.Writer, fs *flag.FlagSet) {
	fprintln(w, "Global flags:")
	_, _ = fmt.Fprint(w, fs.FlagUsages())
}

func printUsage(w io.Writer, fs *flag.FlagSet, commands []*Command) {
	fprintln(w, "bk - a sectioned book list")
	fprintln(w)
	fprintln(w, "Usage: bk [flags] <command> [args]")
	fprintln(w)
	printGlobalOptions(w, fs)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}

	fprintln(w)
	fprintln(w, "Run 'bk <command> --help' for more information on a command.")
}
