package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/bookshelf/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			execPrintConfig(io, cfg)

			return nil
		},
	}
}

func execPrintConfig(io *IO, cfg config.Config) {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("store=" + cfg.StoreAbs)

	if cfg.SeedAbs != "" {
		io.Println("seed=" + cfg.SeedAbs)
	}

	if cfg.Locale != "" {
		io.Println("locale=" + cfg.Locale)
	}

	io.Println("undo_levels=" + strconv.Itoa(cfg.UndoLevels))
	io.Println("log_level=" + cfg.LogLevel)

	if cfg.LogFileAbs != "" {
		io.Println("log_file=" + cfg.LogFileAbs)
	}

	io.Println("")
	io.Println("# sources")

	src := cfg.Sources
	if src == (config.Sources{}) {
		io.Println("(defaults only)")

		return
	}

	if src.Global != "" {
		io.Println("global_config=" + src.Global)
	}

	if src.Project != "" {
		io.Println("project_config=" + src.Project)
	}

	if src.DotEnv != "" {
		io.Println("dotenv=" + src.DotEnv)
	}
}
