// Command metagen works with annotation declaration files. It resolves the
// meta-annotations of declared elements and generates Go code that registers
// the declarations at init time.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jhump/metatype/config"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("error:"), err)
		os.Exit(1)
	}
}

// globalOptions are the settings shared by all subcommands.
type globalOptions struct {
	configs []string
	verbose int
	color   string

	log logr.Logger
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{log: logr.Discard()}
	cmd := &cobra.Command{
		Use:   "metagen",
		Short: "Resolve meta-annotations and generate their registration code",
		Long: `metagen reads annotation declaration files (TOML) that describe annotation
types, their meta-annotations, and annotated program elements.

The resolve command prints the effective annotations of elements, with the
depth at which each was found. The generate command writes a Go file whose init
function registers the declarations, so that a program can resolve them at
run time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringArrayVarP(&opts.configs, "config", "c", nil, "declaration file; may be repeated")
	flags.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity; may be repeated")
	flags.StringVar(&opts.color, "color", "auto", "colorize output (auto|on|off)")

	cmd.AddCommand(
		newResolveCommand(opts),
		newGenerateCommand(opts),
	)
	return cmd
}

func (opts *globalOptions) setup(cmd *cobra.Command) error {
	switch opts.color {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		_, noColor := os.LookupEnv("NO_COLOR")
		color.NoColor = noColor || !isTerminal(cmd.OutOrStdout())
	default:
		return fmt.Errorf("invalid --color value %q: must be auto, on, or off", opts.color)
	}

	level := slog.LevelWarn
	if opts.verbose > 0 {
		// -v shows info, each additional -v one more logr verbosity level
		level = slog.Level(1 - opts.verbose)
	}
	handler := tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    color.NoColor,
	})
	opts.log = logr.FromSlogHandler(handler)
	return nil
}

// load reads and builds the configured declaration files.
func (opts *globalOptions) load() (*config.Result, error) {
	if len(opts.configs) == 0 {
		return nil, errors.New("no declaration files given; use --config")
	}
	files := make([]*config.File, len(opts.configs))
	for i, path := range opts.configs {
		f, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		opts.log.V(1).Info("loaded declarations", "file", path, "annotations", len(f.Annotations), "elements", len(f.Elements))
		files[i] = f
	}
	return config.Build(files...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
