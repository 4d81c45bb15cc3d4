package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"github.com/kittclouds/gofeat/internal/config"
	"github.com/kittclouds/gofeat/internal/store"
)

// Func is a featkit command.
type Func func(c *Cmd, ctx context.Context, args ...string) error

var commands = map[string]Func{
	"unify":    (*Cmd).unify,
	"subsumes": (*Cmd).subsumes,
	"fvm":      (*Cmd).fvm,
	"parse":    (*Cmd).parse,
	"lexicon":  (*Cmd).lexicon,
	"grammar":  (*Cmd).grammar,
	"config":   (*Cmd).config,
}

var errUsage = errors.New("usage")

func usagef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

var intro = `The featkit command unifies and displays feature structures, and
parses sentences with feature grammars.

The command comprises a set of subcommands; the list of supported
commands can be obtained by running

	featkit -help

Each subcommand can in turn be invoked with -help, displaying its
usage and help text.

Global flags come before the command name. Besides -config, every
configuration key may be overridden by a flag of the same name:
-db, -grammar, -log, -workers and -trace. The effective configuration
is printed by

	featkit config`

// Cmd holds the configuration and runtime objects of one featkit
// invocation.
type Cmd struct {
	// Config is loaded from ConfigFile when nil.
	Config     *config.Config
	ConfigFile string

	Stdout, Stderr io.Writer

	// FS is the host file system when nil.
	FS hackpadfs.FS

	// Store, when set, is used instead of opening the configured database.
	Store store.Storer

	Log *slog.Logger

	// rooted is set when FS is the host file system, whose paths are
	// relative to /.
	rooted    bool
	overrides []override
}

type override struct{ key, value string }

// keyFlag records an override of one configuration key.
type keyFlag struct {
	key string
	c   *Cmd
}

func (f *keyFlag) String() string { return "" }

func (f *keyFlag) Set(v string) error {
	f.c.overrides = append(f.c.overrides, override{f.key, v})
	return nil
}

func (f *keyFlag) IsBoolFlag() bool { return f.key == "trace" }

// Main parses global flags, loads the configuration and runs the named
// command.
func (c *Cmd) Main(ctx context.Context, args []string) error {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.FS == nil {
		c.FS = osfs.NewFS()
		c.rooted = true
	}

	flags := flag.NewFlagSet("featkit", flag.ContinueOnError)
	flags.SetOutput(c.Stderr)
	flags.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML configuration `file`")
	for _, key := range config.Keys {
		flags.Var(&keyFlag{key: key, c: c}, key, "override configuration key "+key)
	}
	flags.Usage = func() { c.usage(flags) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(c.Stderr, intro)
		return usagef("no command given")
	}
	name := flags.Arg(0)
	fn := commands[name]
	if fn == nil {
		flags.Usage()
		return usagef("unknown command %q", name)
	}

	if err := c.loadConfig(); err != nil {
		return err
	}
	if c.Log == nil {
		c.Log = newLogger(c.Stderr, c.Config.Log)
	}
	return fn(c, ctx, flags.Args()[1:]...)
}

func (c *Cmd) usage(flags *flag.FlagSet) {
	fmt.Fprintln(c.Stderr, "usage: featkit [flags] <command> [args]")
	fmt.Fprintln(c.Stderr, "Commands:")
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(c.Stderr, "\t"+name)
	}
	fmt.Fprintln(c.Stderr, "Global flags:")
	flags.PrintDefaults()
}

func (c *Cmd) loadConfig() error {
	if c.Config == nil {
		c.Config = config.Default()
		if c.ConfigFile != "" {
			path, err := c.path(c.ConfigFile)
			if err != nil {
				return err
			}
			if c.Config, err = config.Load(c.FS, path); err != nil {
				return err
			}
		}
	}
	for _, o := range c.overrides {
		if err := c.Config.Set(o.key, o.value); err != nil {
			return fmt.Errorf("-%s: %w", o.key, err)
		}
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, on, err := config.ParseLevel(level)
	if err != nil || !on {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// tracer returns the logger for unification and chart traces, or nil
// when tracing is off. Traces are written even when the configured
// level is above debug.
func (c *Cmd) tracer(trace bool) *slog.Logger {
	if !trace {
		return nil
	}
	if c.Log.Enabled(context.Background(), slog.LevelDebug) {
		return c.Log
	}
	return newLogger(c.Stderr, "debug")
}

// parseFlags parses a subcommand's flags, adding -help.
func (c *Cmd) parseFlags(fs *flag.FlagSet, args []string, help, usage string) error {
	helpFlag := fs.Bool("help", false, "display subcommand help")
	fs.SetOutput(c.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(c.Stderr, "usage: featkit "+usage)
		fmt.Fprintln(c.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *helpFlag {
		fmt.Fprintln(c.Stderr, "usage: featkit "+usage)
		fmt.Fprintln(c.Stderr)
		fmt.Fprintln(c.Stderr, help)
		fmt.Fprintln(c.Stderr)
		fmt.Fprintln(c.Stderr, "Flags:")
		fs.PrintDefaults()
		return flag.ErrHelp
	}
	return nil
}

// path maps a command line path to a path in c.FS.
func (c *Cmd) path(name string) (string, error) {
	if !c.rooted {
		return name, nil
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(filepath.ToSlash(abs), "/"), nil
}

func (c *Cmd) readFile(name string) ([]byte, error) {
	path, err := c.path(name)
	if err != nil {
		return nil, err
	}
	return hackpadfs.ReadFile(c.FS, path)
}

// withStore runs fn on c.Store, or on the SQLite database dsn, which is
// closed afterwards.
func (c *Cmd) withStore(dsn string, fn func(store.Storer) error) error {
	if c.Store != nil {
		return fn(c.Store)
	}
	s, err := store.NewSQLiteStoreWithDSN(dsn)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (c *Cmd) config(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("config", flag.ContinueOnError)
	help := `Config prints the effective configuration as YAML.`
	if err := c.parseFlags(flags, args, help, "config"); err != nil {
		return err
	}
	data, err := c.Config.Marshal()
	if err != nil {
		return err
	}
	_, err = c.Stdout.Write(data)
	return err
}
