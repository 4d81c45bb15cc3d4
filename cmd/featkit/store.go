package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"sort"
	"strconv"

	"github.com/kittclouds/gofeat/internal/store"
	"github.com/kittclouds/gofeat/pkg/featchart"
	"github.com/kittclouds/gofeat/pkg/featstruct"
	"github.com/kittclouds/gofeat/pkg/lexicon"
)

// dispatch runs the subcommand named by args[0].
func (c *Cmd) dispatch(ctx context.Context, cmd string, subs map[string]Func, args []string) error {
	if len(args) == 0 {
		return usagef("%s needs a subcommand: %s", cmd, subNames(subs))
	}
	fn := subs[args[0]]
	if fn == nil {
		return usagef("unknown %s subcommand %q (want %s)", cmd, args[0], subNames(subs))
	}
	return fn(c, ctx, args[1:]...)
}

func subNames(subs map[string]Func) string {
	var names []string
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}

// =============================================================================
// lexicon
// =============================================================================

func (c *Cmd) lexicon(ctx context.Context, args ...string) error {
	return c.dispatch(ctx, "lexicon", map[string]Func{
		"import": (*Cmd).lexiconImport,
		"lookup": (*Cmd).lexiconLookup,
		"match":  (*Cmd).lexiconMatch,
	}, args)
}

func (c *Cmd) lexiconImport(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("lexicon import", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	sourceFlag := flags.String("source", "", "source recorded on each entry (default: the file name)")
	help := `Lexicon import stores the entries of lexicon files in the database.
Each line of a lexicon file reads

	word forms : [feature structure]

Blank lines and lines starting with # are ignored. Importing a file
again updates its entries in place.`
	if err := c.parseFlags(flags, args, help, "lexicon import [-db dsn] [-source name] file..."); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return usagef("lexicon import needs a file")
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		for _, name := range flags.Args() {
			data, err := c.readFile(name)
			if err != nil {
				return err
			}
			lex, err := lexicon.Read(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			source := *sourceFlag
			if source == "" {
				source = name
			}
			n, err := store.ImportLexicon(s, lex, source)
			if err != nil {
				return err
			}
			c.Log.Info("imported lexicon", "file", name, "entries", n)
			fmt.Fprintf(c.Stdout, "%s: %d entries\n", name, n)
		}
		return nil
	})
}

func (c *Cmd) lexiconLookup(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("lexicon lookup", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	help := `Lexicon lookup prints the stored categories of each word, one
"word : category" line per category.`
	if err := c.parseFlags(flags, args, help, "lexicon lookup [-db dsn] word..."); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return usagef("lexicon lookup needs a word")
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		for _, word := range flags.Args() {
			entries, err := s.ListEntries(lexicon.Normalize(word))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(c.Stdout, "%s : (unknown)\n", word)
			}
			for _, e := range entries {
				fmt.Fprintf(c.Stdout, "%s : %s\n", e.Word, e.Category)
			}
		}
		return nil
	})
}

func (c *Cmd) lexiconMatch(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("lexicon match", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	workersFlag := flags.Int("workers", c.Config.Workers, "categories unified concurrently")
	help := `Lexicon match prints every stored word whose category unifies
with the query structure.

	featkit lexicon match "[*type*='N', num='pl']"`
	if err := c.parseFlags(flags, args, help, "lexicon match [-db dsn] [-workers n] fs"); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return usagef("lexicon match takes one structure")
	}
	query, err := featstruct.Parse(flags.Arg(0))
	if err != nil {
		return err
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		entries, err := s.ListEntries("")
		if err != nil {
			return err
		}
		lex, err := store.LexiconFromEntries(entries)
		if err != nil {
			return err
		}
		hits, err := lex.Match(ctx, query, *workersFlag)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Fprintf(c.Stdout, "%s : %s\n", h.Word, h.Category)
		}
		return nil
	})
}

// =============================================================================
// grammar
// =============================================================================

func (c *Cmd) grammar(ctx context.Context, args ...string) error {
	return c.dispatch(ctx, "grammar", map[string]Func{
		"save":    (*Cmd).grammarSave,
		"show":    (*Cmd).grammarShow,
		"history": (*Cmd).grammarHistory,
		"restore": (*Cmd).grammarRestore,
		"list":    (*Cmd).grammarList,
	}, args)
}

func (c *Cmd) grammarSave(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("grammar save", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	nameFlag := flags.String("name", "", "grammar `name`")
	reasonFlag := flags.String("reason", "", "change reason recorded with the new version")
	help := `Grammar save checks a feature grammar file and stores it as the
next version of the named grammar.`
	if err := c.parseFlags(flags, args, help, "grammar save [-db dsn] -name name [-reason text] file"); err != nil {
		return err
	}
	if *nameFlag == "" || flags.NArg() != 1 {
		flags.Usage()
		return usagef("grammar save needs -name and one file")
	}
	data, err := c.readFile(flags.Arg(0))
	if err != nil {
		return err
	}
	if _, _, err := featchart.ParseGrammar(string(data)); err != nil {
		return fmt.Errorf("%s: %w", flags.Arg(0), err)
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		g := &store.Grammar{ID: *nameFlag, Name: *nameFlag, Text: string(data)}
		if err := s.UpdateGrammar(g, *reasonFlag); err != nil {
			return err
		}
		c.Log.Info("saved grammar", "name", g.Name, "version", g.Version)
		fmt.Fprintf(c.Stdout, "%s v%d\n", g.Name, g.Version)
		return nil
	})
}

func (c *Cmd) grammarShow(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("grammar show", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	nameFlag := flags.String("name", "", "grammar `name`")
	versionFlag := flags.Int("version", 0, "print this version instead of the current one")
	help := `Grammar show prints the text of a stored grammar.`
	if err := c.parseFlags(flags, args, help, "grammar show [-db dsn] -name name [-version n]"); err != nil {
		return err
	}
	if *nameFlag == "" {
		flags.Usage()
		return usagef("grammar show needs -name")
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		var (
			g   *store.Grammar
			err error
		)
		if *versionFlag > 0 {
			g, err = s.GetGrammarVersion(*nameFlag, *versionFlag)
		} else {
			g, err = s.GetGrammar(*nameFlag)
		}
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("grammar %q: %w", *nameFlag, store.ErrNotFound)
		}
		_, err = fmt.Fprint(c.Stdout, g.Text)
		return err
	})
}

func (c *Cmd) grammarHistory(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("grammar history", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	nameFlag := flags.String("name", "", "grammar `name`")
	help := `Grammar history lists the versions of a stored grammar, newest first.`
	if err := c.parseFlags(flags, args, help, "grammar history [-db dsn] -name name"); err != nil {
		return err
	}
	if *nameFlag == "" {
		flags.Usage()
		return usagef("grammar history needs -name")
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		versions, err := s.ListGrammarVersions(*nameFlag)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return fmt.Errorf("grammar %q: %w", *nameFlag, store.ErrNotFound)
		}
		for _, g := range versions {
			mark := " "
			if g.IsCurrent {
				mark = "*"
			}
			fmt.Fprintf(c.Stdout, "%s v%d\t%s\n", mark, g.Version, g.ChangeReason)
		}
		return nil
	})
}

func (c *Cmd) grammarRestore(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("grammar restore", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	nameFlag := flags.String("name", "", "grammar `name`")
	help := `Grammar restore makes a copy of an old version the current version.`
	if err := c.parseFlags(flags, args, help, "grammar restore [-db dsn] -name name version"); err != nil {
		return err
	}
	if *nameFlag == "" || flags.NArg() != 1 {
		flags.Usage()
		return usagef("grammar restore needs -name and a version")
	}
	version, err := strconv.Atoi(flags.Arg(0))
	if err != nil {
		return usagef("bad version %q", flags.Arg(0))
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		return s.RestoreGrammarVersion(*nameFlag, version)
	})
}

func (c *Cmd) grammarList(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("grammar list", flag.ContinueOnError)
	dbFlag := flags.String("db", c.Config.DB, "SQLite database")
	help := `Grammar list prints the name and current version of every stored grammar.`
	if err := c.parseFlags(flags, args, help, "grammar list [-db dsn]"); err != nil {
		return err
	}
	return c.withStore(*dbFlag, func(s store.Storer) error {
		grammars, err := s.ListGrammars()
		if err != nil {
			return err
		}
		for _, g := range grammars {
			fmt.Fprintf(c.Stdout, "%s v%d\n", g.Name, g.Version)
		}
		return nil
	})
}
