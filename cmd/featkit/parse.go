package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/kittclouds/gofeat/internal/store"
	"github.com/kittclouds/gofeat/pkg/featchart"
	"github.com/kittclouds/gofeat/pkg/lexicon"
)

func (c *Cmd) parse(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("parse", flag.ContinueOnError)
	grammarFlag := flags.String("grammar", c.Config.Grammar, "feature grammar `file`")
	nameFlag := flags.String("name", "", "use the stored grammar `name` and the stored lexicon")
	dbFlag := flags.String("db", c.Config.DB, "SQLite database for -name")
	batchFlag := flags.String("batch", "", "parse each line of `file` as a sentence")
	workersFlag := flags.Int("workers", c.Config.Workers, "sentences parsed concurrently with -batch")
	traceFlag := flags.Bool("trace", c.Config.Trace, "log chart edges as they are added")
	help := `Parse parses a sentence with a feature grammar and prints every
parse tree, one per line. The grammar is read from -grammar, or from
the database when -name is given, in which case the stored lexicon
entries are added to the grammar's own lexical rules.

With -batch, every non-empty line of the file is a sentence; the
sentences are parsed concurrently and printed in order, each preceded
by a "# sentence" line.`
	if err := c.parseFlags(flags, args, help, "parse [-grammar file | -name name] [-batch file] sentence..."); err != nil {
		return err
	}

	var (
		g   *featchart.Grammar
		lex *lexicon.Lexicon
		err error
	)
	switch {
	case *nameFlag != "":
		err = c.withStore(*dbFlag, func(s store.Storer) error {
			g, lex, err = storedGrammar(s, *nameFlag)
			return err
		})
	case *grammarFlag != "":
		var data []byte
		if data, err = c.readFile(*grammarFlag); err == nil {
			g, lex, err = featchart.ParseGrammar(string(data))
		}
	default:
		flags.Usage()
		return usagef("parse needs -grammar or -name")
	}
	if err != nil {
		return err
	}

	p := featchart.NewParser(g, lex)
	p.Logger = c.tracer(*traceFlag)
	p.Workers = *workersFlag

	if *batchFlag == "" {
		if flags.NArg() == 0 {
			flags.Usage()
			return usagef("parse needs a sentence")
		}
		trees, err := p.ParseSentence(strings.Join(flags.Args(), " "))
		if err != nil {
			return err
		}
		c.printTrees(trees)
		return nil
	}

	data, err := c.readFile(*batchFlag)
	if err != nil {
		return err
	}
	var (
		lines     []string
		sentences [][]string
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		sentences = append(sentences, lex.Tokenize(line))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	c.Log.Info("parsing batch", "sentences", len(sentences), "workers", p.Workers)
	results, err := p.ParseBatch(ctx, sentences)
	if err != nil {
		return err
	}
	for i, trees := range results {
		fmt.Fprintln(c.Stdout, "# "+lines[i])
		c.printTrees(trees)
	}
	return nil
}

func (c *Cmd) printTrees(trees []*featchart.Tree) {
	if len(trees) == 0 {
		fmt.Fprintln(c.Stdout, "(no parse)")
		return
	}
	for _, t := range trees {
		fmt.Fprintln(c.Stdout, t)
	}
}

// storedGrammar loads grammar name and extends its lexicon with every
// stored entry.
func storedGrammar(s store.Storer, name string) (*featchart.Grammar, *lexicon.Lexicon, error) {
	rec, err := s.GetGrammar(name)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("grammar %q: %w", name, store.ErrNotFound)
	}
	g, lex, err := featchart.ParseGrammar(rec.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("grammar %q v%d: %w", name, rec.Version, err)
	}
	entries, err := s.ListEntries("")
	if err != nil {
		return nil, nil, err
	}
	if err := store.AddEntries(lex, entries); err != nil {
		return nil, nil, err
	}
	lex.Compile()
	return g, lex, nil
}
