package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/kittclouds/gofeat/pkg/featstruct"
)

func (c *Cmd) unify(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("unify", flag.ContinueOnError)
	traceFlag := flags.Bool("trace", c.Config.Trace, "log each merge step")
	shortFlag := flags.Bool("short", false, "print the result on one line")
	help := `Unify unifies two feature structures given in bracketed notation
and displays both inputs, the result (or FAILED) and any variable
bindings made.

	featkit unify '[a=?x, b=?x]' '[a=1]'`
	if err := c.parseFlags(flags, args, help, "unify [-trace] [-short] fs1 fs2"); err != nil {
		return err
	}
	a, b, err := twoStructs(flags)
	if err != nil {
		return err
	}

	u := featstruct.Unifier{Logger: c.tracer(*traceFlag)}
	bindings := new(featstruct.Bindings)
	if !*shortFlag {
		_, err := u.Display(c.Stdout, a, b, bindings)
		return err
	}
	result, err := u.Unify(a, b, bindings)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(c.Stdout, "(FAILED)")
		return nil
	}
	fmt.Fprintln(c.Stdout, result)
	if bindings.Len() > 0 {
		fmt.Fprintln(c.Stdout, bindings)
	}
	return nil
}

func (c *Cmd) subsumes(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("subsumes", flag.ContinueOnError)
	help := `Subsumes prints true when fs1 subsumes fs2, that is when fs2
carries all the information of fs1.`
	if err := c.parseFlags(flags, args, help, "subsumes fs1 fs2"); err != nil {
		return err
	}
	a, b, err := twoStructs(flags)
	if err != nil {
		return err
	}
	ok, err := a.Subsumes(b)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Stdout, ok)
	return nil
}

func (c *Cmd) fvm(ctx context.Context, args ...string) error {
	flags := flag.NewFlagSet("fvm", flag.ContinueOnError)
	help := `Fvm prints feature structures as feature-value matrices.`
	if err := c.parseFlags(flags, args, help, "fvm fs..."); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return usagef("fvm needs at least one structure")
	}
	for i, arg := range flags.Args() {
		fs, err := featstruct.Parse(arg)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(c.Stdout)
		}
		fmt.Fprintln(c.Stdout, fs.Matrix())
	}
	return nil
}

func twoStructs(flags *flag.FlagSet) (*featstruct.Struct, *featstruct.Struct, error) {
	if flags.NArg() != 2 {
		flags.Usage()
		return nil, nil, usagef("%s takes two structures, got %d", flags.Name(), flags.NArg())
	}
	a, err := featstruct.Parse(flags.Arg(0))
	if err != nil {
		return nil, nil, err
	}
	b, err := featstruct.Parse(flags.Arg(1))
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
