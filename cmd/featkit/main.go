// Command featkit unifies, formats and parses with feature structures.
//
//	featkit [flags] <command> [args]
//
// Run featkit -help for the list of commands, and featkit <command> -help
// for the flags of one command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
)

func main() {
	c := new(Cmd)
	err := c.Main(context.Background(), os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, "featkit:", err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "featkit:", err)
		os.Exit(1)
	}
}
