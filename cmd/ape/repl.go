package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	ape "github.com/ape-lang/ape"
	"github.com/ape-lang/ape/ascii"
)

type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start an interactive session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive read-eval-print loop.
`
}
func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	runRepl(os.Stdin, os.Stdout)
	return subcommands.ExitSuccess
}

func runRepl(in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "ape repl — type a statement, or 'exit' to quit")

	ctx := ape.New()
	ctx.SetReplMode(true)
	ctx.SetStdoutWrite(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, ">>> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "exit" {
			return
		}
		if line == "" {
			continue
		}

		result, err := ctx.Execute(line)
		if err != nil {
			fmt.Fprintln(out, ascii.Color(ascii.DefaultTheme.Error, "%s", err))
			continue
		}
		if errs := ctx.Errors(); errs.HasErrors() {
			for i := 0; i < errs.Count(); i++ {
				fmt.Fprintln(out, ascii.Color(ascii.DefaultTheme.Error, "%s", errs.At(i)))
			}
			errs.Clear()
			continue
		}
		fmt.Fprintln(out, ascii.Color(ascii.DefaultTheme.Success, "%s", result.ToDisplayString()))
	}
}
