package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	ape "github.com/ape-lang/ape"
)

type runCmd struct {
	timeoutMs int
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "execute a script file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute the given source file.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.timeoutMs, "timeout", -1, "execution timeout in milliseconds, negative disables it")
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		return fail("file not provided")
	}

	ctx := ape.New()
	if r.timeoutMs >= 0 {
		ctx.SetTimeout(time.Duration(r.timeoutMs) * time.Millisecond)
	}

	_, err := ctx.ExecuteFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if errs := ctx.Errors(); errs.HasErrors() {
		for i := 0; i < errs.Count(); i++ {
			fmt.Fprintln(os.Stderr, errs.At(i))
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
