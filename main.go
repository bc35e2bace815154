package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/jawher/mow.cli"

	"github.com/adnsv/tensorcheck/latex"
	"github.com/adnsv/tensorcheck/model"
	"github.com/adnsv/tensorcheck/runner"
)

const failureTailLines = 20

func main() {
	cases := []string{}
	outDIR := ""
	casesFN := ""
	scratchRoot := ""
	keep := false
	timeout := ""
	preflight := false
	verbose := false
	list := false

	app := cli.App("tensorcheck", "compile tensor package test documents with pdflatex, xelatex and lualatex")
	app.Version("version", app_version())
	app.Spec = "[-o=<DIR>] [-c=<CASES-FILE>] [--scratch=<DIR>] [--keep] [--timeout=<DURATION>] [--preflight] [-v] [--list] [CASES...]"
	app.StringOptPtr(&outDIR, "o output", "", "directory receiving the generated PDF files (default: current directory)")
	app.StringOptPtr(&casesFN, "c cases", "", "yaml file with test cases, replaces the built-in table")
	app.StringOptPtr(&scratchRoot, "scratch", "", "parent directory for temporary files")
	app.BoolOptPtr(&keep, "keep", false, "do not remove the temporary directory")
	app.StringOptPtr(&timeout, "timeout", "", "per-case compile timeout, e.g. 2m")
	app.BoolOptPtr(&preflight, "preflight", false, "check that all engines are installed before compiling")
	app.BoolOptPtr(&verbose, "v verbose", false, "show engine output for successful builds")
	app.BoolOptPtr(&list, "list", false, "list the selected test cases and exit")
	app.StringsArgPtr(&cases, "CASES", nil, "test cases to run (default: all)")

	app.Action = func() {
		tbl := model.DefaultTable()
		if casesFN != "" {
			var err error
			tbl, err = model.LoadTable(casesFN)
			if err != nil {
				log.Fatal(err)
			}
		}
		tbl, err := tbl.Select(cases...)
		if err != nil {
			log.Fatal(err)
		}

		if list {
			runner.RenderTable(os.Stdout, tbl)
			return
		}

		r := &runner.Runner{
			Cases:       tbl,
			DestDIR:     outDIR,
			ScratchRoot: scratchRoot,
			KeepScratch: keep,
			Verbose:     verbose,
		}
		if timeout != "" {
			r.Timeout, err = time.ParseDuration(timeout)
			if err != nil {
				log.Fatalf("invalid timeout: %v", err)
			}
		}

		if preflight {
			if err = r.CheckEnvironment(); err != nil {
				log.Printf("%v\n", err)
				cli.Exit(1)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		rep, err := r.Run(ctx)
		stop()

		var re *runner.Error
		errors.As(err, &re)
		if rep != nil {
			rep.Render(os.Stdout, re)
		}
		if err != nil {
			reportFailure(err, re)
			cli.Exit(1)
		}
		log.Printf("mission accomplished\n")
	}

	app.Run(os.Args)
}

// reportFailure logs err and, when the engine produced output, the tail of
// it, since engine output is hidden while compiling.
func reportFailure(err error, re *runner.Error) {
	log.Printf("[error] %v\n", err)
	if re == nil || len(re.Output) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "--- last %d lines of %s output for %s ---\n", failureTailLines, re.Engine, re.Case)
	fmt.Fprintln(os.Stderr, latex.Tail(re.Output, failureTailLines))
}
