// Package runner drives the generate-compile-collect cycle over a table of
// test cases.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adnsv/tensorcheck/document"
	"github.com/adnsv/tensorcheck/latex"
	"github.com/adnsv/tensorcheck/model"
)

// Compiler runs an engine on a .tex file inside workDIR.
type Compiler interface {
	Build(ctx context.Context, exe, workDIR, texFN string) (*latex.Result, error)
}

type engineCompiler struct{}

func (engineCompiler) Build(ctx context.Context, exe, workDIR, texFN string) (*latex.Result, error) {
	return latex.Build(ctx, exe, workDIR, texFN)
}

type Runner struct {
	Cases       model.Table
	DestDIR     string // defaults to the current directory
	ScratchRoot string // defaults to os.TempDir()
	KeepScratch bool
	Timeout     time.Duration // per case, 0 for none
	Verbose     bool

	Compiler Compiler
	LookPath func(exe string) (string, error)
}

func (r *Runner) cases() model.Table {
	if r.Cases == nil {
		return model.DefaultTable()
	}
	return r.Cases
}

func (r *Runner) lookPath(exe string) (string, error) {
	if r.LookPath != nil {
		return r.LookPath(exe)
	}
	return latex.Lookup(exe)
}

func (r *Runner) compiler() Compiler {
	if r.Compiler != nil {
		return r.Compiler
	}
	return engineCompiler{}
}

func (r *Runner) destDIR() (string, error) {
	dir := r.DestDIR
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("output directory: %w", err)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("output directory: %s is not a directory", dir)
	}
	return dir, nil
}

// CheckEnvironment looks up every engine the table uses.
func (r *Runner) CheckEnvironment() error {
	tbl := r.cases()
	for _, e := range tbl.Engines() {
		if _, err := r.lookPath(e.Executable()); err != nil {
			for _, tc := range tbl {
				if tc.Engine == e {
					return caseError(EnvironmentFailure, tc, nil, err)
				}
			}
		}
	}
	return nil
}

// Run processes every test case in table order and stops at the first
// failure. The returned report lists the cases delivered so far.
func (r *Runner) Run(ctx context.Context) (rep *Report, err error) {
	tbl := r.cases()
	if err = tbl.Validate(); err != nil {
		return nil, err
	}

	destDIR, err := r.destDIR()
	if err != nil {
		return nil, err
	}
	rep = &Report{DestDIR: destDIR}

	scratchDIR, err := os.MkdirTemp(r.ScratchRoot, "tensorcheck-*")
	if err != nil {
		return rep, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() {
		if r.KeepScratch {
			log.Printf("keeping scratch directory %s\n", scratchDIR)
			return
		}
		if rmErr := os.RemoveAll(scratchDIR); rmErr != nil {
			log.Printf("[warning] failed to remove %s: %v\n", scratchDIR, rmErr)
			if err == nil {
				err = rmErr
			}
		}
	}()

	for _, tc := range tbl {
		res, err := r.runCase(ctx, tc, scratchDIR, destDIR)
		if err != nil {
			return rep, err
		}
		rep.Cases = append(rep.Cases, *res)
	}
	log.Printf("delivered %d PDF file(s) to %s\n", len(rep.Cases), destDIR)
	return rep, nil
}

func (r *Runner) runCase(ctx context.Context, tc *model.TestCase, scratchDIR, destDIR string) (*CaseResult, error) {
	exe, err := r.lookPath(tc.Engine.Executable())
	if err != nil {
		return nil, caseError(EnvironmentFailure, tc, nil, err)
	}

	texFN, err := document.Write(scratchDIR, tc.Name, document.Options{
		UnicodeMath: tc.UnicodeMath,
		FlexPos:     tc.FlexPos,
	})
	if err != nil {
		return nil, fmt.Errorf("case %s: writing %s: %w", tc.Name, tc.TeXName(), err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	log.Printf("compiling %s with %s\n", tc.TeXName(), tc.Engine)
	res, err := r.compiler().Build(ctx, exe, scratchDIR, texFN)
	if err != nil {
		var be *latex.BuildError
		var me *latex.MissingOutputError
		switch {
		case errors.As(err, &me):
			return nil, caseError(ArtifactMissing, tc, me.Output, err)
		case errors.As(err, &be):
			return nil, caseError(CompilationFailure, tc, be.Output, err)
		default:
			return nil, caseError(CompilationFailure, tc, nil, err)
		}
	}
	if r.Verbose && len(res.Output) > 0 {
		log.Printf("%s output:\n%s\n", tc.Engine, strings.TrimRight(string(res.Output), "\n"))
	}

	pdfFN := res.PDF
	if pdfFN == "" {
		pdfFN = latex.PDFName(scratchDIR, texFN)
	}
	dstFN := filepath.Join(destDIR, tc.PDFName())
	log.Printf("moving %s -> %s\n", filepath.Base(pdfFN), dstFN)
	if err = deliver(pdfFN, dstFN); err != nil {
		return nil, caseError(DeliveryFailure, tc, nil, err)
	}

	return &CaseResult{
		Name:        tc.Name,
		Engine:      tc.Engine,
		UnicodeMath: tc.UnicodeMath,
		FlexPos:     tc.FlexPos,
		PDF:         dstFN,
		Duration:    res.Duration,
	}, nil
}
