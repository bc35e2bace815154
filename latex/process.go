package latex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("executable not found")
	ErrMissingOutput = errors.New("missing PDF output")
)

// Result describes a successful engine run.
type Result struct {
	PDF      string
	Output   []byte
	Duration time.Duration
}

// BuildError is returned when the engine fails to start, exits non-zero, or
// is interrupted through its context.
type BuildError struct {
	Exe    string
	TeX    string
	Output []byte
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Exe, filepath.Base(e.TeX), e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Tail returns the last n lines of the captured engine output.
func (e *BuildError) Tail(n int) string {
	return Tail(e.Output, n)
}

// MissingOutputError is returned when the engine exits cleanly without
// producing a PDF. It matches ErrMissingOutput.
type MissingOutputError struct {
	Exe    string
	PDF    string
	Output []byte
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Exe, ErrMissingOutput, e.PDF)
}

func (e *MissingOutputError) Unwrap() error { return ErrMissingOutput }

func Tail(out []byte, n int) string {
	s := strings.TrimRight(string(out), "\r\n")
	if s == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Lookup resolves exe on PATH.
func Lookup(exe string) (string, error) {
	fn, err := exec.LookPath(exe)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, exe, err)
	}
	return fn, nil
}

// BatchArgs returns the engine arguments for a non-interactive compile.
func BatchArgs(texFN string) []string {
	return []string{"-interaction=nonstopmode", texFN}
}

// PDFName returns the file the engine is expected to produce for texFN.
func PDFName(workDIR, texFN string) string {
	b := filepath.Base(texFN)
	return filepath.Join(workDIR, strings.TrimSuffix(b, filepath.Ext(b))+".pdf")
}

// Build compiles texFN with exe inside workDIR. The engine output is
// captured and never written to the console.
func Build(ctx context.Context, exe, workDIR, texFN string) (*Result, error) {
	pdfFN := PDFName(workDIR, texFN)

	out := &bytes.Buffer{}
	x := exec.CommandContext(ctx, exe, BatchArgs(texFN)...)
	x.Stdout = out
	x.Stderr = out
	x.Dir = workDIR

	start := time.Now()
	err := x.Run()
	elapsed := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &BuildError{Exe: exe, TeX: texFN, Output: out.Bytes(), Err: err}
	}

	_, err = os.Stat(pdfFN)
	if err != nil {
		return nil, &MissingOutputError{Exe: exe, PDF: pdfFN, Output: out.Bytes()}
	}

	return &Result{PDF: pdfFN, Output: out.Bytes(), Duration: elapsed}, nil
}
