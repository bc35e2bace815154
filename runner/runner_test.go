package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnsv/tensorcheck/document"
	"github.com/adnsv/tensorcheck/latex"
	"github.com/adnsv/tensorcheck/model"
)

type buildCall struct {
	exe     string
	workDIR string
	tex     string
	source  string
}

// fakeCompiler stands in for the LaTeX engines. By default it writes a PDF
// whose content identifies the engine and the generated document.
type fakeCompiler struct {
	calls []buildCall
	fail  map[string]error // keyed by tex stem
	noPDF map[string]bool
}

func (f *fakeCompiler) Build(ctx context.Context, exe, workDIR, texFN string) (*latex.Result, error) {
	src, err := os.ReadFile(texFN)
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, buildCall{exe: exe, workDIR: workDIR, tex: texFN, source: string(src)})

	stem := strings.TrimSuffix(filepath.Base(texFN), ".tex")
	if err := f.fail[stem]; err != nil {
		return nil, &latex.BuildError{Exe: exe, TeX: texFN, Output: []byte("! LaTeX Error: boom\n"), Err: err}
	}
	pdfFN := latex.PDFName(workDIR, texFN)
	if f.noPDF[stem] {
		return nil, &latex.MissingOutputError{Exe: exe, PDF: pdfFN, Output: []byte("No pages of output.\n")}
	}
	if err := os.WriteFile(pdfFN, []byte(fmt.Sprintf("%%PDF %s %s", exe, stem)), 0644); err != nil {
		return nil, err
	}
	return &latex.Result{PDF: pdfFN, Duration: time.Millisecond}, nil
}

func fakeLookPath(missing ...string) func(string) (string, error) {
	return func(exe string) (string, error) {
		for _, m := range missing {
			if m == exe {
				return "", fmt.Errorf("%w: %s", latex.ErrNotFound, exe)
			}
		}
		return "/opt/texlive/bin/" + exe, nil
	}
}

func newRunner(t *testing.T, fc *fakeCompiler) (*Runner, string, string) {
	t.Helper()
	dest := t.TempDir()
	scratch := t.TempDir()
	return &Runner{
		DestDIR:     dest,
		ScratchRoot: scratch,
		Compiler:    fc,
		LookPath:    fakeLookPath(),
	}, dest, scratch
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	ee, err := os.ReadDir(dir)
	require.NoError(t, err)
	ret := []string{}
	for _, e := range ee {
		ret = append(ret, e.Name())
	}
	return ret
}

func TestRunAllCases(t *testing.T) {
	fc := &fakeCompiler{}
	r, dest, scratch := newRunner(t, fc)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"p.pdf", "x.pdf", "xu.pdf", "l.pdf", "lu.pdf", "luf.pdf"}, dirNames(t, dest))
	assert.Empty(t, dirNames(t, scratch), "scratch directory must be removed")

	require.Len(t, rep.Cases, 6)
	assert.Equal(t, dest, rep.DestDIR)
	for i, tc := range model.DefaultTable() {
		assert.Equal(t, tc.Name, rep.Cases[i].Name)
		assert.Equal(t, filepath.Join(dest, tc.PDFName()), rep.Cases[i].PDF)

		call := fc.calls[i]
		assert.Equal(t, "/opt/texlive/bin/"+tc.Engine.Executable(), call.exe)
		assert.Equal(t, filepath.Join(call.workDIR, tc.TeXName()), call.tex)
		assert.Equal(t, document.Render(document.Options{UnicodeMath: tc.UnicodeMath, FlexPos: tc.FlexPos}), call.source)

		buf, err := os.ReadFile(filepath.Join(dest, tc.PDFName()))
		require.NoError(t, err)
		assert.Equal(t, "%PDF "+call.exe+" "+tc.Name, string(buf))
	}

	// one scratch directory shared by the whole run, inside ScratchRoot
	for _, c := range fc.calls {
		assert.Equal(t, fc.calls[0].workDIR, c.workDIR)
		assert.Equal(t, scratch, filepath.Dir(c.workDIR))
	}
}

func TestRunDoesNotChangeDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	r, _, _ := newRunner(t, &fakeCompiler{})
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, after)
}

func TestRunOverwrites(t *testing.T) {
	r, dest, _ := newRunner(t, &fakeCompiler{})
	r.Cases = model.Table{{Name: "p", Engine: model.PDFLaTeX}}

	require.NoError(t, os.WriteFile(filepath.Join(dest, "p.pdf"), []byte("stale"), 0644))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	buf, err := os.ReadFile(filepath.Join(dest, "p.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF /opt/texlive/bin/pdflatex p", string(buf))
	assert.Equal(t, []string{"p.pdf"}, dirNames(t, dest))
}

func TestRunCompilationFailure(t *testing.T) {
	fc := &fakeCompiler{fail: map[string]error{"xu": errors.New("exit status 1")}}
	r, dest, scratch := newRunner(t, fc)

	rep, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompilation)
	assert.NotErrorIs(t, err, ErrEnvironment)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, CompilationFailure, re.Kind)
	assert.Equal(t, "xu", re.Case)
	assert.Equal(t, model.XeLaTeX, re.Engine)
	assert.Contains(t, string(re.Output), "boom")
	assert.Contains(t, err.Error(), "case xu (xelatex)")

	var be *latex.BuildError
	assert.True(t, errors.As(err, &be))

	// aborted at xu: earlier cases delivered, nothing after
	assert.ElementsMatch(t, []string{"p.pdf", "x.pdf"}, dirNames(t, dest))
	assert.Len(t, fc.calls, 3)
	require.NotNil(t, rep)
	assert.Len(t, rep.Cases, 2)
	assert.Empty(t, dirNames(t, scratch), "scratch directory must be removed on failure")
}

func TestRunEnvironmentFailure(t *testing.T) {
	fc := &fakeCompiler{}
	r, dest, scratch := newRunner(t, fc)
	r.LookPath = fakeLookPath("lualatex")

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrEnvironment)
	assert.ErrorIs(t, err, latex.ErrNotFound)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "l", re.Case)
	assert.Equal(t, model.LuaLaTeX, re.Engine)

	// the engine was never invoked for l and no l.pdf exists
	for _, c := range fc.calls {
		assert.NotContains(t, c.exe, "lualatex")
	}
	assert.NoFileExists(t, filepath.Join(dest, "l.pdf"))
	assert.ElementsMatch(t, []string{"p.pdf", "x.pdf", "xu.pdf"}, dirNames(t, dest))
	assert.Empty(t, dirNames(t, scratch))
}

func TestRunArtifactMissing(t *testing.T) {
	fc := &fakeCompiler{noPDF: map[string]bool{"p": true}}
	r, dest, _ := newRunner(t, fc)

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrArtifactMissing)
	assert.ErrorIs(t, err, latex.ErrMissingOutput)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ArtifactMissing, re.Kind)
	assert.Contains(t, string(re.Output), "No pages of output.")
	assert.Empty(t, dirNames(t, dest))
}

func TestRunDeliveryFailure(t *testing.T) {
	fc := &fakeCompiler{}
	r, dest, scratch := newRunner(t, fc)
	r.Cases = model.Table{{Name: "p", Engine: model.PDFLaTeX}}

	// a directory in place of the target cannot be replaced by a file
	require.NoError(t, os.Mkdir(filepath.Join(dest, "p.pdf"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "p.pdf", "keep"), nil, 0644))

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrDelivery)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, DeliveryFailure, re.Kind)
	assert.Equal(t, "p", re.Case)
	assert.Empty(t, dirNames(t, scratch))
	// no temporaries left behind by the copy fallback
	assert.Equal(t, []string{"p.pdf"}, dirNames(t, dest))
}

func TestRunKeepScratch(t *testing.T) {
	r, _, scratch := newRunner(t, &fakeCompiler{})
	r.Cases = model.Table{{Name: "luf", Engine: model.LuaLaTeX, UnicodeMath: true, FlexPos: true}}
	r.KeepScratch = true

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	kept := dirNames(t, scratch)
	require.Len(t, kept, 1)
	assert.True(t, strings.HasPrefix(kept[0], "tensorcheck-"))
	assert.Equal(t, []string{"luf.tex"}, dirNames(t, filepath.Join(scratch, kept[0])))
}

func TestRunInvalidTable(t *testing.T) {
	r, _, _ := newRunner(t, &fakeCompiler{})
	r.Cases = model.Table{{Name: "a", Engine: model.XeLaTeX}, {Name: "a", Engine: model.XeLaTeX}}

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrDuplicateCase)
}

func TestRunBadDestination(t *testing.T) {
	r, dest, _ := newRunner(t, &fakeCompiler{})
	fn := filepath.Join(dest, "file")
	require.NoError(t, os.WriteFile(fn, nil, 0644))

	r.DestDIR = fn
	_, err := r.Run(context.Background())
	assert.Error(t, err)

	r.DestDIR = filepath.Join(dest, "missing")
	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type slowCompiler struct{}

func (slowCompiler) Build(ctx context.Context, exe, workDIR, texFN string) (*latex.Result, error) {
	<-ctx.Done()
	return nil, &latex.BuildError{Exe: exe, TeX: texFN, Err: ctx.Err()}
}

func TestRunTimeout(t *testing.T) {
	r, _, scratch := newRunner(t, nil)
	r.Compiler = slowCompiler{}
	r.Timeout = 20 * time.Millisecond

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrCompilation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, dirNames(t, scratch))
}

func TestCheckEnvironment(t *testing.T) {
	r := &Runner{LookPath: fakeLookPath()}
	assert.NoError(t, r.CheckEnvironment())

	r.LookPath = fakeLookPath("xelatex")
	err := r.CheckEnvironment()
	require.ErrorIs(t, err, ErrEnvironment)
	var re *Error
	require.True(t, errors.As(err, &re))
	// first case using the missing engine
	assert.Equal(t, "x", re.Case)

	r.Cases = model.Table{{Name: "p", Engine: model.PDFLaTeX}}
	assert.NoError(t, r.CheckEnvironment())
}

func TestReportRender(t *testing.T) {
	rep := &Report{DestDIR: "/out", Cases: []CaseResult{
		{Name: "p", Engine: model.PDFLaTeX, PDF: "/out/p.pdf", Duration: 1500 * time.Millisecond},
		{Name: "luf", Engine: model.LuaLaTeX, UnicodeMath: true, FlexPos: true, PDF: "/out/luf.pdf"},
	}}

	buf := &bytes.Buffer{}
	rep.Render(buf, nil)
	s := buf.String()
	assert.Contains(t, s, "/out/p.pdf")
	assert.Contains(t, s, "/out/luf.pdf")
	assert.Contains(t, s, "lualatex")
	assert.Contains(t, strings.ToLower(s), "2 delivered")

	buf.Reset()
	rep.Render(buf, &Error{Kind: CompilationFailure, Case: "xu", Engine: model.XeLaTeX})
	assert.Contains(t, buf.String(), "compilation failure")
	assert.Contains(t, buf.String(), "xu")

	buf.Reset()
	RenderTable(buf, model.DefaultTable())
	for _, tc := range model.DefaultTable() {
		assert.Contains(t, buf.String(), tc.Name)
	}
}
