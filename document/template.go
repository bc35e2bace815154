// Package document generates the LaTeX sources compiled by each test case.
package document

import (
	"bytes"
	"path/filepath"
	"text/template"

	filesystem "github.com/adnsv/go-utils/fs"
)

// FlexPosOption is the tensor package option enabled by Options.FlexPos.
const FlexPosOption = "flexpos"

const UnicodeMathDirective = `\usepackage{unicode-math}`

type Options struct {
	UnicodeMath bool
	FlexPos     bool
}

// The $<...>$ delimiters keep template actions clear of TeX braces.
const source = `\documentclass{article}
\usepackage{color}
\usepackage[$<.PackageOptions>$]{tensor}
$<if .UnicodeMath>$` + UnicodeMathDirective + `
$<end>$\newcommand*\bl{%
  \clap{\color\lc\vrule width 2\paperwidth height .01pt depth .01pt}}
\begin{document}
$\tensor{f'}{}$
\def\lc{red}$\tensor{g''}
  {_\alpha\beta\bl^\gamma\delta\bl_\epsilon\zeta\bl^\eta\theta\bl}$
\def\lc{green}$\tensor{h'''}
  {^\alpha\beta\bl_\gamma\delta\bl^\epsilon\zeta\bl_\eta\theta\bl}$
\def\lc{blue}$\tensor{\Bigg|}
  {^\alpha^\beta^\gamma\bl_\delta_\epsilon_\zeta\bl}$
\def\lc{cyan}$\displaystyle\int
  _{\tensor x{^\alpha\bl_\beta\bl}}^{\tensor{y'}{_\gamma\bl^\delta\bl}}$
\end{document}
`

var tmpl = template.Must(template.New("tensor-test").Delims("$<", ">$").Parse(source))

// PackageOptions returns the option list passed to \usepackage[...]{tensor}.
// It is empty when flexPos is off; the brackets are still emitted.
func PackageOptions(flexPos bool) string {
	if flexPos {
		return FlexPosOption
	}
	return ""
}

// Render produces the document text. The result depends only on opts.
func Render(opts Options) string {
	data := struct {
		PackageOptions string
		UnicodeMath    bool
	}{
		PackageOptions: PackageOptions(opts.FlexPos),
		UnicodeMath:    opts.UnicodeMath,
	}

	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		// the template is fixed and the data has no failing accessors
		panic(err)
	}
	return buf.String()
}

// Write renders the document into dir/<name>.tex and returns that path.
func Write(dir, name string, opts Options) (string, error) {
	fn := filepath.Join(dir, name+".tex")
	err := filesystem.WriteFileIfChanged(fn, []byte(Render(opts)))
	if err != nil {
		return "", err
	}
	return fn, nil
}
