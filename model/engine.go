package model

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Engine identifies one of the LaTeX executables a test case is compiled
// with.
type Engine string

const (
	PDFLaTeX = Engine("pdflatex")
	XeLaTeX  = Engine("xelatex")
	LuaLaTeX = Engine("lualatex")
)

var ErrUnknownEngine = errors.New("unknown engine")

// Engines lists the supported engines.
func Engines() []Engine {
	return []Engine{PDFLaTeX, XeLaTeX, LuaLaTeX}
}

func ParseEngine(s string) (Engine, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, e := range Engines() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

// Executable returns the name of the program to look up on PATH.
func (e Engine) Executable() string {
	return string(e)
}

func (e Engine) String() string {
	return string(e)
}

func (e Engine) Valid() bool {
	for _, v := range Engines() {
		if e == v {
			return true
		}
	}
	return false
}

func (e *Engine) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := ParseEngine(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*e = v
	return nil
}
