package model

import (
	"errors"
	"fmt"
)

// TestCase is one point in the configuration space: an engine plus the two
// document flags. Name is used as the stem for both the scratch .tex file and
// the delivered .pdf.
type TestCase struct {
	Name        string `yaml:"name"`
	Engine      Engine `yaml:"engine"`
	UnicodeMath bool   `yaml:"unicode-math"`
	FlexPos     bool   `yaml:"flexpos"`
}

func (tc *TestCase) TeXName() string { return tc.Name + ".tex" }
func (tc *TestCase) PDFName() string { return tc.Name + ".pdf" }

// Table is an ordered set of test cases, processed in slice order.
type Table []*TestCase

var (
	ErrEmptyTable    = errors.New("no test cases")
	ErrDuplicateCase = errors.New("duplicate test case")
	ErrInvalidName   = errors.New("invalid test case name")
	ErrUnknownCase   = errors.New("unknown test case")
)

// DefaultTable returns the built-in cases.
func DefaultTable() Table {
	return Table{
		{Name: "p", Engine: PDFLaTeX},
		{Name: "x", Engine: XeLaTeX},
		{Name: "xu", Engine: XeLaTeX, UnicodeMath: true},
		{Name: "l", Engine: LuaLaTeX},
		{Name: "lu", Engine: LuaLaTeX, UnicodeMath: true},
		{Name: "luf", Engine: LuaLaTeX, UnicodeMath: true, FlexPos: true},
	}
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	seen := map[string]struct{}{}
	for i, tc := range t {
		if tc == nil {
			return fmt.Errorf("case #%d: %w", i+1, ErrInvalidName)
		}
		if !validName(tc.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidName, tc.Name)
		}
		if _, ok := seen[tc.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCase, tc.Name)
		}
		seen[tc.Name] = struct{}{}
		if !tc.Engine.Valid() {
			return fmt.Errorf("case %s: %w: %q", tc.Name, ErrUnknownEngine, tc.Engine)
		}
	}
	return nil
}

func (t Table) Lookup(name string) *TestCase {
	for _, tc := range t {
		if tc.Name == name {
			return tc
		}
	}
	return nil
}

// Select returns the named cases in table order. With no names, the whole
// table is returned.
func (t Table) Select(names ...string) (Table, error) {
	if len(names) == 0 {
		return t, nil
	}
	want := map[string]struct{}{}
	for _, n := range names {
		if t.Lookup(n) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCase, n)
		}
		want[n] = struct{}{}
	}
	ret := Table{}
	for _, tc := range t {
		if _, ok := want[tc.Name]; ok {
			ret = append(ret, tc)
		}
	}
	return ret, nil
}

// Engines returns the distinct engines used by the table in first-use order.
func (t Table) Engines() []Engine {
	ret := []Engine{}
	seen := map[Engine]struct{}{}
	for _, tc := range t {
		if _, ok := seen[tc.Engine]; ok {
			continue
		}
		seen[tc.Engine] = struct{}{}
		ret = append(ret, tc.Engine)
	}
	return ret
}
