package runner

import (
	"errors"
	"fmt"

	"github.com/adnsv/tensorcheck/model"
)

type Kind int

const (
	EnvironmentFailure = Kind(iota + 1)
	CompilationFailure
	ArtifactMissing
	DeliveryFailure
)

var (
	ErrEnvironment     = errors.New("environment failure")
	ErrCompilation     = errors.New("compilation failure")
	ErrArtifactMissing = errors.New("artifact missing")
	ErrDelivery        = errors.New("delivery failure")
)

func (k Kind) String() string {
	switch k {
	case EnvironmentFailure:
		return "environment failure"
	case CompilationFailure:
		return "compilation failure"
	case ArtifactMissing:
		return "artifact missing"
	case DeliveryFailure:
		return "delivery failure"
	default:
		return "<invalid>"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case EnvironmentFailure:
		return ErrEnvironment
	case CompilationFailure:
		return ErrCompilation
	case ArtifactMissing:
		return ErrArtifactMissing
	case DeliveryFailure:
		return ErrDelivery
	default:
		return nil
	}
}

// Error reports a failed test case. It matches the sentinel of its Kind with
// errors.Is and unwraps to the underlying cause.
type Error struct {
	Kind   Kind
	Case   string
	Engine model.Engine
	Output []byte // captured engine output, if any
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: case %s (%s): %v", e.Kind, e.Case, e.Engine, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func caseError(k Kind, tc *model.TestCase, output []byte, err error) *Error {
	return &Error{Kind: k, Case: tc.Name, Engine: tc.Engine, Output: output, Err: err}
}
