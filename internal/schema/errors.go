package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingReference = errors.New("missing reference")
	ErrCycleDetected    = errors.New("reference cycle detected")
)

// MissingReferenceError is returned when a $ref has no entry in the Index.
type MissingReferenceError struct {
	Ref   string
	Chain []string
}

func (e *MissingReferenceError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("missing reference %q", e.Ref)
	}
	return fmt.Sprintf("missing reference %q (at %s)", e.Ref, strings.Join(e.Chain, " > "))
}

func (e *MissingReferenceError) Unwrap() error { return ErrMissingReference }

// CycleDetectedError is returned when a reference is revisited while it is still
// being expanded.
type CycleDetectedError struct {
	Ref   string
	Stack []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("reference cycle at %q: %s", e.Ref, strings.Join(append(e.Stack, e.Ref), " -> "))
}

func (e *CycleDetectedError) Unwrap() error { return ErrCycleDetected }
