package calculator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInsufficientHistory marks a computation that needs more observations
// than the input carries. Callers report the indicator as unknown rather
// than padding the input.
var ErrInsufficientHistory = errors.New("insufficient history")

// AlignmentError reports that the named series could not be aligned on a
// common date range, so the computation that needed them never ran.
type AlignmentError struct {
	Series []string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("no common valid date range for series: %s", strings.Join(e.Series, ", "))
}
