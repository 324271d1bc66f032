package governor

import (
	"fmt"
	"strings"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
)

// AllFailedError aggregates the ordered attempt history of an execution
// in which every route was exhausted or skipped.
type AllFailedError struct {
	Attempts []Attempt
}

// Error enumerates each attempt as "identity: error" in order.
func (e *AllFailedError) Error() string {
	var b strings.Builder
	b.WriteString("governor: all providers failed")
	for i, attempt := range e.Attempts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", attempt.Route.Identity, attempt.Err)
	}
	return b.String()
}

// Unwrap exposes the ErrAllProvidersFailed sentinel and every attempt
// error, so errors.Is can match both the aggregate and any cause.
func (e *AllFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, gverrors.ErrAllProvidersFailed)
	for _, attempt := range e.Attempts {
		if attempt.Err != nil {
			errs = append(errs, attempt.Err)
		}
	}
	return errs
}
