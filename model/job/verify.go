package job

import (
	"fmt"

	"github.com/pkg/errors"
)

// FailedError signals that a job of the build failed without being allowed
// to. It is not retryable.
type FailedError struct {
	Number string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("job %s failed", e.Number)
}

// IsFailed reports whether err, or its cause, is a FailedError, and
// returns it.
func IsFailed(err error) (*FailedError, bool) {
	if err == nil {
		return nil, false
	}
	failed, ok := errors.Cause(err).(*FailedError)
	return failed, ok
}

// Verify inspects the jobs of a build, excluding the current one, and
// returns the numbers of those still pending, in order. The first job found
// in a failure state without allow failure aborts the scan with a
// *FailedError. Unknown states count as pending.
func Verify(jobs []Job) ([]string, error) {
	pending := []string{}
	for _, j := range jobs {
		if j.IsSatisfied() {
			continue
		}
		if j.State.IsFailure() {
			return nil, &FailedError{Number: j.Number}
		}
		pending = append(pending, j.Number)
	}
	return pending, nil
}
