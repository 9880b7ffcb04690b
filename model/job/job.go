package job

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
)

// State is the status Travis reports for a job. Values outside of the
// known set are kept verbatim.
type State string

const (
	Created State = deployonce.JobCreated
	Started State = deployonce.JobStarted
	Passed  State = deployonce.JobPassed
	Failed  State = deployonce.JobFailed
	Errored State = deployonce.JobErrored
)

// IsFailure reports whether the state is a definitive failure.
func (s State) IsFailure() bool {
	return s == Failed || s == Errored
}

// Job is one parallel unit of a Travis build.
type Job struct {
	ID           int64                `json:"id"`
	Number       string               `json:"number"`
	State        State                `json:"state"`
	AllowFailure bool                 `json:"allow_failure"`
	Config       map[string]Specifier `json:"config,omitempty"`
}

// Position returns the 1-based position of the job in its build, parsed
// from the ".N" suffix of its number.
func (j *Job) Position() (int, error) {
	return ParsePosition(j.Number)
}

// Specifier returns the version the job declares under key, or an empty
// specifier when it declares none.
func (j *Job) Specifier(key string) Specifier {
	if j.Config == nil {
		return ""
	}
	return j.Config[key]
}

// IsSatisfied reports whether the job no longer blocks the build: it passed
// or is allowed to fail.
func (j *Job) IsSatisfied() bool {
	return j.AllowFailure || j.State == Passed
}

// ParsePosition extracts the position from a job number such as "123.4".
func ParsePosition(number string) (int, error) {
	idx := strings.LastIndex(number, ".")
	if idx < 0 || idx == len(number)-1 {
		return 0, errors.Errorf("job number '%s' has no position suffix", number)
	}
	pos, err := strconv.Atoi(number[idx+1:])
	if err != nil {
		return 0, errors.Wrapf(err, "parsing position of job number '%s'", number)
	}
	if pos < 1 {
		return 0, errors.Errorf("job number '%s' has invalid position %d", number, pos)
	}
	return pos, nil
}

// Specifier is the runtime version a job declares: an exact version, a
// semver range, or an alias such as "node" or "lts/*". The empty
// specifier means the job declares none.
type Specifier string

// IsSet reports whether the job declared a version.
func (s Specifier) IsSet() bool { return s != "" }

func (s Specifier) String() string { return string(s) }

// UnmarshalJSON accepts strings and numbers, keeping the literal text of
// numbers so that 0.10 is not read as 0.1. Arrays decode to their first
// element and null to the empty specifier.
func (s *Specifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return errors.Wrap(err, "decoding version specifier")
		}
		*s = Specifier(str)
	case '[':
		var list []Specifier
		if err := json.Unmarshal(data, &list); err != nil {
			return errors.Wrap(err, "decoding version specifier list")
		}
		*s = ""
		if len(list) > 0 {
			*s = list[0]
		}
	case '{', 't', 'f':
		// Nested config sections and flags are not versions.
		*s = ""
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return errors.Wrap(err, "decoding version specifier")
		}
		*s = Specifier(num.String())
	}
	return nil
}
