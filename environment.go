package deployonce

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotRunningInCI     = errors.New("not running on Travis")
	ErrCredentialMissing  = errors.New("GitHub authentication missing")
	ErrNotInPostTestPhase = errors.New("not running in Travis after_success hook")
)

// Environment is the context of the current Travis job, as exposed to the
// job through environment variables.
type Environment struct {
	CI          bool
	GithubToken string
	RepoSlug    string
	BuildID     int64
	JobID       int64
	JobNumber   string
	TestResult  string

	// LeaderOverride, when positive, is the position of the job that must
	// act as the build leader, bypassing the election.
	LeaderOverride int
}

// NewEnvironment reads the Travis job context from the process
// environment.
func NewEnvironment() (*Environment, error) {
	return EnvironmentFrom(os.Getenv)
}

// EnvironmentFrom reads the Travis job context using the given lookup
// function. Missing numeric values are left unset; malformed ones are
// reported.
func EnvironmentFrom(getenv func(string) string) (*Environment, error) {
	env := &Environment{
		CI:          getenv(TravisEnv) == "true",
		GithubToken: getenv(GithubTokenEnv),
		RepoSlug:    getenv(TravisRepoSlugEnv),
		JobNumber:   getenv(TravisJobNumberEnv),
		TestResult:  getenv(TravisTestResultEnv),
	}

	var err error
	if env.BuildID, err = parseID(getenv, TravisBuildIDEnv); err != nil {
		return nil, err
	}
	if env.JobID, err = parseID(getenv, TravisJobIDEnv); err != nil {
		return nil, err
	}
	if raw := strings.TrimSpace(getenv(BuildLeaderIDEnv)); raw != "" {
		if env.LeaderOverride, err = strconv.Atoi(raw); err != nil {
			return nil, errors.Wrapf(err, "parsing %s '%s'", BuildLeaderIDEnv, raw)
		}
	}

	return env, nil
}

func parseID(getenv func(string) string, key string) (int64, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s '%s'", key, raw)
	}
	return id, nil
}

// Validate checks, in order, that the job runs on Travis, that a GitHub
// token is available and that the test phase of the job has completed.
func (e *Environment) Validate() error {
	if !e.CI {
		return errors.WithStack(ErrNotRunningInCI)
	}
	if e.GithubToken == "" {
		return errors.WithStack(ErrCredentialMissing)
	}
	if !e.TestPhaseCompleted() {
		return errors.Wrapf(ErrNotInPostTestPhase, "%s is '%s'", TravisTestResultEnv, e.TestResult)
	}
	return nil
}

// TestPhaseCompleted reports whether Travis already knows the outcome of
// the script phase of the current job.
func (e *Environment) TestPhaseCompleted() bool {
	return e.TestResult == TestResultPassed || e.TestResult == TestResultFailed
}

// TestsFailed reports whether the script phase of the current job failed.
func (e *Environment) TestsFailed() bool {
	return e.TestResult == TestResultFailed
}
