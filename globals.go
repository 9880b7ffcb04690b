package deployonce

import (
	"time"
)

const (
	ClientVersion = "2025-10-17"

	// LoggerName prefixes every line the tool writes.
	LoggerName = "Travis Deploy Once"

	DefaultClientConfig = ".travis-deploy-once.yml"
	DefaultVersionKey   = "node_js"

	JobCreated = "created"
	JobStarted = "started"
	JobPassed  = "passed"
	JobFailed  = "failed"
	JobErrored = "errored"

	// TestResultPassed and TestResultFailed are the only values Travis sets
	// for TRAVIS_TEST_RESULT once the script phase of a job has completed.
	TestResultPassed = "0"
	TestResultFailed = "1"

	// LatestStableAlias selects the latest stable runtime in a Travis matrix.
	LatestStableAlias = "node"
	// LTSAlias selects the latest long-term-support runtime. Aliases of the
	// form "lts/*" or "lts/<codename>" are treated as equivalent.
	LTSAlias = "lts"
)

// Environment variables set by Travis for every job.
const (
	TravisEnv           = "TRAVIS"
	TravisBuildIDEnv    = "TRAVIS_BUILD_ID"
	TravisJobIDEnv      = "TRAVIS_JOB_ID"
	TravisJobNumberEnv  = "TRAVIS_JOB_NUMBER"
	TravisTestResultEnv = "TRAVIS_TEST_RESULT"
	TravisRepoSlugEnv   = "TRAVIS_REPO_SLUG"

	GithubTokenEnv   = "GH_TOKEN"
	BuildLeaderIDEnv = "BUILD_LEADER_ID"
)

const (
	TravisOrgURL = "https://api.travis-ci.org/"
	TravisProURL = "https://api.travis-ci.com/"

	TravisAcceptHeader = "application/vnd.travis-ci.2+json"
	TravisUserAgent    = "Travis"
)

// Retry policy for fetching the jobs of a build, and for polling the jobs
// once this job has been elected leader.
const (
	JobsFetchMaxAttempts = 6
	JobsFetchMinDelay    = time.Second

	PollMinDelay = 3 * time.Second
	PollMaxDelay = 15 * time.Second
	PollFactor   = 1.5
)
