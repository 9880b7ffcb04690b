package client

import (
	"context"

	"github.com/evergreen-ci/utility"
	"github.com/semantic-release/travis-deploy-once/model/job"
)

// JobSource lists the jobs of a build with their current state.
type JobSource interface {
	// GetJobs returns the jobs of the build in declaration order. It
	// returns an error whose cause is ErrNotAuthenticated when the
	// credentials are not known to Travis.
	GetJobs(ctx context.Context, buildID int64) ([]job.Job, error)
}

// Communicator is a JobSource backed by the Travis API.
type Communicator interface {
	JobSource

	// SetRetryOptions sets the policy used to retry failed requests.
	SetRetryOptions(utility.RetryOptions)
	// ServerURL returns the API endpoint the communicator talks to,
	// resolving it if needed.
	ServerURL(context.Context) (string, error)

	// Close releases the resources used by the communicator.
	Close()
}
