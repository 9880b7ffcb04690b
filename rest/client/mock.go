package client

import (
	"context"
	"sync"

	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
	"github.com/semantic-release/travis-deploy-once/model/job"
)

// MockResponse is one scripted answer of the Mock.
type MockResponse struct {
	Jobs []job.Job
	Err  error
}

// Mock is a Communicator for testing that replays scripted responses in
// order, repeating the last one once the script is exhausted.
type Mock struct {
	Responses []MockResponse
	URL       string

	// data collected by mocked methods
	BuildIDs []int64
	Retry    utility.RetryOptions
	Closed   bool

	mu sync.Mutex
}

// NewMock returns a Mock answering with the given job lists in turn.
func NewMock(jobLists ...[]job.Job) *Mock {
	m := &Mock{URL: "https://travis.example.com/"}
	for _, jobs := range jobLists {
		m.Responses = append(m.Responses, MockResponse{Jobs: jobs})
	}
	return m
}

// GetJobs returns the next scripted response.
func (m *Mock) GetJobs(ctx context.Context, buildID int64) ([]job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	m.BuildIDs = append(m.BuildIDs, buildID)
	if len(m.Responses) == 0 {
		return nil, errors.New("no mock response configured")
	}

	idx := len(m.BuildIDs) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	resp := m.Responses[idx]

	return resp.Jobs, resp.Err
}

// Calls returns the number of GetJobs calls made so far.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.BuildIDs)
}

func (m *Mock) SetRetryOptions(opts utility.RetryOptions) {
	m.Retry = opts
}

func (m *Mock) ServerURL(context.Context) (string, error) {
	return m.URL, nil
}

func (m *Mock) Close() {
	m.Closed = true
}
