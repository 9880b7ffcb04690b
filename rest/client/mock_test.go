package client

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/semantic-release/travis-deploy-once/model/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockReplaysResponses(t *testing.T) {
	assert.Implements(t, (*Communicator)(nil), &Mock{})

	ctx := context.Background()
	first := []job.Job{{ID: 1, Number: "1.1", State: job.Started}}
	second := []job.Job{{ID: 1, Number: "1.1", State: job.Passed}}
	m := NewMock(first, second)
	m.Responses = append(m.Responses, MockResponse{Err: errors.New("boom")})

	jobs, err := m.GetJobs(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first, jobs)

	jobs, err = m.GetJobs(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, second, jobs)

	for i := 0; i < 2; i++ {
		_, err = m.GetJobs(ctx, 7)
		assert.EqualError(t, err, "boom")
	}
	assert.Equal(t, 4, m.Calls())
	assert.Equal(t, []int64{7, 7, 7, 7}, m.BuildIDs)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.GetJobs(cctx, 7)
	assert.Error(t, err)
	assert.Equal(t, 4, m.Calls())
}

func TestMockWithoutResponses(t *testing.T) {
	_, err := NewMock().GetJobs(context.Background(), 1)
	assert.Error(t, err)
}
