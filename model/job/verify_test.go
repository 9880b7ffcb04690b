package job

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	t.Run("EmptyWhenEveryJobPassedOrMayFail", func(t *testing.T) {
		pending, err := Verify([]Job{
			{Number: "1.1", State: Passed},
			{Number: "1.2", State: Passed},
			{Number: "1.3", State: Errored, AllowFailure: true},
		})
		require.NoError(t, err)
		assert.Empty(t, pending)
		assert.NotNil(t, pending)
	})
	t.Run("ReturnsCreatedAndStartedJobsInOrder", func(t *testing.T) {
		pending, err := Verify([]Job{
			{Number: "1.1", State: Created},
			{Number: "1.2", State: Passed},
			{Number: "1.3", State: Started},
			{Number: "1.4", State: Errored, AllowFailure: true},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1.1", "1.3"}, pending)
	})
	t.Run("UnknownStatesArePending", func(t *testing.T) {
		pending, err := Verify([]Job{
			{Number: "1.1", State: Created},
			{Number: "1.2", State: Passed},
			{Number: "1.3", State: "invalid"},
			{Number: "1.4", State: Errored, AllowFailure: true},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1.1", "1.3"}, pending)
	})
	t.Run("AllowFailureSatisfiesAnyState", func(t *testing.T) {
		pending, err := Verify([]Job{
			{Number: "1.1", State: Started, AllowFailure: true},
			{Number: "1.2", State: Created, AllowFailure: true},
		})
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
	t.Run("ErroredJobAborts", func(t *testing.T) {
		pending, err := Verify([]Job{
			{Number: "1.1", State: Passed},
			{Number: "1.2", State: Errored},
			{Number: "1.3", State: Errored, AllowFailure: true},
		})
		require.Error(t, err)
		assert.Nil(t, pending)
		failed, ok := IsFailed(err)
		require.True(t, ok)
		assert.Equal(t, "1.2", failed.Number)
	})
	t.Run("FailedJobAborts", func(t *testing.T) {
		_, err := Verify([]Job{
			{Number: "1.1", State: Passed},
			{Number: "1.2", State: Failed, AllowFailure: true},
			{Number: "1.3", State: Failed},
		})
		failed, ok := IsFailed(err)
		require.True(t, ok)
		assert.Equal(t, "1.3", failed.Number)
		assert.Equal(t, "job 1.3 failed", err.Error())
	})
	t.Run("FirstFailureWinsOverLaterPending", func(t *testing.T) {
		_, err := Verify([]Job{
			{Number: "1.1", State: Created},
			{Number: "1.2", State: Failed},
			{Number: "1.3", State: Errored},
		})
		failed, ok := IsFailed(err)
		require.True(t, ok)
		assert.Equal(t, "1.2", failed.Number)
	})
}

func TestIsFailed(t *testing.T) {
	_, ok := IsFailed(nil)
	assert.False(t, ok)

	_, ok = IsFailed(errors.New("network"))
	assert.False(t, ok)

	failed, ok := IsFailed(errors.Wrap(&FailedError{Number: "7.2"}, "attempt 3"))
	require.True(t, ok)
	assert.Equal(t, "7.2", failed.Number)
}
