package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/model/job"
	"github.com/semantic-release/travis-deploy-once/rest/client"
)

// WaitOptions is the backoff policy between polling attempts. Attempts are
// unbounded; cancel the context to stop waiting.
type WaitOptions struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Factor   float64
}

// DefaultWaitOptions starts polling again after 3 seconds, backing off up
// to 15 seconds between attempts.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		MinDelay: deployonce.PollMinDelay,
		MaxDelay: deployonce.PollMaxDelay,
		Factor:   deployonce.PollFactor,
	}
}

func (o WaitOptions) backoff() *backoff.Backoff {
	defaults := DefaultWaitOptions()
	if o.MinDelay <= 0 {
		o.MinDelay = defaults.MinDelay
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	if o.Factor < 1 {
		o.Factor = defaults.Factor
	}
	return &backoff.Backoff{
		Min:    o.MinDelay,
		Max:    o.MaxDelay,
		Factor: o.Factor,
	}
}

type waitState int

const (
	statePolling waitState = iota
	stateSuccess
	stateFailure
)

// Waiter polls the jobs of a build until every other job has passed or one
// of them has failed.
type Waiter struct {
	Source       client.JobSource
	BuildID      int64
	CurrentJobID int64
	// InitialJobs are checked on the first attempt instead of fetching the
	// jobs again.
	InitialJobs []job.Job
	Logger      grip.Journaler
	Options     WaitOptions
}

type attemptResult struct {
	state    waitState
	jobCount int
	failed   string
	err      error
}

// Wait returns true once all the other jobs of the build are successful
// and false as soon as one of them fails. It only returns an error when the
// context is canceled or Travis rejects the credentials.
func (w *Waiter) Wait(ctx context.Context) (bool, error) {
	b := w.Options.backoff()
	timer := time.NewTimer(0)
	defer timer.Stop()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return false, errors.Wrapf(ctx.Err(), "waiting for jobs after %d attempts", attempt)
		case <-timer.C:
			attempt++
			res := w.attempt(ctx, attempt)
			if res.err != nil {
				return false, res.err
			}

			switch res.state {
			case stateSuccess:
				w.Logger.Infof("Success at attempt %d. All %d jobs passed.", attempt, res.jobCount)
				return true, nil
			case stateFailure:
				w.Logger.Errorf("Aborting at attempt %d. Job %s failed.", attempt, res.failed)
				return false, nil
			}

			timer.Reset(b.Duration())
		}
	}
}

func (w *Waiter) attempt(ctx context.Context, attempt int) attemptResult {
	jobs := w.InitialJobs
	if attempt > 1 || jobs == nil {
		var err error
		jobs, err = w.Source.GetJobs(ctx, w.BuildID)
		if err != nil {
			if errors.Cause(err) == client.ErrNotAuthenticated {
				return attemptResult{err: err}
			}
			if ctx.Err() != nil {
				return attemptResult{err: errors.Wrapf(ctx.Err(), "waiting for jobs after %d attempts", attempt)}
			}
			w.Logger.Infof("Failed attempt %d, because Travis API returned the error: %s.", attempt, err)
			return attemptResult{state: statePolling}
		}
	}

	others := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.ID != w.CurrentJobID {
			others = append(others, j)
		}
	}

	pending, err := job.Verify(others)
	if failed, ok := job.IsFailed(err); ok {
		return attemptResult{state: stateFailure, failed: failed.Number}
	}
	if len(pending) > 0 {
		w.Logger.Infof("Aborting attempt %d, because of pending job(s): %s.", attempt, strings.Join(pending, ", "))
		return attemptResult{state: statePolling}
	}

	return attemptResult{state: stateSuccess, jobCount: len(jobs)}
}
