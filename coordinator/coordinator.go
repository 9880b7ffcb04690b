// Package coordinator decides whether the current Travis job is the one
// that deploys for the whole build, and if it is, waits for every other job
// of the build to finish.
package coordinator

import (
	"context"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/leader"
	"github.com/semantic-release/travis-deploy-once/model/job"
	"github.com/semantic-release/travis-deploy-once/rest/client"
)

// Outcome is the result of a run. Only OutcomeSuccess allows deploying.
type Outcome int

const (
	// OutcomeNotLeader means another job of the build is the leader; there
	// is nothing to do.
	OutcomeNotLeader Outcome = iota
	// OutcomeSuccess means this job is the leader and every job passed.
	OutcomeSuccess
	// OutcomeFailure means this job's tests failed, or this job is the
	// leader and another job failed.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "not-leader"
	}
}

// Options are the inputs of Run.
type Options struct {
	Env    *deployonce.Environment
	Source client.JobSource
	Logger grip.Journaler

	// VersionKey names the job config entry holding the runtime version
	// used for the election. Defaults to node_js.
	VersionKey string
	Wait       WaitOptions
}

// Run checks that the current job runs in the after_success phase of a
// Travis build, elects the build leader and, if the current job is the
// leader, waits for the other jobs of the build.
func Run(ctx context.Context, opts Options) (Outcome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.MakeGrip(grip.GetSender())
	}
	env := opts.Env
	if env == nil {
		return OutcomeFailure, errors.New("no job environment provided")
	}

	if err := env.Validate(); err != nil {
		return OutcomeFailure, err
	}
	if env.TestsFailed() {
		logger.Error("The current job test phase has failed.")
		return OutcomeFailure, nil
	}
	if opts.Source == nil {
		return OutcomeFailure, errors.New("no job source provided")
	}

	jobs, err := opts.Source.GetJobs(ctx, env.BuildID)
	if err != nil {
		return OutcomeFailure, errors.Wrapf(err, "getting jobs of build %d", env.BuildID)
	}
	if len(jobs) == 1 {
		logger.Info("There is only one job for this build.")
		return OutcomeSuccess, nil
	}

	buildLeader := electLeader(jobs, env.LeaderOverride, opts.VersionKey, logger)

	position, err := job.ParsePosition(env.JobNumber)
	if err != nil {
		return OutcomeFailure, errors.Wrap(err, "finding the position of the current job")
	}
	if position != buildLeader {
		logger.Infof("The current job (%s) is not the build leader.", env.JobNumber)
		return OutcomeNotLeader, nil
	}

	w := &Waiter{
		Source:       opts.Source,
		BuildID:      env.BuildID,
		CurrentJobID: env.JobID,
		InitialJobs:  jobs,
		Logger:       logger,
		Options:      opts.Wait,
	}
	ok, err := w.Wait(ctx)
	if err != nil {
		return OutcomeFailure, errors.Wrap(err, "waiting for the other jobs of the build")
	}
	if !ok {
		logger.Error("At least one job has failed for this build.")
		return OutcomeFailure, nil
	}

	logger.Info("All jobs are successful for this build!")
	return OutcomeSuccess, nil
}

// electLeader returns the position of the build leader: the override when
// set, otherwise the job elected from the declared versions. A build where
// no job declares a version is led by its last job.
func electLeader(jobs []job.Job, override int, versionKey string, logger grip.Journaler) int {
	if override > 0 {
		logger.Infof("Using job %d as build leader, as configured.", override)
		return override
	}
	if versionKey == "" {
		versionKey = deployonce.DefaultVersionKey
	}

	specs := make([]job.Specifier, 0, len(jobs))
	declared := false
	for i := range jobs {
		spec := jobs[i].Specifier(versionKey)
		declared = declared || spec.IsSet()
		specs = append(specs, spec)
	}

	if !declared {
		logger.Infof("No job declares a '%s' version, using the last job (%d) as build leader.", versionKey, len(jobs))
		return len(jobs)
	}

	grip.Debug(message.Fields{
		"message":     "electing build leader",
		"version_key": versionKey,
		"versions":    leader.String(specs),
	})

	return leader.Elect(specs, logger)
}
