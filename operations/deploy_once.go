package operations

import (
	"context"
	"io"
	"os"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/coordinator"
	"github.com/semantic-release/travis-deploy-once/rest/client"
	"github.com/semantic-release/travis-deploy-once/thirdparty"
	"github.com/urfave/cli"
)

// DeployOnce runs a deployment script only once in a Travis build matrix:
// in the build leader job, after every other job of the build passed.
func DeployOnce() cli.Command {
	return cli.Command{
		Name:      "travis-deploy-once",
		Usage:     "run a deployment script only once in the Travis test matrix",
		ArgsUsage: "[script]",
		Flags: addConfFlag(
			addVersionKeyFlag(
				addTravisURLFlag(
					addProFlag(
						addBuildLeaderIDFlag(
							addGithubTokenFlag()...)...)...)...)...),
		Before: mergeBeforeFuncs(requireSingleScript, requirePositiveLeaderID),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			code, err := deployOnce(ctx, c, os.Getenv, os.Stdout, os.Stderr)
			if err != nil {
				grip.Error(message.WrapError(err, message.Fields{
					"message": "travis-deploy-once failed",
				}))
			}
			if code != 0 {
				return cli.NewExitError("", code)
			}
			return nil
		},
	}
}

// deployOnceOptions are the command line flags merged over the settings
// file.
type deployOnceOptions struct {
	githubToken   string
	travisURL     string
	pro           *bool
	buildLeaderID int
	versionKey    string
	script        string
}

func newDeployOnceOptions(c *cli.Context) (*deployOnceOptions, error) {
	conf, err := deployonce.NewClientSettings(c.String(confFlagName))
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}

	opts := &deployOnceOptions{
		githubToken:   c.String(githubTokenFlagName),
		travisURL:     c.String(travisURLFlagName),
		buildLeaderID: c.Int(buildLeaderIDFlagName),
		versionKey:    c.String(versionKeyFlagName),
		script:        c.Args().First(),
	}
	if opts.githubToken == "" {
		opts.githubToken = conf.GithubToken
	}
	if opts.travisURL == "" {
		opts.travisURL = conf.TravisURL
	}
	if opts.buildLeaderID == 0 {
		opts.buildLeaderID = conf.BuildLeaderID
	}
	if opts.versionKey == "" {
		opts.versionKey = conf.VersionKey
	}
	if opts.versionKey == "" {
		opts.versionKey = deployonce.DefaultVersionKey
	}
	if c.IsSet(proFlagName) {
		pro := c.Bool(proFlagName)
		opts.pro = &pro
	} else if conf.Pro != nil {
		pro := *conf.Pro
		opts.pro = &pro
	}

	grip.Debug(message.Fields{
		"message":         "resolved options",
		"settings_file":   conf.LoadedFrom,
		"travis_url":      opts.travisURL,
		"pro":             opts.pro,
		"build_leader_id": opts.buildLeaderID,
		"version_key":     opts.versionKey,
		"has_script":      opts.script != "",
	})

	return opts, nil
}

// environment reads the Travis job context, with the options taking
// precedence over the environment variables.
func (o *deployOnceOptions) environment(getenv func(string) string) (*deployonce.Environment, error) {
	env, err := deployonce.EnvironmentFrom(getenv)
	if err != nil {
		return nil, errors.Wrap(err, "reading Travis environment")
	}
	if o.githubToken != "" {
		env.GithubToken = o.githubToken
	}
	if o.buildLeaderID > 0 {
		env.LeaderOverride = o.buildLeaderID
	}
	return env, nil
}

func (o *deployOnceOptions) communicatorOptions(env *deployonce.Environment) client.Options {
	opts := client.Options{
		EnterpriseURL: o.travisURL,
		GithubToken:   env.GithubToken,
	}
	switch {
	case o.pro != nil:
		opts.Pro = *o.pro
	case o.travisURL == "" && env.RepoSlug != "":
		token, slug := env.GithubToken, env.RepoSlug
		opts.ResolvePro = func(ctx context.Context) (bool, error) {
			return thirdparty.IsPrivateRepository(ctx, token, slug)
		}
	}
	return opts
}

func deployOnce(ctx context.Context, c *cli.Context, getenv func(string) string, stdout, stderr io.Writer) (int, error) {
	opts, err := newDeployOnceOptions(c)
	if err != nil {
		return 1, err
	}

	env, err := opts.environment(getenv)
	if err != nil {
		return 1, err
	}

	comm := client.NewCommunicator(opts.communicatorOptions(env))
	defer comm.Close()

	return runDeployOnce(ctx, coordinator.Options{
		Env:        env,
		Source:     comm,
		Logger:     logging.MakeGrip(grip.GetSender()),
		VersionKey: opts.versionKey,
		Wait:       coordinator.DefaultWaitOptions(),
	}, opts.script, shellScriptRunner(stdout, stderr))
}

// runDeployOnce coordinates the build and returns the exit code of the
// process. The script only runs when the outcome is a success, and its exit
// code is then propagated. Without a script the exit code reports the
// outcome; with one, a job that has nothing to deploy exits cleanly.
func runDeployOnce(ctx context.Context, opts coordinator.Options, script string, run scriptRunner) (int, error) {
	outcome, err := coordinator.Run(ctx, opts)
	if err != nil {
		return 1, errors.Wrap(err, "coordinating build jobs")
	}

	grip.Debug(message.Fields{
		"message":    "build coordination finished",
		"outcome":    outcome.String(),
		"has_script": script != "",
	})

	switch {
	case outcome == coordinator.OutcomeSuccess && script != "":
		return run(ctx, script)
	case outcome == coordinator.OutcomeSuccess:
		return 0, nil
	case script == "":
		return 1, nil
	default:
		return 0, nil
	}
}
