package operations

import (
	"strings"

	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/urfave/cli"
)

const (
	confFlagName          = "conf"
	githubTokenFlagName   = "github-token"
	buildLeaderIDFlagName = "build-leader-id"
	proFlagName           = "pro"
	travisURLFlagName     = "travis-url"
	versionKeyFlagName    = "version-key"
)

func addGithubTokenFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:   joinFlagNames(githubTokenFlagName, "t"),
		Usage:  "GitHub OAuth token",
		EnvVar: deployonce.GithubTokenEnv,
	})
}

func addBuildLeaderIDFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.IntFlag{
		Name:   joinFlagNames(buildLeaderIDFlagName, "b"),
		Usage:  "define which Travis job will run the script",
		EnvVar: deployonce.BuildLeaderIDEnv,
	})
}

func addProFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.BoolFlag{
		Name:  joinFlagNames(proFlagName, "p"),
		Usage: "use Travis Pro (travis-ci.com); detected from the repository visibility when omitted",
	})
}

func addTravisURLFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(travisURLFlagName, "u"),
		Usage: "Travis Enterprise API endpoint URL",
	})
}

func addVersionKeyFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  versionKeyFlagName,
		Usage: "job configuration key holding the runtime version used to elect the build leader (default: node_js)",
	})
}

func addConfFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(confFlagName, "config", "c"),
		Usage: "path to the travis-deploy-once settings file (default: ~/" + deployonce.DefaultClientConfig + ")",
	})
}

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }
