package operations

import (
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var (
	requireSingleScript = func(c *cli.Context) error {
		if c.NArg() > 1 {
			return errors.Errorf("only one script argument is allowed, got %d", c.NArg())
		}
		return nil
	}

	requirePositiveLeaderID = func(c *cli.Context) error {
		if id := c.Int(buildLeaderIDFlagName); id < 0 {
			return errors.Errorf("build leader ID must be a job position, got %d", id)
		}
		return nil
	}
)

func mergeBeforeFuncs(ops ...func(c *cli.Context) error) cli.BeforeFunc {
	return func(c *cli.Context) error {
		catcher := grip.NewBasicCatcher()

		for _, op := range ops {
			catcher.Add(op(c))
		}

		return catcher.Resolve()
	}
}
