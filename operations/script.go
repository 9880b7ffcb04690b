package operations

import (
	"context"
	"io"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/jasper"
	"github.com/mongodb/jasper/options"
	"github.com/pkg/errors"
)

// scriptRunner runs a deployment script and returns its exit code.
type scriptRunner func(ctx context.Context, script string) (int, error)

// shellScriptRunner runs scripts with "sh -c", forwarding their output.
func shellScriptRunner(stdout, stderr io.Writer) scriptRunner {
	return func(ctx context.Context, script string) (int, error) {
		manager, err := jasper.NewSynchronizedManager(false)
		if err != nil {
			return 1, errors.Wrap(err, "creating process manager")
		}
		defer func() {
			grip.Warning(errors.Wrap(manager.Close(ctx), "closing process manager"))
		}()

		proc, err := manager.CreateProcess(ctx, &options.Create{
			Args: []string{"sh", "-c", script},
			Output: options.Output{
				Output: stdout,
				Error:  stderr,
			},
		})
		if err != nil {
			return 1, errors.Wrapf(err, "starting script '%s'", script)
		}

		code, err := proc.Wait(ctx)
		if err != nil && code <= 0 {
			return 1, errors.Wrapf(err, "running script '%s'", script)
		}

		grip.Debug(message.Fields{
			"message":   "deployment script finished",
			"script":    script,
			"exit_code": code,
		})

		return code, nil
	}
}
