package main

import (
	"os"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	deployonce "github.com/semantic-release/travis-deploy-once"
	"github.com/semantic-release/travis-deploy-once/operations"
	"github.com/urfave/cli"
)

func main() {
	// the command line interface is managed by the cli package; the
	// deploy-once command is the whole application, so its flags and
	// action are installed at the top level.
	app := buildApp()

	grip.EmergencyFatal(app.Run(os.Args))
}

func buildApp() *cli.App {
	cmd := operations.DeployOnce()

	app := cli.NewApp()
	app.Name = "travis-deploy-once"
	app.Usage = cmd.Usage
	app.ArgsUsage = cmd.ArgsUsage
	app.Version = deployonce.ClientVersion

	// These are global options. Use this to configure logging or
	// other options independent from the deployment itself.
	app.Flags = append([]cli.Flag{
		cli.StringFlag{
			Name:  "level",
			Value: "info",
			Usage: "Specify lowest visible log level as string: 'emergency|alert|critical|error|warning|notice|info|debug|trace'",
		},
	}, cmd.Flags...)

	app.Before = func(c *cli.Context) error {
		if err := loggingSetup(deployonce.LoggerName, c.String("level")); err != nil {
			return err
		}
		return cmd.Before(c)
	}
	app.Action = cmd.Action

	return app
}

func loggingSetup(name, l string) error {
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName(name)

	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = level.FromString(l)

	return sender.SetLevel(info)
}
