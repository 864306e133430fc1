package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	enginecmd "tradeengine/cmd/engine"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Trade Engine CMD"
	app.Usage = "The trade execution engine command line interface"
	app.Version = Version
	app.Before = func(_ *cli.Context) error {
		setupLogger()
		return nil
	}

	app.Commands = []cli.Command{
		engineCMD,
		liquidateCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	engineCMD = cli.Command{
		Name:        "engine",
		Usage:       "run the execution engine",
		Action:      engineAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the execution engine with its HTTP surface`,
	}
	liquidateCMD = cli.Command{
		Name:      "liquidate",
		Usage:     "liquidate positions and exit",
		Action:    liquidateAction,
		ArgsUsage: "[ticker]",
		Flags:     []cli.Flag{},
		Description: `Sell the given position at market, or every position
   when no ticker is given`,
	}
)

func setupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func engineAction(_ *cli.Context) error {
	logrus.Info("Starting execution engine CMD")

	runner := &enginecmd.Runner{}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func liquidateAction(c *cli.Context) error {
	logrus.Info("Starting liquidation CMD")

	runner := &enginecmd.Runner{}
	if err := runner.Liquidate(c.Args().First()); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
