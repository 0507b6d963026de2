package cmd

import (
	"github.com/achilleasa/lumen/log"
	"github.com/urfave/cli"
)

var logger = log.New("lumen")

// Global flags that control logger verbosity.
var LoggingFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "v",
		Usage: "enable verbose logging",
	},
	cli.BoolFlag{
		Name:  "vv",
		Usage: "enable even more verbose logging",
	},
	cli.StringFlag{
		Name:  "log-level",
		Usage: "set log level (debug, info, notice, warning, error); overrides -v and -vv",
	},
}

// Configure logger verbosity. An explicit --log-level takes precedence over
// the -v and -vv flags.
func setupLogging(ctx *cli.Context) error {
	if name := ctx.GlobalString("log-level"); name != "" {
		level, err := log.ParseLevel(name)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	}

	verbosity := 0
	if ctx.GlobalBool("v") {
		verbosity = 1
	}
	if ctx.GlobalBool("vv") {
		verbosity = 2
	}
	log.SetLevel(log.Verbosity(verbosity))
	return nil
}
