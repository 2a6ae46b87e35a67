package main

import (
	"io"
	"os"
	"time"

	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = log.Output(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano},
	)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	app := createApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("iconbundle failed")
	}
}

func createApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "iconbundle"
	app.Usage = "Bundle appearance-tagged icons into macOS application bundles"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging",
			EnvVars: []string{constant.EnvPrefix + "DEBUG"},
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	}
	app.Commands = []*cli.Command{
		buildCommand(),
		devCommand(),
		inspectCommand(),
	}
	return app
}
