package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/duskfell/cinnabar-go/internal/cli/build"
	"github.com/duskfell/cinnabar-go/internal/cli/initcmd"
	"github.com/duskfell/cinnabar-go/internal/cli/inspect"
	"github.com/duskfell/cinnabar-go/internal/cli/self"
	"github.com/duskfell/cinnabar-go/internal/cli/verify"
)

// version is overridden at release time via -ldflags.
var version = "v0.1.0"

func main() {
	app := &cli.App{
		Name:    "cinn",
		Usage:   "Reproducible deployment archives for Python packages",
		Version: version,
		Action: func(c *cli.Context) error {
			// Default action if no command is specified
			_ = cli.ShowAppHelp(c)
			return nil
		},
		Commands: []*cli.Command{
			initcmd.GetInitCommand(),
			build.NewBuildCommand(),
			verify.NewVerifyCommand(),
			inspect.NewInspectCommand(),
			self.NewSelfCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
