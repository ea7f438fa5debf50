// Package inspect implements the 'inspect' command, which lists the entries
// of a published archive.
package inspect

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/duskfell/cinnabar-go/internal/core/archive"
	"github.com/duskfell/cinnabar-go/internal/core/config"
	"github.com/duskfell/cinnabar-go/internal/core/manifest"
)

// NewInspectCommand creates a new cli.Command for the "inspect" command.
func NewInspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Aliases:   []string{"ls"},
		Usage:     "Displays the entries of a built archive",
		ArgsUsage: "[archive_path]",
		Action: func(c *cli.Context) error {
			archivePath := c.Args().First()
			if archivePath == "" {
				projCfg, err := config.LoadProjectToml(".")
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return cli.Exit("Error: no archive path given and no cinnabar.toml found to read build.output from.", 1)
					}
					return cli.Exit(fmt.Sprintf("Error loading cinnabar.toml: %v", err), 1)
				}
				if projCfg.Build == nil || projCfg.Build.Output == "" {
					return cli.Exit("Error: no archive path given and build.output is not set.", 1)
				}
				archivePath = projCfg.Build.Output
			}

			entries, err := archive.List(archivePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error reading %s: %v", archivePath, err), 1)
			}

			headerColor := color.New(color.FgMagenta, color.Bold, color.Underline).SprintFunc()
			pathColor := color.New(color.FgWhite).SprintFunc()
			hashColor := color.New(color.FgYellow).SprintFunc()
			modeColor := color.New(color.FgHiBlack).SprintFunc()

			fmt.Printf("%s\n", headerColor(archivePath))
			if m, err := manifest.Load(archivePath); err == nil {
				fmt.Printf("  package %s %s, stamp %d, precompiled=%t\n", m.Package, m.Version, m.Stamp, m.Precompiled)
				fmt.Printf("  archive %s\n", hashColor(m.ArchiveHash))
			}
			fmt.Println()

			for _, entry := range entries {
				fmt.Printf("  %s  %10d  %s  %s\n",
					modeColor(entry.Mode.String()), entry.Size, hashColor(entry.Hash), pathColor(entry.Path))
			}
			fmt.Printf("\n%d entries.\n", len(entries))
			return nil
		},
	}
}
