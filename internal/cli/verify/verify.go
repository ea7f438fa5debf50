// Package verify implements the 'verify' command, which re-checks a
// published archive against its manifest sidecar and the lockfile.
package verify

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/duskfell/cinnabar-go/internal/core/archive"
	"github.com/duskfell/cinnabar-go/internal/core/config"
	"github.com/duskfell/cinnabar-go/internal/core/hasher"
	"github.com/duskfell/cinnabar-go/internal/core/lockfile"
	"github.com/duskfell/cinnabar-go/internal/core/manifest"
)

// NewVerifyCommand creates a new cli.Command for the "verify" command.
func NewVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verifies an archive against its manifest sidecar and the lockfile",
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

			m, err := manifest.Load(archivePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error loading manifest sidecar for %s: %v", archivePath, err), 1)
			}

			okColor := color.New(color.FgGreen).SprintFunc()
			failColor := color.New(color.FgRed, color.Bold).SprintFunc()
			failures := 0

			archiveHash, err := hasher.CalculateFileSHA256(archivePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error hashing %s: %v", archivePath, err), 1)
			}
			if archiveHash == m.ArchiveHash {
				fmt.Printf("%s archive hash %s\n", okColor("ok"), archiveHash)
			} else {
				fmt.Printf("%s archive hash: manifest has %s, file has %s\n", failColor("MISMATCH"), m.ArchiveHash, archiveHash)
				failures++
			}

			entries, err := archive.List(archivePath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error reading %s: %v", archivePath, err), 1)
			}
			declared := make(map[string]string, len(m.Entries))
			for _, entry := range m.Entries {
				declared[entry.Path] = entry.Hash
			}
			seen := make(map[string]bool, len(entries))
			for _, entry := range entries {
				seen[entry.Path] = true
				want, ok := declared[entry.Path]
				switch {
				case !ok:
					fmt.Printf("%s undeclared entry %s\n", failColor("MISMATCH"), entry.Path)
					failures++
				case want != entry.Hash:
					fmt.Printf("%s entry %s: manifest has %s, archive has %s\n", failColor("MISMATCH"), entry.Path, want, entry.Hash)
					failures++
				}
			}
			for _, entry := range m.Entries {
				if !seen[entry.Path] {
					fmt.Printf("%s missing entry %s\n", failColor("MISMATCH"), entry.Path)
					failures++
				}
			}
			if failures == 0 {
				fmt.Printf("%s %d entries match the manifest\n", okColor("ok"), len(entries))
			}

			// The lockfile check is advisory: a missing record just means this
			// archive was not the last recorded build.
			lf, err := lockfile.Load(".")
			if err == nil && lf.Build != nil && lf.Build.Archive == archivePath {
				if lf.Build.Hash == archiveHash {
					fmt.Printf("%s lockfile record matches\n", okColor("ok"))
				} else {
					fmt.Printf("%s lockfile records %s for this archive\n", failColor("MISMATCH"), lf.Build.Hash)
					failures++
				}
			}

			if failures > 0 {
				return cli.Exit(fmt.Sprintf("Verification failed: %d mismatch(es).", failures), 1)
			}
			fmt.Printf("Verified %s (stamp %d, precompiled=%t).\n", archivePath, m.Stamp, m.Precompiled)
			return nil
		},
	}
}
