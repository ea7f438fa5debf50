// Package build implements the 'build' command: the deterministic
// stage -> normalize -> precompile -> pack pipeline.
package build

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/duskfell/cinnabar-go/internal/core/builderr"
	"github.com/duskfell/cinnabar-go/internal/core/config"
	"github.com/duskfell/cinnabar-go/internal/core/lockfile"
	"github.com/duskfell/cinnabar-go/internal/core/pipeline"
)

// Exit codes for the build command. Zero is success; one covers usage and
// configuration mistakes; two through five map the pipeline's error classes
// so orchestration scripts can tell the failure stages apart. Six means the
// archive was published but the lockfile could not record it.
const (
	ExitUsage             = 1
	ExitOracleUnavailable = 2
	ExitStagingFailed     = 3
	ExitCompilationFailed = 4
	ExitPackingFailed     = 5
	ExitLockRecordFailed  = 6
)

// NewBuildCommand creates a new cli.Command for the "build" command.
func NewBuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Builds a reproducible deployment archive from source and vendored dependencies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source directory (overrides build.source)",
			},
			&cli.StringFlag{
				Name:  "vendor",
				Usage: "Vendored dependency directory (overrides build.vendor)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Archive output path (overrides build.output)",
			},
			&cli.BoolFlag{
				Name:  "precompile",
				Usage: "Generate bytecode artifacts before packing (overrides build.precompile)",
			},
			&cli.StringFlag{
				Name:  "python",
				Usage: "Python interpreter used for bytecode generation (overrides build.python)",
			},
			&cli.Int64Flag{
				Name:  "stamp",
				Usage: "Pin the canonical timestamp to a unix-seconds value (overrides build.stamp)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Action: func(c *cli.Context) error {
			verbose := c.Bool("verbose")

			projCfg, err := config.LoadProjectToml(".")
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return cli.Exit("Error: cinnabar.toml not found in the current directory. Please run 'cinn init' first.", ExitUsage)
				}
				return cli.Exit(fmt.Sprintf("Error loading cinnabar.toml: %v", err), ExitUsage)
			}
			if err := projCfg.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("Error: invalid cinnabar.toml: %v", err), ExitUsage)
			}
			if verbose {
				_, _ = fmt.Fprintf(os.Stdout, "Successfully loaded cinnabar.toml (Package: %s)\n", projCfg.Package.Name)
			}

			opts := pipeline.Options{
				SourceDir:      projCfg.Build.Source,
				VendorDir:      projCfg.Build.Vendor,
				OutputPath:     projCfg.Build.Output,
				Precompile:     projCfg.Build.Precompile,
				Python:         projCfg.Build.Python,
				Stamp:          projCfg.Build.Stamp,
				PackageName:    projCfg.Package.Name,
				PackageVersion: projCfg.Package.Version,
				Verbose:        verbose,
			}
			if c.IsSet("source") {
				opts.SourceDir = c.String("source")
			}
			if c.IsSet("vendor") {
				opts.VendorDir = c.String("vendor")
			}
			if c.IsSet("output") {
				opts.OutputPath = c.String("output")
			}
			if c.IsSet("precompile") {
				opts.Precompile = c.Bool("precompile")
			}
			if c.IsSet("python") {
				opts.Python = c.String("python")
			}
			if c.IsSet("stamp") {
				opts.Stamp = c.Int64("stamp")
			}

			result, err := pipeline.Build(c.Context, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), ExitCodeFor(err))
			}

			lf, err := lockfile.Load(".")
			if err != nil {
				return cli.Exit(fmt.Sprintf("Build succeeded, but loading %s failed: %v", lockfile.LockfileName, err), ExitLockRecordFailed)
			}
			lf.RecordBuild(result.ArchivePath, result.ArchiveHash, result.Stamp.Unix(), opts.Precompile)
			if err := lockfile.Save(".", lf); err != nil {
				return cli.Exit(fmt.Sprintf("Build succeeded, but recording it in %s failed: %v", lockfile.LockfileName, err), ExitLockRecordFailed)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Packed %d entries into %s\n", len(result.Manifest.Entries), result.ArchivePath)
			_, _ = fmt.Fprintf(os.Stdout, "  hash:  %s\n", result.ArchiveHash)
			_, _ = fmt.Fprintf(os.Stdout, "  stamp: %d\n", result.Stamp.Unix())
			return nil
		},
	}
}

// ExitCodeFor maps a pipeline error to the build command's exit code.
func ExitCodeFor(err error) int {
	var oracleErr *builderr.OracleUnavailableError
	if errors.As(err, &oracleErr) {
		return ExitOracleUnavailable
	}
	var stagingErr *builderr.StagingFailedError
	if errors.As(err, &stagingErr) {
		return ExitStagingFailed
	}
	var compileErr *builderr.CompilationFailedError
	if errors.As(err, &compileErr) {
		return ExitCompilationFailed
	}
	var packingErr *builderr.PackingFailedError
	if errors.As(err, &packingErr) {
		return ExitPackingFailed
	}
	return ExitUsage
}
