// Package pipeline runs the deterministic build-and-pack sequence:
// stage -> normalize -> (precompile -> normalize) -> pack -> finalize.
//
// Every stage is a pure transformation of the scratch tree, threaded with
// the single canonical stamp the oracle derived. Nothing is published unless
// every stage succeeds, and the scratch tree is removed on all exit paths.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/duskfell/cinnabar-go/internal/core/archive"
	"github.com/duskfell/cinnabar-go/internal/core/builderr"
	"github.com/duskfell/cinnabar-go/internal/core/fsx"
	"github.com/duskfell/cinnabar-go/internal/core/hasher"
	"github.com/duskfell/cinnabar-go/internal/core/manifest"
	"github.com/duskfell/cinnabar-go/internal/core/mtime"
	"github.com/duskfell/cinnabar-go/internal/core/oracle"
	"github.com/duskfell/cinnabar-go/internal/core/precompile"
	"github.com/duskfell/cinnabar-go/internal/core/stager"
)

// Options describes one build invocation.
type Options struct {
	// SourceDir is the version-controlled application source directory.
	SourceDir string
	// VendorDir is the externally populated dependency directory. Empty
	// means the build has no vendored dependencies. Never written to.
	VendorDir string
	// OutputPath is where the archive is published on success.
	OutputPath string
	// Precompile enables bytecode generation.
	Precompile bool
	// Toolchain performs bytecode generation. Nil selects PythonToolchain.
	Toolchain precompile.Toolchain
	// Python overrides the interpreter for the default toolchain.
	Python string
	// Stamp pins the canonical timestamp (unix seconds). Zero derives it
	// from SOURCE_DATE_EPOCH or the source tree's commit history.
	Stamp int64
	// PackageName and PackageVersion are recorded in the manifest sidecar.
	PackageName    string
	PackageVersion string
	// Verbose prints per-stage progress to stdout.
	Verbose bool
}

// Result reports a successful build.
type Result struct {
	ArchivePath string
	ArchiveHash string
	Stamp       time.Time
	Manifest    manifest.Manifest
}

// Build runs the full pipeline. On error, no file exists at OutputPath that
// was not there before, and no scratch space is left behind.
func Build(ctx context.Context, opts Options) (Result, error) {
	if opts.SourceDir == "" {
		return Result{}, &builderr.StagingFailedError{Reason: "source directory not specified"}
	}
	if opts.OutputPath == "" {
		return Result{}, &builderr.PackingFailedError{Reason: "output path not specified"}
	}
	if info, err := os.Stat(opts.SourceDir); err != nil || !info.IsDir() {
		return Result{}, &builderr.StagingFailedError{
			Reason: fmt.Sprintf("source directory %s is not usable", opts.SourceDir),
			Err:    err,
		}
	}
	if opts.VendorDir != "" {
		if info, err := os.Stat(opts.VendorDir); err != nil || !info.IsDir() {
			return Result{}, &builderr.StagingFailedError{
				Reason: fmt.Sprintf("vendor directory %s is not usable", opts.VendorDir),
				Err:    err,
			}
		}
	}

	stamp, err := oracle.Derive(ctx, opts.SourceDir, opts.Stamp)
	if err != nil {
		return Result{}, err
	}
	logf(opts, "Canonical stamp: %d (%s)\n", stamp.Unix(), stamp.Format(time.RFC3339))

	scratch, err := os.MkdirTemp("", "cinnabar-build-*")
	if err != nil {
		return Result{}, &builderr.StagingFailedError{Reason: "create scratch directory", Err: err}
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	logf(opts, "Staging vendor=%s source=%s into %s\n", opts.VendorDir, opts.SourceDir, scratch)
	if err := stager.Stage(opts.VendorDir, opts.SourceDir, scratch); err != nil {
		return Result{}, &builderr.StagingFailedError{Reason: "assemble scratch tree", Err: err}
	}
	if err := mtime.Normalize(scratch, stamp); err != nil {
		return Result{}, &builderr.StagingFailedError{Reason: "normalize timestamps", Err: err}
	}

	if opts.Precompile {
		toolchain := opts.Toolchain
		if toolchain == nil {
			toolchain = precompile.PythonToolchain{Python: opts.Python}
		}
		logf(opts, "Generating bytecode artifacts...\n")
		if err := precompile.Generate(ctx, scratch, toolchain); err != nil {
			return Result{}, err
		}
		// The fresh artifacts carry generation-time mtimes; pin them too.
		if err := mtime.Normalize(scratch, stamp); err != nil {
			return Result{}, &builderr.StagingFailedError{Reason: "normalize artifact timestamps", Err: err}
		}
	}

	return publish(scratch, stamp, opts)
}

// publish packs the scratch tree to a temporary path, stages the manifest
// sidecar to a temporary path, and only then renames both into place, archive
// first. A failed publish leaves any previous build's archive and sidecar at
// the output path untouched.
func publish(scratch string, stamp time.Time, opts Options) (Result, error) {
	outDir := filepath.Dir(opts.OutputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "create output directory", Err: err}
	}

	temp, err := os.CreateTemp(outDir, "."+filepath.Base(opts.OutputPath)+".tmp-*")
	if err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "create temporary archive", Err: err}
	}
	tempPath := temp.Name()
	_ = temp.Close()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tempPath)
		}
	}()

	logf(opts, "Packing %s\n", opts.OutputPath)
	if err := archive.Pack(scratch, tempPath); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "serialize archive", Err: err}
	}
	// CreateTemp made the file owner-only; published artifacts follow the
	// 0644 convention of everything else the tool writes.
	if err := os.Chmod(tempPath, 0644); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "set archive permissions", Err: err}
	}
	if err := archive.Finalize(tempPath, stamp); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "finalize archive metadata", Err: err}
	}

	entries, err := archive.List(tempPath)
	if err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "index archive entries", Err: err}
	}
	archiveHash, err := hasher.CalculateFileSHA256(tempPath)
	if err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "hash archive", Err: err}
	}

	entryHashes := make([]manifest.EntryHash, 0, len(entries))
	for _, entry := range entries {
		entryHashes = append(entryHashes, manifest.EntryHash{Path: entry.Path, Hash: entry.Hash})
	}
	m := manifest.Manifest{
		SchemaID:      manifest.SchemaID,
		SchemaVersion: manifest.SchemaVersion,
		Package:       opts.PackageName,
		Version:       opts.PackageVersion,
		Stamp:         stamp.Unix(),
		Precompiled:   opts.Precompile,
		ArchiveHash:   archiveHash,
		Entries:       entryHashes,
	}
	sidecarPath := manifest.SidecarPath(opts.OutputPath)
	sidecarData, err := manifest.Encode(m)
	if err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "encode manifest sidecar", Err: err}
	}
	sidecarTemp, err := os.CreateTemp(outDir, "."+filepath.Base(sidecarPath)+".tmp-*")
	if err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "stage manifest sidecar", Err: err}
	}
	sidecarTempPath := sidecarTemp.Name()
	defer func() {
		if !published {
			_ = os.Remove(sidecarTempPath)
		}
	}()
	if _, err := sidecarTemp.Write(sidecarData); err != nil {
		_ = sidecarTemp.Close()
		return Result{}, &builderr.PackingFailedError{Reason: "stage manifest sidecar", Err: err}
	}
	if err := sidecarTemp.Close(); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "stage manifest sidecar", Err: err}
	}
	if err := os.Chmod(sidecarTempPath, 0644); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "set sidecar permissions", Err: err}
	}

	// Archive first: the build is published the moment the archive lands,
	// and a pre-existing sidecar is only ever replaced atomically after it.
	if err := fsx.RenameAtomic(tempPath, opts.OutputPath); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "publish archive", Err: err}
	}
	if err := fsx.RenameAtomic(sidecarTempPath, sidecarPath); err != nil {
		return Result{}, &builderr.PackingFailedError{Reason: "publish manifest sidecar", Err: err}
	}
	published = true
	logf(opts, "Published %s (%s, %d entries)\n", opts.OutputPath, archiveHash, len(entries))

	return Result{
		ArchivePath: opts.OutputPath,
		ArchiveHash: archiveHash,
		Stamp:       stamp,
		Manifest:    m,
	}, nil
}

func logf(opts Options, format string, args ...any) {
	if opts.Verbose {
		_, _ = fmt.Fprintf(os.Stdout, format, args...)
	}
}
