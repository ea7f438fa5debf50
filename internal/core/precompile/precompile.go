// Package precompile generates cached bytecode for staged source files.
package precompile

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/duskfell/cinnabar-go/internal/core/builderr"
)

// SourceExtension identifies the files eligible for bytecode generation.
const SourceExtension = ".py"

// Toolchain compiles a single source file into its cached bytecode form.
//
// Implementations must be pure with respect to the file's content and mtime:
// no cross-run caches, no skip-if-current heuristics. The generated artifact
// embeds the source mtime as a staleness check, which is exactly why the
// pipeline normalizes timestamps before calling Generate.
type Toolchain interface {
	Compile(ctx context.Context, path string) error
}

// PythonToolchain compiles with CPython's py_compile module, one file per
// invocation. py_compile always rewrites the cached form — unlike compileall
// it has no "looks current" short-circuit to defeat — so a previous run's
// differently-stamped artifacts can never survive into this build.
type PythonToolchain struct {
	// Python is the interpreter to invoke. Empty means "python3".
	Python string
}

func (t PythonToolchain) Compile(ctx context.Context, path string) error {
	python := t.Python
	if python == "" {
		python = "python3"
	}
	cmd := exec.CommandContext(ctx, python, "-m", "py_compile", path)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(output.String())
		if detail == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, detail)
	}
	return nil
}

// Generate compiles every eligible source file under root, in sorted path
// order so a tree with multiple broken files always fails on the same one.
// The first toolchain error aborts generation with a CompilationFailedError
// naming the offending file relative to root.
func Generate(ctx context.Context, root string, toolchain Toolchain) error {
	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && filepath.Ext(path) == SourceExtension {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return &builderr.StagingFailedError{Reason: "enumerate source files", Err: err}
	}
	sort.Strings(sources)

	for _, src := range sources {
		if err := toolchain.Compile(ctx, src); err != nil {
			rel, relErr := filepath.Rel(root, src)
			if relErr != nil {
				rel = src
			}
			return &builderr.CompilationFailedError{Path: filepath.ToSlash(rel), Err: err}
		}
	}
	return nil
}
