// Package oracle derives the canonical timestamp for a build.
//
// Every later pipeline stage substitutes this single value wherever a real
// timestamp would otherwise leak into the output, so it must be a pure
// function of the source tree's logical state. The wall clock is never
// consulted: a build that cannot resolve a stamp fails instead.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/duskfell/cinnabar-go/internal/core/builderr"
)

// EpochEnvVar is the conventional reproducible-build override. When set, it
// pins the canonical timestamp without consulting version control.
const EpochEnvVar = "SOURCE_DATE_EPOCH"

// Derive resolves the canonical timestamp for the source tree rooted at
// sourceDir. Resolution order: an explicit pinned stamp (unix seconds, > 0),
// then SOURCE_DATE_EPOCH, then the committer time of the most recent commit
// touching sourceDir. If none resolve, the build must abort; falling back to
// time.Now here would silently defeat reproducibility.
func Derive(ctx context.Context, sourceDir string, pinned int64) (time.Time, error) {
	if pinned > 0 {
		return time.Unix(pinned, 0).UTC(), nil
	}

	if raw, ok := os.LookupEnv(EpochEnvVar); ok {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds <= 0 {
			return time.Time{}, &builderr.OracleUnavailableError{
				Reason: fmt.Sprintf("%s is set but not a positive integer: %q", EpochEnvVar, raw),
				Err:    err,
			}
		}
		return time.Unix(seconds, 0).UTC(), nil
	}

	return lastCommitTime(ctx, sourceDir)
}

// lastCommitTime asks git for the committer timestamp of the latest commit
// affecting sourceDir. The committer time of a committed tree is stable
// across machines and invocations, unlike on-disk mtimes.
func lastCommitTime(ctx context.Context, sourceDir string) (time.Time, error) {
	cmd := exec.CommandContext(ctx, "git", "log", "-1", "--format=%ct", "--", ".")
	cmd.Dir = sourceDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return time.Time{}, &builderr.OracleUnavailableError{
			Reason: fmt.Sprintf("git log failed for %s (%s)", sourceDir, bytes.TrimSpace(stderr.Bytes())),
			Err:    err,
		}
	}

	raw := string(bytes.TrimSpace(stdout.Bytes()))
	if raw == "" {
		// A repository with no commits touching sourceDir resolves nothing.
		return time.Time{}, &builderr.OracleUnavailableError{
			Reason: fmt.Sprintf("no commit history for %s", sourceDir),
		}
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, &builderr.OracleUnavailableError{
			Reason: fmt.Sprintf("unexpected git log output %q for %s", raw, sourceDir),
			Err:    err,
		}
	}
	return time.Unix(seconds, 0).UTC(), nil
}
