package oracle_test

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfell/cinnabar-go/internal/core/builderr"
	"github.com/duskfell/cinnabar-go/internal/core/oracle"
)

// clearEpochEnv unsets SOURCE_DATE_EPOCH for the test while registering its
// restoration through t.Setenv.
func clearEpochEnv(t *testing.T) {
	t.Helper()
	t.Setenv(oracle.EpochEnvVar, "")
	require.NoError(t, os.Unsetenv(oracle.EpochEnvVar))
}

func TestDerive_PinnedStampWins(t *testing.T) {
	t.Setenv(oracle.EpochEnvVar, "1111111111")

	stamp, err := oracle.Derive(context.Background(), t.TempDir(), 1743508800)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1743508800, 0).UTC(), stamp)
}

func TestDerive_EpochEnvVar(t *testing.T) {
	t.Setenv(oracle.EpochEnvVar, "1743508800")

	stamp, err := oracle.Derive(context.Background(), t.TempDir(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1743508800), stamp.Unix())
}

func TestDerive_InvalidEpochEnvVar(t *testing.T) {
	t.Setenv(oracle.EpochEnvVar, "last tuesday")

	_, err := oracle.Derive(context.Background(), t.TempDir(), 0)
	var oracleErr *builderr.OracleUnavailableError
	require.ErrorAs(t, err, &oracleErr)
	assert.Contains(t, oracleErr.Reason, oracle.EpochEnvVar)
}

func TestDerive_UntrackedSourceFails(t *testing.T) {
	clearEpochEnv(t)

	// A plain directory with no version-control history must fail rather
	// than fall back to the current time.
	_, err := oracle.Derive(context.Background(), t.TempDir(), 0)

	var oracleErr *builderr.OracleUnavailableError
	require.ErrorAs(t, err, &oracleErr)
}

func TestDerive_FromCommitHistory(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	clearEpochEnv(t)

	repoDir := t.TempDir()
	commitEpoch := "1700000000"
	runGit(t, repoDir, "init", "--quiet")
	runGit(t, repoDir, "config", "user.email", "test@example.com")
	runGit(t, repoDir, "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(repoDir+"/app.py", []byte("print(1)\n"), 0644))
	runGit(t, repoDir, "add", "app.py")
	runGitEnv(t, repoDir,
		[]string{"GIT_AUTHOR_DATE=" + commitEpoch + " +0000", "GIT_COMMITTER_DATE=" + commitEpoch + " +0000"},
		"commit", "--quiet", "-m", "initial")

	first, err := oracle.Derive(context.Background(), repoDir, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), first.Unix())

	// Deterministic: repeated invocations against unchanged history agree.
	second, err := oracle.Derive(context.Background(), repoDir, 0)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	runGitEnv(t, dir, nil, args...)
}

func runGitEnv(t *testing.T, dir string, extraEnv []string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, output)
}
