package builderr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfell/cinnabar-go/internal/core/builderr"
)

func TestOracleUnavailableError_MessageAndUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("not a git repository")
	err := &builderr.OracleUnavailableError{Reason: "git log failed", Err: cause}

	assert.Contains(t, err.Error(), "timestamp oracle unavailable")
	assert.Contains(t, err.Error(), "git log failed")
	assert.ErrorIs(t, err, cause)
}

func TestCompilationFailedError_NamesPath(t *testing.T) {
	t.Parallel()
	err := &builderr.CompilationFailedError{Path: "app/broken.py", Err: errors.New("SyntaxError")}

	assert.Contains(t, err.Error(), "app/broken.py")
	assert.Contains(t, err.Error(), "SyntaxError")
}

func TestErrorClasses_MatchThroughWrapping(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("build: %w", &builderr.StagingFailedError{Reason: "copy source tree"})

	var stagingErr *builderr.StagingFailedError
	require.True(t, errors.As(wrapped, &stagingErr))
	assert.Equal(t, "copy source tree", stagingErr.Reason)

	var packingErr *builderr.PackingFailedError
	assert.False(t, errors.As(wrapped, &packingErr), "error classes must not match each other")
}

func TestErrorsWithoutCause_OmitNilFromMessage(t *testing.T) {
	t.Parallel()
	err := &builderr.PackingFailedError{Reason: "serialize archive"}
	assert.Equal(t, "packing failed: serialize archive", err.Error())
	assert.NoError(t, errors.Unwrap(err))
}
