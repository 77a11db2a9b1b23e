package exec_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/lyra/vcs/exec"
)

func TestEx_success(t *testing.T) {
	t.Parallel()

	out, err := exec.Ex(
		context.Background(), "", "echo", "hello",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestEx_with_dir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	out, err := exec.Ex(context.Background(), dir, "pwd")

	require.NoError(t, err)
	assert.Contains(t, out, dir)
}

func TestEx_failure(t *testing.T) {
	t.Parallel()

	_, err := exec.Ex(context.Background(), "", "false")

	assert.Error(t, err)
}

func TestEx_failure_carries_output(t *testing.T) {
	t.Parallel()

	_, err := exec.Ex(
		context.Background(),
		"",
		"sh", "-c", "echo boom >&2; exit 3",
	)

	require.Error(t, err)
	assert.Equal(t, "boom", exec.OutputOf(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestEx_cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(
		context.Background(), 50*time.Millisecond,
	)
	defer cancel()

	start := time.Now()

	_, err := exec.Ex(ctx, "", "sleep", "5")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExEnv_passes_environment(t *testing.T) {
	t.Parallel()

	out, err := exec.ExEnv(
		context.Background(),
		"",
		[]string{"LYRA_TEST_VALUE=42"},
		"sh", "-c", "echo $LYRA_TEST_VALUE",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "42")
}

func TestOutputOf_foreign_error(t *testing.T) {
	t.Parallel()

	assert.Empty(t, exec.OutputOf(errors.New("x")))
}
