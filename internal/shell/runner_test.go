package shell

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	ctx := context.Background()

	out, err := ExecRunner{}.Run(ctx, "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	_, err = ExecRunner{}.Run(ctx, "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	r := RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return []byte("ok"), nil
	})

	out, err := r.Run(context.Background(), "ffmpeg", "-y")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, []string{"ffmpeg", "-y"}, got)
}
