package toolkit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dugongyete-ui/agent-manus/security"
)

func newTestShell(t *testing.T, optFns ...func(o *ShellOptions)) *ShellTool {
	t.Helper()
	dir := t.TempDir()
	return NewShellTool(append([]func(o *ShellOptions){func(o *ShellOptions) {
		o.WorkingDir = dir
	}}, optFns...)...)
}

func TestShellRunCommand(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.RunCommand(context.Background(), "echo halo")
	require.NoError(t, err)
	assert.Equal(t, "Output:\nhalo\nReturn code: 0", out)
}

func TestShellRunCommandStderrAndExitCode(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.RunCommand(context.Background(), "echo boom >&2; exit 3")
	require.NoError(t, err)
	assert.Contains(t, out, "Stderr:\nboom")
	assert.Contains(t, out, "Return code: 3")
	assert.NotContains(t, out, "Output:")
}

func TestShellRunCommandWorkingDir(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.RunCommand(context.Background(), "pwd")
	require.NoError(t, err)
	assert.Contains(t, out, sh.opts.WorkingDir)
}

func TestShellBlockedCommandReturnedAsResult(t *testing.T) {
	guard := security.NewGuard()
	sh := newTestShell(t, func(o *ShellOptions) { o.Guard = guard })

	out, err := sh.RunCommand(context.Background(), "sudo shutdown now")
	require.NoError(t, err)
	assert.Contains(t, out, "Perintah diblokir untuk keamanan")

	history := sh.History(1)
	require.Len(t, history, 1)
	assert.True(t, history[0].Blocked)
	assert.Equal(t, -1, history[0].ReturnCode)
}

func TestShellTimeoutReturnedAsResult(t *testing.T) {
	sh := newTestShell(t, func(o *ShellOptions) { o.Timeout = 100 * time.Millisecond })

	out, err := sh.RunCommand(context.Background(), "sleep 5")
	require.NoError(t, err)
	assert.Contains(t, out, "Perintah timeout setelah")
	assert.Contains(t, out, "sleep 5")

	history := sh.History(1)
	require.Len(t, history, 1)
	assert.True(t, history[0].Timeout)
}

func TestShellExecuteRoutesCommand(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.Execute(context.Background(), map[string]any{"command": "echo via-execute"})
	require.NoError(t, err)
	assert.Contains(t, out, "via-execute")
}

func TestShellExecuteMissingInputs(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Tidak ada perintah yang diberikan.", out)

	out, err = sh.Execute(context.Background(), map[string]any{"action": "run_code"})
	require.NoError(t, err)
	assert.Equal(t, "Tidak ada kode yang diberikan.", out)
}

func TestShellRunCode(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.RunCode(context.Background(), "echo dari-skrip", "sh")
	require.NoError(t, err)
	assert.Contains(t, out, "dari-skrip")
	assert.Contains(t, out, "Return code: 0")
}

func TestShellRunCodeUnsupportedRuntime(t *testing.T) {
	sh := newTestShell(t)

	out, err := sh.RunCode(context.Background(), "print('x')", "cobol")
	require.NoError(t, err)
	assert.Contains(t, out, "Runtime tidak didukung: cobol")
	assert.Contains(t, out, "python3")
}

func TestShellOutputTruncation(t *testing.T) {
	sh := newTestShell(t)

	// Emits ~200000 characters of output.
	out, err := sh.RunCommand(context.Background(), `yes x | head -n 100000`)
	require.NoError(t, err)
	assert.Contains(t, out, "... (output terpotong, total")
	assert.LessOrEqual(t, len(out), MaxOutputSize+200)
}

func TestShellHistoryOrderAndClear(t *testing.T) {
	sh := newTestShell(t)

	_, err := sh.RunCommand(context.Background(), "echo satu")
	require.NoError(t, err)
	_, err = sh.RunCommand(context.Background(), "echo dua")
	require.NoError(t, err)

	history := sh.History(0)
	require.Len(t, history, 2)
	assert.Equal(t, "echo satu", history[0].Command)
	assert.Equal(t, "echo dua", history[1].Command)
	assert.True(t, strings.HasPrefix(history[1].Stdout, "dua"))

	sh.ClearHistory()
	assert.Empty(t, sh.History(0))
}

func TestShellCanceledContext(t *testing.T) {
	sh := newTestShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sh.RunCommand(ctx, "echo halo")
	assert.ErrorIs(t, err, context.Canceled)
}
