package toolkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/security"
)

// MaxOutputSize bounds captured stdout and stderr before truncation.
const MaxOutputSize = 100000

// runtimeExt maps a run_code runtime to the script file extension.
var runtimeExt = map[string]string{
	"python3": ".py", "python": ".py",
	"node": ".js", "nodejs": ".js",
	"bash": ".sh", "sh": ".sh",
	"ruby": ".rb",
	"php":  ".php",
}

// runtimeCmd maps a run_code runtime to the interpreter invoked.
var runtimeCmd = map[string]string{
	"python3": "python3", "python": "python3",
	"node": "node", "nodejs": "node",
	"bash": "bash", "sh": "sh",
	"ruby": "ruby",
	"php":  "php",
}

// CommandRecord is one entry of the shell history.
type CommandRecord struct {
	Command    string `json:"command"`
	ReturnCode int    `json:"return_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Blocked    bool   `json:"blocked"`
	Timeout    bool   `json:"timeout,omitempty"`
}

// ShellOptions configures a ShellTool.
type ShellOptions struct {
	// WorkingDir is the directory commands run in. Created on first use.
	// Empty inherits the process working directory.
	WorkingDir string
	// Timeout bounds a single command; 0 falls back to 120s.
	Timeout time.Duration
	// MaxConcurrent bounds commands running at once; 0 falls back to 5.
	MaxConcurrent int
	// Guard screens commands before they run. Optional.
	Guard *security.Guard
	// Logger receives execution diagnostics.
	Logger logging.Logger
}

// ShellTool runs shell commands and ad-hoc scripts inside the workspace.
//
// Blocked commands and timeouts are reported as result text rather than
// errors so the model sees the reason as an observation and can adjust.
type ShellTool struct {
	opts ShellOptions
	sem  chan struct{}

	mu      sync.Mutex
	history []CommandRecord
}

// NewShellTool creates a ShellTool. The working directory is created when
// configured.
func NewShellTool(optFns ...func(o *ShellOptions)) *ShellTool {
	opts := ShellOptions{
		Timeout:       120 * time.Second,
		MaxConcurrent: 5,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.WorkingDir != "" {
		if abs, err := filepath.Abs(opts.WorkingDir); err == nil {
			opts.WorkingDir = abs
		}
		_ = os.MkdirAll(opts.WorkingDir, 0o755)
	}
	return &ShellTool{
		opts: opts,
		sem:  make(chan struct{}, opts.MaxConcurrent),
	}
}

// Name returns the tool identifier.
func (t *ShellTool) Name() string { return "shell_tool" }

// Description returns the tool description shown to the model.
func (t *ShellTool) Description() string {
	return "Executes shell commands and short scripts in the workspace. " +
		"Use action 'run_code' with a code body and runtime to run a script, " +
		"otherwise supply a command to execute directly."
}

// Parameters returns the JSON schema for tool parameters.
func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to execute",
			},
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"run_command", "run_code"},
				"description": "Use run_code to execute the code parameter with a runtime",
			},
			"code": map[string]any{
				"type":        "string",
				"description": "Script body for run_code",
			},
			"runtime": map[string]any{
				"type":        "string",
				"enum":        supportedRuntimes(),
				"description": "Interpreter for run_code (default: python3)",
			},
		},
	}
}

// Execute routes the call to run_code or run_command.
func (t *ShellTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if stringParam(params, "action") == "run_code" {
		code := stringParam(params, "code")
		if code == "" {
			return "Tidak ada kode yang diberikan.", nil
		}
		runtime := stringParam(params, "runtime")
		if runtime == "" {
			runtime = "python3"
		}
		return t.RunCode(ctx, code, runtime)
	}

	command := stringParam(params, "command")
	if command == "" {
		return "Tidak ada perintah yang diberikan.", nil
	}
	return t.RunCommand(ctx, command)
}

// RunCommand executes one shell command and returns the combined
// observation text.
func (t *ShellTool) RunCommand(ctx context.Context, command string) (string, error) {
	if t.opts.Guard != nil {
		if err := t.opts.Guard.ValidateCommand(command); err != nil {
			t.opts.Logger.Warn("command rejected", "command", command, "reason", err.Error())
			t.record(CommandRecord{Command: command, ReturnCode: -1, Stderr: err.Error(), Blocked: true})
			return err.Error(), nil
		}
	}

	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	t.opts.Logger.Info("running command", "command", command)

	runCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.opts.WorkingDir
	cmd.Env = append(os.Environ(), "LC_ALL=C.UTF-8")
	// Backgrounded children inherit the output pipes; don't let them hold
	// Wait open forever.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		err = nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		msg := fmt.Sprintf("Perintah timeout setelah %d detik: %s", secondsOf(t.opts.Timeout), command)
		t.opts.Logger.Error("command timed out", "command", command)
		t.record(CommandRecord{Command: command, ReturnCode: -1, Stderr: msg, Timeout: true})
		return msg, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	stdoutText := strings.TrimSpace(stdout.String())
	stderrText := strings.TrimSpace(stderr.String())

	if len(stdoutText) > MaxOutputSize {
		total := len(stdoutText)
		stdoutText = stdoutText[:MaxOutputSize] + fmt.Sprintf("\n... (output terpotong, total %d karakter)", total)
	}
	if len(stderrText) > MaxOutputSize {
		stderrText = stderrText[:MaxOutputSize] + "\n... (error output terpotong)"
	}

	returnCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			returnCode = exitErr.ExitCode()
		} else {
			msg := fmt.Sprintf("Error menjalankan perintah: %v", err)
			t.opts.Logger.Error("command failed to start", "command", command, "error", err.Error())
			t.record(CommandRecord{Command: command, ReturnCode: -1, Stderr: msg})
			return msg, nil
		}
	}

	t.record(CommandRecord{
		Command:    command,
		ReturnCode: returnCode,
		Stdout:     stdoutText,
		Stderr:     stderrText,
	})

	var parts []string
	if stdoutText != "" {
		parts = append(parts, "Output:\n"+stdoutText)
	}
	if stderrText != "" {
		parts = append(parts, "Stderr:\n"+stderrText)
	}
	parts = append(parts, fmt.Sprintf("Return code: %d", returnCode))
	return strings.Join(parts, "\n"), nil
}

// RunCode writes the code to a temporary file in the workspace, executes it
// with the runtime's interpreter and removes the file afterwards.
func (t *ShellTool) RunCode(ctx context.Context, code, runtime string) (string, error) {
	interp, ok := runtimeCmd[runtime]
	if !ok {
		return fmt.Sprintf("Runtime tidak didukung: %s. Gunakan: %s", runtime, strings.Join(supportedRuntimes(), ", ")), nil
	}

	file, err := os.CreateTemp(t.tempDir(), "code-*"+runtimeExt[runtime])
	if err != nil {
		return "", fmt.Errorf("create script file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.WriteString(code); err != nil {
		file.Close()
		return "", fmt.Errorf("write script file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close script file: %w", err)
	}

	return t.RunCommand(ctx, interp+" "+path)
}

// History returns the most recent command records, newest last.
func (t *ShellTool) History(limit int) []CommandRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.history) {
		limit = len(t.history)
	}
	out := make([]CommandRecord, limit)
	copy(out, t.history[len(t.history)-limit:])
	return out
}

// ClearHistory drops the command history.
func (t *ShellTool) ClearHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
}

func (t *ShellTool) record(rec CommandRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, rec)
}

func (t *ShellTool) tempDir() string {
	if t.opts.WorkingDir != "" {
		return t.opts.WorkingDir
	}
	return os.TempDir()
}

func supportedRuntimes() []string {
	names := make([]string, 0, len(runtimeCmd))
	for name := range runtimeCmd {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
