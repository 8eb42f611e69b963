package toolkit

import (
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/security"
	"github.com/dugongyete-ui/agent-manus/tool"
)

var (
	_ tool.Tool = (*ShellTool)(nil)
	_ tool.Tool = (*FileTool)(nil)
	_ tool.Tool = (*SearchTool)(nil)
	_ tool.Tool = (*MessageTool)(nil)
	_ tool.Tool = (*ScheduleTool)(nil)
)

// Options configures the default toolkit assembly.
type Options struct {
	// WorkspaceRoot is where shell commands run and relative file paths
	// resolve. Defaults to the guard's workspace root when one is set.
	WorkspaceRoot string
	// Guard enforces the command and path policy inside each tool.
	Guard *security.Guard
	// Logger is handed to every tool.
	Logger logging.Logger
}

// Register builds the default toolkit and registers every tool with the
// given registry. The schedule tool is returned alongside so callers can
// start its ticker and register callbacks.
func Register(registry *tool.Registry, optFns ...func(o *Options)) (*ScheduleTool, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.WorkspaceRoot == "" && opts.Guard != nil {
		opts.WorkspaceRoot = opts.Guard.WorkspaceRoot()
	}

	schedule := NewScheduleTool(func(o *ScheduleOptions) {
		o.Logger = opts.Logger
	})

	tools := []tool.Tool{
		NewShellTool(func(o *ShellOptions) {
			o.WorkingDir = opts.WorkspaceRoot
			o.Guard = opts.Guard
			o.Logger = opts.Logger
		}),
		NewFileTool(func(o *FileOptions) {
			o.Guard = opts.Guard
			o.Logger = opts.Logger
		}),
		NewSearchTool(func(o *SearchOptions) {
			o.Logger = opts.Logger
		}),
		NewMessageTool(func(o *MessageOptions) {
			o.Logger = opts.Logger
		}),
		schedule,
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

// stringParam reads an optional string parameter, returning "" when absent
// or of a different type.
func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// intParam reads an optional integer parameter. JSON decoding delivers
// numbers as float64, so both forms are accepted.
func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// truncateRunes clips s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// secondsOf converts a duration to whole seconds for protocol messages.
func secondsOf(d time.Duration) int {
	return int(d / time.Second)
}
