// Package security enforces the command and path policy consulted before
// tool dispatch, plus the sliding-window rate limiter used by the HTTP
// layer. Policy violations are reported in the same language the tools
// speak so they can be surfaced to the model verbatim.
package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dugongyete-ui/agent-manus/logging"
)

// MaxCommandLength bounds a shell command before any pattern matching.
const MaxCommandLength = 5000

// blockedCommands are matched as substrings of the lowercased command.
var blockedCommands = []string{
	"rm -rf /", "rm -rf /*", "shutdown", "reboot", "halt", "poweroff",
	"mkfs", "dd if=/dev/zero", "dd if=/dev/random",
	":(){:|:&};:", "fork bomb",
}

// blockedPatterns catch destructive commands that evade the substring list.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+(-[a-zA-Z]*f[a-zA-Z]*\s+)?/\s*$`),
	regexp.MustCompile(`(?i)rm\s+(-[a-zA-Z]*f[a-zA-Z]*\s+)?/\*`),
	regexp.MustCompile(`(?i)>\s*/dev/sd[a-z]`),
	regexp.MustCompile(`(?i)mkfs\.`),
	regexp.MustCompile(`(?i)dd\s+if=/dev/(zero|random|urandom)\s+of=/dev/sd`),
	regexp.MustCompile(`(?i)chmod\s+(-[a-zA-Z]+\s+)?777\s+/`),
	regexp.MustCompile(`(?i)chown\s+.*\s+/`),
	regexp.MustCompile(`(?i)wget.*\|\s*(ba)?sh`),
	regexp.MustCompile(`(?i)curl.*\|\s*(ba)?sh`),
}

// dangerousEnvPatterns catch environment manipulation that would poison
// every later command in the workspace.
var dangerousEnvPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)export\s+PATH\s*=\s*$`),
	regexp.MustCompile(`(?i)unset\s+PATH`),
	regexp.MustCompile(`(?i)export\s+LD_PRELOAD`),
}

// blockedPathPrefixes are system locations no file operation may touch,
// regardless of workspace confinement.
var blockedPathPrefixes = []string{
	"/etc/shadow", "/etc/passwd", "/etc/sudoers",
	"/root", "/proc", "/sys", "/dev/mem", "/boot",
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	// WorkspaceRoot confines file access to a directory subtree. Empty
	// disables confinement; the system path blocklist still applies.
	WorkspaceRoot string
	// MaxCommandLength overrides the default command length bound.
	MaxCommandLength int
	// Logger receives policy violation diagnostics.
	Logger logging.Logger
}

// Guard validates shell commands and file paths against the security
// policy. It implements the dispatcher's screening hooks.
type Guard struct {
	opts GuardOptions
}

// NewGuard creates a Guard. WorkspaceRoot, when set, is normalized to an
// absolute path.
func NewGuard(optFns ...func(o *GuardOptions)) *Guard {
	opts := GuardOptions{
		MaxCommandLength: MaxCommandLength,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.WorkspaceRoot != "" {
		if abs, err := filepath.Abs(opts.WorkspaceRoot); err == nil {
			opts.WorkspaceRoot = abs
		}
	}
	return &Guard{opts: opts}
}

// WorkspaceRoot returns the confinement root, empty when unconfined.
func (g *Guard) WorkspaceRoot() string { return g.opts.WorkspaceRoot }

// ValidateCommand rejects commands that exceed the length bound or match
// the blocklists. A nil return means the command may run.
func (g *Guard) ValidateCommand(command string) error {
	if len(command) > g.opts.MaxCommandLength {
		g.opts.Logger.Warn("command too long", "length", len(command))
		return fmt.Errorf("Perintah terlalu panjang: %d karakter", len(command))
	}

	cmdLower := strings.ToLower(strings.TrimSpace(command))
	for _, blocked := range blockedCommands {
		if strings.Contains(cmdLower, blocked) {
			g.opts.Logger.Warn("command blocked", "rule", blocked)
			return fmt.Errorf("Perintah diblokir untuk keamanan: mengandung '%s'", blocked)
		}
	}
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(command) {
			g.opts.Logger.Warn("command blocked", "pattern", pattern.String())
			return fmt.Errorf("Perintah diblokir: cocok dengan pola berbahaya")
		}
	}
	for _, pattern := range dangerousEnvPatterns {
		if pattern.MatchString(command) {
			g.opts.Logger.Warn("command blocked", "pattern", pattern.String())
			return fmt.Errorf("Perintah diblokir: manipulasi environment berbahaya")
		}
	}
	return nil
}

// ValidateFilePath rejects traversal attempts, blocked system paths and,
// when confinement is configured, paths escaping the workspace root. The
// operation is recorded for diagnostics only.
func (g *Guard) ValidateFilePath(path, operation string) error {
	if strings.Contains(path, "..") {
		g.opts.Logger.Warn("path traversal rejected", "path", path, "operation", operation)
		return fmt.Errorf("Path traversal tidak diizinkan")
	}

	abs := g.Resolve(path)
	for _, blocked := range blockedPathPrefixes {
		if strings.HasPrefix(abs, blocked) {
			g.opts.Logger.Warn("path blocked", "path", abs, "rule", blocked, "operation", operation)
			return fmt.Errorf("Path terlarang: %s", blocked)
		}
	}

	if root := g.opts.WorkspaceRoot; root != "" {
		if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
			g.opts.Logger.Warn("path outside workspace", "path", abs, "operation", operation)
			return fmt.Errorf("Path di luar workspace: %s", abs)
		}
	}
	return nil
}

// Resolve normalizes a path for validation and tool use: relative paths
// land under the workspace root when one is configured.
func (g *Guard) Resolve(path string) string {
	if !filepath.IsAbs(path) && g.opts.WorkspaceRoot != "" {
		path = filepath.Join(g.opts.WorkspaceRoot, path)
	}
	return filepath.Clean(path)
}
