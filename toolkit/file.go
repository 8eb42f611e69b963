package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/security"
)

// MaxFileSizeMB bounds files the read operation will load.
const MaxFileSizeMB = 100

// maxSearchResults caps file search output.
const maxSearchResults = 100

// mediaCategories maps file extensions to a coarse media category reported
// by list, info and search.
var mediaCategories = map[string]string{
	".pdf": "pdf",
	".png": "image", ".jpg": "image", ".jpeg": "image", ".gif": "image",
	".bmp": "image", ".webp": "image", ".svg": "image", ".ico": "image", ".tiff": "image",
	".mp3": "audio", ".wav": "audio", ".ogg": "audio", ".flac": "audio",
	".aac": "audio", ".m4a": "audio", ".wma": "audio",
	".mp4": "video", ".avi": "video", ".mkv": "video", ".mov": "video",
	".webm": "video", ".flv": "video", ".wmv": "video",
	".doc": "document", ".docx": "document", ".xls": "document",
	".xlsx": "document", ".pptx": "document", ".odt": "document", ".ods": "document",
	".csv": "data", ".json": "data", ".xml": "data",
	".yaml": "data", ".yml": "data", ".toml": "data",
	".py": "code", ".js": "code", ".ts": "code", ".html": "code", ".css": "code",
	".java": "code", ".go": "code", ".rs": "code", ".cpp": "code", ".c": "code",
	".rb": "code", ".php": "code",
	".txt": "text", ".md": "text", ".rst": "text", ".log": "text",
}

func detectMediaCategory(name string) string {
	if category, ok := mediaCategories[strings.ToLower(filepath.Ext(name))]; ok {
		return category
	}
	return "unknown"
}

// DirEntry describes one entry of a directory listing.
type DirEntry struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Size          int64  `json:"size"`
	MediaCategory string `json:"media_category,omitempty"`
}

// FileInfo describes a file or directory for the info operation.
type FileInfo struct {
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	SizeHuman     string `json:"size_human"`
	IsFile        bool   `json:"is_file"`
	IsDir         bool   `json:"is_dir"`
	Modified      int64  `json:"modified"`
	Extension     string `json:"extension"`
	MimeType      string `json:"mime_type,omitempty"`
	MediaCategory string `json:"media_category"`
}

// FileMatch is one file search hit.
type FileMatch struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	MediaCategory string `json:"media_category"`
}

// FileOptions configures a FileTool.
type FileOptions struct {
	// Guard validates and resolves every path. Without one, paths resolve
	// against the process working directory with no policy applied.
	Guard *security.Guard
	// MaxFileSizeMB overrides the read size bound.
	MaxFileSizeMB int
	// Logger receives operation diagnostics.
	Logger logging.Logger
}

// FileTool performs workspace file operations: read, write, append, edit,
// view, list, delete, copy, move, search and info.
type FileTool struct {
	opts FileOptions
}

// NewFileTool creates a FileTool.
func NewFileTool(optFns ...func(o *FileOptions)) *FileTool {
	opts := FileOptions{
		MaxFileSizeMB: MaxFileSizeMB,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxFileSizeMB <= 0 {
		opts.MaxFileSizeMB = MaxFileSizeMB
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &FileTool{opts: opts}
}

// Name returns the tool identifier.
func (t *FileTool) Name() string { return "file_tool" }

// Description returns the tool description shown to the model.
func (t *FileTool) Description() string {
	return "Reads, writes and manages files in the workspace. " +
		"Operations: read, write, append, edit, view, list, delete, copy, move, search, info."
}

// Parameters returns the JSON schema for tool parameters.
func (t *FileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []string{
					"read", "write", "append", "edit", "view",
					"list", "delete", "copy", "move", "search", "info",
				},
				"description": "File operation to perform (default: read)",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Target path, relative paths resolve inside the workspace",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content for write and append",
			},
			"old_text": map[string]any{
				"type":        "string",
				"description": "Text to replace for edit",
			},
			"new_text": map[string]any{
				"type":        "string",
				"description": "Replacement text for edit",
			},
			"start_line": map[string]any{
				"type":        "integer",
				"description": "First line for view (1-based)",
			},
			"end_line": map[string]any{
				"type":        "integer",
				"description": "Last line for view",
			},
			"dest": map[string]any{
				"type":        "string",
				"description": "Destination path for copy and move",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern for search (default: *)",
			},
			"directory": map[string]any{
				"type":        "string",
				"description": "Directory for search (default: path or .)",
			},
		},
	}
}

// Execute routes the call to the requested file operation.
func (t *FileTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	operation := stringParam(params, "operation")
	if operation == "" {
		operation = "read"
	}
	pathParam := stringParam(params, "path")

	if pathParam == "" && operation != "list" && operation != "search" {
		return "Path file tidak diberikan.", nil
	}

	switch operation {
	case "read":
		return t.ReadFile(pathParam)
	case "write":
		return t.WriteFile(pathParam, stringParam(params, "content"))
	case "append":
		return t.AppendFile(pathParam, stringParam(params, "content"))
	case "edit":
		return t.EditFile(pathParam, stringParam(params, "old_text"), stringParam(params, "new_text"))
	case "view":
		return t.ViewFile(pathParam, intParam(params, "start_line", 1), intParam(params, "end_line", 0))
	case "list":
		target := pathParam
		if target == "" {
			target = "."
		}
		entries, err := t.ListDirectory(target)
		if err != nil {
			return "", err
		}
		return formatListing(entries), nil
	case "delete":
		return t.Delete(pathParam)
	case "copy":
		dest := stringParam(params, "dest")
		if dest == "" {
			return "Tujuan copy tidak diberikan.", nil
		}
		return t.Copy(pathParam, dest)
	case "move":
		dest := stringParam(params, "dest")
		if dest == "" {
			return "Tujuan move tidak diberikan.", nil
		}
		return t.Move(pathParam, dest)
	case "search":
		pattern := stringParam(params, "pattern")
		if pattern == "" {
			pattern = "*"
		}
		directory := stringParam(params, "directory")
		if directory == "" {
			directory = pathParam
		}
		if directory == "" {
			directory = "."
		}
		matches, err := t.SearchFiles(directory, pattern)
		if err != nil {
			return "", err
		}
		if len(matches) == 0 {
			return "Tidak ditemukan file yang cocok.", nil
		}
		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = fmt.Sprintf("%s (%d bytes)", m.Path, m.Size)
		}
		return strings.Join(lines, "\n"), nil
	case "info":
		info, err := t.Info(pathParam)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(info)
		if err != nil {
			return "", fmt.Errorf("marshal file info: %w", err)
		}
		return string(data), nil
	default:
		return fmt.Sprintf("Operasi file tidak dikenal: %s", operation), nil
	}
}

// ReadFile returns the content of a file after size validation.
func (t *FileTool) ReadFile(p string) (string, error) {
	abs, err := t.resolve(p, "read")
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("File tidak ditemukan: %s", abs)
	}
	sizeMB := float64(stat.Size()) / (1024 * 1024)
	if sizeMB > float64(t.opts.MaxFileSizeMB) {
		return "", fmt.Errorf("File terlalu besar: %.1fMB (maks: %dMB)", sizeMB, t.opts.MaxFileSizeMB)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", abs, err)
	}
	t.opts.Logger.Info("file read", "path", abs, "chars", len(data))
	return string(data), nil
}

// WriteFile writes content to a file, creating parent directories.
func (t *FileTool) WriteFile(p, content string) (string, error) {
	abs, err := t.resolve(p, "write")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	t.opts.Logger.Info("file written", "path", abs, "chars", len(content))
	return fmt.Sprintf("File berhasil ditulis: %s", abs), nil
}

// AppendFile appends content to a file, creating it when missing.
func (t *FileTool) AppendFile(p, content string) (string, error) {
	abs, err := t.resolve(p, "write")
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", abs, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("append %s: %w", abs, err)
	}
	return fmt.Sprintf("Konten berhasil ditambahkan ke: %s", abs), nil
}

// EditFile replaces the first occurrence of oldText in the file.
func (t *FileTool) EditFile(p, oldText, newText string) (string, error) {
	abs, err := t.resolve(p, "write")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("File tidak ditemukan: %s", abs)
	}
	content := string(data)
	if !strings.Contains(content, oldText) {
		return fmt.Sprintf("Teks '%s...' tidak ditemukan dalam file %s", truncateRunes(oldText, 50), abs), nil
	}
	content = strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	t.opts.Logger.Info("file edited", "path", abs)
	return fmt.Sprintf("File berhasil diedit: %s", abs), nil
}

// ViewFile renders a numbered line range. Without an end line the view
// shows 50 lines from the start line.
func (t *FileTool) ViewFile(p string, startLine, endLine int) (string, error) {
	abs, err := t.resolve(p, "read")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("File tidak ditemukan: %s", abs)
	}
	lines := strings.Split(string(data), "\n")
	// A trailing newline yields a phantom empty element.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	total := len(lines)

	start := startLine - 1
	if start < 0 {
		start = 0
	}
	end := endLine
	if end <= 0 {
		end = start + 50
	}
	if end > total {
		end = total
	}

	out := []string{fmt.Sprintf("--- %s (baris %d-%d dari %d) ---", abs, start+1, end, total)}
	for i := start; i < end; i++ {
		out = append(out, fmt.Sprintf("%4d | %s", i+1, strings.TrimRight(lines[i], " \t\r")))
	}
	return strings.Join(out, "\n"), nil
}

// Delete removes a file or a directory tree.
func (t *FileTool) Delete(p string) (string, error) {
	abs, err := t.resolve(p, "delete")
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("Path tidak ditemukan: %s", abs)
	}
	if stat.IsDir() {
		if err := os.RemoveAll(abs); err != nil {
			return "", fmt.Errorf("remove dir %s: %w", abs, err)
		}
		t.opts.Logger.Info("directory deleted", "path", abs)
		return fmt.Sprintf("Direktori berhasil dihapus: %s", abs), nil
	}
	if err := os.Remove(abs); err != nil {
		return "", fmt.Errorf("remove %s: %w", abs, err)
	}
	t.opts.Logger.Info("file deleted", "path", abs)
	return fmt.Sprintf("File berhasil dihapus: %s", abs), nil
}

// ListDirectory returns the entries of a directory sorted by name.
func (t *FileTool) ListDirectory(p string) ([]DirEntry, error) {
	abs, err := t.resolve(p, "read")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("Bukan direktori: %s", abs)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		e := DirEntry{Name: entry.Name(), Type: "file"}
		if entry.IsDir() {
			e.Type = "directory"
		} else {
			if info, err := entry.Info(); err == nil {
				e.Size = info.Size()
			}
			e.MediaCategory = detectMediaCategory(entry.Name())
		}
		out = append(out, e)
	}
	return out, nil
}

// Copy duplicates a file or directory tree.
func (t *FileTool) Copy(src, dst string) (string, error) {
	srcAbs, err := t.resolve(src, "read")
	if err != nil {
		return "", err
	}
	dstAbs, err := t.resolve(dst, "write")
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(srcAbs)
	if err != nil {
		return "", fmt.Errorf("File tidak ditemukan: %s", srcAbs)
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if stat.IsDir() {
		if err := copyTree(srcAbs, dstAbs); err != nil {
			return "", err
		}
	} else {
		if err := copyFile(srcAbs, dstAbs, stat.Mode()); err != nil {
			return "", err
		}
	}
	t.opts.Logger.Info("copied", "src", srcAbs, "dst", dstAbs)
	return fmt.Sprintf("Berhasil disalin: %s -> %s", srcAbs, dstAbs), nil
}

// Move renames a file or directory, falling back to copy and delete for
// files when the rename crosses filesystems.
func (t *FileTool) Move(src, dst string) (string, error) {
	srcAbs, err := t.resolve(src, "write")
	if err != nil {
		return "", err
	}
	dstAbs, err := t.resolve(dst, "write")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		stat, statErr := os.Stat(srcAbs)
		if statErr != nil {
			return "", fmt.Errorf("File tidak ditemukan: %s", srcAbs)
		}
		if stat.IsDir() {
			return "", fmt.Errorf("move %s: %w", srcAbs, err)
		}
		if err := copyFile(srcAbs, dstAbs, stat.Mode()); err != nil {
			return "", err
		}
		if err := os.Remove(srcAbs); err != nil {
			return "", fmt.Errorf("remove %s: %w", srcAbs, err)
		}
	}
	t.opts.Logger.Info("moved", "src", srcAbs, "dst", dstAbs)
	return fmt.Sprintf("Berhasil dipindahkan: %s -> %s", srcAbs, dstAbs), nil
}

// SearchFiles walks a directory matching file names against a glob
// pattern, case-insensitively. At most 100 hits are returned.
func (t *FileTool) SearchFiles(directory, pattern string) ([]FileMatch, error) {
	abs, err := t.resolve(directory, "read")
	if err != nil {
		return nil, err
	}
	pattern = strings.ToLower(pattern)

	var matches []FileMatch
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, strings.ToLower(d.Name()))
		if matchErr != nil || !ok {
			return matchErr
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, FileMatch{
			Name:          d.Name(),
			Path:          p,
			Size:          info.Size(),
			MediaCategory: detectMediaCategory(d.Name()),
		})
		if len(matches) >= maxSearchResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", abs, err)
	}
	return matches, nil
}

// Info returns metadata about a file or directory.
func (t *FileTool) Info(p string) (*FileInfo, error) {
	abs, err := t.resolve(p, "read")
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("Path tidak ditemukan: %s", abs)
	}
	ext := strings.ToLower(filepath.Ext(abs))
	return &FileInfo{
		Path:          abs,
		Size:          stat.Size(),
		SizeHuman:     humanSize(stat.Size()),
		IsFile:        !stat.IsDir(),
		IsDir:         stat.IsDir(),
		Modified:      stat.ModTime().Unix(),
		Extension:     ext,
		MimeType:      mime.TypeByExtension(ext),
		MediaCategory: detectMediaCategory(abs),
	}, nil
}

// resolve validates a path against the guard and returns its absolute form.
func (t *FileTool) resolve(p, operation string) (string, error) {
	if t.opts.Guard == nil {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("Path tidak valid: %s", p)
		}
		return abs, nil
	}
	if err := t.opts.Guard.ValidateFilePath(p, operation); err != nil {
		return "", err
	}
	return t.opts.Guard.Resolve(p), nil
}

func formatListing(entries []DirEntry) string {
	if len(entries) == 0 {
		return "Direktori kosong."
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		if e.Type == "directory" {
			lines[i] = fmt.Sprintf("📁 %s", e.Name)
		} else {
			lines[i] = fmt.Sprintf("📄 %s (%d bytes)", e.Name, e.Size)
		}
	}
	return strings.Join(lines, "\n")
}

func humanSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(p, target, info.Mode())
	})
}
