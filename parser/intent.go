package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dugongyete-ui/agent-manus/core"
)

// questionRe suppresses intent detection for conversational questions. It
// matches Indonesian and English interrogative openers.
var questionRe = regexp.MustCompile(`(?i)^\s*(?:apa|siapa|dimana|kapan|kenapa|mengapa|bagaimana|berapa|apakah|what|who|where|when|why|how|which|can you|could you|do you|are you|is there|tolong jelaskan|jelaskan|explain)\b`)

// intentRule maps recognizable imperative phrasings onto a tool invocation.
type intentRule struct {
	patterns []*regexp.Regexp
	tool     string
	build    func(m []string) map[string]any
}

const allToolsDemo = "_all_tools_demo"

var intentRules = []intentRule{
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)buka\s+((?:https?://)?(?:www\.)?[\w.-]+\.\w+\S*)`),
			regexp.MustCompile(`(?i)(?:navigasi|navigate|akses|kunjungi|visit|open)\s+((?:https?://)?(?:www\.)?[\w.-]+\.\w+\S*)`),
			regexp.MustCompile(`(?i)(?:buka|open|akses)\s+(?:situs|website|web|halaman|site)\s+([\w.-]+\.\w+\S*)`),
			regexp.MustCompile(`(?i)(?:analisis|analyze|lihat|cek|check)\s+(?:situs|website|web|halaman|site)\s+([\w.-]+\.\w+\S*)`),
		},
		tool: "browser_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"action": "navigate", "url": ensureURL(m[1])}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:cari|search|temukan|find|google)\s+(?:informasi\s+)?(?:tentang\s+|mengenai\s+|soal\s+|about\s+)?(.*)`),
			regexp.MustCompile(`(?i)(?:cari|search|find)\s+(.*)`),
		},
		tool: "search_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"query": strings.TrimRight(strings.TrimSpace(m[1]), ".,;:")}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:jalankan|run|eksekusi|execute)\s+(?:perintah|command|terminal|shell|cmd)\s*[:-]?\s*(.*)`),
			regexp.MustCompile(`(?i)(?:jalankan|run|eksekusi|execute)\s+((?:ls|cat|grep|find|pwd|echo|mkdir|pip|npm|curl|wget|python|node|git|apt|cd|df|du|ps|top|whoami|hostname|date|uname)(?:\s+.*)?)`),
			regexp.MustCompile(`\$\s*(.*)`),
		},
		tool: "shell_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"command": strings.TrimSpace(m[1])}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:buat|create|tulis|write)\s+file\s+([\w./-]+)\s+(?:dengan\s+(?:isi|konten|content)\s+)?(.*)`),
			regexp.MustCompile(`(?i)(?:tulis|write)\s+(?:ke\s+)?file\s+([\w./-]+)`),
			regexp.MustCompile(`(?i)(?:baca|read|tampilkan|show|lihat|view)\s+(?:file|isi)\s+([\w./-]+)`),
		},
		tool:  "file_tool",
		build: buildFileParams,
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:buat|create|generate|hasilkan)\s+(?:gambar|image|foto|picture)\s+(.*)`),
			regexp.MustCompile(`(?i)(?:buat|create|generate)\s+(?:grafik|chart)\s+(.*)`),
			regexp.MustCompile(`(?i)(?:buat|create|generate)\s+(?:svg|ikon|icon)\s+(.*)`),
		},
		tool: "generate_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"type": "image", "prompt": strings.TrimSpace(m[1]), "width": 1024, "height": 768}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:buat|create)\s+(?:presentasi|slides?|ppt)\s+(?:tentang\s+)?(.*)`),
		},
		tool: "slides_tool",
		build: func(m []string) map[string]any {
			title := strings.TrimSpace(m[1])
			return map[string]any{
				"action": "create",
				"title":  title,
				"slides": []any{map[string]any{"title": title, "content": "Konten presentasi"}},
			}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:buat|create|init)\s+(?:proyek|project)\s+(?:web\s+)?(\w+)\s+(?:dengan|using|pakai)\s+(\w+)`),
			regexp.MustCompile(`(?i)(?:buat|create|scaffold)\s+(?:aplikasi|app)\s+(\w+)\s+(\w+)`),
		},
		tool: "webdev_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"action": "init", "name": strings.TrimSpace(m[1]), "framework": strings.ToLower(strings.TrimSpace(m[2]))}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:jadwalkan|schedule|atur\s+jadwal)\s+(.*)`),
		},
		tool: "schedule_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"action": "create", "name": strings.TrimSpace(m[1]), "interval": 60}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:daftar|list)\s+(?:skill|kemampuan|keahlian)`),
			regexp.MustCompile(`(?i)(?:cari|search)\s+skill\s+(.*)`),
		},
		tool: "skill_manager",
		build: func(m []string) map[string]any {
			full := strings.ToLower(m[0])
			if strings.Contains(full, "list") || strings.Contains(full, "daftar") {
				return map[string]any{"action": "list"}
			}
			query := ""
			if len(m) > 1 {
				query = strings.TrimSpace(m[1])
			}
			return map[string]any{"action": "search", "query": query}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:tampilkan|show|lihat)\s+(?:daftar\s+)?(?:file|direktori|folder)`),
			regexp.MustCompile(`(?i)(?:ls|dir)\b`),
		},
		tool: "shell_tool",
		build: func(m []string) map[string]any {
			return map[string]any{"command": "ls -la"}
		},
	},
	{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:coba|test|uji)\s+(?:semua\s+)?tools?`),
			regexp.MustCompile(`(?i)(?:jalankan|run)\s+(?:semua\s+)?tools?`),
			regexp.MustCompile(`(?i)demo\s+(?:semua\s+)?tools?`),
		},
		tool:  allToolsDemo,
		build: func(m []string) map[string]any { return nil },
	},
}

// DetectIntent infers a tool action from an imperative user input. It
// returns false for questions, inputs shorter than three characters, and
// inputs that match no rule. Rules are tried in declaration order and the
// first match with non-blank parameters wins.
func DetectIntent(userInput string) (core.Action, bool) {
	text := strings.TrimSpace(userInput)
	if utf8.RuneCountInString(text) < 3 {
		return nil, false
	}
	if questionRe.MatchString(text) {
		return nil, false
	}

	for _, rule := range intentRules {
		for _, pattern := range rule.patterns {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if rule.tool == allToolsDemo {
				return buildAllToolsDemo(), true
			}
			params := rule.build(m)
			if blankParams(params) {
				continue
			}
			return core.UseToolAction{Tool: rule.tool, Params: params}, true
		}
	}
	return nil, false
}

// blankParams reports whether params carry no usable string content. A map
// whose string values are all blank (or that has no string values at all)
// is considered empty so a half-matched rule does not dispatch a tool.
func blankParams(params map[string]any) bool {
	if len(params) == 0 {
		return true
	}
	blank := 0
	total := 0
	for _, v := range params {
		s, ok := v.(string)
		if !ok {
			continue
		}
		total++
		if strings.TrimSpace(s) == "" {
			blank++
		}
	}
	return blank == total
}

// ensureURL normalizes a matched URL fragment, trimming trailing punctuation
// and defaulting the scheme to https.
func ensureURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), ".,;:!?")
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}
	return url
}

func buildFileParams(m []string) map[string]any {
	full := strings.ToLower(m[0])
	for _, w := range []string{"baca", "read", "tampilkan", "show", "lihat", "view"} {
		if strings.Contains(full, w) {
			return map[string]any{"operation": "read", "path": strings.TrimSpace(m[1])}
		}
	}
	path := strings.TrimSpace(m[1])
	content := "# New file\n"
	if len(m) > 2 && strings.TrimSpace(m[2]) != "" {
		content = strings.TrimSpace(m[2])
	}
	return map[string]any{"operation": "write", "path": path, "content": content}
}

// buildAllToolsDemo exercises one representative call per major tool. Used
// when the user asks to try or demo the toolset.
func buildAllToolsDemo() core.Action {
	return core.MultiStepAction{Steps: []core.ToolCall{
		{Tool: "shell_tool", Params: map[string]any{"command": "echo 'Shell tool aktif!' && date && uname -a"}},
		{Tool: "file_tool", Params: map[string]any{"operation": "list", "path": "."}},
		{Tool: "search_tool", Params: map[string]any{"query": "latest technology news 2026"}},
		{Tool: "message_tool", Params: map[string]any{"content": "Semua tools berhasil dijalankan!", "type": "success"}},
		{Tool: "skill_manager", Params: map[string]any{"action": "list"}},
		{Tool: "schedule_tool", Params: map[string]any{"action": "list"}},
	}}
}
