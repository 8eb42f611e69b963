package parser

import (
	"testing"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTool(t *testing.T, action core.Action, ok bool) core.UseToolAction {
	t.Helper()
	require.True(t, ok, "expected an intent match")
	ut, isTool := action.(core.UseToolAction)
	require.True(t, isTool, "expected UseToolAction, got %T", action)
	return ut
}

func TestDetectIntent_Browser(t *testing.T) {
	tests := []struct {
		input string
		url   string
	}{
		{"buka google.com", "https://google.com"},
		{"buka https://example.com/page", "https://example.com/page"},
		{"navigate to-site.io sekarang", "https://to-site.io"},
		{"kunjungi www.detik.com.", "https://www.detik.com"},
		{"cek website github.com", "https://github.com"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			action, ok := DetectIntent(tt.input)
			ut := requireTool(t, action, ok)
			assert.Equal(t, "browser_tool", ut.Tool)
			assert.Equal(t, "navigate", ut.Params["action"])
			assert.Equal(t, tt.url, ut.Params["url"])
		})
	}
}

func TestDetectIntent_Search(t *testing.T) {
	action, ok := DetectIntent("cari informasi tentang harga emas hari ini")
	ut := requireTool(t, action, ok)
	assert.Equal(t, "search_tool", ut.Tool)
	assert.Equal(t, "harga emas hari ini", ut.Params["query"])

	action, ok = DetectIntent("search golang concurrency patterns")
	ut = requireTool(t, action, ok)
	assert.Equal(t, "search_tool", ut.Tool)
	assert.Equal(t, "golang concurrency patterns", ut.Params["query"])
}

func TestDetectIntent_Shell(t *testing.T) {
	t.Run("explicit command keyword", func(t *testing.T) {
		action, ok := DetectIntent("jalankan perintah: df -h")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "shell_tool", ut.Tool)
		assert.Equal(t, "df -h", ut.Params["command"])
	})

	t.Run("known command", func(t *testing.T) {
		action, ok := DetectIntent("run uname -a")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "shell_tool", ut.Tool)
		assert.Equal(t, "uname -a", ut.Params["command"])
	})

	t.Run("dollar prefix", func(t *testing.T) {
		action, ok := DetectIntent("$ cat /etc/hostname")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "shell_tool", ut.Tool)
		assert.Equal(t, "cat /etc/hostname", ut.Params["command"])
	})

	t.Run("directory listing", func(t *testing.T) {
		action, ok := DetectIntent("tampilkan daftar file")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "shell_tool", ut.Tool)
		assert.Equal(t, "ls -la", ut.Params["command"])
	})
}

func TestDetectIntent_File(t *testing.T) {
	t.Run("write with content", func(t *testing.T) {
		action, ok := DetectIntent("buat file hello.txt dengan isi Hello World")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "file_tool", ut.Tool)
		assert.Equal(t, "write", ut.Params["operation"])
		assert.Equal(t, "hello.txt", ut.Params["path"])
		assert.Equal(t, "Hello World", ut.Params["content"])
	})

	t.Run("write without content gets default", func(t *testing.T) {
		action, ok := DetectIntent("tulis ke file notes/todo.md")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "write", ut.Params["operation"])
		assert.Equal(t, "notes/todo.md", ut.Params["path"])
		assert.Equal(t, "# New file\n", ut.Params["content"])
	})

	t.Run("read", func(t *testing.T) {
		action, ok := DetectIntent("baca file config.yaml")
		ut := requireTool(t, action, ok)
		assert.Equal(t, "read", ut.Params["operation"])
		assert.Equal(t, "config.yaml", ut.Params["path"])
	})
}

func TestDetectIntent_Generate(t *testing.T) {
	action, ok := DetectIntent("buat gambar pemandangan gunung saat senja")
	ut := requireTool(t, action, ok)
	assert.Equal(t, "generate_tool", ut.Tool)
	assert.Equal(t, "image", ut.Params["type"])
	assert.Equal(t, "pemandangan gunung saat senja", ut.Params["prompt"])
	assert.Equal(t, 1024, ut.Params["width"])
	assert.Equal(t, 768, ut.Params["height"])
}

func TestDetectIntent_Slides(t *testing.T) {
	action, ok := DetectIntent("buat presentasi tentang energi terbarukan")
	ut := requireTool(t, action, ok)
	assert.Equal(t, "slides_tool", ut.Tool)
	assert.Equal(t, "create", ut.Params["action"])
	assert.Equal(t, "energi terbarukan", ut.Params["title"])
}

func TestDetectIntent_Webdev(t *testing.T) {
	action, ok := DetectIntent("buat proyek web tokoku dengan react")
	ut := requireTool(t, action, ok)
	assert.Equal(t, "webdev_tool", ut.Tool)
	assert.Equal(t, "init", ut.Params["action"])
	assert.Equal(t, "tokoku", ut.Params["name"])
	assert.Equal(t, "react", ut.Params["framework"])
}

func TestDetectIntent_Schedule(t *testing.T) {
	action, ok := DetectIntent("jadwalkan backup harian")
	ut := requireTool(t, action, ok)
	assert.Equal(t, "schedule_tool", ut.Tool)
	assert.Equal(t, "create", ut.Params["action"])
	assert.Equal(t, "backup harian", ut.Params["name"])
	assert.Equal(t, 60, ut.Params["interval"])
}

func TestDetectIntent_Skills(t *testing.T) {
	action, ok := DetectIntent("daftar skill")
	ut := requireTool(t, action, ok)
	assert.Equal(t, "skill_manager", ut.Tool)
	assert.Equal(t, "list", ut.Params["action"])
}

func TestDetectIntent_AllToolsDemo(t *testing.T) {
	action, ok := DetectIntent("demo tool")
	require.True(t, ok)
	ms, isMulti := action.(core.MultiStepAction)
	require.True(t, isMulti, "expected MultiStepAction, got %T", action)
	require.Len(t, ms.Steps, 6)
	assert.Equal(t, "shell_tool", ms.Steps[0].Tool)
	assert.Equal(t, "schedule_tool", ms.Steps[5].Tool)
}

func TestDetectIntent_Suppression(t *testing.T) {
	t.Run("questions", func(t *testing.T) {
		for _, input := range []string{
			"Apa itu kecerdasan buatan?",
			"apakah kamu bisa buka google.com",
			"How do I run a marathon?",
			"why is the sky blue",
			"Jelaskan apa itu AI",
		} {
			_, ok := DetectIntent(input)
			assert.False(t, ok, "question %q must not produce an intent", input)
		}
	})

	t.Run("too short", func(t *testing.T) {
		_, ok := DetectIntent("ls")
		assert.False(t, ok)
		_, ok = DetectIntent("  a ")
		assert.False(t, ok)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := DetectIntent("terima kasih banyak atas bantuannya")
		assert.False(t, ok)
	})

	t.Run("blank captured params", func(t *testing.T) {
		// Matches the search rule but captures an empty query.
		_, ok := DetectIntent("cari   ")
		assert.False(t, ok)
	})
}

func TestEnsureURL(t *testing.T) {
	assert.Equal(t, "https://example.com", ensureURL("example.com"))
	assert.Equal(t, "https://example.com", ensureURL("example.com.,;"))
	assert.Equal(t, "http://plain.io", ensureURL("http://plain.io"))
	assert.Equal(t, "https://secure.io", ensureURL("https://secure.io"))
}
