package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/internal/testutil"
)

func TestBuildPrompt(t *testing.T) {
	messages := testutil.NewConversationBuilder().
		System("Kamu adalah asisten.").
		User("Halo").
		Assistant("Hai, ada yang bisa dibantu?").
		Build()

	got := BuildPrompt(messages)
	assert.Equal(t, "[System]: Kamu adalah asisten.\n\nUser: Halo\n\nAssistant: Hai, ada yang bisa dibantu?", got)
}

func TestBuildPromptSkipsNonConversationalRoles(t *testing.T) {
	messages := []core.Message{
		core.NewMessage(core.RoleUser, "Halo"),
		core.NewMessage(core.RoleTool, "hasil mentah"),
	}

	assert.Equal(t, "User: Halo", BuildPrompt(messages))
}

func TestWrapHistory(t *testing.T) {
	got := WrapHistory("User: Halo\nAssistant: Hai", "Lanjutkan")
	assert.Equal(t, "[CONVERSATION HISTORY]\nUser: Halo\nAssistant: Hai\n[END HISTORY]\n\nUser: Lanjutkan", got)
}

func TestWrapHistoryEmptyPassthrough(t *testing.T) {
	assert.Equal(t, "Halo", WrapHistory("", "Halo"))
	assert.Equal(t, "Halo", WrapHistory("   \n", "Halo"))
}

func TestPlanningPrompt(t *testing.T) {
	got := planningPrompt("Buat laporan cuaca")

	assert.Contains(t, got, "Permintaan: Buat laporan cuaca")
	assert.Contains(t, got, `"direct_response"`)
	assert.Contains(t, got, `"immediate_action"`)
	assert.Contains(t, got, `"goal"`)
}

func TestReflectionPrompt(t *testing.T) {
	got := reflectionPrompt(
		"Kumpulkan data cuaca",
		"Used search_tool with params {\"query\":\"cuaca\"}",
		"Cerah, 31 derajat",
		[]string{"Tulis ringkasan", "Kirim laporan"},
	)

	assert.Contains(t, got, "Tujuan: Kumpulkan data cuaca")
	assert.Contains(t, got, "Cerah, 31 derajat")
	assert.Contains(t, got, "- Tulis ringkasan\n- Kirim laporan")
	assert.NotContains(t, got, "(tidak ada)")
}

func TestReflectionPromptNoRemainingSteps(t *testing.T) {
	got := reflectionPrompt("Tujuan kecil", "Used shell_tool with params {}", "ok", nil)
	assert.Contains(t, got, "(tidak ada)")
}

func TestReflectionPromptClampsLongResults(t *testing.T) {
	long := strings.Repeat("x", core.ResultClamp+500)
	got := reflectionPrompt("Tujuan", "langkah", long, nil)
	assert.NotContains(t, got, long)
	assert.Contains(t, got, strings.Repeat("x", core.ResultClamp))
}

func TestDefaultSystemPromptNamesTools(t *testing.T) {
	for _, name := range []string{"shell_tool", "file_tool", "search_tool", "message_tool", "schedule_tool"} {
		assert.Contains(t, DefaultSystemPrompt, name)
	}
	assert.Contains(t, DefaultSystemPrompt, `"use_tool"`)
	assert.Contains(t, DefaultSystemPrompt, `"multi_step"`)
}
