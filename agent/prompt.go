package agent

import (
	"fmt"
	"strings"

	"github.com/dugongyete-ui/agent-manus/core"
)

// DefaultSystemPrompt instructs the model to answer with the pure-JSON
// action protocol the parser expects. The agent operates in Indonesian;
// protocol keywords stay English so the parser is language independent.
const DefaultSystemPrompt = `Kamu adalah Manus, agen AI otonom yang BENAR-BENAR mengeksekusi tools. Kamu BUKAN chatbot biasa.

ATURAN MUTLAK:
1. Output HANYA JSON murni, TANPA markdown, TANPA teks tambahan, TANPA penjelasan
2. JANGAN PERNAH berkata "saya tidak bisa", "saya hanya AI", "saya tidak memiliki akses"
3. SELALU gunakan tool yang tepat untuk setiap permintaan
4. JANGAN menjelaskan apa yang akan kamu lakukan - LANGSUNG lakukan

FORMAT RESPONS (pilih salah satu, output JSON SAJA):
{"action":"use_tool","tool":"nama_tool","params":{...}}
{"action":"respond","message":"teks jawaban"}
{"action":"multi_step","steps":[{"tool":"t","params":{}}]}

TOOLS TERSEDIA:
1. shell_tool: {"command":"cmd"} atau {"action":"run_code","code":"...","runtime":"python3"}
2. file_tool: {"operation":"read|write|append|edit|view|list|delete|copy|move|search|info","path":"...","content":"..."}
3. search_tool: {"query":"..."} atau {"action":"fetch","url":"..."}
4. message_tool: {"content":"...","type":"info|warning|success|error"}
5. schedule_tool: {"action":"create|list|cancel|pause|resume","name":"...","interval":60}

PEMETAAN WAJIB:
- "cari/search [query]" -> {"action":"use_tool","tool":"search_tool","params":{"query":"..."}}
- "jalankan/run [command]" -> {"action":"use_tool","tool":"shell_tool","params":{"command":"..."}}
- "buat/baca/edit file" -> {"action":"use_tool","tool":"file_tool","params":{"operation":"...","path":"..."}}
- "jadwalkan [tugas]" -> {"action":"use_tool","tool":"schedule_tool","params":{"action":"create","name":"..."}}
- pertanyaan umum -> {"action":"respond","message":"jawaban langsung"}

CONTOH OUTPUT BENAR:
{"action":"use_tool","tool":"search_tool","params":{"query":"berita terbaru AI 2026"}}
{"action":"use_tool","tool":"shell_tool","params":{"command":"ls -la"}}
{"action":"respond","message":"Ini adalah jawaban saya..."}

INGAT: Output JSON murni. Tidak ada teks sebelum atau sesudah JSON. Tidak ada markdown code block.`

// Synthesis instructions appended to the flattened context. Both demand
// plain text instead of the JSON protocol; the answer is user-facing.
const (
	synthesisShort = "\n\n[System]: Berikan ringkasan singkat hasil tool. Respons sebagai teks biasa."
	synthesisFinal = "\n\n[System]: Berikan ringkasan akhir. Respons sebagai teks biasa."
)

// BuildPrompt flattens a context window into the plain-text transcript form
// the providers consume. Roles outside the conversational three are skipped.
func BuildPrompt(messages []core.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			parts = append(parts, "[System]: "+msg.Content)
		case core.RoleUser:
			parts = append(parts, "User: "+msg.Content)
		case core.RoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// WrapHistory embeds the rendered transcript of prior turns around the new
// user input, so the fresh per-run context still sees the conversation so
// far. An empty history passes the input through unchanged.
func WrapHistory(history, userMessage string) string {
	if strings.TrimSpace(history) == "" {
		return userMessage
	}
	return fmt.Sprintf("[CONVERSATION HISTORY]\n%s\n[END HISTORY]\n\nUser: %s", history, userMessage)
}

// planningPrompt asks the model how to approach a request before the first
// iteration: answer directly, fire one immediate action, or lay out a plan.
func planningPrompt(userMessage string) string {
	return fmt.Sprintf(`Analisis permintaan user berikut dan tentukan cara menanganinya.

Permintaan: %s

Pilih SATU format respons (output JSON murni, tanpa teks lain):
1. Pertanyaan umum yang bisa dijawab langsung:
{"direct_response":"jawaban lengkap"}
2. Permintaan sederhana yang butuh satu aksi tool:
{"immediate_action":{"action":"use_tool","tool":"nama_tool","params":{...}}}
3. Tugas kompleks yang butuh beberapa langkah:
{"goal":"tujuan akhir","steps":["langkah 1","langkah 2","langkah 3"]}`, userMessage)
}

// reflectionPrompt asks whether the goal is satisfied after a tool result.
func reflectionPrompt(goal, completedStep, result string, remaining []string) string {
	rest := "(tidak ada)"
	if len(remaining) > 0 {
		rest = "- " + strings.Join(remaining, "\n- ")
	}
	return fmt.Sprintf(`Evaluasi kemajuan tugas berikut.

Tujuan: %s
Langkah selesai: %s
Hasil:
%s

Langkah tersisa:
%s

Tentukan langkah berikutnya (output JSON murni, tanpa teks lain):
{"action":"respond","message":"jawaban akhir untuk user"} jika tujuan sudah tercapai
{"action":"use_tool","tool":"nama_tool","params":{...}} jika masih butuh aksi lain
{"action":"think","thought":"analisis singkat"} jika perlu evaluasi lebih lanjut`,
		goal, completedStep, core.ClampResult(result), rest)
}
