package toolkit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageExecute(t *testing.T) {
	mt := NewMessageTool()

	out, err := mt.Execute(context.Background(), map[string]any{"content": "halo pengguna", "type": "success"})
	require.NoError(t, err)
	assert.Equal(t, "Pesan terkirim: halo pengguna", out)

	history := mt.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, "halo pengguna", history[0].Content)
	assert.Equal(t, "success", history[0].Type)
	assert.Equal(t, "agent", history[0].Sender)
	assert.Equal(t, "user", history[0].Recipient)
}

func TestMessageExecuteMissingContent(t *testing.T) {
	mt := NewMessageTool()

	out, err := mt.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Tidak ada konten pesan.", out)
	assert.Empty(t, mt.History(0))
}

func TestMessageUnknownTypeFallsBackToInfo(t *testing.T) {
	mt := NewMessageTool()

	msg := mt.Send("teks", "aneh")
	assert.Equal(t, "info", msg.Type)
}

func TestMessageTruncation(t *testing.T) {
	mt := NewMessageTool()

	msg := mt.Send(strings.Repeat("a", MaxMessageLength+5), "info")
	assert.True(t, strings.HasSuffix(msg.Content, "... (terpotong)"))
	assert.Len(t, []rune(msg.Content), MaxMessageLength+len("... (terpotong)"))
}

func TestMessageNotifyCallback(t *testing.T) {
	var got []UserMessage
	mt := NewMessageTool(func(o *MessageOptions) {
		o.Notify = func(msg UserMessage) { got = append(got, msg) }
	})

	mt.Notify("Judul", "isi notifikasi", "warning")
	require.Len(t, got, 1)
	assert.Equal(t, "**Judul**\nisi notifikasi", got[0].Content)
	assert.Equal(t, "warning", got[0].Type)
}

func TestMessageProgressFormat(t *testing.T) {
	mt := NewMessageTool()

	msg := mt.Progress("unduhan", 42.4, "separuh jalan")
	assert.Equal(t, "Progres [unduhan]: 42% - separuh jalan", msg.Content)
	assert.Equal(t, "progress", msg.Type)

	msg = mt.Progress("unduhan", 100, "")
	assert.Equal(t, "Progres [unduhan]: 100%", msg.Content)
}

func TestMessageUnreadMarksRead(t *testing.T) {
	mt := NewMessageTool()
	mt.Send("satu", "info")
	mt.Send("dua", "info")

	unread := mt.Unread()
	require.Len(t, unread, 2)
	assert.Empty(t, mt.Unread())

	history := mt.History(0)
	for _, msg := range history {
		assert.True(t, msg.Read)
	}
}

func TestMessageQuestionsQueue(t *testing.T) {
	mt := NewMessageTool()
	mt.Ask("Lanjutkan?")
	mt.Ask("Hapus file?")

	pending := mt.PendingQuestions()
	require.Len(t, pending, 2)
	assert.Equal(t, "Lanjutkan?", pending[0].Content)
	assert.Equal(t, "question", pending[0].Type)

	answered, err := mt.AnswerQuestion("ya")
	require.NoError(t, err)
	assert.Equal(t, "Lanjutkan?", answered.Content)
	assert.Len(t, mt.PendingQuestions(), 1)

	_, err = mt.AnswerQuestion("ya")
	require.NoError(t, err)
	_, err = mt.AnswerQuestion("ya")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tidak ada pertanyaan yang menunggu jawaban")
}

func TestMessageHistoryLimit(t *testing.T) {
	mt := NewMessageTool()
	for _, content := range []string{"a", "b", "c"} {
		mt.Send(content, "info")
	}

	history := mt.History(2)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[0].Content)
	assert.Equal(t, "c", history[1].Content)
}
