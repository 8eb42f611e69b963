package core

import (
	"strings"
	"sync"
	"testing"
)

func TestSession_AppendStampsSessionID(t *testing.T) {
	sess := NewSession("", "scratch")
	if sess.ID == "" {
		t.Fatal("expected generated session ID")
	}

	msg := NewMessage(RoleUser, "hello")
	sess.Append(msg)

	msgs := sess.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].SessionID != sess.ID {
		t.Errorf("append should stamp session ID, got %q", msgs[0].SessionID)
	}
}

func TestSession_MessagesReturnsCopy(t *testing.T) {
	sess := NewSession("s1", "t")
	sess.Append(NewMessage(RoleUser, "one"))

	msgs := sess.Messages()
	msgs[0].Content = "mutated"

	if sess.Messages()[0].Content != "one" {
		t.Error("Messages should return a defensive copy")
	}
}

func TestSession_ConcurrentAppend(t *testing.T) {
	sess := NewSession("s2", "t")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Append(NewMessage(RoleAssistant, "x"))
		}()
	}
	wg.Wait()

	if sess.Len() != 50 {
		t.Errorf("expected 50 messages, got %d", sess.Len())
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hello", "hello"},
		{"exact", strings.Repeat("a", TitleMaxLen), strings.Repeat("a", TitleMaxLen)},
		{"long", strings.Repeat("b", TitleMaxLen+30), strings.Repeat("b", TitleMaxLen) + "..."},
		{"empty", "", "New Chat"},
		{"whitespace", "   \n\t ", "New Chat"},
		{"multibyte", strings.Repeat("é", TitleMaxLen+5), strings.Repeat("é", TitleMaxLen) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.in); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
