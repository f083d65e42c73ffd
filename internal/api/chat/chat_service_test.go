package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildHistory(t *testing.T) {
	t.Run("KeepsOnlyRecentTurns", func(t *testing.T) {
		var messages []Message
		for i := 0; i < 20; i++ {
			role := "user"
			if i%2 == 1 {
				role = "assistant"
			}
			messages = append(messages, Message{Role: role, Content: "msg", Timestamp: time.Now()})
		}

		history := buildHistory(messages)

		assert.Len(t, history, historyWindow)
	})

	t.Run("MapsRoles", func(t *testing.T) {
		history := buildHistory([]Message{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: "answer"},
		})

		assert.Len(t, history, 2)
		assert.Equal(t, "user", string(history[0].Role))
		assert.Equal(t, "model", string(history[1].Role))
	})
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "What is a P/E ratio?", deriveTitle("What is a P/E ratio?"))
	assert.Equal(t, "New conversation", deriveTitle("   "))
	assert.Len(t, deriveTitle(strings.Repeat("a", 100)), 60)
}

func TestStripFences(t *testing.T) {
	raw := "```json\n{\"title\":\"Report\"}\n```"
	assert.Equal(t, `{"title":"Report"}`, stripFences(raw))
	assert.Equal(t, `{"title":"Report"}`, stripFences(`{"title":"Report"}`))
}
