package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game-exploration-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	t.Run("maps tools and returns tool calls", func(t *testing.T) {
		var got chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"llama3","done":true,"prompt_eval_count":10,"eval_count":5,
				"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"search_memory","arguments":{"query":"tap"}}}]}}`))
		}))
		defer srv.Close()

		p := NewOllamaProvider(srv.URL, "llama3", time.Second)
		c, err := p.Chat(context.Background(), []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "hi"},
		}, llm.WithTools(llm.Tool{Name: "search_memory", Description: "d"}), llm.WithJSONMode())
		require.NoError(t, err)

		assert.Equal(t, "json", got.Format)
		require.Len(t, got.Tools, 1)
		assert.Equal(t, "search_memory", got.Tools[0].Function.Name)
		assert.False(t, got.Stream)

		require.Len(t, c.ToolCalls, 1)
		assert.Equal(t, "call_0", c.ToolCalls[0].ID)
		assert.Equal(t, "search_memory", c.ToolCalls[0].Name)
		assert.JSONEq(t, `{"query":"tap"}`, c.ToolCalls[0].Arguments)
		assert.Equal(t, 15, c.Usage.TotalTokens)
	})

	t.Run("non 200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}))
		defer srv.Close()

		p := NewOllamaProvider(srv.URL, "llama3", time.Second)
		_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})
}
