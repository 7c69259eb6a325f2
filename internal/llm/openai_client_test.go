package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func completionJSON(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestOpenAIClientComplete(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "test-model", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON("hello there")))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: SystemAndUser("be brief", "hi"),
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", resp.Content)
	require.Equal(t, 10, resp.Usage.TotalTokens)
	require.Equal(t, "Bearer key", gotAuth)
}

func TestOpenAIClientRetriesTransientFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(completionJSON("recovered")))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{BaseURL: server.URL, MaxRetries: 2})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", resp.Content)
	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestOpenAIClientDoesNotRetryPermanentFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test-model", Config{BaseURL: server.URL, MaxRetries: 3})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestSystemAndUser(t *testing.T) {
	msgs := SystemAndUser("", "question")
	require.Len(t, msgs, 1)
	require.Equal(t, RoleUser, msgs[0].Role)

	msgs = SystemAndUser("instruction", "question")
	require.Len(t, msgs, 2)
	require.Equal(t, RoleSystem, msgs[0].Role)
	require.Equal(t, "instruction", msgs[0].Content)
}
