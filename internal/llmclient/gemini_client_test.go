// internal/llmclient/gemini_client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
)

func testConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:            "test-key",
		Model:             "gemini-2.0-flash",
		Endpoint:          endpoint,
		APITimeout:        5 * time.Second,
		MaxTokens:         1024,
		RequestsPerMinute: 6000,
	}
}

func candidateBody(text string) string {
	return `{"candidates": [{"content": {"parts": [{"text": ` + jsonString(text) + `}], "role": "model"}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(config.LLMConfig{}, zap.NewNop())
	require.Error(t, err)
}

func TestGenerateResponse_Success(t *testing.T) {
	var gotPayload geminiRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(candidateBody(`{"success": true}`)))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	resp, err := client.GenerateResponse(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "you are a judge",
		UserPrompt:   "did it work?",
		Options:      schemas.GenerationOptions{Temperature: 0, ForceJSONFormat: true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"success": true}`, resp)

	require.Len(t, gotPayload.Contents, 1)
	assert.Equal(t, "did it work?", gotPayload.Contents[0].Parts[0].Text)
	require.NotNil(t, gotPayload.SystemInstruction)
	assert.Equal(t, "you are a judge", gotPayload.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", gotPayload.GenerationConfig.ResponseMimeType)
}

func TestGenerateResponse_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(candidateBody("recovered")))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	resp, err := client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateResponse_PermanentOn4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestGenerateResponse_NoCandidatesIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateResponse_SafetyBlockIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"candidates": [{"content": {"parts": []}, "finishReason": "SAFETY"}]}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateResponse_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody("unreachable")))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.GenerateResponse(ctx, schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
}
