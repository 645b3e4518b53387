package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/provider/openai"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *openai.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider, err := openai.NewProvider(openai.Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1/",
		MaxRetries: 0,
	})
	require.NoError(t, err)
	return provider
}

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	return string(body)
}

func TestNewProvider_Success(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{
		APIKey:     "test-api-key",
		BaseURL:    "https://api.openai.com/v1",
		Timeout:    60,
		MaxRetries: 3,
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	require.Equal(t, "openai", provider.Name())
}

func TestNewProvider_MissingAPIKey(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{BaseURL: "https://api.openai.com/v1"})

	require.Error(t, err)
	require.Nil(t, provider)
	require.Contains(t, err.Error(), "OpenAI API key is required")
}

func TestProvider_Synthesize(t *testing.T) {
	t.Run("should return audio bytes", func(t *testing.T) {
		var got map[string]any
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			require.True(t, strings.HasSuffix(r.URL.Path, "/audio/speech"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))

			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3-audio"))
		})

		audio, err := provider.Synthesize(context.Background(), "你好", "alloy")
		require.NoError(t, err)
		require.Equal(t, []byte("ID3-audio"), audio)
		require.Equal(t, "你好", got["input"])
		require.Equal(t, "alloy", got["voice"])
		require.Equal(t, "tts-1", got["model"])
		require.Equal(t, "mp3", got["response_format"])
	})

	t.Run("should return error on api failure", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad voice","type":"invalid_request_error"}}`))
		})

		audio, err := provider.Synthesize(context.Background(), "你好", "nobody")
		require.Error(t, err)
		require.Nil(t, audio)
	})

	t.Run("should reject empty audio", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "audio/mpeg")
		})

		_, err := provider.Synthesize(context.Background(), "你好", "alloy")
		require.ErrorContains(t, err, "empty")
	})
}

func TestProvider_GenerateDialogue(t *testing.T) {
	t.Run("should parse dialogue turns", func(t *testing.T) {
		content := `{"turns":[{"speaker":"A","text":"你好","translation":"Hello"},{"speaker":"B","text":"你好吗","translation":"How are you"}]}`
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(chatResponse(content)))
		})

		turns, err := provider.GenerateDialogue(context.Background(), "greetings", "beginner")
		require.NoError(t, err)
		require.Len(t, turns, 2)
		require.Equal(t, domain.Turn{Index: 1, Speaker: "B", Text: "你好吗", Translation: "How are you"}, turns[1])
	})

	t.Run("should report malformed output", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(chatResponse("not json at all")))
		})

		turns, err := provider.GenerateDialogue(context.Background(), "greetings", "")
		require.ErrorIs(t, err, domain.ErrMalformedOutput)
		require.Nil(t, turns)
	})
}
