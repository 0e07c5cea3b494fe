package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/types"
)

func TestOpenAIGenerator(t *testing.T) {
	// Setup
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Dawn breaks."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	generator := NewOpenAIGenerator("test-key", server.URL+"/", "test-model", time.Second, Params{MaxTokens: 350, Temperature: 0.8, TopP: 0.9}, nil)

	// Test case 1: Text comes back
	text, err := generator.Generate(context.Background(), "system", "story")
	require.NoError(t, err)
	assert.Equal(t, "Dawn breaks.", text)

	// Test case 2: Request carries model, messages and sampling
	assert.Equal(t, "test-model", received["model"])
	assert.Equal(t, float64(350), received["max_tokens"])
	messages := received["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "story", messages[1].(map[string]any)["content"])
}

func TestOpenAIGeneratorErrors(t *testing.T) {
	// Setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer empty" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	// Test case 1: API errors are generation failures
	_, err := NewOpenAIGenerator("key", server.URL, "m", time.Second, Params{}, nil).Generate(context.Background(), "s", "c")
	assert.ErrorIs(t, err, types.ErrGenerationFailed)

	// Test case 2: No choices
	_, err = NewOpenAIGenerator("empty", server.URL, "m", time.Second, Params{}, nil).Generate(context.Background(), "s", "c")
	assert.ErrorIs(t, err, types.ErrGenerationFailed)
}

func TestOllamaGenerator(t *testing.T) {
	// Setup
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Rain on the hedgerows."},"done":true,"prompt_eval_count":12,"eval_count":8}`))
	}))
	defer server.Close()

	generator, err := NewOllamaGenerator(server.URL+"/v1", "llama3", time.Second, Params{MaxTokens: 200, Temperature: 0.5}, nil)
	require.NoError(t, err)

	// Test case 1: Text comes back
	text, err := generator.Generate(context.Background(), "system", "story")
	require.NoError(t, err)
	assert.Equal(t, "Rain on the hedgerows.", text)

	// Test case 2: Non-streaming request with options
	assert.Equal(t, false, received["stream"])
	options := received["options"].(map[string]any)
	assert.Equal(t, float64(200), options["num_predict"])
}

func TestNewGenerator(t *testing.T) {
	// Setup
	ctx := context.Background()
	cfg := config.DefaultConfig().Generator

	// Test case 1: Disabled
	generator, err := NewGenerator(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, generator)

	// Test case 2: OpenAI
	cfg.Backend = "OpenAI"
	generator, err = NewGenerator(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, generator)

	// Test case 3: Ollama
	cfg.Backend = "ollama"
	generator, err = NewGenerator(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaGenerator{}, generator)

	// Test case 4: Gemini needs a key
	cfg.Backend = "gemini"
	cfg.APIKey = ""
	_, err = NewGenerator(ctx, cfg, nil)
	assert.Error(t, err)

	// Test case 5: Unknown backend
	cfg.Backend = "telegraph"
	_, err = NewGenerator(ctx, cfg, nil)
	assert.ErrorContains(t, err, "unknown generator backend")
}
