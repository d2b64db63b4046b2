package aiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newsloom/source-manager/internal/aiclient"
	"github.com/newsloom/source-manager/internal/config"
	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		BaseURL:       baseURL,
		Token:         "secret-token",
		Model:         "llama3.1:8b",
		Temperature:   0.2,
		TopP:          0.9,
		RepeatPenalty: 1.1,
		MaxTokens:     1024,
		ContextWindow: 4096,
		Timeout:       5 * time.Second,
	}
}

// generateServer returns a collaborator fake that responds with the given
// response text and captures the request body.
func generateServer(t *testing.T, responseText string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		if gotBody != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"response": responseText})
	}))
}

func TestGenerateRequestShape(t *testing.T) {
	var body map[string]any
	srv := generateServer(t, `{"platform":"website","common":{}}`, &body)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "llama3.1:8b", body["model"])
	assert.Equal(t, false, body["stream"])
	assert.Equal(t, "json", body["format"])
	assert.Contains(t, body["prompt"], "example.com")
	assert.Contains(t, body["prompt"], "t.me/")

	options, ok := body["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.2, options["temperature"], 1e-9)
	assert.InDelta(t, 0.9, options["top_p"], 1e-9)
	assert.InDelta(t, 1.1, options["repeat_penalty"], 1e-9)
	assert.EqualValues(t, 1024, options["num_predict"])
	assert.EqualValues(t, 4096, options["num_ctx"])
}

func TestGenerateFencedResponse(t *testing.T) {
	srv := generateServer(t, "```json\n{\"platform\":\"website\",\"common\":{}}\n```", nil)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	cfg, err := client.Generate(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, models.PlatformWebsite, cfg.Platform)
	require.NotNil(t, cfg.Common)
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := generateServer(t, "", nil)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var genErr *aiclient.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "empty response", genErr.Reason)
}

func TestGenerateWhitespaceOnlyResponse(t *testing.T) {
	srv := generateServer(t, " \n\t ", nil)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var genErr *aiclient.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "empty response", genErr.Reason)
}

func TestGenerateInvalidJSON(t *testing.T) {
	srv := generateServer(t, "this is not json at all", nil)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var genErr *aiclient.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "invalid JSON", genErr.Reason)
	assert.Error(t, genErr.Err)
}

func TestGenerateMissingPlatform(t *testing.T) {
	srv := generateServer(t, `{"common":{}}`, nil)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var valErr *aiclient.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.ErrorIs(t, err, models.ErrMissingPlatform)
}

func TestGenerateMissingCommon(t *testing.T) {
	srv := generateServer(t, `{"platform":"website"}`, nil)
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var valErr *aiclient.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.ErrorIs(t, err, models.ErrMissingCommon)
}

func TestGenerateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := aiclient.NewClient(testAIConfig(srv.URL), logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var genErr *aiclient.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Reason, "502")
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := testAIConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	client := aiclient.NewClient(cfg, logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")

	var genErr *aiclient.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "request failed", genErr.Reason)
}

func TestGenerateNoTokenNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"response": `{"platform":"website","common":{}}`})
	}))
	defer srv.Close()

	cfg := testAIConfig(srv.URL)
	cfg.Token = ""

	client := aiclient.NewClient(cfg, logger.NewNop())
	_, err := client.Generate(context.Background(), "example.com")
	require.NoError(t, err)
}
