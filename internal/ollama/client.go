// Package ollama is the client for a locally running Ollama model server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/pkg/logger"
	"ollama-chat-demo/backend/pkg/observability"
)

const (
	// DefaultBaseURL is the standard local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	completeTimeout   = 60 * time.Second
	listModelsTimeout = 5 * time.Second

	modelsCacheKey = "ollama:models"

	// NoResponseFallback is returned when the server answers 200 without a
	// response field.
	NoResponseFallback = "No response generated"
	// ConnectionGuidance is shown inline when the server is unreachable.
	ConnectionGuidance = "Error: Cannot connect to Ollama. Make sure it's running on your system."
)

// DefaultModels is the hardcoded fallback used whenever the tags endpoint
// fails, times out, or lists nothing.
var DefaultModels = []string{"llama3", "mistral", "gemma", "llama2", "phi3"}

// ModelCache caches the model tag list between requests.
type ModelCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Client talks to the Ollama HTTP API. Completion failures never surface as
// errors: they come back as user-visible strings delivered in place of
// assistant output.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tagsClient *http.Client
	cache      ModelCache
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewClient creates a client for the given base URL. cache may be nil to
// disable model list caching.
func NewClient(baseURL string, cache ModelCache, cacheTTL time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: completeTimeout},
		tagsClient: &http.Client{Timeout: listModelsTimeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Complete sends the prompt with reconstructed conversation context and
// returns the generated text. Every failure mode maps to a descriptive
// string so the session degrades gracefully instead of aborting.
func (c *Client) Complete(ctx context.Context, prompt string, prior []models.Message, model string) string {
	fullPrompt := BuildTranscript(prompt, prior)

	body, err := json.Marshal(generateRequest{Model: model, Prompt: fullPrompt, Stream: false})
	if err != nil {
		observability.RecordCompletion("error")
		return fmt.Sprintf("Error: %s", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		observability.RecordCompletion("error")
		return fmt.Sprintf("Error: %s", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionError(err) {
			c.log.Warn("Ollama unreachable", "url", c.baseURL, "error", err.Error())
			observability.RecordCompletion("unreachable")
			return ConnectionGuidance
		}
		c.log.Warn("Ollama request failed", "url", c.baseURL, "error", err.Error())
		observability.RecordCompletion("error")
		return fmt.Sprintf("Error: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Ollama returned non-OK status", "status", resp.StatusCode)
		observability.RecordCompletion("http_error")
		return fmt.Sprintf("Error: Received status code %d", resp.StatusCode)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		observability.RecordCompletion("error")
		return fmt.Sprintf("Error: %s", err.Error())
	}
	if result.Response == "" {
		observability.RecordCompletion("empty")
		return NoResponseFallback
	}

	observability.RecordCompletion("ok")
	return result.Response
}

// ListModels returns the available model names from the tags endpoint,
// falling back to DefaultModels when the call fails or lists nothing.
func (c *Client) ListModels(ctx context.Context) []string {
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, modelsCacheKey); ok {
			var names []string
			if err := json.Unmarshal([]byte(cached), &names); err == nil && len(names) > 0 {
				return names
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return DefaultModels
	}

	resp, err := c.tagsClient.Do(req)
	if err != nil {
		c.log.Debug("Ollama tags request failed, using default models", "error", err.Error())
		return DefaultModels
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DefaultModels
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return DefaultModels
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	if len(names) == 0 {
		return DefaultModels
	}

	if c.cache != nil {
		if data, err := json.Marshal(names); err == nil {
			c.cache.Set(ctx, modelsCacheKey, string(data), c.cacheTTL)
		}
	}
	return names
}

// Reachable reports whether the tags endpoint answers at all. Used by the
// health endpoint; completions never depend on it.
func (c *Client) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.tagsClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// BuildTranscript renders prior messages as a flat "User:"/"Assistant:"
// transcript in chronological order, followed by the current prompt and the
// assistant cue.
func BuildTranscript(prompt string, prior []models.Message) string {
	var b strings.Builder
	for _, msg := range prior {
		role := "Assistant"
		if msg.Role == models.RoleUser {
			role = "User"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(prompt)
	b.WriteString("\n\nAssistant:")
	return b.String()
}

// isConnectionError reports whether the request never reached the server,
// as opposed to timing out or failing mid-flight.
func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
