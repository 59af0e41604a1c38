package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/internal/service"
	"ollama-chat-demo/backend/internal/store"
	"ollama-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cannedClient returns a fixed completion without a model server.
type cannedClient struct {
	reply string
}

func (c *cannedClient) Complete(ctx context.Context, prompt string, prior []models.Message, model string) string {
	return c.reply
}

func (c *cannedClient) ListModels(ctx context.Context) []string {
	return []string{"llama3", "mistral"}
}

// newTestRouter wires real file-backed stores behind the controllers with
// the auth middleware stubbed to a fixed identity.
func newTestRouter(t *testing.T) (*gin.Engine, store.PromptStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	chats, err := store.NewFileChatStore(dir, nil)
	require.NoError(t, err)
	prompts, err := store.NewFilePromptStore(dir, nil)
	require.NoError(t, err)

	sessions := service.NewSessionController(chats, prompts, &cannedClient{reply: "canned reply"}, "llama3", nil)

	log := logger.GetGlobal()
	chatController := NewChatController(sessions, &cannedClient{}, log)
	promptController := NewPromptController(prompts, log)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userName", "Test User")
	})

	r.POST("/chats", chatController.NewChat)
	r.GET("/chats", chatController.ListChats)
	r.GET("/chats/:chatId", chatController.GetChat)
	r.POST("/chats/:chatId/messages", chatController.SendMessage)
	r.GET("/models", chatController.ListModels)
	r.PUT("/models/selected", chatController.SelectModel)
	r.GET("/prompts", promptController.List)
	r.POST("/prompts", promptController.Save)
	r.DELETE("/prompts/:name", promptController.Delete)
	r.GET("/prompts/export", promptController.Export)
	r.POST("/prompts/import", promptController.Import)

	return r, prompts
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatExchangeFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	// Start a chat
	w := doJSON(t, r, http.MethodPost, "/chats", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ChatID string `json:"chat_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ChatID)

	// Send a message
	w = doJSON(t, r, http.MethodPost, "/chats/"+created.ChatID+"/messages", gin.H{"content": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var exchange struct {
		UserMessage      models.Message `json:"user_message"`
		AssistantMessage models.Message `json:"assistant_message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exchange))
	assert.Equal(t, "hello", exchange.UserMessage.Content)
	assert.Equal(t, "canned reply", exchange.AssistantMessage.Content)

	// The conversation is readable back
	w = doJSON(t, r, http.MethodGet, "/chats/"+created.ChatID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "canned reply")

	// And listed in history
	w = doJSON(t, r, http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ChatID)
}

func TestSendMessageValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	// An unknown chat id starts a fresh conversation under that id
	w := doJSON(t, r, http.MethodPost, "/chats/unknown-id/messages", gin.H{"content": "hello"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Content is required
	w = doJSON(t, r, http.MethodPost, "/chats/unknown-id/messages", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mistral")
	assert.Contains(t, w.Body.String(), `"selected":"llama3"`)

	w = doJSON(t, r, http.MethodPut, "/models/selected", gin.H{"model": "mistral"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"selected":"mistral"`)
}

func TestPromptLifecycle(t *testing.T) {
	r, prompts := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/prompts", gin.H{"title": "Save Notes", "content": "Summarize the following notes:"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"command":"/save-notes"`)

	w = doJSON(t, r, http.MethodGet, "/prompts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Save Notes")

	w = doJSON(t, r, http.MethodGet, "/prompts/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "prompts_export.json")

	w = doJSON(t, r, http.MethodDelete, "/prompts/save-notes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := prompts.GetByCommand("/save-notes")
	assert.ErrorIs(t, err, store.ErrPromptNotFound)
}

func TestPromptValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/prompts", gin.H{"title": "", "content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromptImport(t *testing.T) {
	r, prompts := newTestRouter(t)

	payload := `[{"title": "Greet", "content": "Hello there"}, {"title": "", "content": "skipped"}]`
	req, err := http.NewRequest(http.MethodPost, "/prompts/import", bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":1`)

	prompt, err := prompts.GetByCommand("/greet")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", prompt.Content)

	// Malformed payloads import nothing
	req, err = http.NewRequest(http.MethodPost, "/prompts/import", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":0`)
}

func TestSlashCommandExpansionThroughAPI(t *testing.T) {
	r, prompts := newTestRouter(t)

	_, err := prompts.Save("Greet", "Hello, how can I help you today?")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/chats", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ChatID string `json:"chat_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodPost, "/chats/"+created.ChatID+"/messages", gin.H{"content": "/greet"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello, how can I help you today?")
}
