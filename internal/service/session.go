package service

import (
	"context"
	"errors"
	"sync"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/internal/store"
	"ollama-chat-demo/backend/pkg/logger"

	"github.com/google/uuid"
)

// ErrNoActiveChat is returned when a message is submitted without a chat
// selected or started first.
var ErrNoActiveChat = errors.New("no active chat selected")

// CompletionClient generates assistant responses with full conversation
// context. Failures come back as displayable strings, never errors.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, prior []models.Message, model string) string
	ListModels(ctx context.Context) []string
}

// session is the per-identity working state: the active chat, its message
// log, the cached history, and the selected model.
type session struct {
	activeChatID  string
	messages      []models.Message
	history       map[string]models.ChatSession
	selectedModel string
}

// SessionController orchestrates chats for each authenticated identity:
// tracking the active chat, appending user and assistant turns, persisting
// after each exchange, and clearing state on identity changes.
type SessionController struct {
	chats        store.ChatStore
	prompts      store.PromptStore
	llm          CompletionClient
	defaultModel string
	log          *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionController wires the controller to its collaborators.
func NewSessionController(chats store.ChatStore, prompts store.PromptStore, llm CompletionClient, defaultModel string, log *logger.Logger) *SessionController {
	if log == nil {
		log = logger.GetGlobal()
	}
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return &SessionController{
		chats:        chats,
		prompts:      prompts,
		llm:          llm,
		defaultModel: defaultModel,
		log:          log,
		sessions:     make(map[string]*session),
	}
}

// getSession returns the working state for a user, loading their stored
// history on first touch. Caller must hold the lock.
func (c *SessionController) getSession(userName string) *session {
	key := models.NormalizeUserKey(userName)
	if s, ok := c.sessions[key]; ok {
		return s
	}

	history, err := c.chats.LoadAllChats(userName)
	if err != nil {
		// Unreadable history degrades to an empty one rather than blocking
		// the conversation.
		c.log.Warn("Failed to load chat history", "user", key, "error", err.Error())
		history = map[string]models.ChatSession{}
	}

	s := &session{
		history:       history,
		selectedModel: c.defaultModel,
	}
	c.sessions[key] = s
	return s
}

// NewChat starts a fresh conversation and makes it the active chat.
func (c *SessionController) NewChat(userName string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.getSession(userName)
	s.activeChatID = uuid.New().String()
	s.messages = []models.Message{}
	return s.activeChatID
}

// SelectChat makes a stored conversation the active one and returns its log.
// An unknown chat id yields a fresh empty session per the store contract.
func (c *SessionController) SelectChat(userName, chatID string) (models.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.getSession(userName)
	loaded, err := c.chats.LoadChat(userName, chatID)
	if err != nil {
		return models.ChatSession{}, err
	}

	s.activeChatID = chatID
	s.messages = append([]models.Message{}, loaded.Messages...)
	return loaded, nil
}

// History returns the user's cached chat history.
func (c *SessionController) History(userName string) map[string]models.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.getSession(userName)
	out := make(map[string]models.ChatSession, len(s.history))
	for id, chat := range s.history {
		out[id] = chat
	}
	return out
}

// SelectedModel returns the model the user's session will complete with.
func (c *SessionController) SelectedModel(userName string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getSession(userName).selectedModel
}

// SelectModel sets the session's model.
func (c *SessionController) SelectModel(userName, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getSession(userName).selectedModel = model
}

// Submit runs one full exchange on the active chat: resolve any slash
// command, append the user turn, complete with full context, append the
// assistant turn, persist. Valid only with an active chat.
func (c *SessionController) Submit(ctx context.Context, userName, chatID, input string) (models.Message, models.Message, error) {
	c.mu.Lock()
	s := c.getSession(userName)

	if chatID == "" {
		c.mu.Unlock()
		return models.Message{}, models.Message{}, ErrNoActiveChat
	}

	// Selecting a history entry implicitly if the caller targets a chat
	// other than the active one.
	if s.activeChatID != chatID {
		loaded, err := c.chats.LoadChat(userName, chatID)
		if err != nil {
			c.mu.Unlock()
			return models.Message{}, models.Message{}, err
		}
		s.activeChatID = chatID
		s.messages = append([]models.Message{}, loaded.Messages...)
	}

	prompt := ResolveCommand(input, c.prompts)

	userMessage := models.Message{
		Role:      models.RoleUser,
		Content:   prompt,
		Timestamp: models.Now(),
		User:      userName,
	}
	prior := append([]models.Message{}, s.messages...)
	s.messages = append(s.messages, userMessage)
	model := s.selectedModel
	c.mu.Unlock()

	// The completion call blocks up to its client timeout; the lock is not
	// held across it.
	response := c.llm.Complete(ctx, prompt, prior, model)

	assistantMessage := models.Message{
		Role:      models.RoleAssistant,
		Content:   response,
		Timestamp: models.Now(),
		User:      "Assistant",
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s.messages = append(s.messages, assistantMessage)

	updated := models.ChatSession{
		Messages:    append([]models.Message{}, s.messages...),
		LastUpdated: models.Now(),
	}
	if err := c.chats.SaveChat(userName, chatID, updated); err != nil {
		c.log.LogError(err, "Failed to persist chat", "chat_id", chatID)
		return userMessage, assistantMessage, err
	}
	s.history[chatID] = updated

	return userMessage, assistantMessage, nil
}

// Reset clears all in-memory state for an identity. Called on login, logout,
// and identity switches so nothing leaks between users sharing the process.
func (c *SessionController) Reset(userName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, models.NormalizeUserKey(userName))
}
