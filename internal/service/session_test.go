package service

import (
	"context"
	"errors"
	"testing"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryChatStore is an in-memory store.ChatStore for controller tests.
type memoryChatStore struct {
	chats   map[string]map[string]models.ChatSession
	loadErr error
	saves   int
}

func newMemoryChatStore() *memoryChatStore {
	return &memoryChatStore{chats: map[string]map[string]models.ChatSession{}}
}

func (m *memoryChatStore) SaveChat(userName, chatID string, session models.ChatSession) error {
	key := models.NormalizeUserKey(userName)
	if m.chats[key] == nil {
		m.chats[key] = map[string]models.ChatSession{}
	}
	m.chats[key][chatID] = session
	m.saves++
	return nil
}

func (m *memoryChatStore) LoadAllChats(userName string) (map[string]models.ChatSession, error) {
	if m.loadErr != nil {
		return map[string]models.ChatSession{}, m.loadErr
	}
	out := map[string]models.ChatSession{}
	for id, s := range m.chats[models.NormalizeUserKey(userName)] {
		out[id] = s
	}
	return out, nil
}

func (m *memoryChatStore) LoadChat(userName, chatID string) (models.ChatSession, error) {
	all, err := m.LoadAllChats(userName)
	if err != nil {
		return models.NewChatSession(), nil
	}
	session, ok := all[chatID]
	if !ok {
		return models.NewChatSession(), nil
	}
	return session, nil
}

// echoClient records its last call and echoes the prompt back.
type echoClient struct {
	lastPrompt string
	lastPrior  []models.Message
	lastModel  string
	reply      string
}

func (e *echoClient) Complete(ctx context.Context, prompt string, prior []models.Message, model string) string {
	e.lastPrompt = prompt
	e.lastPrior = append([]models.Message{}, prior...)
	e.lastModel = model
	if e.reply != "" {
		return e.reply
	}
	return "echo: " + prompt
}

func (e *echoClient) ListModels(ctx context.Context) []string {
	return []string{"llama3"}
}

func newTestController(chats store.ChatStore, prompts store.PromptStore, llm CompletionClient) *SessionController {
	return NewSessionController(chats, prompts, llm, "llama3", nil)
}

func TestNewChatGeneratesUniqueIDs(t *testing.T) {
	ctrl := newTestController(newMemoryChatStore(), emptyPromptStore{}, &echoClient{})

	first := ctrl.NewChat("Alice")
	second := ctrl.NewChat("Alice")

	_, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSubmitWithoutActiveChat(t *testing.T) {
	ctrl := newTestController(newMemoryChatStore(), emptyPromptStore{}, &echoClient{})

	_, _, err := ctrl.Submit(context.Background(), "Alice", "", "hello")
	assert.ErrorIs(t, err, ErrNoActiveChat)
}

func TestSubmitAppendsAndPersists(t *testing.T) {
	chats := newMemoryChatStore()
	llm := &echoClient{}
	ctrl := newTestController(chats, emptyPromptStore{}, llm)

	chatID := ctrl.NewChat("Alice")
	userMsg, assistantMsg, err := ctrl.Submit(context.Background(), "Alice", chatID, "hello")
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, userMsg.Role)
	assert.Equal(t, "hello", userMsg.Content)
	assert.Equal(t, "Alice", userMsg.User)
	assert.NotEmpty(t, userMsg.Timestamp)

	assert.Equal(t, models.RoleAssistant, assistantMsg.Role)
	assert.Equal(t, "echo: hello", assistantMsg.Content)
	assert.Equal(t, "Assistant", assistantMsg.User)

	// Persisted after the exchange and visible in the cached history
	assert.Equal(t, 1, chats.saves)
	saved := chats.chats["alice"][chatID]
	require.Len(t, saved.Messages, 2)
	assert.NotEmpty(t, saved.LastUpdated)

	history := ctrl.History("Alice")
	require.Contains(t, history, chatID)
	assert.Len(t, history[chatID].Messages, 2)
}

func TestSubmitExpandsSlashCommand(t *testing.T) {
	llm := &echoClient{}
	prompts := promptFixture{"/greet": "Hello, how can I help you today?"}
	ctrl := newTestController(newMemoryChatStore(), commandOnlyStore{prompts}, llm)

	chatID := ctrl.NewChat("Alice")
	userMsg, _, err := ctrl.Submit(context.Background(), "Alice", chatID, "/greet")
	require.NoError(t, err)

	// The stored user turn carries the expanded content
	assert.Equal(t, "Hello, how can I help you today?", userMsg.Content)
	assert.Equal(t, "Hello, how can I help you today?", llm.lastPrompt)
}

func TestSubmitPassesPriorContext(t *testing.T) {
	llm := &echoClient{}
	ctrl := newTestController(newMemoryChatStore(), emptyPromptStore{}, llm)

	chatID := ctrl.NewChat("Alice")
	_, _, err := ctrl.Submit(context.Background(), "Alice", chatID, "first")
	require.NoError(t, err)

	_, _, err = ctrl.Submit(context.Background(), "Alice", chatID, "second")
	require.NoError(t, err)

	// Prior context holds the earlier exchange but not the turn being sent
	require.Len(t, llm.lastPrior, 2)
	assert.Equal(t, "first", llm.lastPrior[0].Content)
	assert.Equal(t, "echo: first", llm.lastPrior[1].Content)
	assert.Equal(t, "second", llm.lastPrompt)
}

func TestSubmitSelectsTargetChat(t *testing.T) {
	chats := newMemoryChatStore()
	require.NoError(t, chats.SaveChat("Alice", "old-chat", models.ChatSession{
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "earlier", User: "Alice"},
		},
		LastUpdated: models.Now(),
	}))
	chats.saves = 0

	llm := &echoClient{}
	ctrl := newTestController(chats, emptyPromptStore{}, llm)

	_, _, err := ctrl.Submit(context.Background(), "Alice", "old-chat", "again")
	require.NoError(t, err)

	require.Len(t, llm.lastPrior, 1)
	assert.Equal(t, "earlier", llm.lastPrior[0].Content)
	assert.Len(t, chats.chats["alice"]["old-chat"].Messages, 3)
}

func TestSelectChatLoadsStoredMessages(t *testing.T) {
	chats := newMemoryChatStore()
	require.NoError(t, chats.SaveChat("Alice", "c1", models.ChatSession{
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "hi", User: "Alice"},
			{Role: models.RoleAssistant, Content: "hello", User: "Assistant"},
		},
		LastUpdated: models.Now(),
	}))

	ctrl := newTestController(chats, emptyPromptStore{}, &echoClient{})

	session, err := ctrl.SelectChat("Alice", "c1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 2)
}

func TestSelectChatUnknownIDYieldsEmptySession(t *testing.T) {
	ctrl := newTestController(newMemoryChatStore(), emptyPromptStore{}, &echoClient{})

	session, err := ctrl.SelectChat("Alice", "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.NotEmpty(t, session.LastUpdated)
}

func TestCorruptHistoryDegradesToEmpty(t *testing.T) {
	chats := newMemoryChatStore()
	chats.loadErr = store.ErrCorruptHistory

	ctrl := newTestController(chats, emptyPromptStore{}, &echoClient{})
	assert.Empty(t, ctrl.History("Alice"))
}

func TestResetClearsSessionState(t *testing.T) {
	chats := newMemoryChatStore()
	ctrl := newTestController(chats, emptyPromptStore{}, &echoClient{})

	chatID := ctrl.NewChat("Alice")
	_, _, err := ctrl.Submit(context.Background(), "Alice", chatID, "hello")
	require.NoError(t, err)

	ctrl.SelectModel("Alice", "mistral")
	ctrl.Reset("Alice")

	// Fresh state after reset: history reloads from the store, the model
	// selection reverts to the default.
	assert.Equal(t, "llama3", ctrl.SelectedModel("Alice"))
	history := ctrl.History("Alice")
	assert.Contains(t, history, chatID)

	_, _, err = ctrl.Submit(context.Background(), "Alice", "", "hello")
	assert.ErrorIs(t, err, ErrNoActiveChat)
}

func TestSelectModel(t *testing.T) {
	ctrl := newTestController(newMemoryChatStore(), emptyPromptStore{}, &echoClient{})

	assert.Equal(t, "llama3", ctrl.SelectedModel("Alice"))
	ctrl.SelectModel("Alice", "mistral")
	assert.Equal(t, "mistral", ctrl.SelectedModel("Alice"))

	llm := &echoClient{}
	ctrl = newTestController(newMemoryChatStore(), emptyPromptStore{}, llm)
	ctrl.SelectModel("Bob", "phi3")
	chatID := ctrl.NewChat("Bob")
	_, _, err := ctrl.Submit(context.Background(), "Bob", chatID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "phi3", llm.lastModel)
}

func TestUserKeysShareHistoryAcrossSpellings(t *testing.T) {
	chats := newMemoryChatStore()
	ctrl := newTestController(chats, emptyPromptStore{}, &echoClient{})

	chatID := ctrl.NewChat("Ann Lee")
	_, _, err := ctrl.Submit(context.Background(), "Ann Lee", chatID, "hi")
	require.NoError(t, err)

	ctrl.Reset("ANN LEE")
	history := ctrl.History("ann lee")
	assert.Contains(t, history, chatID)
}

// emptyPromptStore satisfies store.PromptStore with no templates.
type emptyPromptStore struct{}

func (emptyPromptStore) Save(title, content string) (string, error) {
	return "", errors.New("not implemented")
}

func (emptyPromptStore) GetAll() ([]models.PromptTemplate, error) {
	return nil, nil
}

func (emptyPromptStore) GetByCommand(command string) (*models.PromptTemplate, error) {
	return nil, store.ErrPromptNotFound
}

func (emptyPromptStore) Delete(command string) error {
	return nil
}

// commandOnlyStore adapts a promptFixture to the full store interface.
type commandOnlyStore struct {
	promptFixture
}

func (commandOnlyStore) Save(title, content string) (string, error) {
	return "", errors.New("not implemented")
}

func (c commandOnlyStore) GetAll() ([]models.PromptTemplate, error) {
	return nil, nil
}

func (commandOnlyStore) Delete(command string) error {
	return nil
}
