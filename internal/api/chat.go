package api

import (
	"net/http"

	"ollama-chat-demo/backend/internal/service"
	"ollama-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatController handles chat session and message endpoints
type ChatController struct {
	sessions *service.SessionController
	llm      service.CompletionClient
	logger   *logger.Logger
}

// NewChatController creates a new chat controller
func NewChatController(sessions *service.SessionController, llm service.CompletionClient, logger *logger.Logger) *ChatController {
	return &ChatController{
		sessions: sessions,
		llm:      llm,
		logger:   logger,
	}
}

// NewChat starts a fresh conversation for the caller
func (ctrl *ChatController) NewChat(c *gin.Context) {
	userName := c.GetString("userName")
	chatID := ctrl.sessions.NewChat(userName)

	c.JSON(http.StatusCreated, gin.H{"chat_id": chatID})
}

// ListChats returns the caller's full chat history
func (ctrl *ChatController) ListChats(c *gin.Context) {
	userName := c.GetString("userName")
	history := ctrl.sessions.History(userName)

	c.JSON(http.StatusOK, gin.H{
		"chats": history,
		"count": len(history),
	})
}

// GetChat selects a conversation and returns its message log. An unknown
// chat id returns a fresh empty session rather than 404.
func (ctrl *ChatController) GetChat(c *gin.Context) {
	userName := c.GetString("userName")
	chatID := c.Param("chatId")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chat ID is required"})
		return
	}

	session, err := ctrl.sessions.SelectChat(userName, chatID)
	if err != nil {
		ctrl.logger.Error("Error loading chat", "chat_id", chatID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id":      chatID,
		"messages":     session.Messages,
		"last_updated": session.LastUpdated,
	})
}

// SendMessage runs one exchange: the user's (possibly slash-command) input
// in, the assistant's reply out, both persisted.
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	userName := c.GetString("userName")
	chatID := c.Param("chatId")

	var request struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	userMessage, assistantMessage, err := ctrl.sessions.Submit(c.Request.Context(), userName, chatID, request.Content)
	if err != nil {
		switch err {
		case service.ErrNoActiveChat:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Start a new chat or select a previous conversation"})
		default:
			ctrl.logger.Error("Error saving chat", "chat_id", chatID, "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save chat"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_message":      userMessage,
		"assistant_message": assistantMessage,
	})
}

// ListModels returns the model names available on the local server, falling
// back to the built-in defaults when it cannot be reached.
func (ctrl *ChatController) ListModels(c *gin.Context) {
	userName := c.GetString("userName")
	available := ctrl.llm.ListModels(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"models":   available,
		"selected": ctrl.sessions.SelectedModel(userName),
	})
}

// SelectModel sets the model used for the caller's completions
func (ctrl *ChatController) SelectModel(c *gin.Context) {
	userName := c.GetString("userName")

	var request struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctrl.sessions.SelectModel(userName, request.Model)
	c.JSON(http.StatusOK, gin.H{"selected": request.Model})
}
