package api

import (
	"io"
	"net/http"
	"strings"

	"ollama-chat-demo/backend/internal/store"
	"ollama-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PromptController handles the admin prompt library endpoints
type PromptController struct {
	prompts store.PromptStore
	logger  *logger.Logger
}

// NewPromptController creates a new prompt controller
func NewPromptController(prompts store.PromptStore, logger *logger.Logger) *PromptController {
	return &PromptController{
		prompts: prompts,
		logger:  logger,
	}
}

// List returns every stored prompt template
func (ctrl *PromptController) List(c *gin.Context) {
	prompts, err := ctrl.prompts.GetAll()
	if err != nil {
		ctrl.logger.Error("Error listing prompts", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list prompts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prompts": prompts,
		"count":   len(prompts),
	})
}

// Save upserts a prompt; the slash command is derived from the title
func (ctrl *PromptController) Save(c *gin.Context) {
	var request struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt title and content are required"})
		return
	}

	command, err := ctrl.prompts.Save(request.Title, request.Content)
	if err != nil {
		switch err {
		case store.ErrValidation:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt title and content are required"})
		default:
			ctrl.logger.Error("Error saving prompt", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save prompt"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"command": command})
}

// Delete removes a prompt by command name. Deleting an unknown command is a
// no-op and still succeeds.
func (ctrl *PromptController) Delete(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Command name is required"})
		return
	}
	command := "/" + strings.TrimPrefix(name, "/")

	if err := ctrl.prompts.Delete(command); err != nil {
		ctrl.logger.Error("Error deleting prompt", "command", command, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete prompt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": command})
}

// Export serializes the whole library as a JSON array download
func (ctrl *PromptController) Export(c *gin.Context) {
	data, err := store.ExportJSON(ctrl.prompts)
	if err != nil {
		ctrl.logger.Error("Error exporting prompts", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export prompts"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="prompts_export.json"`)
	c.Data(http.StatusOK, "application/json", []byte(data))
}

// Import upserts templates from an uploaded JSON array. Malformed JSON
// imports nothing and reports zero.
func (ctrl *PromptController) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read import payload", "imported": 0})
		return
	}

	count, err := store.ImportJSON(ctrl.prompts, string(body))
	if err != nil {
		ctrl.logger.Warn("Prompt import failed", "imported", count, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prompt export payload", "imported": count})
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": count})
}
