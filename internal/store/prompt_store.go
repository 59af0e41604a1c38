package store

import (
	"encoding/json"
	"errors"
	"strings"

	"ollama-chat-demo/backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrValidation is returned when a prompt is saved without both a title
	// and content.
	ErrValidation = errors.New("prompt title and content are required")
	// ErrPromptNotFound is returned when no prompt matches a command.
	ErrPromptNotFound = errors.New("prompt not found")
)

// PromptStore persists reusable prompt templates keyed by their derived
// slash command.
type PromptStore interface {
	// Save upserts a template and returns the command derived from its title.
	Save(title, content string) (string, error)
	// GetAll returns every template in storage-defined order.
	GetAll() ([]models.PromptTemplate, error)
	// GetByCommand looks a template up by its slash command.
	GetByCommand(command string) (*models.PromptTemplate, error)
	// Delete removes a template; deleting an unknown command is a no-op.
	Delete(command string) error
}

// GormPromptStore stores one row per command.
type GormPromptStore struct {
	db *gorm.DB
}

// NewGormPromptStore creates a database-backed prompt store.
func NewGormPromptStore(db *gorm.DB) *GormPromptStore {
	return &GormPromptStore{db: db}
}

func (s *GormPromptStore) Save(title, content string) (string, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return "", ErrValidation
	}
	command := models.DeriveCommand(title)

	var prompt models.PromptTemplate
	err := s.db.Where("command = ?", command).First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prompt = models.PromptTemplate{
			Title:       title,
			Command:     command,
			Content:     content,
			LastUpdated: models.Now(),
		}
		if err := s.db.Create(&prompt).Error; err != nil {
			return "", err
		}
		return command, nil
	}
	if err != nil {
		return "", err
	}

	prompt.Title = title
	prompt.Content = content
	prompt.LastUpdated = models.Now()
	if err := s.db.Save(&prompt).Error; err != nil {
		return "", err
	}
	return command, nil
}

func (s *GormPromptStore) GetAll() ([]models.PromptTemplate, error) {
	var prompts []models.PromptTemplate
	err := s.db.Find(&prompts).Error
	return prompts, err
}

func (s *GormPromptStore) GetByCommand(command string) (*models.PromptTemplate, error) {
	var prompt models.PromptTemplate
	err := s.db.Where("command = ?", command).First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &prompt, nil
}

func (s *GormPromptStore) Delete(command string) error {
	return s.db.Where("command = ?", command).Delete(&models.PromptTemplate{}).Error
}

// ExportJSON serializes every template as an indented JSON array. Storage
// identifiers are not part of the output.
func ExportJSON(s PromptStore) (string, error) {
	prompts, err := s.GetAll()
	if err != nil {
		return "", err
	}
	if prompts == nil {
		prompts = []models.PromptTemplate{}
	}
	data, err := json.MarshalIndent(prompts, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// importedPrompt is the accepted import shape; entries need at least a title
// and content, everything else is rederived on save.
type importedPrompt struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ImportJSON parses a JSON array of templates and upserts them. The payload
// is parsed in full before anything is written, so malformed JSON imports
// nothing; entries missing a title or content are skipped. Returns the
// number of templates actually upserted.
func ImportJSON(s PromptStore, text string) (int, error) {
	var prompts []importedPrompt
	if err := json.Unmarshal([]byte(text), &prompts); err != nil {
		return 0, err
	}

	count := 0
	for _, p := range prompts {
		if p.Title == "" || p.Content == "" {
			continue
		}
		if _, err := s.Save(p.Title, p.Content); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
