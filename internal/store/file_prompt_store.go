package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/pkg/logger"
)

// FilePromptStore keeps the whole prompt library in a single JSON document
// mapping command to template.
type FilePromptStore struct {
	path string
	log  *logger.Logger
}

// NewFilePromptStore creates a file-backed prompt store under dir.
func NewFilePromptStore(dir string, log *logger.Logger) (*FilePromptStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create prompt storage dir: %w", err)
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &FilePromptStore{path: filepath.Join(dir, "prompts.json"), log: log}, nil
}

func (s *FilePromptStore) Save(title, content string) (string, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return "", ErrValidation
	}
	command := models.DeriveCommand(title)

	prompts := s.readAll()
	prompts[command] = models.PromptTemplate{
		Title:       title,
		Command:     command,
		Content:     content,
		LastUpdated: models.Now(),
	}
	if err := s.writeAll(prompts); err != nil {
		return "", err
	}
	return command, nil
}

func (s *FilePromptStore) GetAll() ([]models.PromptTemplate, error) {
	prompts := s.readAll()
	all := make([]models.PromptTemplate, 0, len(prompts))
	for _, p := range prompts {
		all = append(all, p)
	}
	return all, nil
}

func (s *FilePromptStore) GetByCommand(command string) (*models.PromptTemplate, error) {
	prompts := s.readAll()
	p, ok := prompts[command]
	if !ok {
		return nil, ErrPromptNotFound
	}
	return &p, nil
}

func (s *FilePromptStore) Delete(command string) error {
	prompts := s.readAll()
	if _, ok := prompts[command]; !ok {
		return nil
	}
	delete(prompts, command)
	return s.writeAll(prompts)
}

// readAll loads the library, treating a missing or corrupt file as empty.
func (s *FilePromptStore) readAll() map[string]models.PromptTemplate {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Prompt library unreadable, starting empty", "path", s.path, "error", err.Error())
		}
		return map[string]models.PromptTemplate{}
	}

	var prompts map[string]models.PromptTemplate
	if err := json.Unmarshal(data, &prompts); err != nil {
		s.log.Warn("Prompt library corrupt, starting empty", "path", s.path, "error", err.Error())
		return map[string]models.PromptTemplate{}
	}
	if prompts == nil {
		prompts = map[string]models.PromptTemplate{}
	}
	return prompts
}

func (s *FilePromptStore) writeAll(prompts map[string]models.PromptTemplate) error {
	data, err := json.MarshalIndent(prompts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prompt library: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}
