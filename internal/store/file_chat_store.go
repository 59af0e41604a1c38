package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ollama-chat-demo/backend/internal/models"
	"ollama-chat-demo/backend/pkg/logger"
)

// FileChatStore keeps one JSON document per normalized username, mapping
// chat_id to session. Every operation reads or writes the whole file.
type FileChatStore struct {
	dir string
	log *logger.Logger
}

// NewFileChatStore creates a file-backed chat store rooted at dir.
func NewFileChatStore(dir string, log *logger.Logger) (*FileChatStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chat storage dir: %w", err)
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &FileChatStore{dir: dir, log: log}, nil
}

// userFilePath returns the history file for a display name.
func (s *FileChatStore) userFilePath(userName string) string {
	return filepath.Join(s.dir, models.NormalizeUserKey(userName)+"_chats.json")
}

func (s *FileChatStore) SaveChat(userName, chatID string, session models.ChatSession) error {
	path := s.userFilePath(userName)

	// Existing history is carried forward; a corrupt file is replaced rather
	// than blocking the write.
	chats, err := s.readAll(path)
	if err != nil {
		s.log.Warn("Discarding unreadable chat history on save",
			"path", path,
			"error", err.Error(),
		)
		chats = map[string]models.ChatSession{}
	}

	chats[chatID] = session

	data, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileChatStore) LoadAllChats(userName string) (map[string]models.ChatSession, error) {
	chats, err := s.readAll(s.userFilePath(userName))
	if err != nil {
		return map[string]models.ChatSession{}, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	return chats, nil
}

func (s *FileChatStore) LoadChat(userName, chatID string) (models.ChatSession, error) {
	chats, err := s.LoadAllChats(userName)
	if err != nil {
		s.log.Warn("Chat history unreadable, starting empty",
			"user", models.NormalizeUserKey(userName),
			"error", err.Error(),
		)
		return models.NewChatSession(), nil
	}
	session, ok := chats[chatID]
	if !ok {
		return models.NewChatSession(), nil
	}
	return session, nil
}

// readAll loads the whole history file. A missing file is an empty history.
func (s *FileChatStore) readAll(path string) (map[string]models.ChatSession, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]models.ChatSession{}, nil
	}
	if err != nil {
		return nil, err
	}

	var chats map[string]models.ChatSession
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, err
	}
	if chats == nil {
		chats = map[string]models.ChatSession{}
	}
	return chats, nil
}
