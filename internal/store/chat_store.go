package store

import (
	"errors"
	"fmt"

	"ollama-chat-demo/backend/internal/models"

	"gorm.io/gorm"
)

// ErrCorruptHistory marks persisted chat history that could not be decoded.
// Callers are expected to log it and continue with an empty history rather
// than fail the session.
var ErrCorruptHistory = errors.New("chat history is unreadable")

// ChatStore persists chat sessions keyed by normalized user name and chat id.
type ChatStore interface {
	// SaveChat upserts one session without touching other chat ids or users.
	SaveChat(userName, chatID string, session models.ChatSession) error
	// LoadAllChats returns every session for the user. Corrupt backing data
	// yields an empty map together with ErrCorruptHistory.
	LoadAllChats(userName string) (map[string]models.ChatSession, error)
	// LoadChat returns one session; a missing chat id yields a fresh empty
	// session stamped with the current time, not an error.
	LoadChat(userName, chatID string) (models.ChatSession, error)
}

// GormChatStore stores one row per (user_name, chat_id) pair.
type GormChatStore struct {
	db *gorm.DB
}

// NewGormChatStore creates a database-backed chat store.
func NewGormChatStore(db *gorm.DB) *GormChatStore {
	return &GormChatStore{db: db}
}

func (s *GormChatStore) SaveChat(userName, chatID string, session models.ChatSession) error {
	key := models.NormalizeUserKey(userName)

	var record models.ChatRecord
	err := s.db.Where("user_name = ? AND chat_id = ?", key, chatID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.ChatRecord{
			UserName:    key,
			ChatID:      chatID,
			Messages:    models.MessageList(session.Messages),
			LastUpdated: session.LastUpdated,
		}
		return s.db.Create(&record).Error
	}
	if err != nil {
		return err
	}

	record.Messages = models.MessageList(session.Messages)
	record.LastUpdated = session.LastUpdated
	return s.db.Save(&record).Error
}

func (s *GormChatStore) LoadAllChats(userName string) (map[string]models.ChatSession, error) {
	key := models.NormalizeUserKey(userName)

	var records []models.ChatRecord
	if err := s.db.Where("user_name = ?", key).Find(&records).Error; err != nil {
		return map[string]models.ChatSession{}, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}

	chats := make(map[string]models.ChatSession, len(records))
	for i := range records {
		chats[records[i].ChatID] = records[i].Session()
	}
	return chats, nil
}

func (s *GormChatStore) LoadChat(userName, chatID string) (models.ChatSession, error) {
	key := models.NormalizeUserKey(userName)

	var record models.ChatRecord
	err := s.db.Where("user_name = ? AND chat_id = ?", key, chatID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewChatSession(), nil
	}
	if err != nil {
		return models.NewChatSession(), err
	}
	return record.Session(), nil
}
