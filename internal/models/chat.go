package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wall-clock format used for message and session
// timestamps throughout the system.
const TimestampLayout = "2006-01-02 15:04:05"

// Now returns the current time formatted with TimestampLayout.
func Now() string {
	return time.Now().Format(TimestampLayout)
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation. Messages are immutable once
// created; ordering within a session is append order.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
}

// MessageList is a JSON-encoded message log stored in a single column.
type MessageList []Message

// Value implements driver.Valuer so gorm can persist the log as JSON.
func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		m = MessageList{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading the JSON log back.
func (m *MessageList) Scan(value interface{}) error {
	if value == nil {
		*m = MessageList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for MessageList: %T", value)
	}
	return json.Unmarshal(data, m)
}

// ChatSession is one conversation: an ordered message log plus the time it
// was last written.
type ChatSession struct {
	Messages    []Message `json:"messages"`
	LastUpdated string    `json:"last_updated"`
}

// NewChatSession returns a fresh empty session stamped with the current time.
// Loading a chat id that does not exist yields this default rather than an
// error.
func NewChatSession() ChatSession {
	return ChatSession{
		Messages:    []Message{},
		LastUpdated: Now(),
	}
}

// ChatRecord is the persisted form of a chat session: one row per
// (user_name, chat_id) pair.
type ChatRecord struct {
	ID          uint        `gorm:"primaryKey" json:"-"`
	UserName    string      `gorm:"index:idx_chats_user_chat,unique" json:"user_name"`
	ChatID      string      `gorm:"index:idx_chats_user_chat,unique" json:"chat_id"`
	Messages    MessageList `gorm:"type:jsonb" json:"messages"`
	LastUpdated string      `json:"last_updated"`
}

// TableName overrides the gorm table name
func (ChatRecord) TableName() string {
	return "chats"
}

// Session converts a record back into its in-memory form.
func (r *ChatRecord) Session() ChatSession {
	return ChatSession{
		Messages:    []Message(r.Messages),
		LastUpdated: r.LastUpdated,
	}
}

// NormalizeUserKey converts a display name into the storage addressing key:
// lowercase with every space replaced by an underscore. Display names that
// differ only in case or spacing share one history.
func NormalizeUserKey(userName string) string {
	return strings.ReplaceAll(strings.ToLower(userName), " ", "_")
}
