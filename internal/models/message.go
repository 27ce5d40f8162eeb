package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatRole identifies who wrote a chat message
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// DefaultSessionTitle is given to sessions created without a title
const DefaultSessionTitle = "گفتگوی جدید"

// ChatSession represents one conversation with the assistant
type ChatSession struct {
	ID        uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint          `gorm:"not null;index" json:"-"`
	Title     string        `gorm:"size:100;not null" json:"title"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;index" json:"updated_at"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// ChatMessage represents a single message in a session
type ChatMessage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID uint           `gorm:"not null;index:idx_chat_message_session_created" json:"session"`
	Role      ChatRole       `gorm:"size:10;not null" json:"role"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Usage     datatypes.JSON `gorm:"type:json" json:"-"`
	Images    []ChatImage    `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"images"`
	CreatedAt time.Time      `gorm:"not null;index:idx_chat_message_session_created" json:"created_at"`
}

// ChatImage is an image attached to a user message
type ChatImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	MessageID uint   `gorm:"not null;index" json:"-"`
	Image     string `gorm:"size:1024;not null" json:"image"` // public URL
	PublicID  string `gorm:"size:255" json:"-"`
}

// BeforeCreate hook is called before creating a new session
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.Title == "" {
		s.Title = DefaultSessionTitle
	}
	return nil
}

// BeforeCreate hook is called before creating a new message
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// CreateSessionRequest represents the data needed to start a session
type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=100"`
}

// UsageMetadata is stored with assistant replies
type UsageMetadata struct {
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}
