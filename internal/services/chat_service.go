package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"pharmacist/internal/assistant"
	"pharmacist/internal/config"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

const sessionTitleRunes = 50

// imageOnlyPrompt is sent when the user attaches an image without any text
const imageOnlyPrompt = "لطفاً این تصویر را بررسی کنید."

// ImageUpload is an image attached to an outgoing chat message
type ImageUpload struct {
	Reader   io.Reader
	Filename string
}

type ChatService struct {
	db       *gorm.DB
	provider assistant.Provider
	images   ImageUploader
	cfg      config.AssistantConfig
}

// NewChatService wires the chatbot. provider and images may be nil when not configured.
func NewChatService(cfg *config.Config, provider assistant.Provider, images ImageUploader) *ChatService {
	return &ChatService{
		db:       database.GetDB(),
		provider: provider,
		images:   images,
		cfg:      cfg.Assistant,
	}
}

func (s *ChatService) ListSessions(userID uint) ([]models.ChatSession, error) {
	sessions := []models.ChatSession{}
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *ChatService) CreateSession(userID uint, title string) (*models.ChatSession, error) {
	session := models.ChatSession{
		UserID: userID,
		Title:  strings.TrimSpace(title),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

func (s *ChatService) loadSession(db *gorm.DB, userID, sessionID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session with its messages and their images
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	var publicIDs []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.loadSession(tx, userID, sessionID)
		if err != nil {
			return err
		}

		messageIDs := tx.Model(&models.ChatMessage{}).Select("id").Where("session_id = ?", session.ID)
		if err := tx.Model(&models.ChatImage{}).Where("message_id IN (?)", messageIDs).
			Where("public_id <> ''").Pluck("public_id", &publicIDs).Error; err != nil {
			return fmt.Errorf("failed to load images: %w", err)
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.ChatImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(session).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.images != nil {
		for _, id := range publicIDs {
			if err := s.images.DeleteImage(ctx, id); err != nil {
				log.Printf("Warning: failed to delete chat image %s: %v", id, err)
			}
		}
	}
	return nil
}

// ListMessages returns a session's messages oldest first
func (s *ChatService) ListMessages(userID, sessionID uint) ([]models.ChatMessage, error) {
	if _, err := s.loadSession(s.db, userID, sessionID); err != nil {
		return nil, err
	}

	messages := []models.ChatMessage{}
	if err := s.db.Where("session_id = ?", sessionID).
		Preload("Images").
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// SendMessage asks the assistant and stores the exchange. Nothing is stored when the assistant fails.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID uint, content string, image *ImageUpload) (*models.ChatMessage, *models.ChatMessage, error) {
	session, err := s.loadSession(s.db, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" && image == nil {
		return nil, nil, invalidField("content", "a message or an image is required")
	}

	if s.provider == nil {
		return nil, nil, fmt.Errorf("%w: no provider configured", ErrDisabled)
	}

	userMessage := models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	prompt := content
	if image != nil {
		if s.images == nil {
			return nil, nil, fmt.Errorf("%w: image uploads are not configured", ErrDisabled)
		}
		url, publicID, err := s.images.UploadChatImage(ctx, image.Reader, image.Filename, userID)
		if err != nil {
			return nil, nil, err
		}
		userMessage.Images = []models.ChatImage{{Image: url, PublicID: publicID}}

		if prompt == "" {
			prompt = imageOnlyPrompt
		}
		prompt += "\n\n[تصویر پیوست: " + url + "]"
	}

	history, err := s.history(session.ID)
	if err != nil {
		return nil, nil, err
	}

	reply, err := s.provider.SendMessage(ctx, assistant.MessageRequest{
		Messages:    append(history, assistant.Message{Role: assistant.RoleUser, Content: prompt}),
		System:      s.cfg.SystemPrompt,
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.discardImages(ctx, userMessage.Images)
		return nil, nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	usage, _ := json.Marshal(models.UsageMetadata{
		Model:        reply.Model,
		InputTokens:  reply.Usage.InputTokens,
		OutputTokens: reply.Usage.OutputTokens,
	})
	aiMessage := models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   reply.Content,
		Usage:     usage,
		Images:    []models.ChatImage{},
		CreatedAt: userMessage.CreatedAt.Add(time.Millisecond),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userMessage).Error; err != nil {
			return fmt.Errorf("failed to save user message: %w", err)
		}
		if err := tx.Create(&aiMessage).Error; err != nil {
			return fmt.Errorf("failed to save assistant message: %w", err)
		}

		updates := map[string]interface{}{"updated_at": aiMessage.CreatedAt}
		if session.Title == models.DefaultSessionTitle && content != "" {
			var count int64
			if err := tx.Model(&models.ChatMessage{}).Where("session_id = ? AND role = ?", session.ID, models.RoleUser).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count messages: %w", err)
			}
			if count == 1 {
				updates["title"] = SessionTitleFrom(content)
			}
		}
		if err := tx.Model(session).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		s.discardImages(ctx, userMessage.Images)
		return nil, nil, err
	}

	if userMessage.Images == nil {
		userMessage.Images = []models.ChatImage{}
	}
	return &userMessage, &aiMessage, nil
}

// history returns the most recent messages of a session in chronological order
func (s *ChatService) history(sessionID uint) ([]assistant.Message, error) {
	limit := s.cfg.HistoryLimit
	if limit <= 0 {
		limit = 20
	}

	var recent []models.ChatMessage
	if err := s.db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	history := make([]assistant.Message, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, assistant.Message{Role: string(recent[i].Role), Content: recent[i].Content})
	}
	return history, nil
}

func (s *ChatService) discardImages(ctx context.Context, images []models.ChatImage) {
	for _, img := range images {
		if img.PublicID == "" {
			continue
		}
		if err := s.images.DeleteImage(ctx, img.PublicID); err != nil {
			log.Printf("Warning: failed to delete chat image %s: %v", img.PublicID, err)
		}
	}
}

// SessionTitleFrom derives a session title from the first message
func SessionTitleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= sessionTitleRunes {
		return title
	}
	return string([]rune(title)[:sessionTitleRunes]) + "…"
}
