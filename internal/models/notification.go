package models

import "time"

// PushSubscription is a browser web-push endpoint registered by a user
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Endpoint  string    `gorm:"size:1024;not null;uniqueIndex" json:"endpoint"`
	P256dh    string    `gorm:"size:255;not null" json:"-"`
	Auth      string    `gorm:"size:255;not null" json:"-"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// NotificationSettings holds a user's delivery preferences
type NotificationSettings struct {
	UserID       uint      `gorm:"primaryKey" json:"-"`
	PushEnabled  bool      `gorm:"not null" json:"push_enabled"`
	EmailEnabled bool      `gorm:"not null;default:false" json:"email_enabled"`
	LeadMinutes  int       `gorm:"not null;default:0" json:"lead_minutes"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// DefaultNotificationSettings is used for users who never saved settings
func DefaultNotificationSettings(userID uint) NotificationSettings {
	return NotificationSettings{
		UserID:      userID,
		PushEnabled: true,
	}
}

// NotificationLog tracks every delivery attempt of a dose notification
type NotificationLog struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	LogID   uint      `gorm:"not null;index" json:"log_id"`
	UserID  uint      `gorm:"not null;index" json:"user_id"`
	Channel string    `gorm:"size:10;not null" json:"channel"` // "push" or "email"
	Success bool      `gorm:"not null" json:"success"`
	Error   string    `gorm:"size:512" json:"error,omitempty"`
	SentAt  time.Time `gorm:"not null" json:"sent_at"`
}

// SubscriptionKeys mirrors PushSubscription.toJSON().keys in the browser
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

// SubscriptionInfo mirrors PushSubscription.toJSON() in the browser
type SubscriptionInfo struct {
	Endpoint       string           `json:"endpoint" binding:"required,url"`
	ExpirationTime *int64           `json:"expirationTime"`
	Keys           SubscriptionKeys `json:"keys" binding:"required"`
}

// SubscribeRequest is sent by the frontend after PushManager.subscribe
type SubscribeRequest struct {
	SubscriptionInfo SubscriptionInfo `json:"subscription_info" binding:"required"`
}

// UnsubscribeRequest identifies the subscription to remove
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// NotificationSettingsRequest updates delivery preferences
type NotificationSettingsRequest struct {
	PushEnabled  *bool `json:"push_enabled"`
	EmailEnabled *bool `json:"email_enabled"`
	LeadMinutes  *int  `json:"lead_minutes" binding:"omitempty,min=0,max=120"`
}

// PushPayload is the JSON document the service worker receives
type PushPayload struct {
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Icon  string          `json:"icon,omitempty"`
	Badge string          `json:"badge,omitempty"`
	Data  PushPayloadData `json:"data"`
}

// PushPayloadData is passed to notificationclick handlers
type PushPayloadData struct {
	URL          string `json:"url"`
	MedicationID uint   `json:"medicationId,omitempty"`
	LogID        uint   `json:"logId,omitempty"`
}
