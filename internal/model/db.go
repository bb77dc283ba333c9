package model

import "time"

const (
	PurchaseSourceVerify  = "verify"
	PurchaseSourceWebhook = "webhook"
)

type PurchaseRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SessionID string    `gorm:"size:255;uniqueIndex;not null" json:"sessionId"` // stripe checkout session id
	Email     string    `gorm:"size:255;index;not null" json:"email"`
	ProductID string    `gorm:"size:128;index;not null" json:"productId"`
	Source    string    `gorm:"size:16;not null" json:"source"` // verify, webhook
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	CreatedAt time.Time `json:"-"`
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
