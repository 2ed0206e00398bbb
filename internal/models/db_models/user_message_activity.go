package db_models

import "time"

// UserMessageActivity tracks when a user last talked to the assistant.
type UserMessageActivity struct {
	BaseModel
	UserID               string    `gorm:"type:uuid;not null;uniqueIndex"`
	LastMessageTimestamp time.Time `gorm:"not null"`
}

func (UserMessageActivity) TableName() string {
	return "user_message_activity"
}
