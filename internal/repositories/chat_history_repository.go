package repositories

import (
	"context"

	"gorm.io/gorm"
	"mealrelay/internal/models/db_models"
)

type ChatHistoryRepository interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]db_models.ChatHistory, error)
}

type chatHistoryRepository struct {
	db *gorm.DB
}

func NewChatHistoryRepository(db *gorm.DB) ChatHistoryRepository {
	return &chatHistoryRepository{db: db}
}

// ListBySession returns the latest limit messages of a session, oldest first.
func (r *chatHistoryRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]db_models.ChatHistory, error) {
	var rows []db_models.ChatHistory
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
