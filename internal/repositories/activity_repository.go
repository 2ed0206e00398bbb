package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"mealrelay/internal/models/db_models"
)

type ActivityRepository interface {
	TouchLastMessage(ctx context.Context, userID string, at time.Time) error
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// TouchLastMessage upserts the user's last message timestamp.
func (r *activityRepository) TouchLastMessage(ctx context.Context, userID string, at time.Time) error {
	activity := &db_models.UserMessageActivity{
		UserID:               userID,
		LastMessageTimestamp: at.UTC(),
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_message_timestamp", "updated_at"}),
		}).
		Create(activity).Error
}
