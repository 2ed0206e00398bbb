package db_models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ChatHistory rows are written by the n8n memory node, one per message.
type ChatHistory struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	SessionID string         `gorm:"type:varchar(255);not null;index"`
	Message   HistoryMessage `gorm:"type:jsonb;not null"`
}

func (ChatHistory) TableName() string {
	return "n8n_chat_histories"
}

// HistoryMessage is the jsonb payload n8n stores, e.g. {"type":"human","content":"..."}.
type HistoryMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (m *HistoryMessage) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = HistoryMessage{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported history message type %T", value)
	}
	return json.Unmarshal(data, m)
}

func (m HistoryMessage) Value() (driver.Value, error) {
	return json.Marshal(m)
}
