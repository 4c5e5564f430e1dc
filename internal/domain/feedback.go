package domain

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Feedback  string    `json:"feedback" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Feedback) TableName() string {
	return "feedback"
}
