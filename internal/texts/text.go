package texts

import "time"

// Text is a snippet stored on behalf of a user.
type Text struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null" json:"_id"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index:idx_texts_user_created,priority:1" json:"userId"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_texts_user_created,priority:2" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Text) TableName() string {
	return "texts"
}
