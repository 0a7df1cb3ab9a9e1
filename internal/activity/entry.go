package activity

import "time"

// LogEntry is one append-only audit line. UserID is nil for entries that
// are not attributed to an account.
type LogEntry struct {
	ID     string    `gorm:"column:id;primaryKey;size:36;not null" json:"_id"`
	UserID *string   `gorm:"column:user_id;size:36;index:idx_activity_user_time,priority:1" json:"userId"`
	Action string    `gorm:"column:action;type:text;not null" json:"action"`
	Time   time.Time `gorm:"column:time;not null;index:idx_activity_user_time,priority:2" json:"time"`
}

// TableName provides the explicit table binding for GORM.
func (LogEntry) TableName() string {
	return "activity_logs"
}
