package files

import "time"

// File indexes one uploaded blob. ExternalID is the blob service handle and
// Type the resource type it was stored under; both are needed to delete it.
type File struct {
	ID         string    `gorm:"column:id;primaryKey;size:36;not null" json:"_id"`
	UserID     string    `gorm:"column:user_id;size:36;not null;index:idx_files_user_created,priority:1" json:"userId"`
	URL        string    `gorm:"column:url;size:2048;not null" json:"url"`
	ExternalID string    `gorm:"column:external_id;size:190;not null;uniqueIndex" json:"public_id"`
	Type       string    `gorm:"column:resource_type;size:16;not null" json:"type"`
	Format     string    `gorm:"column:format;size:32" json:"format"`
	Path       string    `gorm:"column:path;size:1024" json:"path"`
	SizeBytes  int64     `gorm:"column:size_bytes;not null" json:"size"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index:idx_files_user_created,priority:2" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (File) TableName() string {
	return "files"
}
