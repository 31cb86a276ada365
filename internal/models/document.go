package models

import "time"

// Document is a published markdown artifact.
type Document struct {
	ID string `gorm:"primaryKey;type:text"` // Short public slug.

	Title   string `gorm:"type:text"`          // Optional display title.
	Content string `gorm:"type:text;not null"` // Raw markdown payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (Document) TableName() string {
	return "documents"
}
