package models

import "time"

// IPQuota tracks the daily operation budget for a single client identity.
type IPQuota struct {
	Identity string `gorm:"primaryKey;type:text"` // IP-derived partition key.

	RemainingOperations int64 `gorm:"not null;default:0"` // Operations left in the current window.
	DailyLimit          int64 `gorm:"not null;default:0"` // Budget granted per window.

	LastReset time.Time `gorm:"not null"` // Start of the current quota window.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp, immutable.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (IPQuota) TableName() string {
	return "ip_quotas"
}
