package models

import "time"

// Operation is one row of the append-only operation log. Rows are never
// deleted or mutated except the one-time retroactive attachment of DocumentID.
type Operation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Identity string `gorm:"type:text;not null;index:idx_operations_identity_created"` // Charged identity.

	OperationType  string `gorm:"type:text;not null"`  // Opaque operation tag, e.g. "publish" or "view".
	OperationCount int64  `gorm:"not null;default:1"`  // Units charged, >= 1.

	DocumentID *string `gorm:"type:text"` // Related document, attached after creation.

	CreatedAt time.Time `gorm:"not null;index:idx_operations_identity_created"` // Creation timestamp, immutable.
}

// TableName overrides the default table name.
func (Operation) TableName() string {
	return "operations"
}
