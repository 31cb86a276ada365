package quota

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mdbin/mdbin/internal/models"
	"gorm.io/gorm"
)

// Store provides durable access to quota records and the operation log.
// It is the only component that mutates either table.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OperationSum is a per-type aggregate over the operation log.
type OperationSum struct {
	OperationType string `json:"operation_type"`
	Total         int64  `json:"total"`
}

// Transaction runs fn against a transactional view of the store.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s == nil || s.db == nil {
		return errors.New("quota store: db not initialized")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// GetQuota loads the quota record for an identity. It returns (nil, nil)
// when no record exists yet.
func (s *Store) GetQuota(ctx context.Context, identity string) (*models.IPQuota, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("quota store: db not initialized")
	}
	var row models.IPQuota
	errFind := s.db.WithContext(ctx).
		Where("identity = ?", identity).
		First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	return &row, nil
}

// CreateQuota inserts a fresh quota record with a full budget. It fails when
// a record for the identity already exists.
func (s *Store) CreateQuota(ctx context.Context, identity string, dailyLimit int64, now time.Time) (*models.IPQuota, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("quota store: db not initialized")
	}
	if strings.TrimSpace(identity) == "" {
		return nil, errors.New("quota store: empty identity")
	}
	row := models.IPQuota{
		Identity:            identity,
		RemainingOperations: dailyLimit,
		DailyLimit:          dailyLimit,
		LastReset:           now.UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, errCreate
	}
	return &row, nil
}

// ResetQuota starts a new window: full budget, fresh last-reset timestamp.
func (s *Store) ResetQuota(ctx context.Context, identity string, dailyLimit int64, now time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("quota store: db not initialized")
	}
	return s.db.WithContext(ctx).
		Model(&models.IPQuota{}).
		Where("identity = ?", identity).
		Updates(map[string]any{
			"remaining_operations": dailyLimit,
			"daily_limit":          dailyLimit,
			"last_reset":           now.UTC(),
		}).Error
}

// ConsumeRemaining atomically decrements the remaining budget. The guard in
// the WHERE clause makes the check-and-act a single statement, so two
// concurrent consumers cannot both spend the last unit. It reports whether
// the decrement happened.
func (s *Store) ConsumeRemaining(ctx context.Context, identity string, count int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("quota store: db not initialized")
	}
	res := s.db.WithContext(ctx).
		Model(&models.IPQuota{}).
		Where("identity = ? AND remaining_operations >= ?", identity, count).
		Update("remaining_operations", gorm.Expr("remaining_operations - ?", count))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RefundRemaining credits units back, clamped at the daily limit so the
// record can never exceed its budget.
func (s *Store) RefundRemaining(ctx context.Context, identity string, count int64) error {
	if s == nil || s.db == nil {
		return errors.New("quota store: db not initialized")
	}
	return s.db.WithContext(ctx).
		Model(&models.IPQuota{}).
		Where("identity = ?", identity).
		Update("remaining_operations", gorm.Expr(
			"CASE WHEN remaining_operations + ? > daily_limit THEN daily_limit ELSE remaining_operations + ? END",
			count, count,
		)).Error
}

// AppendOperation inserts one row into the append-only operation log.
func (s *Store) AppendOperation(ctx context.Context, identity, operationType string, count int64, documentID string) (*models.Operation, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("quota store: db not initialized")
	}
	row := models.Operation{
		Identity:       identity,
		OperationType:  operationType,
		OperationCount: count,
		CreatedAt:      time.Now().UTC(),
	}
	if trimmed := strings.TrimSpace(documentID); trimmed != "" {
		row.DocumentID = &trimmed
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, errCreate
	}
	return &row, nil
}

// AttachDocumentID sets the document reference on the most recent log row for
// the identity that does not have one yet. It is a no-op when no such row
// exists.
func (s *Store) AttachDocumentID(ctx context.Context, identity, documentID string) error {
	if s == nil || s.db == nil {
		return errors.New("quota store: db not initialized")
	}
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return errors.New("quota store: empty document id")
	}

	var row models.Operation
	errFind := s.db.WithContext(ctx).
		Where("identity = ? AND document_id IS NULL", identity).
		Order("id DESC").
		First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil
	}
	if errFind != nil {
		return errFind
	}

	return s.db.WithContext(ctx).
		Model(&models.Operation{}).
		Where("id = ?", row.ID).
		Update("document_id", documentID).Error
}

// SumOperationsSince returns per-type operation totals for an identity since
// the given timestamp.
func (s *Store) SumOperationsSince(ctx context.Context, identity string, since time.Time) ([]OperationSum, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("quota store: db not initialized")
	}
	var rows []OperationSum
	if errScan := s.db.WithContext(ctx).
		Model(&models.Operation{}).
		Where("identity = ? AND created_at >= ?", identity, since).
		Select("operation_type, COALESCE(SUM(operation_count), 0) AS total").
		Group("operation_type").
		Order("operation_type ASC").
		Scan(&rows).Error; errScan != nil {
		return nil, errScan
	}
	return rows, nil
}
