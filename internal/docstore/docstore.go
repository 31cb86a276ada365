// Package docstore persists published markdown documents.
package docstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mdbin/mdbin/internal/models"
	"gorm.io/gorm"
)

// documentIDBytes sizes the random slug; 6 bytes yields a 12-char hex id.
const documentIDBytes = 6

// Store provides key-value access to documents.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NewDocumentID creates a new random document slug.
func NewDocumentID() (string, error) {
	secret := make([]byte, documentIDBytes)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("docstore: generate id: %w", err)
	}
	return hex.EncodeToString(secret), nil
}

// Create persists a document under the given id.
func (s *Store) Create(ctx context.Context, id, title, content string) error {
	if s == nil || s.db == nil {
		return errors.New("docstore: db not initialized")
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("docstore: empty document id")
	}
	row := models.Document{
		ID:      id,
		Title:   strings.TrimSpace(title),
		Content: content,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Get loads a document by id. It returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*models.Document, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("docstore: db not initialized")
	}
	var row models.Document
	errFind := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	return &row, nil
}
