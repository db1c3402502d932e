package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/facesync/internal/models"
)

// LibraryRepository persists the versioned ML library blob. The table holds
// a single row; the blob is opaque to sync logic.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a LibraryRepository backed by db.
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Get reads the current library data. A fresh database yields version 0
// with no blob.
func (r *LibraryRepository) Get(ctx context.Context) (*models.MLLibraryData, error) {
	var data models.MLLibraryData
	var blob []byte
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT version, data, updated_at FROM ml_library WHERE id = 1").
		Scan(&data.Version, &blob, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read ml library data: %w", err)
	}

	data.Data = blob
	if t, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
		data.UpdatedAt = t
	}
	return &data, nil
}

// Save writes the library data, stamping the update time.
func (r *LibraryRepository) Save(ctx context.Context, data *models.MLLibraryData) error {
	if data == nil {
		return fmt.Errorf("nil library data")
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE ml_library SET version = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1",
		data.Version, data.Data)
	if err != nil {
		return fmt.Errorf("failed to save ml library data: %w", err)
	}
	return nil
}
