package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/facesync/internal/models"
)

// FaceRepository persists face results in SQLite.
type FaceRepository struct {
	db *sql.DB
}

// NewFaceRepository creates a FaceRepository backed by db.
func NewFaceRepository(db *sql.DB) *FaceRepository {
	return &FaceRepository{db: db}
}

// SaveFaces replaces the stored faces for fileID with the given set, in one
// transaction. Re-syncing a file overwrites its previous results.
func (r *FaceRepository) SaveFaces(ctx context.Context, fileID string, faces []models.Face) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM faces WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("failed to clear previous faces: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO faces
		(id, file_id, face_index, box_x, box_y, box_w, box_h, score, embedding, cluster_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, face := range faces {
		if err := face.Validate(); err != nil {
			return fmt.Errorf("invalid face: %w", err)
		}

		blob, err := encodeEmbedding(face.Embedding)
		if err != nil {
			return err
		}

		var clusterID any
		if face.ClusterID != "" {
			clusterID = face.ClusterID
		}

		box := face.Detection.Box
		if _, err := stmt.ExecContext(ctx,
			face.ID, face.FileID, face.Index,
			box.X, box.Y, box.W, box.H,
			face.Detection.Score, blob, clusterID,
		); err != nil {
			return fmt.Errorf("failed to insert face %s: %w", face.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateClusters writes cluster assignments for previously stored faces.
func (r *FaceRepository) UpdateClusters(ctx context.Context, assignments []models.ClusterAssignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE faces SET cluster_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, a.ClusterID, a.FaceID); err != nil {
			return fmt.Errorf("failed to update cluster for face %s: %w", a.FaceID, err)
		}
	}

	return tx.Commit()
}

// ListByFile returns the stored faces for one file, ordered by face index.
func (r *FaceRepository) ListByFile(ctx context.Context, fileID string) ([]models.Face, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, file_id, face_index, box_x, box_y, box_w, box_h, score, embedding, cluster_id
		FROM faces WHERE file_id = ? ORDER BY face_index`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query faces: %w", err)
	}
	defer rows.Close()

	var faces []models.Face
	for rows.Next() {
		face, err := scanFace(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

// ListClusters returns the face ids grouped by cluster, skipping faces with
// no assignment yet.
func (r *FaceRepository) ListClusters(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, cluster_id FROM faces WHERE cluster_id IS NOT NULL ORDER BY cluster_id, face_index")
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	clusters := make(map[string][]string)
	for rows.Next() {
		var faceID, clusterID string
		if err := rows.Scan(&faceID, &clusterID); err != nil {
			return nil, fmt.Errorf("failed to scan cluster row: %w", err)
		}
		clusters[clusterID] = append(clusters[clusterID], faceID)
	}
	return clusters, rows.Err()
}

// Count returns the total number of stored faces.
func (r *FaceRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faces").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count faces: %w", err)
	}
	return n, nil
}

func scanFace(rows *sql.Rows) (models.Face, error) {
	var face models.Face
	var blob []byte
	var clusterID sql.NullString

	if err := rows.Scan(
		&face.ID, &face.FileID, &face.Index,
		&face.Detection.Box.X, &face.Detection.Box.Y,
		&face.Detection.Box.W, &face.Detection.Box.H,
		&face.Detection.Score, &blob, &clusterID,
	); err != nil {
		return face, fmt.Errorf("failed to scan face row: %w", err)
	}

	embedding, err := decodeEmbedding(blob)
	if err != nil {
		return face, err
	}
	face.Embedding = embedding
	if clusterID.Valid {
		face.ClusterID = clusterID.String
	}
	return face, nil
}
