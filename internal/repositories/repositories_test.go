package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/desertthunder/facesync/internal/models"
	"github.com/desertthunder/facesync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testFace(fileID string, index int) models.Face {
	return models.Face{
		ID:     shared.GenerateID(),
		FileID: fileID,
		Index:  index,
		Detection: models.Detection{
			Box:   models.Box{X: 0.1, Y: 0.2, W: 0.3, H: 0.4},
			Score: 0.95,
		},
		Embedding: []float32{0.5, -0.25, 0.125, 1},
	}
}

func TestFaceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveFaces And ListByFile", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFaceRepository(db)
		faces := []models.Face{testFace("file-001", 0), testFace("file-001", 1)}

		if err := repo.SaveFaces(ctx, "file-001", faces); err != nil {
			t.Fatalf("failed to save faces: %v", err)
		}

		got, err := repo.ListByFile(ctx, "file-001")
		if err != nil {
			t.Fatalf("failed to list faces: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 faces, got %d", len(got))
		}

		for i, face := range got {
			if face.Index != i {
				t.Errorf("face %d out of order, index %d", i, face.Index)
			}
			if face.Detection.Box != faces[i].Detection.Box {
				t.Errorf("face %d box mismatch: %+v != %+v", i, face.Detection.Box, faces[i].Detection.Box)
			}
			if len(face.Embedding) != 4 || face.Embedding[0] != 0.5 {
				t.Errorf("face %d embedding mismatch: %v", i, face.Embedding)
			}
			if face.ClusterID != "" {
				t.Errorf("face %d should have no cluster id yet", i)
			}
		}
	})

	t.Run("SaveFaces Replaces Previous Results", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFaceRepository(db)
		if err := repo.SaveFaces(ctx, "file-001", []models.Face{
			testFace("file-001", 0), testFace("file-001", 1), testFace("file-001", 2),
		}); err != nil {
			t.Fatalf("failed to save faces: %v", err)
		}

		if err := repo.SaveFaces(ctx, "file-001", []models.Face{testFace("file-001", 0)}); err != nil {
			t.Fatalf("failed to re-save faces: %v", err)
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("failed to count faces: %v", err)
		}
		if count != 1 {
			t.Errorf("re-sync should replace previous faces, got %d", count)
		}
	})

	t.Run("SaveFaces Rejects Invalid Face", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFaceRepository(db)
		bad := testFace("file-001", 0)
		bad.Embedding = nil

		if err := repo.SaveFaces(ctx, "file-001", []models.Face{bad}); err == nil {
			t.Error("saving a face without an embedding should fail")
		}

		count, _ := repo.Count(ctx)
		if count != 0 {
			t.Errorf("failed save must not leave partial rows, got %d", count)
		}
	})

	t.Run("UpdateClusters And ListClusters", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFaceRepository(db)
		f1 := testFace("file-001", 0)
		f2 := testFace("file-002", 0)
		f3 := testFace("file-003", 0)

		for _, f := range []models.Face{f1, f2, f3} {
			if err := repo.SaveFaces(ctx, f.FileID, []models.Face{f}); err != nil {
				t.Fatalf("failed to save face: %v", err)
			}
		}

		assignments := []models.ClusterAssignment{
			{FaceID: f1.ID, ClusterID: "cluster-a"},
			{FaceID: f2.ID, ClusterID: "cluster-a"},
			{FaceID: f3.ID, ClusterID: "cluster-b"},
		}
		if err := repo.UpdateClusters(ctx, assignments); err != nil {
			t.Fatalf("failed to update clusters: %v", err)
		}

		clusters, err := repo.ListClusters(ctx)
		if err != nil {
			t.Fatalf("failed to list clusters: %v", err)
		}
		if len(clusters) != 2 {
			t.Fatalf("expected 2 clusters, got %d", len(clusters))
		}
		if len(clusters["cluster-a"]) != 2 {
			t.Errorf("expected 2 faces in cluster-a, got %d", len(clusters["cluster-a"]))
		}
		if len(clusters["cluster-b"]) != 1 {
			t.Errorf("expected 1 face in cluster-b, got %d", len(clusters["cluster-b"]))
		}

		got, err := repo.ListByFile(ctx, "file-001")
		if err != nil {
			t.Fatalf("failed to list faces: %v", err)
		}
		if got[0].ClusterID != "cluster-a" {
			t.Errorf("expected cluster-a on reload, got %q", got[0].ClusterID)
		}
	})
}

func TestLibraryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Fresh Database Starts At Version Zero", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewLibraryRepository(db)
		data, err := repo.Get(ctx)
		if err != nil {
			t.Fatalf("failed to read library data: %v", err)
		}
		if data.Version != 0 {
			t.Errorf("expected version 0, got %d", data.Version)
		}
		if len(data.Data) != 0 {
			t.Errorf("expected empty blob, got %d bytes", len(data.Data))
		}
	})

	t.Run("Save And Get Roundtrip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewLibraryRepository(db)
		if err := repo.Save(ctx, &models.MLLibraryData{
			Version: 7,
			Data:    []byte("library blob"),
		}); err != nil {
			t.Fatalf("failed to save library data: %v", err)
		}

		data, err := repo.Get(ctx)
		if err != nil {
			t.Fatalf("failed to read library data: %v", err)
		}
		if data.Version != 7 {
			t.Errorf("expected version 7, got %d", data.Version)
		}
		if string(data.Data) != "library blob" {
			t.Errorf("blob mismatch: %q", data.Data)
		}
	})

	t.Run("Save Nil Data", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewLibraryRepository(db)
		if err := repo.Save(ctx, nil); err == nil {
			t.Error("saving nil library data should fail")
		}
	})
}

func TestEmbeddingCodec(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, 3.14159}
	blob, err := encodeEmbedding(vec)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if len(blob) != len(vec)*4 {
		t.Fatalf("expected %d bytes, got %d", len(vec)*4, len(blob))
	}

	got, err := decodeEmbedding(blob)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d: %v != %v", i, got[i], vec[i])
		}
	}

	if _, err := decodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("decoding a misaligned blob should fail")
	}
}
