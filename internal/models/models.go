package models

import (
	"fmt"
	"time"
)

// FileMetadata describes one file known to the local library.
type FileMetadata struct {
	ID        string    // Stable file identifier from the remote store
	Name      string    // Display name
	Size      int64     // Content size in bytes
	OutOfSync bool      // True if the file has not been processed by the current ML version
	UpdatedAt time.Time // Last modification on the remote store
}

// Validate checks that the metadata identifies a real file.
func (f FileMetadata) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("file metadata missing id")
	}
	return nil
}

// Box is an axis-aligned bounding box in relative image coordinates (0..1).
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Landmarks holds the detected facial keypoints used by alignment.
// Coordinates are relative to the full image, same space as [Box].
type Landmarks struct {
	LeftEye  [2]float64 `json:"left_eye"`
	RightEye [2]float64 `json:"right_eye"`
	Nose     [2]float64 `json:"nose"`
}

// Detection is a single face detection within an image.
type Detection struct {
	Box       Box       `json:"box"`
	Landmarks Landmarks `json:"landmarks"`
	Score     float64   `json:"score"`
}

// AlignmentTransform is the similarity transform applied to a crop before
// embedding: rotation (radians), uniform scale, and translation.
type AlignmentTransform struct {
	Rotation    float64    `json:"rotation"`
	Scale       float64    `json:"scale"`
	Translation [2]float64 `json:"translation"`
}

// Face is the per-file pipeline result for one detected face.
//
// Owned by the sync context's result map. Written only by the task that
// processes the owning file, read afterwards by clustering and persistence.
type Face struct {
	ID        string             `json:"id"`
	FileID    string             `json:"file_id"`
	Index     int                `json:"index"` // Position within the file's detection order
	Detection Detection          `json:"detection"`
	Alignment AlignmentTransform `json:"alignment"`
	Embedding []float32          `json:"embedding"`
	ClusterID string             `json:"cluster_id,omitempty"` // Set by the batch clustering pass
}

// Validate checks that the face carries the fields persistence requires.
func (f Face) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("face missing id")
	}
	if f.FileID == "" {
		return fmt.Errorf("face %s missing file id", f.ID)
	}
	if len(f.Embedding) == 0 {
		return fmt.Errorf("face %s missing embedding", f.ID)
	}
	return nil
}

// MLLibraryData is the versioned blob persisted alongside sync results.
// Its contents are opaque to the sync engine; only the version participates
// in out-of-sync decisions.
type MLLibraryData struct {
	Version   int       `json:"version"`
	Data      []byte    `json:"data,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClusterAssignment maps one face to a cluster produced by the batch
// clustering pass.
type ClusterAssignment struct {
	FaceID    string `json:"face_id"`
	ClusterID string `json:"cluster_id"`
}
