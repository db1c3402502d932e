// package services defines the collaborators the sync engine consumes for
// file metadata and content.
package services

import (
	"context"

	"github.com/desertthunder/facesync/internal/models"
)

// FileProvider supplies the set of locally known files and their encrypted
// content. The sync engine treats it as opaque; tests substitute a fake.
type FileProvider interface {
	// Files returns metadata for every file in the library, including each
	// file's out-of-sync status.
	Files(ctx context.Context) ([]models.FileMetadata, error)

	// Download fetches the (encrypted) content for one file.
	Download(ctx context.Context, fileID string) ([]byte, error)

	// Key returns the decryption key for one file.
	Key(ctx context.Context, fileID string) ([]byte, error)
}
