package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/facesync/internal/models"
	"github.com/desertthunder/facesync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// RemoteClient implements [FileProvider] against the remote file store's
// HTTP API. Requests carry the sync credential as a bearer token and are
// rate limited client-side.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewRemoteClient creates a client for the store at baseURL. The token is
// the opaque sync credential; rateLimit is requests per second (values <= 0
// default to 5). Passing a nil base client uses http.DefaultClient transport.
func NewRemoteClient(baseURL, token string, rateLimit float64) *RemoteClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if rateLimit <= 0 {
		rateLimit = 5.0
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(context.Background(), src)
	client.Timeout = 30 * time.Second

	return &RemoteClient{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// remoteFile is the wire shape of one file record.
type remoteFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	OutOfSync bool      `json:"out_of_sync"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Files retrieves the library file listing.
func (c *RemoteClient) Files(ctx context.Context) ([]models.FileMetadata, error) {
	body, err := c.get(ctx, "/files")
	if err != nil {
		return nil, err
	}

	var listing struct {
		Files []remoteFile `json:"files"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: failed to decode file listing: %v", shared.ErrAPIRequest, err)
	}

	files := make([]models.FileMetadata, len(listing.Files))
	for i, f := range listing.Files {
		files[i] = models.FileMetadata{
			ID:        f.ID,
			Name:      f.Name,
			Size:      f.Size,
			OutOfSync: f.OutOfSync,
			UpdatedAt: f.UpdatedAt,
		}
	}
	return files, nil
}

// Download fetches one file's encrypted content.
func (c *RemoteClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	return c.get(ctx, "/files/"+fileID+"/content")
}

// Key fetches one file's decryption key.
func (c *RemoteClient) Key(ctx context.Context, fileID string) ([]byte, error) {
	body, err := c.get(ctx, "/files/"+fileID+"/key")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Key string `json:"key"` // base64
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode key response: %v", shared.ErrAPIRequest, err)
	}

	key, err := base64.StdEncoding.DecodeString(payload.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed key for file %s: %v", shared.ErrAPIRequest, fileID, err)
	}
	return key, nil
}

// get performs a rate-limited GET and maps HTTP failures onto the shared
// error taxonomy. Auth failures surface as fatal-class errors.
func (c *RemoteClient) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s returned %d", shared.ErrAuthFailed, path, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", shared.ErrFileNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s returned %d", shared.ErrAPIRequest, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	return body, nil
}
