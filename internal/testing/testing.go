// package testing contains shared testing utilities
package testing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/facesync/internal/ml"
	"github.com/desertthunder/facesync/internal/models"
	"github.com/desertthunder/facesync/internal/worker"
)

// FakeProvider is an in-memory test double for [services.FileProvider].
type FakeProvider struct {
	mu         sync.Mutex
	FileList   []models.FileMetadata
	Content    map[string][]byte
	Keys       map[string][]byte
	FilesErr   error
	DownloadBy map[string]error // per-file download failures
}

// NewFakeProvider builds a provider with n out-of-sync files. Content is a
// deterministic byte pattern per file; keys are 32 zero bytes.
func NewFakeProvider(n int) *FakeProvider {
	p := &FakeProvider{
		Content:    make(map[string][]byte),
		Keys:       make(map[string][]byte),
		DownloadBy: make(map[string]error),
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("file-%03d", i)
		p.FileList = append(p.FileList, models.FileMetadata{
			ID:        id,
			Name:      id + ".jpg",
			Size:      256,
			OutOfSync: true,
		})
		content := make([]byte, 256)
		for j := range content {
			content[j] = byte((i*31 + j) % 251)
		}
		p.Content[id] = content
		p.Keys[id] = make([]byte, 32)
	}
	return p
}

func (p *FakeProvider) Files(ctx context.Context) ([]models.FileMetadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FilesErr != nil {
		return nil, p.FilesErr
	}
	return append([]models.FileMetadata(nil), p.FileList...), nil
}

func (p *FakeProvider) Download(ctx context.Context, fileID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.DownloadBy[fileID]; err != nil {
		return nil, err
	}
	content, ok := p.Content[fileID]
	if !ok {
		return nil, fmt.Errorf("no content for %s", fileID)
	}
	return content, nil
}

func (p *FakeProvider) Key(ctx context.Context, fileID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.Keys[fileID]
	if !ok {
		return nil, fmt.Errorf("no key for %s", fileID)
	}
	return key, nil
}

// FakeWorker is a worker whose Decrypt is the identity function. Closing is
// tracked so tests can assert teardown ordering.
type FakeWorker struct {
	ID     int
	closed atomic.Bool
}

func (w *FakeWorker) Decrypt(ctx context.Context, data, key []byte) ([]byte, error) {
	if w.closed.Load() {
		return nil, fmt.Errorf("decrypt on closed worker %d", w.ID)
	}
	return data, nil
}

func (w *FakeWorker) Close() error {
	w.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (w *FakeWorker) Closed() bool { return w.closed.Load() }

// FakeWorkerFactory counts creations and can be told to fail the first N.
type FakeWorkerFactory struct {
	mu       sync.Mutex
	Created  []*FakeWorker
	FailNext int
}

// New creates a tracked fake worker; pass the method value as a
// [worker.Factory].
func (f *FakeWorkerFactory) New() (worker.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext > 0 {
		f.FailNext--
		return nil, fmt.Errorf("simulated worker startup failure")
	}
	w := &FakeWorker{ID: len(f.Created)}
	f.Created = append(f.Created, w)
	return w, nil
}

// CreatedCount returns how many workers were successfully created.
func (f *FakeWorkerFactory) CreatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Created)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, fmt.Errorf("write failed")
}

// StubDetector returns one fixed detection per image, or Err when set.
type StubDetector struct {
	Err   error
	Calls atomic.Int64
}

func (d *StubDetector) Name() string { return "stub" }

func (d *StubDetector) Detect(ctx context.Context, img ml.Image) ([]models.Detection, error) {
	d.Calls.Add(1)
	if d.Err != nil {
		return nil, d.Err
	}
	box := models.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}
	return []models.Detection{{
		Box: box,
		Landmarks: models.Landmarks{
			LeftEye:  [2]float64{0.4, 0.45},
			RightEye: [2]float64{0.6, 0.45},
			Nose:     [2]float64{0.5, 0.55},
		},
		Score: 0.99,
	}}, nil
}
