package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/facesync/internal/ml"
	"github.com/desertthunder/facesync/internal/models"
	"github.com/desertthunder/facesync/internal/queue"
	"github.com/desertthunder/facesync/internal/services"
	"github.com/desertthunder/facesync/internal/shared"
	"github.com/desertthunder/facesync/internal/worker"
)

// defaultConcurrency is the per-file pipeline bound used when the
// configuration leaves concurrency unset.
const defaultConcurrency = 4

// State tracks the sync context's position in its lifecycle.
type State int

const (
	StateReady State = iota
	StateRunning
	StateIdle
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateIdle:
		return "idle"
	case StateDisposed:
		return "disposed"
	default:
		return ""
	}
}

// FaceStore persists per-file face results and cluster assignments.
// Implemented by repositories.FaceRepository; optional.
type FaceStore interface {
	SaveFaces(ctx context.Context, fileID string, faces []models.Face) error
	UpdateClusters(ctx context.Context, assignments []models.ClusterAssignment) error
}

// LibraryStore persists the versioned ML library blob. Optional.
type LibraryStore interface {
	Get(ctx context.Context) (*models.MLLibraryData, error)
	Save(ctx context.Context, data *models.MLLibraryData) error
}

// Options configures a sync context. Token, Config, ShouldUpdateVersion and
// Concurrency become immutable once the context is constructed.
type Options struct {
	Token               string          // Opaque sync credential, passed through to remote calls
	Config              shared.MLConfig // Per-stage method names
	ShouldUpdateVersion bool            // Bump the ML library version after a clean run
	Concurrency         int             // Max pipelines in flight; defaults to 4

	Provider      services.FileProvider // Required
	Registry      *ml.Registry          // Defaults to ml.NewRegistry()
	WorkerFactory worker.Factory        // Defaults to worker.NewCryptoWorker
	Faces         FaceStore             // Optional persistence
	Library       LibraryStore          // Optional persistence
	Logger        *log.Logger           // Defaults to shared.NewLogger(nil)
}

// SyncContext orchestrates one ML sync batch: it owns the resolved stage
// services, the worker pool, the bounded task queue, and all mutable sync
// state. Construct with [NewSyncContext], drive with [SyncContext.Run], and
// release with [SyncContext.Dispose].
type SyncContext struct {
	token               string
	config              ml.MethodConfig
	shouldUpdateVersion bool
	concurrency         int

	detector  ml.Detector
	cropper   ml.Cropper
	aligner   ml.Aligner
	embedder  ml.Embedder
	clusterer ml.Clusterer

	pool     *worker.Pool
	queue    *queue.Queue
	provider services.FileProvider
	faces    FaceStore
	library  LibraryStore
	logger   *log.Logger

	nSyncedFiles atomic.Int64
	nSyncedFaces atomic.Int64

	mu             sync.Mutex
	state          State
	localFilesMap  map[string]models.FileMetadata
	outOfSyncFiles []models.FileMetadata
	syncedFacesMap map[string][]models.Face
	fileErrors     map[string]error
	fatalErr       error
	libraryData    *models.MLLibraryData
}

// SyncReport summarizes a completed run for the caller.
type SyncReport struct {
	TotalFiles  int              // Out-of-sync files found
	SyncedFiles int              // Files fully processed
	SyncedFaces int              // Faces embedded across all synced files
	Clusters    int              // Distinct clusters produced by the batch pass
	FileErrors  map[string]error // Per-file recoverable failures
	FatalErr    error            // First fatal error, nil on a clean run
}

// NewSyncContext constructs a sync context, resolving every stage service up
// front so a misconfigured method name fails here rather than mid-run.
func NewSyncContext(opts Options) (*SyncContext, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: file provider is required", shared.ErrInvalidArgument)
	}

	cfg, err := ml.ParseMethodConfig(opts.Config)
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = ml.NewRegistry()
	}

	detector, err := registry.Detector(cfg.Detection)
	if err != nil {
		return nil, err
	}
	cropper, err := registry.Cropper(cfg.Crop)
	if err != nil {
		return nil, err
	}
	aligner, err := registry.Aligner(cfg.Alignment)
	if err != nil {
		return nil, err
	}
	embedder, err := registry.Embedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	clusterer, err := registry.Clusterer(cfg.Clustering)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = opts.Config.Concurrency
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	factory := opts.WorkerFactory
	if factory == nil {
		factory = worker.NewCryptoWorker
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger.Info("sync context ready",
		"concurrency", concurrency,
		"detection", cfg.Detection.String(),
		"embedding", cfg.Embedding.String(),
		"clustering", cfg.Clustering.String(),
	)

	q := queue.New(concurrency)
	q.SetObserver(func(s queue.Stats) {
		logger.Debug("queue stats", "queued", s.Queued, "running", s.Running, "completed", s.Completed)
	})

	return &SyncContext{
		token:               opts.Token,
		config:              cfg,
		shouldUpdateVersion: opts.ShouldUpdateVersion,
		concurrency:         concurrency,
		detector:            detector,
		cropper:             cropper,
		aligner:             aligner,
		embedder:            embedder,
		clusterer:           clusterer,
		pool:                worker.NewPool(concurrency, factory),
		queue:               q,
		provider:            opts.Provider,
		faces:               opts.Faces,
		library:             opts.Library,
		logger:              logger,
		state:               StateReady,
		localFilesMap:       make(map[string]models.FileMetadata),
		syncedFacesMap:      make(map[string][]models.Face),
		fileErrors:          make(map[string]error),
	}, nil
}

// Token returns the opaque sync credential for stage services that make
// their own remote calls.
func (sc *SyncContext) Token() string { return sc.token }

// Concurrency returns the effective pipeline bound.
func (sc *SyncContext) Concurrency() int { return sc.concurrency }

// State returns the context's current lifecycle state.
func (sc *SyncContext) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// SyncedFiles returns the number of files fully processed so far.
func (sc *SyncContext) SyncedFiles() int64 { return sc.nSyncedFiles.Load() }

// SyncedFaces returns the number of faces embedded so far.
func (sc *SyncContext) SyncedFaces() int64 { return sc.nSyncedFaces.Load() }

// Faces returns a copy of the per-file face results accumulated so far.
func (sc *SyncContext) Faces() map[string][]models.Face {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make(map[string][]models.Face, len(sc.syncedFacesMap))
	for id, faces := range sc.syncedFacesMap {
		out[id] = append([]models.Face(nil), faces...)
	}
	return out
}

// FileErrors returns a copy of the per-file recoverable errors.
func (sc *SyncContext) FileErrors() map[string]error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make(map[string]error, len(sc.fileErrors))
	for id, err := range sc.fileErrors {
		out[id] = err
	}
	return out
}

// Err returns the first fatal error observed, or nil.
func (sc *SyncContext) Err() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.fatalErr
}

// QueueStats exposes the task queue's advisory occupancy snapshot.
func (sc *SyncContext) QueueStats() queue.Stats { return sc.queue.Stats() }

// GetWorker returns the worker for id's pool slot, creating it on first use.
// Ids congruent modulo the concurrency level share a worker.
func (sc *SyncContext) GetWorker(id uint64) (worker.Worker, error) {
	return sc.pool.Acquire(id)
}

// PopulatedWorkers returns how many pool slots hold a live worker.
func (sc *SyncContext) PopulatedWorkers() int { return sc.pool.Populated() }

// setFatal records err as the context-level fatal error. Only the first
// fatal error is kept; later ones lose the race and are logged instead so a
// generic follow-on failure never overwrites the root cause.
func (sc *SyncContext) setFatal(err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.fatalErr == nil {
		sc.fatalErr = err
		return
	}
	sc.logger.Debug("suppressing subsequent fatal error", "err", err)
}

// Run executes one full sync batch: build the file maps, drive a bounded
// per-file pipeline per out-of-sync file, wait for the queue to drain, then
// run the batch clustering pass and persist results.
//
// progress is optional; updates are sent without blocking and dropped if the
// channel is full. Run does not dispose the context.
func (sc *SyncContext) Run(ctx context.Context, progress chan<- ProgressUpdate) (*SyncReport, error) {
	sc.mu.Lock()
	switch sc.state {
	case StateDisposed:
		sc.mu.Unlock()
		return nil, shared.ErrAlreadyDisposed
	case StateRunning:
		sc.mu.Unlock()
		return nil, fmt.Errorf("%w: sync already running", shared.ErrInvalidArgument)
	}
	sc.state = StateRunning
	sc.mu.Unlock()

	if sc.library != nil {
		data, err := sc.library.Get(ctx)
		if err != nil {
			sc.logger.Warn("failed to load ml library data", "err", err)
		} else {
			sc.mu.Lock()
			sc.libraryData = data
			sc.mu.Unlock()
		}
	}

	files, err := sc.provider.Files(ctx)
	if err != nil {
		sc.mu.Lock()
		sc.state = StateIdle
		sc.mu.Unlock()
		if shared.IsFatal(err) {
			sc.setFatal(err)
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sc.mu.Lock()
	for _, f := range files {
		sc.localFilesMap[f.ID] = f
		if f.OutOfSync {
			sc.outOfSyncFiles = append(sc.outOfSyncFiles, f)
		}
	}
	pending := append([]models.FileMetadata(nil), sc.outOfSyncFiles...)
	sc.mu.Unlock()

	total := len(pending)
	sc.sendProgress(progress, fetchFilesUpdate(total))
	sc.logger.Info("starting sync", "files", total, "concurrency", sc.concurrency)

	for i, file := range pending {
		// A fatal error halts admission; tasks already admitted run to
		// completion.
		if sc.Err() != nil {
			sc.logger.Warn("halting admission after fatal error", "admitted", i, "total", total)
			break
		}

		fm := file
		step := i + 1
		// Per-task errors are recorded in fileErrors by processFile, so the
		// returned future is not retained here.
		sc.queue.Enqueue(ctx, func(taskCtx context.Context) error {
			return sc.processFile(taskCtx, fm, progress, step, total)
		})
	}

	if err := sc.queue.OnIdle(ctx); err != nil {
		return nil, err
	}

	sc.mu.Lock()
	sc.state = StateIdle
	sc.mu.Unlock()

	clusters, err := sc.clusterBatch(ctx, progress)
	if err != nil && sc.Err() == nil {
		sc.logger.Error("clustering failed", "err", err)
	}

	sc.persist(ctx, progress)

	sc.mu.Lock()
	report := &SyncReport{
		TotalFiles:  total,
		SyncedFiles: int(sc.nSyncedFiles.Load()),
		SyncedFaces: int(sc.nSyncedFaces.Load()),
		Clusters:    clusters,
		FileErrors:  make(map[string]error, len(sc.fileErrors)),
		FatalErr:    sc.fatalErr,
	}
	for id, ferr := range sc.fileErrors {
		report.FileErrors[id] = ferr
	}
	sc.mu.Unlock()

	return report, nil
}

// processFile runs the per-file pipeline: decrypt on the file's worker slot,
// then detect → crop → align → embed strictly in order. Recoverable failures
// are recorded against the file; fatal-class failures escalate to the
// context and halt further admission.
func (sc *SyncContext) processFile(ctx context.Context, file models.FileMetadata, progress chan<- ProgressUpdate, step, total int) error {
	// Admission into the running set stops once a fatal error is recorded.
	// Tasks already executing run to completion; this one has not started.
	if sc.Err() != nil {
		return nil
	}

	faces, err := sc.runPipeline(ctx, file, progress, step, total)
	if err != nil {
		if shared.IsFatal(err) {
			sc.setFatal(fmt.Errorf("%w: file %s: %v", shared.ErrFatalSync, file.ID, err))
			sc.logger.Error("fatal error during sync", "file", file.ID, "err", err)
		} else {
			sc.mu.Lock()
			sc.fileErrors[file.ID] = fmt.Errorf("%w: file %s: %v", shared.ErrStageFailed, file.ID, err)
			sc.mu.Unlock()
			sc.logger.Warn("file failed to sync", "file", file.ID, "err", err)
		}
		return err
	}

	sc.mu.Lock()
	sc.syncedFacesMap[file.ID] = faces
	for i, f := range sc.outOfSyncFiles {
		if f.ID == file.ID {
			sc.outOfSyncFiles = append(sc.outOfSyncFiles[:i], sc.outOfSyncFiles[i+1:]...)
			break
		}
	}
	sc.mu.Unlock()

	sc.nSyncedFiles.Add(1)
	sc.nSyncedFaces.Add(int64(len(faces)))

	if sc.faces != nil {
		if err := sc.faces.SaveFaces(ctx, file.ID, faces); err != nil {
			sc.logger.Warn("failed to persist faces", "file", file.ID, "err", err)
		}
	}

	sc.sendProgress(progress, fileDoneUpdate(file.ID, step, total, len(faces)))
	return nil
}

// runPipeline produces the Face results for one file.
func (sc *SyncContext) runPipeline(ctx context.Context, file models.FileMetadata, progress chan<- ProgressUpdate, step, total int) ([]models.Face, error) {
	w, err := sc.GetWorker(shared.NumericID(file.ID))
	if err != nil {
		return nil, err
	}

	content, err := sc.provider.Download(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	key, err := sc.provider.Key(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}

	sc.sendProgress(progress, stageUpdate(Decrypt, file.ID, step, total))
	plaintext, err := w.Decrypt(ctx, content, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	img, err := ml.DecodeImage(plaintext)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	sc.sendProgress(progress, stageUpdate(Detect, file.ID, step, total))
	detections, err := sc.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	faces := make([]models.Face, 0, len(detections))
	for i, det := range detections {
		sc.sendProgress(progress, stageUpdate(Crop, file.ID, step, total))
		crop, err := sc.cropper.Crop(ctx, img, det)
		if err != nil {
			return nil, fmt.Errorf("crop: %w", err)
		}

		sc.sendProgress(progress, stageUpdate(Align, file.ID, step, total))
		aligned, err := sc.aligner.Align(ctx, crop)
		if err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}

		sc.sendProgress(progress, stageUpdate(Embed, file.ID, step, total))
		embedding, err := sc.embedder.Embed(ctx, aligned)
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}

		faces = append(faces, models.Face{
			ID:        shared.GenerateID(),
			FileID:    file.ID,
			Index:     i,
			Detection: det,
			Alignment: aligned.Transform,
			Embedding: embedding,
		})
	}

	return faces, nil
}

// clusterBatch runs the clustering stage once over every accumulated face
// and writes cluster ids back into the result map. Returns the number of
// distinct clusters.
func (sc *SyncContext) clusterBatch(ctx context.Context, progress chan<- ProgressUpdate) (int, error) {
	sc.mu.Lock()
	fileIDs := make([]string, 0, len(sc.syncedFacesMap))
	for id := range sc.syncedFacesMap {
		fileIDs = append(fileIDs, id)
	}
	sort.Strings(fileIDs)

	var all []models.Face
	for _, id := range fileIDs {
		all = append(all, sc.syncedFacesMap[id]...)
	}
	sc.mu.Unlock()

	if len(all) == 0 {
		return 0, nil
	}

	sc.sendProgress(progress, clusterUpdate(len(all)))
	assignments, err := sc.clusterer.Cluster(ctx, all)
	if err != nil {
		return 0, fmt.Errorf("cluster: %w", err)
	}

	byFace := make(map[string]string, len(assignments))
	distinct := make(map[string]struct{})
	for _, a := range assignments {
		byFace[a.FaceID] = a.ClusterID
		distinct[a.ClusterID] = struct{}{}
	}

	sc.mu.Lock()
	for fileID, faces := range sc.syncedFacesMap {
		for i := range faces {
			if cid, ok := byFace[faces[i].ID]; ok {
				faces[i].ClusterID = cid
			}
		}
		sc.syncedFacesMap[fileID] = faces
	}
	sc.mu.Unlock()

	if sc.faces != nil {
		if err := sc.faces.UpdateClusters(ctx, assignments); err != nil {
			sc.logger.Warn("failed to persist cluster assignments", "err", err)
		}
	}

	return len(distinct), nil
}

// persist writes the versioned library blob if configured. Runs after the
// batch is quiescent; failures are logged, never escalated, so disposal can
// always proceed.
func (sc *SyncContext) persist(ctx context.Context, progress chan<- ProgressUpdate) {
	if sc.library == nil || !sc.shouldUpdateVersion {
		return
	}

	sc.mu.Lock()
	fatal := sc.fatalErr
	data := sc.libraryData
	faces := int(sc.nSyncedFaces.Load())
	sc.mu.Unlock()

	if fatal != nil {
		sc.logger.Warn("skipping library version bump after fatal error")
		return
	}

	if data == nil {
		data = &models.MLLibraryData{}
	}
	data.Version++

	sc.sendProgress(progress, persistUpdate(faces))
	if err := sc.library.Save(ctx, data); err != nil {
		sc.logger.Warn("failed to persist ml library data", "err", err)
	}
}

// Dispose releases the context's resources: drops the file map, waits for
// the queue to drain (running tasks are never cancelled), detaches the stats
// observer, then terminates every worker slot.
//
// Dispose succeeds at most once; a later call returns
// [shared.ErrAlreadyDisposed]. If ctx is cancelled while draining, the error
// is returned, the context stays undisposed, and the worker pool is left
// open, since in-flight tasks may still be using it. Dispose may then be
// retried.
func (sc *SyncContext) Dispose(ctx context.Context) error {
	sc.mu.Lock()
	if sc.state == StateDisposed {
		sc.mu.Unlock()
		return shared.ErrAlreadyDisposed
	}
	sc.mu.Unlock()

	if err := sc.queue.OnIdle(ctx); err != nil {
		return err
	}

	sc.mu.Lock()
	if sc.state == StateDisposed {
		sc.mu.Unlock()
		return shared.ErrAlreadyDisposed
	}
	sc.state = StateDisposed
	sc.localFilesMap = nil
	sc.mu.Unlock()

	sc.queue.SetObserver(nil)
	sc.logger.Debug("sync context disposed")
	return sc.pool.CloseAll()
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks the
// pipeline.
func (sc *SyncContext) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
