// Package tasks orchestrates the ML face sync pipeline with bounded
// concurrency and real-time progress reporting.
//
// # Sync Context
//
// [SyncContext] is the aggregate root for one sync batch. Construction
// resolves every stage service from the method configuration, so unknown
// method names fail before any work starts. The context owns:
//
//   - the five resolved stage services (shared, read-only across tasks)
//   - a fixed-size [worker.Pool] of lazily-created decryption workers
//   - a bounded [queue.Queue] admitting one pipeline task per file
//   - the mutable sync state: file maps, counters, per-file results, errors
//
// # Per-file pipeline
//
// Each out-of-sync file becomes one queue task that acquires a worker slot
// (keyed by a stable hash of the file id), decrypts the content, then runs
// detection → crop → alignment → embedding strictly in order. Counters use
// atomic increments; the result map is written once per file by the owning
// task.
//
// # Clustering
//
// Clustering runs once per batch after the queue drains, over every
// accumulated embedding, never inside the per-file pipeline.
//
// # Errors
//
// Stage failures are recorded against their file and do not stop siblings.
// Fatal-class failures (see [shared.IsFatal]) halt admission of new tasks
// but let in-flight ones finish. Dispose always releases resources.
//
// # Progress Reporting
//
// All operations send [ProgressUpdate] values using select with default, so
// a slow or absent consumer never blocks the pipeline.
package tasks
