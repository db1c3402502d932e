// Package ml defines the face pipeline stage contracts and their built-in
// implementations.
//
// # Stage Services
//
// Each pipeline step is a small interface ([Detector], [Cropper], [Aligner],
// [Embedder], [Clusterer]) so stages can be swapped per configuration and
// faked in tests. Detection, crop, alignment, and embedding run once per
// file; clustering runs once per batch over all accumulated embeddings.
//
// # Method Selection
//
// Supported algorithms are closed enums (e.g. [DetectionMethod]). Config
// strings are parsed into enum values exactly once, at the config boundary,
// via the Parse*Method functions; an unrecognized name fails there with
// [shared.ErrUnknownMethod]. The [Registry] then maps enum values to bound
// implementations, so a misconfigured pipeline can never start work.
//
// The numerical quality of the built-in methods is intentionally modest.
// They are deterministic reference implementations; production deployments
// register their own services against the same interfaces.
package ml
