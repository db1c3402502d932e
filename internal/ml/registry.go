package ml

import (
	"fmt"

	"github.com/desertthunder/facesync/internal/shared"
)

// Registry maps method enum values to bound stage implementations.
//
// Resolution is a pure lookup with no side effects. Because method names are
// already parsed into closed enums at the config boundary, resolution only
// fails when a registry has been constructed without a binding for a value,
// which [NewRegistry] never does for the built-in methods.
type Registry struct {
	detectors  map[DetectionMethod]Detector
	croppers   map[CropMethod]Cropper
	aligners   map[AlignmentMethod]Aligner
	embedders  map[EmbeddingMethod]Embedder
	clusterers map[ClusteringMethod]Clusterer
}

// NewRegistry returns a registry with every built-in method bound.
func NewRegistry() *Registry {
	return &Registry{
		detectors: map[DetectionMethod]Detector{
			DetectBlazeFace: &blazeFaceDetector{},
			DetectYOLO:      &yoloDetector{},
		},
		croppers: map[CropMethod]Cropper{
			CropBilinear: &bilinearCropper{},
			CropPadded:   &bilinearCropper{padding: 0.25},
		},
		aligners: map[AlignmentMethod]Aligner{
			AlignSimilarity: &similarityAligner{},
			AlignNone:       &identityAligner{},
		},
		embedders: map[EmbeddingMethod]Embedder{
			EmbedMobileFaceNet: &blockEmbedder{dim: 128, seed: 0x9e3779b9},
			EmbedArcFace:       &blockEmbedder{dim: 192, seed: 0x85ebca6b},
		},
		clusterers: map[ClusteringMethod]Clusterer{
			ClusterLinear:        &linearClusterer{threshold: defaultClusterThreshold},
			ClusterAgglomerative: &agglomerativeClusterer{threshold: defaultClusterThreshold},
		},
	}
}

// RegisterDetector binds a detector implementation, replacing any existing
// binding for the method. Callers use this to plug in production models.
func (r *Registry) RegisterDetector(m DetectionMethod, d Detector) { r.detectors[m] = d }

// RegisterCropper binds a cropper implementation.
func (r *Registry) RegisterCropper(m CropMethod, c Cropper) { r.croppers[m] = c }

// RegisterAligner binds an aligner implementation.
func (r *Registry) RegisterAligner(m AlignmentMethod, a Aligner) { r.aligners[m] = a }

// RegisterEmbedder binds an embedder implementation.
func (r *Registry) RegisterEmbedder(m EmbeddingMethod, e Embedder) { r.embedders[m] = e }

// RegisterClusterer binds a clusterer implementation.
func (r *Registry) RegisterClusterer(m ClusteringMethod, c Clusterer) { r.clusterers[m] = c }

// Detector resolves the bound implementation for m.
func (r *Registry) Detector(m DetectionMethod) (Detector, error) {
	d, ok := r.detectors[m]
	if !ok {
		return nil, fmt.Errorf("%w: no detector bound for %q", shared.ErrUnknownMethod, m)
	}
	return d, nil
}

// Cropper resolves the bound implementation for m.
func (r *Registry) Cropper(m CropMethod) (Cropper, error) {
	c, ok := r.croppers[m]
	if !ok {
		return nil, fmt.Errorf("%w: no cropper bound for %q", shared.ErrUnknownMethod, m)
	}
	return c, nil
}

// Aligner resolves the bound implementation for m.
func (r *Registry) Aligner(m AlignmentMethod) (Aligner, error) {
	a, ok := r.aligners[m]
	if !ok {
		return nil, fmt.Errorf("%w: no aligner bound for %q", shared.ErrUnknownMethod, m)
	}
	return a, nil
}

// Embedder resolves the bound implementation for m.
func (r *Registry) Embedder(m EmbeddingMethod) (Embedder, error) {
	e, ok := r.embedders[m]
	if !ok {
		return nil, fmt.Errorf("%w: no embedder bound for %q", shared.ErrUnknownMethod, m)
	}
	return e, nil
}

// Clusterer resolves the bound implementation for m.
func (r *Registry) Clusterer(m ClusteringMethod) (Clusterer, error) {
	c, ok := r.clusterers[m]
	if !ok {
		return nil, fmt.Errorf("%w: no clusterer bound for %q", shared.ErrUnknownMethod, m)
	}
	return c, nil
}
