package ml

import (
	"fmt"

	"github.com/desertthunder/facesync/internal/shared"
)

// DetectionMethod selects the face detection algorithm.
type DetectionMethod int

const (
	DetectBlazeFace DetectionMethod = iota
	DetectYOLO
)

func (m DetectionMethod) String() string {
	switch m {
	case DetectBlazeFace:
		return "blazeface"
	case DetectYOLO:
		return "yolo"
	default:
		return ""
	}
}

// CropMethod selects how detected boxes are cut out of the source image.
type CropMethod int

const (
	CropBilinear CropMethod = iota
	CropPadded
)

func (m CropMethod) String() string {
	switch m {
	case CropBilinear:
		return "bilinear"
	case CropPadded:
		return "padded"
	default:
		return ""
	}
}

// AlignmentMethod selects the crop alignment algorithm.
type AlignmentMethod int

const (
	AlignSimilarity AlignmentMethod = iota
	AlignNone
)

func (m AlignmentMethod) String() string {
	switch m {
	case AlignSimilarity:
		return "similarity"
	case AlignNone:
		return "none"
	default:
		return ""
	}
}

// EmbeddingMethod selects the face embedding algorithm.
type EmbeddingMethod int

const (
	EmbedMobileFaceNet EmbeddingMethod = iota
	EmbedArcFace
)

func (m EmbeddingMethod) String() string {
	switch m {
	case EmbedMobileFaceNet:
		return "mobilefacenet"
	case EmbedArcFace:
		return "arcface"
	default:
		return ""
	}
}

// ClusteringMethod selects the batch clustering algorithm.
type ClusteringMethod int

const (
	ClusterLinear ClusteringMethod = iota
	ClusterAgglomerative
)

func (m ClusteringMethod) String() string {
	switch m {
	case ClusterLinear:
		return "linear"
	case ClusterAgglomerative:
		return "agglomerative"
	default:
		return ""
	}
}

// MethodConfig holds the parsed method selection for every pipeline stage.
// Immutable once a sync context is constructed from it.
type MethodConfig struct {
	Detection  DetectionMethod
	Crop       CropMethod
	Alignment  AlignmentMethod
	Embedding  EmbeddingMethod
	Clustering ClusteringMethod
}

// ParseMethodConfig parses the raw config strings for all five stages.
// This is the single boundary where an unknown method name can surface.
func ParseMethodConfig(cfg shared.MLConfig) (MethodConfig, error) {
	var out MethodConfig
	var err error

	if out.Detection, err = ParseDetectionMethod(cfg.Detection); err != nil {
		return out, err
	}
	if out.Crop, err = ParseCropMethod(cfg.Crop); err != nil {
		return out, err
	}
	if out.Alignment, err = ParseAlignmentMethod(cfg.Alignment); err != nil {
		return out, err
	}
	if out.Embedding, err = ParseEmbeddingMethod(cfg.Embedding); err != nil {
		return out, err
	}
	if out.Clustering, err = ParseClusteringMethod(cfg.Clustering); err != nil {
		return out, err
	}

	return out, nil
}

// ParseDetectionMethod converts a config string into a [DetectionMethod].
func ParseDetectionMethod(name string) (DetectionMethod, error) {
	switch name {
	case "blazeface", "":
		return DetectBlazeFace, nil
	case "yolo":
		return DetectYOLO, nil
	default:
		return 0, fmt.Errorf("%w: detection method %q", shared.ErrUnknownMethod, name)
	}
}

// ParseCropMethod converts a config string into a [CropMethod].
func ParseCropMethod(name string) (CropMethod, error) {
	switch name {
	case "bilinear", "":
		return CropBilinear, nil
	case "padded":
		return CropPadded, nil
	default:
		return 0, fmt.Errorf("%w: crop method %q", shared.ErrUnknownMethod, name)
	}
}

// ParseAlignmentMethod converts a config string into an [AlignmentMethod].
func ParseAlignmentMethod(name string) (AlignmentMethod, error) {
	switch name {
	case "similarity", "":
		return AlignSimilarity, nil
	case "none":
		return AlignNone, nil
	default:
		return 0, fmt.Errorf("%w: alignment method %q", shared.ErrUnknownMethod, name)
	}
}

// ParseEmbeddingMethod converts a config string into an [EmbeddingMethod].
func ParseEmbeddingMethod(name string) (EmbeddingMethod, error) {
	switch name {
	case "mobilefacenet", "":
		return EmbedMobileFaceNet, nil
	case "arcface":
		return EmbedArcFace, nil
	default:
		return 0, fmt.Errorf("%w: embedding method %q", shared.ErrUnknownMethod, name)
	}
}

// ParseClusteringMethod converts a config string into a [ClusteringMethod].
func ParseClusteringMethod(name string) (ClusteringMethod, error) {
	switch name {
	case "linear", "":
		return ClusterLinear, nil
	case "agglomerative":
		return ClusterAgglomerative, nil
	default:
		return 0, fmt.Errorf("%w: clustering method %q", shared.ErrUnknownMethod, name)
	}
}
