package ml

import (
	"errors"
	"testing"

	"github.com/desertthunder/facesync/internal/shared"
)

func TestParseMethodConfig(t *testing.T) {
	cfg, err := ParseMethodConfig(shared.MLConfig{
		Detection:  "yolo",
		Crop:       "padded",
		Alignment:  "none",
		Embedding:  "arcface",
		Clustering: "agglomerative",
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Detection != DetectYOLO || cfg.Crop != CropPadded ||
		cfg.Alignment != AlignNone || cfg.Embedding != EmbedArcFace ||
		cfg.Clustering != ClusterAgglomerative {
		t.Errorf("wrong parse result: %+v", cfg)
	}
}

func TestParseMethodConfigDefaults(t *testing.T) {
	cfg, err := ParseMethodConfig(shared.MLConfig{})
	if err != nil {
		t.Fatalf("empty config should parse to defaults: %v", err)
	}
	if cfg.Detection != DetectBlazeFace || cfg.Embedding != EmbedMobileFaceNet {
		t.Errorf("wrong defaults: %+v", cfg)
	}
}

func TestParseUnknownMethods(t *testing.T) {
	tests := []struct {
		name string
		cfg  shared.MLConfig
	}{
		{"detection", shared.MLConfig{Detection: "hog"}},
		{"crop", shared.MLConfig{Crop: "nearest"}},
		{"alignment", shared.MLConfig{Alignment: "affine3d"}},
		{"embedding", shared.MLConfig{Embedding: "facenet512"}},
		{"clustering", shared.MLConfig{Clustering: "dbscan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMethodConfig(tt.cfg)
			if !errors.Is(err, shared.ErrUnknownMethod) {
				t.Errorf("expected ErrUnknownMethod, got %v", err)
			}
		})
	}
}

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := NewRegistry()

	for _, m := range []DetectionMethod{DetectBlazeFace, DetectYOLO} {
		if _, err := r.Detector(m); err != nil {
			t.Errorf("detector %q not bound: %v", m, err)
		}
	}
	for _, m := range []CropMethod{CropBilinear, CropPadded} {
		if _, err := r.Cropper(m); err != nil {
			t.Errorf("cropper %q not bound: %v", m, err)
		}
	}
	for _, m := range []AlignmentMethod{AlignSimilarity, AlignNone} {
		if _, err := r.Aligner(m); err != nil {
			t.Errorf("aligner %q not bound: %v", m, err)
		}
	}
	for _, m := range []EmbeddingMethod{EmbedMobileFaceNet, EmbedArcFace} {
		if _, err := r.Embedder(m); err != nil {
			t.Errorf("embedder %q not bound: %v", m, err)
		}
	}
	for _, m := range []ClusteringMethod{ClusterLinear, ClusterAgglomerative} {
		if _, err := r.Clusterer(m); err != nil {
			t.Errorf("clusterer %q not bound: %v", m, err)
		}
	}
}

func TestRegistryUnboundMethod(t *testing.T) {
	r := &Registry{detectors: map[DetectionMethod]Detector{}}
	if _, err := r.Detector(DetectBlazeFace); !errors.Is(err, shared.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod for unbound detector, got %v", err)
	}
}
