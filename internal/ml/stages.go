package ml

import (
	"context"
	"fmt"

	"github.com/desertthunder/facesync/internal/models"
)

// Image is a decoded grayscale image with luma values in [0, 1], row-major.
type Image struct {
	Width  int
	Height int
	Pixels []float32
}

// At returns the pixel at (x, y), clamping coordinates to the image bounds.
func (im Image) At(x, y int) float32 {
	if im.Width == 0 || im.Height == 0 {
		return 0
	}
	if x < 0 {
		x = 0
	}
	if x >= im.Width {
		x = im.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= im.Height {
		y = im.Height - 1
	}
	return im.Pixels[y*im.Width+x]
}

// Sample returns a bilinearly interpolated value at fractional coordinates.
func (im Image) Sample(fx, fy float64) float32 {
	x0 := int(fx)
	y0 := int(fy)
	dx := float32(fx - float64(x0))
	dy := float32(fy - float64(y0))

	top := im.At(x0, y0)*(1-dx) + im.At(x0+1, y0)*dx
	bottom := im.At(x0, y0+1)*(1-dx) + im.At(x0+1, y0+1)*dx
	return top*(1-dy) + bottom*dy
}

// DecodeImage interprets raw decrypted file content as a grayscale image.
//
// Content bytes are treated as 8-bit luma in a near-square grid. Real image
// decoding lives with the caller that owns the file format; the pipeline only
// needs a pixel grid to operate on.
func DecodeImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image content")
	}

	width := 1
	for width*width < len(data) {
		width++
	}
	height := (len(data) + width - 1) / width

	pixels := make([]float32, width*height)
	for i, b := range data {
		pixels[i] = float32(b) / 255.0
	}

	return Image{Width: width, Height: height, Pixels: pixels}, nil
}

// Crop is a fixed-size cutout of a source image around one detection.
type Crop struct {
	Image  Image
	Source models.Detection
}

// AlignedFace is a crop normalized for embedding, along with the transform
// that produced it.
type AlignedFace struct {
	Image     Image
	Source    models.Detection
	Transform models.AlignmentTransform
}

// Detector locates faces in a full image.
type Detector interface {
	// Detect returns zero or more face detections ordered by descending score.
	Detect(ctx context.Context, img Image) ([]models.Detection, error)

	// Name returns the method name for logging.
	Name() string
}

// Cropper cuts a detection's region out of the source image.
type Cropper interface {
	Crop(ctx context.Context, img Image, det models.Detection) (Crop, error)
	Name() string
}

// Aligner normalizes a crop's orientation before embedding.
type Aligner interface {
	Align(ctx context.Context, crop Crop) (AlignedFace, error)
	Name() string
}

// Embedder maps an aligned face to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, face AlignedFace) ([]float32, error)
	Name() string
}

// Clusterer groups face embeddings across an entire sync batch.
// It runs after the per-file phase reaches idle, never per file.
type Clusterer interface {
	Cluster(ctx context.Context, faces []models.Face) ([]models.ClusterAssignment, error)
	Name() string
}
