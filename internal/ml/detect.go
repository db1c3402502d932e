package ml

import (
	"context"
	"math"
	"sort"

	"github.com/desertthunder/facesync/internal/models"
)

const (
	// maxDetections caps the number of faces reported per image.
	maxDetections = 16

	// detectionWindow is the side length, in grid cells, of one candidate region.
	detectionWindow = 4
)

// blazeFaceDetector scans the image on a coarse grid and reports windows
// whose local contrast stands out against the image mean. The heuristic is a
// stand-in for an anchor-based detector with the same output contract.
type blazeFaceDetector struct{}

func (d *blazeFaceDetector) Name() string { return DetectBlazeFace.String() }

func (d *blazeFaceDetector) Detect(ctx context.Context, img Image) ([]models.Detection, error) {
	return gridDetect(ctx, img, detectionWindow, 0.08)
}

// yoloDetector is a stride-halved variant of the grid scan: denser candidate
// windows, higher contrast bar. Exists so two detection methods with
// different behavior can be configured and compared.
type yoloDetector struct{}

func (d *yoloDetector) Name() string { return DetectYOLO.String() }

func (d *yoloDetector) Detect(ctx context.Context, img Image) ([]models.Detection, error) {
	return gridDetect(ctx, img, detectionWindow/2, 0.12)
}

// gridDetect partitions the image into window×window cell regions and scores
// each by contrast against the global mean.
func gridDetect(ctx context.Context, img Image, window int, minContrast float64) ([]models.Detection, error) {
	if img.Width == 0 || img.Height == 0 {
		return nil, nil
	}
	if window < 1 {
		window = 1
	}

	cellW := img.Width / (window * 4)
	cellH := img.Height / (window * 4)
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}

	var globalSum float64
	for _, p := range img.Pixels {
		globalSum += float64(p)
	}
	globalMean := globalSum / float64(len(img.Pixels))

	regionW := cellW * window
	regionH := cellH * window

	var detections []models.Detection
	for y := 0; y+regionH <= img.Height; y += regionH {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x+regionW <= img.Width; x += regionW {
			mean := regionMean(img, x, y, regionW, regionH)
			contrast := math.Abs(mean - globalMean)
			if contrast < minContrast {
				continue
			}

			box := models.Box{
				X: float64(x) / float64(img.Width),
				Y: float64(y) / float64(img.Height),
				W: float64(regionW) / float64(img.Width),
				H: float64(regionH) / float64(img.Height),
			}
			detections = append(detections, models.Detection{
				Box:       box,
				Landmarks: landmarksFor(box),
				Score:     math.Min(1.0, contrast*4),
			})
		}
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})
	if len(detections) > maxDetections {
		detections = detections[:maxDetections]
	}

	return detections, nil
}

func regionMean(img Image, x, y, w, h int) float64 {
	var sum float64
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			sum += float64(img.At(xx, yy))
		}
	}
	return sum / float64(w*h)
}

// landmarksFor places canonical keypoints inside a box: eyes at 30%/70%
// width and 40% height, nose at the center.
func landmarksFor(box models.Box) models.Landmarks {
	return models.Landmarks{
		LeftEye:  [2]float64{box.X + box.W*0.3, box.Y + box.H*0.4},
		RightEye: [2]float64{box.X + box.W*0.7, box.Y + box.H*0.4},
		Nose:     [2]float64{box.X + box.W*0.5, box.Y + box.H*0.55},
	}
}
