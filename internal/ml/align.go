package ml

import (
	"context"
	"math"

	"github.com/desertthunder/facesync/internal/models"
)

// similarityAligner rotates the crop so the detected eye line is horizontal.
// The rotation angle comes from the landmark positions in the source
// detection; the crop is resampled around its center.
type similarityAligner struct{}

func (a *similarityAligner) Name() string { return AlignSimilarity.String() }

func (a *similarityAligner) Align(ctx context.Context, crop Crop) (AlignedFace, error) {
	if err := ctx.Err(); err != nil {
		return AlignedFace{}, err
	}

	lm := crop.Source.Landmarks
	dx := lm.RightEye[0] - lm.LeftEye[0]
	dy := lm.RightEye[1] - lm.LeftEye[1]

	angle := 0.0
	if dx != 0 || dy != 0 {
		angle = math.Atan2(dy, dx)
	}

	img := crop.Image
	if angle != 0 {
		img = rotate(crop.Image, -angle)
	}

	return AlignedFace{
		Image:  img,
		Source: crop.Source,
		Transform: models.AlignmentTransform{
			Rotation: -angle,
			Scale:    1,
		},
	}, nil
}

// identityAligner passes the crop through untouched.
type identityAligner struct{}

func (a *identityAligner) Name() string { return AlignNone.String() }

func (a *identityAligner) Align(ctx context.Context, crop Crop) (AlignedFace, error) {
	if err := ctx.Err(); err != nil {
		return AlignedFace{}, err
	}
	return AlignedFace{
		Image:     crop.Image,
		Source:    crop.Source,
		Transform: models.AlignmentTransform{Scale: 1},
	}, nil
}

// rotate resamples img rotated by angle radians around its center.
func rotate(img Image, angle float64) Image {
	sin, cos := math.Sincos(angle)
	cx := float64(img.Width) / 2
	cy := float64(img.Height) / 2

	out := Image{
		Width:  img.Width,
		Height: img.Height,
		Pixels: make([]float32, len(img.Pixels)),
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			// Inverse mapping: sample the source at the un-rotated position.
			rx := cx + (float64(x)-cx)*cos + (float64(y)-cy)*sin
			ry := cy - (float64(x)-cx)*sin + (float64(y)-cy)*cos
			out.Pixels[y*img.Width+x] = img.Sample(rx, ry)
		}
	}

	return out
}
