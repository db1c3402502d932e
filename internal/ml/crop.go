package ml

import (
	"context"
	"fmt"

	"github.com/desertthunder/facesync/internal/models"
)

// cropSize is the side length of the fixed-size crop fed to alignment.
const cropSize = 64

// bilinearCropper resamples a detection's box into a cropSize×cropSize patch
// using bilinear interpolation. A non-zero padding expands the box by that
// fraction on every side before sampling, clamped at the image border.
type bilinearCropper struct {
	padding float64
}

func (c *bilinearCropper) Name() string {
	if c.padding > 0 {
		return CropPadded.String()
	}
	return CropBilinear.String()
}

func (c *bilinearCropper) Crop(ctx context.Context, img Image, det models.Detection) (Crop, error) {
	if err := ctx.Err(); err != nil {
		return Crop{}, err
	}
	if img.Width == 0 || img.Height == 0 {
		return Crop{}, fmt.Errorf("cannot crop empty image")
	}
	box := det.Box
	if box.W <= 0 || box.H <= 0 {
		return Crop{}, fmt.Errorf("invalid detection box %+v", box)
	}

	if c.padding > 0 {
		box.X -= box.W * c.padding
		box.Y -= box.H * c.padding
		box.W *= 1 + 2*c.padding
		box.H *= 1 + 2*c.padding
		if box.X < 0 {
			box.X = 0
		}
		if box.Y < 0 {
			box.Y = 0
		}
		if box.X+box.W > 1 {
			box.W = 1 - box.X
		}
		if box.Y+box.H > 1 {
			box.H = 1 - box.Y
		}
	}

	srcX := box.X * float64(img.Width)
	srcY := box.Y * float64(img.Height)
	srcW := box.W * float64(img.Width)
	srcH := box.H * float64(img.Height)

	pixels := make([]float32, cropSize*cropSize)
	for y := 0; y < cropSize; y++ {
		fy := srcY + srcH*float64(y)/float64(cropSize)
		for x := 0; x < cropSize; x++ {
			fx := srcX + srcW*float64(x)/float64(cropSize)
			pixels[y*cropSize+x] = img.Sample(fx, fy)
		}
	}

	return Crop{
		Image:  Image{Width: cropSize, Height: cropSize, Pixels: pixels},
		Source: det,
	}, nil
}
