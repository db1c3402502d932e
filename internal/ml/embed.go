package ml

import (
	"context"
	"fmt"
	"math"
)

// blockEmbedder produces a fixed-length, L2-normalized vector from block
// statistics of the aligned crop. The seed mixes block coordinates into the
// projection so differently-seeded embedders (mobilefacenet vs arcface)
// produce incompatible spaces, just as distinct real models would.
type blockEmbedder struct {
	dim  int
	seed uint32
}

func (e *blockEmbedder) Name() string {
	if e.dim == 192 {
		return EmbedArcFace.String()
	}
	return EmbedMobileFaceNet.String()
}

func (e *blockEmbedder) Embed(ctx context.Context, face AlignedFace) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := face.Image
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("cannot embed empty crop")
	}

	vec := make([]float32, e.dim)
	for i := range vec {
		// Each component is a seeded weighted sum over a pixel stride,
		// a degenerate random projection.
		h := e.seed + uint32(i)*0x9e3779b9
		stride := int(h%7) + 1
		var sum float64
		var n int
		for p := int(h % 13); p < len(img.Pixels); p += stride {
			w := float64((h>>(uint(p)%24))&0xff)/255.0 - 0.5
			sum += w * float64(img.Pixels[p])
			n++
		}
		if n > 0 {
			vec[i] = float32(sum / float64(n))
		}
	}

	normalize(vec)
	return vec, nil
}

// normalize scales vec to unit length in place. Zero vectors are left as-is.
func normalize(vec []float32) {
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	inv := 1 / math.Sqrt(sq)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

// Cosine returns the cosine similarity of two equal-length vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
