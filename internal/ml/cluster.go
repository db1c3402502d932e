package ml

import (
	"context"
	"fmt"

	"github.com/desertthunder/facesync/internal/models"
	"github.com/desertthunder/facesync/internal/shared"
)

// defaultClusterThreshold is the minimum cosine similarity for two faces to
// land in the same cluster.
const defaultClusterThreshold = 0.76

// linearClusterer assigns each face to the first existing cluster whose
// centroid is within the similarity threshold, or starts a new cluster.
// Single pass, order-dependent, cheap; the incremental default.
type linearClusterer struct {
	threshold float64
}

func (c *linearClusterer) Name() string { return ClusterLinear.String() }

func (c *linearClusterer) Cluster(ctx context.Context, faces []models.Face) ([]models.ClusterAssignment, error) {
	type cluster struct {
		id       string
		centroid []float32
		count    int
	}

	var clusters []*cluster
	assignments := make([]models.ClusterAssignment, 0, len(faces))

	for _, face := range faces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(face.Embedding) == 0 {
			return nil, fmt.Errorf("face %s has no embedding", face.ID)
		}

		var best *cluster
		bestSim := c.threshold
		for _, cl := range clusters {
			if sim := Cosine(face.Embedding, cl.centroid); sim >= bestSim {
				best = cl
				bestSim = sim
			}
		}

		if best == nil {
			best = &cluster{
				id:       shared.GenerateID(),
				centroid: append([]float32(nil), face.Embedding...),
				count:    1,
			}
			clusters = append(clusters, best)
		} else {
			// Running mean keeps the centroid stable as members accumulate.
			for i := range best.centroid {
				best.centroid[i] = (best.centroid[i]*float32(best.count) + face.Embedding[i]) / float32(best.count+1)
			}
			best.count++
		}

		assignments = append(assignments, models.ClusterAssignment{
			FaceID:    face.ID,
			ClusterID: best.id,
		})
	}

	return assignments, nil
}

// agglomerativeClusterer merges the closest pair of clusters until no pair
// exceeds the threshold. Average linkage over centroids, O(n²) per merge
// round; order-independent but quadratic, so only suited to modest batches.
type agglomerativeClusterer struct {
	threshold float64
}

func (c *agglomerativeClusterer) Name() string { return ClusterAgglomerative.String() }

func (c *agglomerativeClusterer) Cluster(ctx context.Context, faces []models.Face) ([]models.ClusterAssignment, error) {
	type cluster struct {
		id       string
		centroid []float32
		members  []int
	}

	clusters := make([]*cluster, 0, len(faces))
	for i, face := range faces {
		if len(face.Embedding) == 0 {
			return nil, fmt.Errorf("face %s has no embedding", face.ID)
		}
		clusters = append(clusters, &cluster{
			id:       shared.GenerateID(),
			centroid: append([]float32(nil), face.Embedding...),
			members:  []int{i},
		})
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bestI, bestJ := -1, -1
		bestSim := c.threshold
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				if sim := Cosine(clusters[i].centroid, clusters[j].centroid); sim >= bestSim {
					bestI, bestJ, bestSim = i, j, sim
				}
			}
		}
		if bestI < 0 {
			break
		}

		a, b := clusters[bestI], clusters[bestJ]
		na, nb := float32(len(a.members)), float32(len(b.members))
		for i := range a.centroid {
			a.centroid[i] = (a.centroid[i]*na + b.centroid[i]*nb) / (na + nb)
		}
		a.members = append(a.members, b.members...)
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
	}

	assignments := make([]models.ClusterAssignment, len(faces))
	for _, cl := range clusters {
		for _, idx := range cl.members {
			assignments[idx] = models.ClusterAssignment{
				FaceID:    faces[idx].ID,
				ClusterID: cl.id,
			}
		}
	}

	return assignments, nil
}
