// Package segment materializes segmentation outputs: dense label volumes
// from union-find snapshots and stable exports of the terminal region graph.
// It contains no merging logic.
package segment

import (
	"github.com/voxelize/watergo/rag"
)

// Relabel remaps representative region ids to a dense 1..k labeling.
// Labels are assigned in first-encounter scan order, so the output is
// deterministic for a given input and stable within one engine call.
func Relabel(labels []uint64) ([]uint64, uint64) {
	out := make([]uint64, len(labels))
	dense := make(map[uint64]uint64)
	next := uint64(1)
	for i, r := range labels {
		d, ok := dense[r]
		if !ok {
			d = next
			dense[r] = d
			next++
		}
		out[i] = d
	}
	return out, next - 1
}

// RegionEdge is one exported region adjacency with its aggregated score and
// the number of constituent voxel-level affinities.
type RegionEdge struct {
	U     uint64
	V     uint64
	Score float64
	Count uint64
}

// ExportGraph flattens the terminal region adjacency graph into a slice
// sorted by ascending (U, V).
func ExportGraph(g *rag.Graph) []RegionEdge {
	edges := g.Edges()
	out := make([]RegionEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, RegionEdge{U: e.U, V: e.V, Score: e.Score(), Count: e.Count()})
	}
	return out
}
