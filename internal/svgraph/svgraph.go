// Package svgraph implements the Segment Graph Builder: it aggregates
// split-read evidence between accepted segments, resolves it into weighted
// edges, and runs a union-find over those edges to label connected
// components before filtering out clusters whose members are all
// colocated.
package svgraph

import (
	"sort"

	"github.com/tobiasrausch/rayas/internal/caller"
	"github.com/tobiasrausch/rayas/internal/model"
)

// Accumulator holds the globally accumulated segments and per-mate
// clip-to-segment projections the graph builder consumes once every contig
// has been processed.
type Accumulator struct {
	Segments []model.Segment
	Mate1    []model.ClipSeg
	Mate2    []model.ClipSeg
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AddSegments appends one contig's accepted segments to the global list.
func (a *Accumulator) AddSegments(segs []model.Segment) {
	a.Segments = append(a.Segments, segs...)
}

// ProjectReads resolves one contig's split-clip observations onto the
// segments they fall within and files each hit under its originating mate.
// Reads that don't land inside any accepted segment are dropped.
func (a *Accumulator) ProjectReads(reads []model.SplitClip, idx *caller.SegmentIndex) {
	for _, r := range reads {
		segID, ok := idx.Lookup(r.Pos)
		if !ok {
			continue
		}
		cs := model.ClipSeg{NameHash: r.NameHash, SegID: segID}
		if r.Mate == 1 {
			a.Mate1 = append(a.Mate1, cs)
		} else {
			a.Mate2 = append(a.Mate2, cs)
		}
	}
}

// edgeKey normalizes a segment-id pair so the smaller id is always first.
func edgeKey(a, b uint64) [2]uint64 {
	if a < b {
		return [2]uint64{a, b}
	}
	return [2]uint64{b, a}
}

// BuildEdges sorts each mate list by read-name hash and, for every run of
// clip records sharing a hash, increments the edge weight once for every
// pair of records in the run whose segment ids differ (a segment hit twice
// in one run counts twice against its partner).
func BuildEdges(lists ...[]model.ClipSeg) map[[2]uint64]int {
	weights := make(map[[2]uint64]int)
	for _, list := range lists {
		sorted := append([]model.ClipSeg(nil), list...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].NameHash < sorted[j].NameHash })
		i := 0
		for i < len(sorted) {
			j := i
			for j < len(sorted) && sorted[j].NameHash == sorted[i].NameHash {
				j++
			}
			run := sorted[i:j]
			for x := 0; x < len(run); x++ {
				for y := x + 1; y < len(run); y++ {
					if run[x].SegID == run[y].SegID {
						continue
					}
					weights[edgeKey(run[x].SegID, run[y].SegID)]++
				}
			}
			i = j
		}
	}
	return weights
}

// unionFind tracks connected components over segment ids. Union always
// attaches the root holding the larger id under the root holding the
// smaller one, so a component's representative id can only fall as unions
// proceed, matching the "cid is lowered, never raised" invariant directly
// rather than via an arbitrary rank.
type unionFind struct {
	index  map[uint64]int
	parent []int
	ids    []uint64
}

func newUnionFind(segs []model.Segment) *unionFind {
	uf := &unionFind{
		index:  make(map[uint64]int, len(segs)),
		parent: make([]int, len(segs)),
		ids:    make([]uint64, len(segs)),
	}
	for i, s := range segs {
		uf.index[s.ID] = i
		uf.parent[i] = i
		uf.ids[i] = s.ID
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b uint64) {
	ia, oka := uf.index[a]
	ib, okb := uf.index[b]
	if !oka || !okb {
		return
	}
	ra, rb := uf.find(ia), uf.find(ib)
	if ra == rb {
		return
	}
	if uf.ids[ra] < uf.ids[rb] {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}

func (uf *unionFind) clusterID(id uint64) uint64 {
	i, ok := uf.index[id]
	if !ok {
		return id
	}
	return uf.ids[uf.find(i)]
}

// Cluster assigns each segment's ClusterID in place from edges whose weight
// reaches minSplit. Edges are processed in ascending (a, b) order to match
// the deterministic sweep the design is grounded on; a union-find with path
// compression produces the same equivalence classes regardless of
// processing order.
func Cluster(segments []model.Segment, weights map[[2]uint64]int, minSplit uint32) {
	uf := newUnionFind(segments)

	keys := make([][2]uint64, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, k := range keys {
		if weights[k] < int(minSplit) {
			continue
		}
		uf.union(k[0], k[1])
	}

	for i := range segments {
		segments[i].ClusterID = uf.clusterID(segments[i].ID)
	}
}

// confirmed reports whether a cluster's members satisfy the colocation
// filter: at least two members must either sit on different contigs, or be
// more than maxSegmentSize apart on the same contig.
func confirmed(members []model.Segment, maxSegmentSize uint32) bool {
	if len(members) < 2 {
		return false
	}
	contigs := make(map[int]struct{}, len(members))
	minStart, maxStart := members[0].Start, members[0].Start
	for _, m := range members {
		contigs[m.RefIndex] = struct{}{}
		if m.Start < minStart {
			minStart = m.Start
		}
		if m.Start > maxStart {
			maxStart = m.Start
		}
	}
	if len(contigs) > 1 {
		return true
	}
	return maxStart-minStart > int(maxSegmentSize)
}

// ConfirmedSegments returns the subset of segments, in their original
// order, whose cluster passes the colocation filter.
func ConfirmedSegments(segments []model.Segment, maxSegmentSize uint32) []model.Segment {
	groups := make(map[uint64][]model.Segment)
	for _, s := range segments {
		groups[s.ClusterID] = append(groups[s.ClusterID], s)
	}
	var out []model.Segment
	for _, s := range segments {
		if confirmed(groups[s.ClusterID], maxSegmentSize) {
			out = append(out, s)
		}
	}
	return out
}
