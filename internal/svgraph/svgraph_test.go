package svgraph

import (
	"bytes"
	"testing"

	"github.com/tobiasrausch/rayas/internal/model"
)

func seg(id uint64, refIndex, start, end int) model.Segment {
	return model.Segment{ID: id, RefIndex: refIndex, RefName: chrName(refIndex), Start: start, End: end, CN: 10, ClusterID: id}
}

func chrName(refIndex int) string {
	if refIndex == 0 {
		return "chr1"
	}
	return "chr2"
}

func TestBuildEdgesCountsSharedRunsAndSkipsSelfPairs(t *testing.T) {
	mate1 := []model.ClipSeg{
		{NameHash: 1, SegID: 10},
		{NameHash: 1, SegID: 20},
		{NameHash: 1, SegID: 10}, // self-pair with the first, must not produce (10,10)
		{NameHash: 2, SegID: 30},
	}
	weights := BuildEdges(mate1)
	if w := weights[edgeKey(10, 20)]; w != 2 {
		t.Fatalf("edge (10,20) weight = %d, want 2", w)
	}
	if _, ok := weights[edgeKey(10, 10)]; ok {
		t.Fatalf("self-pair edge (10,10) must not be recorded")
	}
	if len(weights) != 1 {
		t.Fatalf("expected exactly one distinct edge, got %v", weights)
	}
}

func TestClusterUnionByLowerID(t *testing.T) {
	segs := []model.Segment{seg(5, 0, 0, 100), seg(2, 0, 5000, 5100), seg(9, 0, 20000, 20100)}
	weights := map[[2]uint64]int{
		edgeKey(5, 2): 4,
	}
	Cluster(segs, weights, 3)

	var byID map[uint64]model.Segment = map[uint64]model.Segment{}
	for _, s := range segs {
		byID[s.ID] = s
	}
	if byID[5].ClusterID != 2 || byID[2].ClusterID != 2 {
		t.Fatalf("segments 5 and 2 should share cluster id 2 (the lower id): %+v", segs)
	}
	if byID[9].ClusterID != 9 {
		t.Fatalf("segment 9 should remain its own singleton cluster, got %d", byID[9].ClusterID)
	}
}

func TestConfirmedSegmentsFiltersSingletonsAndCloseLocalClusters(t *testing.T) {
	// Cluster A: two segments on different contigs -> confirmed.
	a1 := seg(1, 0, 1000, 1100)
	a2 := seg(2, 1, 2000, 2100)
	a1.ClusterID, a2.ClusterID = 1, 1

	// Cluster B: two segments on the same contig, close together -> not confirmed.
	b1 := seg(3, 0, 1000, 1100)
	b2 := seg(4, 0, 1200, 1300)
	b1.ClusterID, b2.ClusterID = 3, 3

	// Cluster C: singleton -> not confirmed.
	c1 := seg(5, 0, 9000, 9100)
	c1.ClusterID = 5

	segs := []model.Segment{a1, a2, b1, b2, c1}
	out := ConfirmedSegments(segs, 10000)
	if len(out) != 2 {
		t.Fatalf("expected 2 confirmed segments, got %d: %+v", len(out), out)
	}
	for _, s := range out {
		if s.ID != 1 && s.ID != 2 {
			t.Fatalf("unexpected segment in confirmed output: %+v", s)
		}
	}
}

func TestBuildRowsAndWriteTSV(t *testing.T) {
	s1 := seg(1, 0, 1000, 1100)
	s2 := seg(2, 0, 200000, 200100)
	s1.ClusterID, s2.ClusterID = 1, 1
	confirmed := []model.Segment{s1, s2}
	weights := map[[2]uint64]int{edgeKey(1, 2): 5}

	rows := BuildRows(confirmed, weights, 3)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if len(rows[0].Edges) != 1 || rows[0].Edges[0].To != 1 || rows[0].Edges[0].Weight != 5 {
		t.Fatalf("unexpected edges on row 0: %+v", rows[0].Edges)
	}
	if len(rows[1].Edges) != 0 {
		t.Fatalf("row 1 should carry no outgoing edges (only later-node edges are attached to earlier nodes): %+v", rows[1].Edges)
	}

	var buf bytes.Buffer
	if err := WriteTSV(&buf, rows); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	want := "chr\tstart\tend\tnodeid\testcn\tclusterid\tedges\n" +
		"chr1\t1000\t1100\t0\t10.0000\t1\t(0,1)=5\n" +
		"chr1\t200000\t200100\t1\t10.0000\t1\t\n"
	if buf.String() != want {
		t.Fatalf("unexpected TSV output:\n%s\nwant:\n%s", buf.String(), want)
	}
}
