package svgraph

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tobiasrausch/rayas/internal/model"
)

// EdgeOut is one outgoing edge in a node's output row, always pointing at a
// later node id (spec.md §6/§8: i < j, w >= 1).
type EdgeOut struct {
	To     int
	Weight int
}

// Row is one line of the confirmed-segment output table.
type Row struct {
	Chr       string
	Start     int
	End       int
	NodeID    int
	EstCN     float64
	ClusterID uint64
	Edges     []EdgeOut
}

// BuildRows renumbers confirmed (sorted by contig, start) into sequential
// node ids and attaches each node's outgoing edges — the edges that met
// minSplit during Cluster, restricted to node pairs that both survived the
// colocation filter.
func BuildRows(confirmed []model.Segment, weights map[[2]uint64]int, minSplit uint32) []Row {
	nodeID := make(map[uint64]int, len(confirmed))
	for i, s := range confirmed {
		nodeID[s.ID] = i
	}

	rows := make([]Row, len(confirmed))
	for i, s := range confirmed {
		rows[i] = Row{Chr: s.RefName, Start: s.Start, End: s.End, NodeID: i, EstCN: s.CN, ClusterID: s.ClusterID}
	}

	for k, w := range weights {
		if w < int(minSplit) {
			continue
		}
		ia, oka := nodeID[k[0]]
		ib, okb := nodeID[k[1]]
		if !oka || !okb || ia == ib {
			continue
		}
		lo, hi := ia, ib
		if lo > hi {
			lo, hi = hi, lo
		}
		rows[lo].Edges = append(rows[lo].Edges, EdgeOut{To: hi, Weight: w})
	}
	for i := range rows {
		sort.Slice(rows[i].Edges, func(a, b int) bool { return rows[i].Edges[a].To < rows[i].Edges[b].To })
	}
	return rows
}

// WriteTSV writes the header and one line per row to w, matching the exact
// column order and header text spec.md §6 specifies.
func WriteTSV(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "chr\tstart\tend\tnodeid\testcn\tclusterid\tedges"); err != nil {
		return err
	}
	for _, r := range rows {
		parts := make([]string, 0, len(r.Edges))
		for _, e := range r.Edges {
			parts = append(parts, fmt.Sprintf("(%d,%d)=%d", r.NodeID, e.To, e.Weight))
		}
		_, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%d\t%.4f\t%d\t%s\n", r.Chr, r.Start, r.End, r.NodeID, r.EstCN, r.ClusterID, strings.Join(parts, ","))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
