// Package caller implements the Breakpoint & Segment Caller: it nominates
// candidate breakpoints from the left/right clip tracks, contrasting each
// against control contamination and local depth, then pairs left->right
// breakpoints into amplicon segments. The nomination thresholds and the
// pairing/extension chains below mirror call.h's runCall loop one condition
// at a time.
package caller

import (
	"sort"

	"github.com/willf/bitset"

	"github.com/tobiasrausch/rayas/internal/background"
	"github.com/tobiasrausch/rayas/internal/model"
)

// Config holds the thresholds that gate breakpoint nomination and segment
// pairing.
type Config struct {
	MinMapQual     uint16
	MinClip        uint16
	MinSplit       uint32
	MinSegmentSize uint32
	MaxSegmentSize uint32
	Contam         float64
}

// Window returns the flanking window size used both by the background
// estimator and by breakpoint nomination.
func (c Config) Window() int {
	return 2 * int(c.MinSegmentSize)
}

// Background bundles the trimmed mean/sd a contig's tumor or control
// coverage was estimated to have.
type Background struct {
	Mean float64
	SD   float64
}

// CallSegments runs breakpoint nomination and pairing for one contig and
// returns the accepted segments together with a position->segment
// projection the graph builder uses to resolve split-clip positions. Segment
// ids are drawn from nextID, which the caller owns across contigs so ids
// stay globally unique and monotonically increasing.
func CallSegments(refIndex int, refName string, tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight model.Track, nmask *bitset.BitSet, bgTumor, bgControl Background, cfg Config, nextID *uint64) ([]model.Segment, *SegmentIndex) {
	window := cfg.Window()
	contigLen := len(tumorCov)
	if 2*window >= contigLen || bgControl.Mean == 0 {
		return nil, NewSegmentIndex(nil)
	}
	expRatio := bgTumor.Mean / bgControl.Mean

	bps := nominateBreakpoints(tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight, nmask, window, bgTumor, expRatio, cfg)
	segs := pairBreakpoints(bps, cfg, tumorCov, controlCov, nmask, expRatio, refIndex, refName, nextID)
	return segs, NewSegmentIndex(segs)
}

func nominateBreakpoints(tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight model.Track, nmask *bitset.BitSet, window int, bgTumor Background, expRatio float64, cfg Config) []model.Breakpoint {
	var bps []model.Breakpoint
	contigLen := len(tumorCov)
	highbar := bgTumor.Mean + 3*bgTumor.SD

	for i := window; i < contigLen-window; i++ {
		if uint32(tumorLeft[i]) >= cfg.MinSplit {
			threshold := uint16(cfg.Contam * float64(tumorLeft[i]))
			if controlLeft[i] <= threshold {
				lcov, okL := background.WindowCov(nmask, tumorCov, i-window, i)
				rcov, okR := background.WindowCov(nmask, tumorCov, i, i+window)
				if okL && okR {
					if float64(lcov)*1.5 < float64(rcov) && float64(rcov) > highbar {
						ccov, okC := background.WindowCov(nmask, controlCov, i, i+window)
						if okC && ccov > 0 {
							obsratio := float64(rcov) / float64(ccov)
							if obsratio/expRatio > 1.5 {
								bps = append(bps, model.Breakpoint{Side: model.Left, Pos: i, Splits: uint32(tumorLeft[i]), ObsExp: obsratio / expRatio})
							}
						}
					}
				}
			}
		}
		if uint32(tumorRight[i]) >= cfg.MinSplit {
			threshold := uint16(cfg.Contam * float64(tumorRight[i]))
			if controlRight[i] <= threshold {
				lcov, okL := background.WindowCov(nmask, tumorCov, i-window, i)
				rcov, okR := background.WindowCov(nmask, tumorCov, i, i+window)
				if okL && okR {
					if float64(rcov)*1.5 < float64(lcov) && float64(lcov) > highbar {
						ccov, okC := background.WindowCov(nmask, controlCov, i-window, i)
						if okC && ccov > 0 {
							obsratio := float64(lcov) / float64(ccov)
							if obsratio/expRatio > 1.5 {
								bps = append(bps, model.Breakpoint{Side: model.Right, Pos: i, Splits: uint32(tumorRight[i]), ObsExp: obsratio / expRatio})
							}
						}
					}
				}
			}
		}
	}
	return bps
}

func pairBreakpoints(bps []model.Breakpoint, cfg Config, tumorCov, controlCov model.Track, nmask *bitset.BitSet, expRatio float64, refIndex int, refName string, nextID *uint64) []model.Segment {
	if len(bps) < 2 {
		return nil
	}
	sort.SliceStable(bps, func(a, b int) bool {
		if bps[a].Pos != bps[b].Pos {
			return bps[a].Pos < bps[b].Pos
		}
		return bps[a].Side == model.Left && bps[b].Side == model.Right
	})

	var segments []model.Segment
	lastRight := 0
	for i := 0; i < len(bps)-1; i++ {
		if i < lastRight {
			continue
		}
		if bps[i].Side != model.Left || bps[i+1].Side != model.Right {
			continue
		}
		if bps[i+1].Pos-bps[i].Pos >= int(cfg.MaxSegmentSize) {
			continue
		}

		// k starts at i-1 and the loop condition is k >= 0, so i == 0 simply
		// never enters the loop body; bestLeft stays i, unlike the unsigned
		// cursor in the original this is ported from.
		bestLeft := i
		for k := i - 1; k >= 0; k-- {
			if bps[k].Side != model.Left {
				break
			}
			if bps[i].Pos-bps[k].Pos > int(cfg.MaxSegmentSize) {
				break
			}
			if bps[k].ObsExp/bps[i].ObsExp < 0.5 {
				break
			}
			bestLeft = k
		}

		bestRight := i + 1
		for k := i + 2; k < len(bps); k++ {
			if bps[k].Side != model.Right {
				break
			}
			if bps[k].Pos-bps[i+1].Pos > int(cfg.MaxSegmentSize) {
				break
			}
			if bps[k].ObsExp/bps[i+1].ObsExp < 0.5 {
				break
			}
			bestRight = k
		}

		segsize := bps[bestRight].Pos - bps[bestLeft].Pos
		if segsize <= int(cfg.MinSegmentSize) || segsize >= int(cfg.MaxSegmentSize) {
			continue
		}
		lastRight = bestRight

		tT, cleanT := background.WindowCov(nmask, tumorCov, bps[bestLeft].Pos, bps[bestRight].Pos)
		tC, cleanC := background.WindowCov(nmask, controlCov, bps[bestLeft].Pos, bps[bestRight].Pos)
		if !cleanT || !cleanC || tC == 0 {
			continue
		}
		obsexp := (float64(tT) / float64(tC)) / expRatio
		if obsexp <= 1.5 {
			continue
		}

		id := *nextID
		*nextID++
		segments = append(segments, model.Segment{
			ID:        id,
			RefIndex:  refIndex,
			RefName:   refName,
			Start:     bps[bestLeft].Pos,
			End:       bps[bestRight].Pos,
			ObsExp:    obsexp,
			CN:        2 * obsexp,
			ClusterID: id,
		})
	}
	return segments
}

// SegmentIndex resolves a genomic position to the segment that contains it,
// using binary search over a sorted, non-overlapping run of segments rather
// than a dense position->segment array or an interval tree (both permitted
// substitutes per the design notes; segments within a contig never overlap
// because the pairing loop advances lastRight past every consumed region).
type SegmentIndex struct {
	segs []model.Segment
}

// NewSegmentIndex builds a lookup structure over segs, which must already be
// sorted by start (CallSegments emits them in that order).
func NewSegmentIndex(segs []model.Segment) *SegmentIndex {
	return &SegmentIndex{segs: segs}
}

// Lookup returns the id of the segment containing pos, if any. The match is
// against the closed interval [seg.Start, seg.End]: unlike the Segment's own
// half-open span, the projection a caller registers split-read evidence
// against includes the right breakpoint position itself.
func (s *SegmentIndex) Lookup(pos int) (uint64, bool) {
	if s == nil || len(s.segs) == 0 {
		return 0, false
	}
	i := sort.Search(len(s.segs), func(i int) bool { return s.segs[i].Start > pos })
	if i == 0 {
		return 0, false
	}
	seg := s.segs[i-1]
	if pos >= seg.Start && pos <= seg.End {
		return seg.ID, true
	}
	return 0, false
}
