// Package signal implements the Signal Extractor (spec.md §4.1): it walks
// the CIGAR of every qualifying primary alignment on one contig and
// accumulates left-clip, right-clip and coverage tracks, optionally
// recording split-read clip positions keyed by mate for later graph
// building.
package signal

import (
	"fmt"
	"os"

	"github.com/biogo/hts/sam"

	"github.com/tobiasrausch/rayas/internal/model"
	"github.com/tobiasrausch/rayas/internal/qnamehash"
)

// Params is the subset of the configuration surface the extractor needs.
type Params struct {
	MinMapQual uint16
	MinClip    uint16
}

// Tracks holds the three dense per-base arrays produced for one contig.
type Tracks struct {
	Left  model.Track
	Right model.Track
	Cov   model.Track
}

// NewTracks allocates zeroed tracks of the given contig length.
func NewTracks(length int) Tracks {
	return Tracks{
		Left:  model.NewTrack(length),
		Right: model.NewTrack(length),
		Cov:   model.NewTrack(length),
	}
}

// discard reports whether rec must be skipped outright (spec.md §4.1):
// QC-FAIL, DUP or UNMAPPED flags, mapping quality below the threshold, or a
// missing/negative contig id.
func discard(rec *sam.Record, p Params) bool {
	if rec.Flags&(sam.QCFail|sam.Duplicate|sam.Unmapped) != 0 {
		return true
	}
	if rec.MapQ < byte(p.MinMapQual) {
		return true
	}
	// The contig a record belongs to (and that its id is non-negative) is
	// already established by the caller's per-contig scan (htsbam.Reader
	// only ever calls back with records matching the contig it was asked
	// for); this check only guards against a record with no reference at
	// all slipping through a differently-wired caller.
	if rec.Ref == nil {
		return true
	}
	return false
}

// ScanRecord walks one alignment's CIGAR against tracks, following the
// rp/sp cursor recurrence of spec.md §4.1. When collectReads is true, each
// qualifying clip is also appended to reads, keyed by the first-in-pair
// flag (mate 1 or 2) — used only for the tumor scan (spec.md §4.1: "enabled
// only for the tumor").
func ScanRecord(rec *sam.Record, p Params, t Tracks, collectReads bool, reads *[]model.SplitClip) {
	if discard(rec, p) {
		return
	}

	rp := rec.Pos
	sp := 0
	for _, co := range rec.Cigar {
		l := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for k := 0; k < l; k++ {
				t.Cov.Add(rp + k)
			}
			rp += l
			sp += l
		case sam.CigarDeletion:
			rp += l
		case sam.CigarInsertion:
			sp += l
		case sam.CigarSoftClipped, sam.CigarHardClipped:
			if l >= int(p.MinClip) {
				var mate uint8 = 2
				if rec.Flags&sam.Read1 != 0 {
					mate = 1
				}
				if sp == 0 {
					t.Left.Add(rp)
				} else {
					t.Right.Add(rp)
				}
				if collectReads && reads != nil {
					*reads = append(*reads, model.SplitClip{
						NameHash: qnamehash.Hash(rec.Name),
						Pos:      rp,
						Mate:     mate,
					})
				}
			}
			sp += l
		case sam.CigarSkipped:
			rp += l
		default:
			fmt.Fprintf(os.Stderr, "Warning: Unknown Cigar operation!\n")
		}
	}
}
