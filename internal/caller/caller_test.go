package caller

import (
	"math"
	"testing"

	"github.com/willf/bitset"

	"github.com/tobiasrausch/rayas/internal/model"
)

func buildFlatTrack(length int, value uint16) model.Track {
	t := model.NewTrack(length)
	for i := range t {
		t[i] = value
	}
	return t
}

// TestCallSegmentsFindsSingleAmplicon reproduces scenario 2 from the test
// property list: a 2kb tumor region at 10x background flanked by left/right
// clip breakpoints, against a flat-background control.
func TestCallSegmentsFindsSingleAmplicon(t *testing.T) {
	contigLen := 5000
	tumorCov := buildFlatTrack(contigLen, 10)
	for i := 1000; i < 3000; i++ {
		tumorCov[i] = 100
	}
	tumorLeft := model.NewTrack(contigLen)
	tumorRight := model.NewTrack(contigLen)
	tumorLeft[1000] = 5
	tumorRight[3000] = 5

	controlCov := buildFlatTrack(contigLen, 10)
	controlLeft := model.NewTrack(contigLen)
	controlRight := model.NewTrack(contigLen)

	cfg := Config{MinMapQual: 1, MinClip: 25, MinSplit: 3, MinSegmentSize: 100, MaxSegmentSize: 10000, Contam: 0}
	bgT := Background{Mean: float64(cfg.Window()) * 10, SD: 5}
	bgC := Background{Mean: float64(cfg.Window()) * 10, SD: 5}

	var nextID uint64
	segs, idx := CallSegments(0, "chr1", tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight, nil, bgT, bgC, cfg, &nextID)

	if len(segs) != 1 {
		t.Fatalf("expected exactly one segment, got %d: %+v", len(segs), segs)
	}
	s := segs[0]
	if s.Start != 1000 || s.End != 3000 {
		t.Fatalf("segment bounds = [%d,%d), want [1000,3000)", s.Start, s.End)
	}
	if math.Abs(s.CN-20.0) > 0.5 {
		t.Fatalf("estimated cn = %v, want ~20.0", s.CN)
	}
	if id, ok := idx.Lookup(1500); !ok || id != s.ID {
		t.Fatalf("Lookup(1500) = %d,%v, want %d,true", id, ok, s.ID)
	}
	if _, ok := idx.Lookup(500); ok {
		t.Fatalf("Lookup(500) should miss, position is outside the segment")
	}
	if id, ok := idx.Lookup(s.End); !ok || id != s.ID {
		t.Fatalf("Lookup(%d) (exact right boundary) = %d,%v, want %d,true", s.End, id, ok, s.ID)
	}
	if id, ok := idx.Lookup(s.Start); !ok || id != s.ID {
		t.Fatalf("Lookup(%d) (exact left boundary) = %d,%v, want %d,true", s.Start, id, ok, s.ID)
	}
}

// TestCallSegmentsRejectsContaminatedBreakpoint reproduces scenario 5: with
// contam=0 a single control clip at the candidate position disqualifies it.
func TestCallSegmentsRejectsContaminatedBreakpoint(t *testing.T) {
	contigLen := 5000
	tumorCov := buildFlatTrack(contigLen, 10)
	for i := 1000; i < 3000; i++ {
		tumorCov[i] = 100
	}
	tumorLeft := model.NewTrack(contigLen)
	tumorRight := model.NewTrack(contigLen)
	tumorLeft[1000] = 5
	tumorRight[3000] = 5

	controlCov := buildFlatTrack(contigLen, 10)
	controlLeft := model.NewTrack(contigLen)
	controlRight := model.NewTrack(contigLen)
	controlLeft[1000] = 1

	cfg := Config{MinMapQual: 1, MinClip: 25, MinSplit: 3, MinSegmentSize: 100, MaxSegmentSize: 10000, Contam: 0}
	bgT := Background{Mean: float64(cfg.Window()) * 10, SD: 5}
	bgC := Background{Mean: float64(cfg.Window()) * 10, SD: 5}

	var nextID uint64
	segs, _ := CallSegments(0, "chr1", tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight, nil, bgT, bgC, cfg, &nextID)
	if len(segs) != 0 {
		t.Fatalf("expected contamination gate to reject the candidate, got %d segments", len(segs))
	}

	cfg.Contam = 0.5
	nextID = 0
	segs, _ = CallSegments(0, "chr1", tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight, nil, bgT, bgC, cfg, &nextID)
	if len(segs) != 1 {
		t.Fatalf("expected contam=0.5 to admit the candidate, got %d segments", len(segs))
	}
}

// TestCallSegmentsRejectsMaskedAmplicon reproduces scenario 4: the same
// otherwise-valid amplicon as TestCallSegmentsFindsSingleAmplicon, but with
// an N-run in its interior. The masked position falls well clear of either
// breakpoint's nomination windows, so both breakpoints still get nominated;
// it's the final window_cov gate over the full [start,end) span that must
// catch the mask and reject the candidate.
func TestCallSegmentsRejectsMaskedAmplicon(t *testing.T) {
	contigLen := 5000
	tumorCov := buildFlatTrack(contigLen, 10)
	for i := 1000; i < 3000; i++ {
		tumorCov[i] = 100
	}
	tumorLeft := model.NewTrack(contigLen)
	tumorRight := model.NewTrack(contigLen)
	tumorLeft[1000] = 5
	tumorRight[3000] = 5

	controlCov := buildFlatTrack(contigLen, 10)
	controlLeft := model.NewTrack(contigLen)
	controlRight := model.NewTrack(contigLen)

	nmask := bitset.New(uint(contigLen))
	nmask.Set(1500)

	cfg := Config{MinMapQual: 1, MinClip: 25, MinSplit: 3, MinSegmentSize: 100, MaxSegmentSize: 10000, Contam: 0}
	bgT := Background{Mean: float64(cfg.Window()) * 10, SD: 5}
	bgC := Background{Mean: float64(cfg.Window()) * 10, SD: 5}

	var nextID uint64
	segs, _ := CallSegments(0, "chr1", tumorCov, tumorLeft, tumorRight, controlCov, controlLeft, controlRight, nmask, bgT, bgC, cfg, &nextID)
	if len(segs) != 0 {
		t.Fatalf("expected the N-masked interior to reject the candidate, got %d segments: %+v", len(segs), segs)
	}
}

func TestSegmentIndexLookupMissOnEmptyIndex(t *testing.T) {
	idx := NewSegmentIndex(nil)
	if _, ok := idx.Lookup(42); ok {
		t.Fatalf("empty index should never match")
	}
}
