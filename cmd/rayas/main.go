// Command rayas detects candidate somatic structural-variant breakpoints
// and co-amplified segments by contrasting a tumor alignment file against a
// matched-normal control, following the same contig-by-contig driver shape
// as the teacher's main.go (flag parsing up front, then a sequential scan).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/biogo/hts/sam"

	"github.com/tobiasrausch/rayas/internal/background"
	"github.com/tobiasrausch/rayas/internal/caller"
	"github.com/tobiasrausch/rayas/internal/config"
	"github.com/tobiasrausch/rayas/internal/htsbam"
	"github.com/tobiasrausch/rayas/internal/model"
	"github.com/tobiasrausch/rayas/internal/reference"
	"github.com/tobiasrausch/rayas/internal/signal"
	"github.com/tobiasrausch/rayas/internal/svgraph"
)

func main() {
	cfg, err := config.Parse("rayas", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rayas: %v\n", err)
		os.Exit(-1)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("rayas: %v", err)
	}
}

func run(cfg config.Config) error {
	tumor, err := htsbam.Open(cfg.Tumor)
	if err != nil {
		return fmt.Errorf("opening tumor file: %w", err)
	}
	defer tumor.Close()

	control, err := htsbam.Open(cfg.Control)
	if err != nil {
		return fmt.Errorf("opening control file: %w", err)
	}
	defer control.Close()

	fastaIndex := cfg.Genome + ".fai"
	fa, err := reference.Open(cfg.Genome, fastaIndex)
	if err != nil {
		return fmt.Errorf("opening reference genome: %w", err)
	}
	defer fa.Close()

	callCfg := caller.Config{
		MinMapQual:     cfg.MinMapQual,
		MinClip:        cfg.MinClip,
		MinSplit:       cfg.MinSplit,
		MinSegmentSize: cfg.MinSegmentSize,
		MaxSegmentSize: cfg.MaxSegmentSize,
		Contam:         cfg.Contam,
	}
	signalParams := signal.Params{MinMapQual: cfg.MinMapQual, MinClip: cfg.MinClip}
	window := callCfg.Window()

	acc := svgraph.NewAccumulator()
	var nextSegID uint64

	for _, ref := range tumor.Header().Refs() {
		length := ref.Len()
		if length <= cfg.MinChrLen {
			continue
		}
		if 2*window >= length {
			continue
		}
		log.Printf("Parsing %s", ref.Name())

		tumorTracks := signal.NewTracks(length)
		var reads []model.SplitClip
		hasTumorData, err := tumor.ScanContig(ref.ID(), func(rec *sam.Record) error {
			signal.ScanRecord(rec, signalParams, tumorTracks, true, &reads)
			return nil
		})
		if err != nil {
			return fmt.Errorf("scanning tumor contig %s: %w", ref.Name(), err)
		}
		if !hasTumorData && !tumor.IsCRAM() {
			continue
		}

		controlTracks := signal.NewTracks(length)
		hasControlData, err := control.ScanContig(ref.ID(), func(rec *sam.Record) error {
			signal.ScanRecord(rec, signalParams, controlTracks, false, nil)
			return nil
		})
		if err != nil {
			return fmt.Errorf("scanning control contig %s: %w", ref.Name(), err)
		}
		if !hasControlData && !control.IsCRAM() {
			continue
		}

		nmask, err := reference.BuildNMask(fa, ref.Name())
		if err != nil {
			return fmt.Errorf("building N-mask for %s: %w", ref.Name(), err)
		}

		tumorMean, tumorSD := background.Estimate(nmask, tumorTracks.Cov, window)
		controlMean, controlSD := background.Estimate(nmask, controlTracks.Cov, window)

		segs, idx := caller.CallSegments(
			ref.ID(), ref.Name(),
			tumorTracks.Cov, tumorTracks.Left, tumorTracks.Right,
			controlTracks.Cov, controlTracks.Left, controlTracks.Right,
			nmask,
			caller.Background{Mean: tumorMean, SD: tumorSD},
			caller.Background{Mean: controlMean, SD: controlSD},
			callCfg, &nextSegID,
		)
		acc.AddSegments(segs)
		acc.ProjectReads(reads, idx)
	}

	weights := svgraph.BuildEdges(acc.Mate1, acc.Mate2)
	svgraph.Cluster(acc.Segments, weights, cfg.MinSplit)
	confirmed := svgraph.ConfirmedSegments(acc.Segments, cfg.MaxSegmentSize)
	rows := svgraph.BuildRows(confirmed, weights, cfg.MinSplit)

	if err := svgraph.WriteTSV(os.Stderr, rows); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	log.Printf("Done.")
	return nil
}
