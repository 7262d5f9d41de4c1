// Package config defines the configuration surface of the caller (spec §6)
// and the flag parsing that fills it in, following the teacher's direct use
// of the standard flag package (no subcommand/getopt framework).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// Config is the full set of tunables spec.md §6 enumerates.
type Config struct {
	MinMapQual     uint16
	MinClip        uint16
	MinSplit       uint32
	MinChrLen      int
	MinSegmentSize uint32
	MaxSegmentSize uint32
	Contam         float64
	Genome         string
	Control        string
	Tumor          string
}

// Window is the background-estimation and breakpoint-nomination window,
// always twice the minimum segment size (spec §4.3).
func (c Config) Window() int {
	return 2 * int(c.MinSegmentSize)
}

// Parse parses args (normally os.Args[1:]) into a Config, applying the
// defaults from spec.md §6. It returns an error for missing required
// fields or unreadable input paths; the flag set uses ContinueOnError, so
// flag usage errors (including -h) are returned as well rather than exiting
// the process.
func Parse(progName string, args []string) (Config, error) {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)

	var c Config
	var minMapQual, minClip, minSplit uint
	var minChrLen int
	var minSegmentSize, maxSegmentSize uint

	fs.UintVar(&minMapQual, "qual", 1, "min. mapping quality")
	fs.UintVar(&minMapQual, "q", 1, "min. mapping quality (shorthand)")
	fs.UintVar(&minClip, "clip", 25, "min. clipping length")
	fs.UintVar(&minClip, "c", 25, "min. clipping length (shorthand)")
	fs.UintVar(&minSplit, "split", 3, "min. split-read support")
	fs.UintVar(&minSplit, "s", 3, "min. split-read support (shorthand)")
	fs.IntVar(&minChrLen, "minchr", 10000000, "min. contig length to process")
	fs.UintVar(&minSegmentSize, "minsize", 100, "min. segment size")
	fs.UintVar(&minSegmentSize, "i", 100, "min. segment size (shorthand)")
	fs.UintVar(&maxSegmentSize, "maxsize", 10000, "max. segment size")
	fs.UintVar(&maxSegmentSize, "j", 10000, "max. segment size (shorthand)")
	fs.Float64Var(&c.Contam, "contam", 0, "max. fractional tumor-in-normal contamination")
	fs.Float64Var(&c.Contam, "n", 0, "max. fractional tumor-in-normal contamination (shorthand)")
	fs.StringVar(&c.Genome, "genome", "", "genome fasta file (required)")
	fs.StringVar(&c.Genome, "g", "", "genome fasta file (shorthand, required)")
	fs.StringVar(&c.Control, "matched", "", "matched control BAM/CRAM (required)")
	fs.StringVar(&c.Control, "m", "", "matched control BAM/CRAM (shorthand, required)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [OPTIONS] -g <ref.fa> -m <control.bam> <tumor.bam>\n", progName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	c.MinMapQual = uint16(minMapQual)
	c.MinClip = uint16(minClip)
	c.MinSplit = uint32(minSplit)
	c.MinChrLen = minChrLen
	c.MinSegmentSize = uint32(minSegmentSize)
	c.MaxSegmentSize = uint32(maxSegmentSize)

	if fs.NArg() < 1 {
		return Config{}, errors.New("missing required positional argument: tumor BAM/CRAM")
	}
	c.Tumor = fs.Arg(0)

	if c.Genome == "" {
		return Config{}, errors.New("missing required flag: -genome/-g")
	}
	if c.Control == "" {
		return Config{}, errors.New("missing required flag: -matched/-m")
	}
	if _, err := os.Stat(c.Genome); err != nil {
		return Config{}, fmt.Errorf("genome fasta unreadable: %w", err)
	}
	if _, err := os.Stat(c.Control); err != nil {
		return Config{}, fmt.Errorf("control alignment file unreadable: %w", err)
	}
	if _, err := os.Stat(c.Tumor); err != nil {
		return Config{}, fmt.Errorf("tumor alignment file unreadable: %w", err)
	}

	return c, nil
}
