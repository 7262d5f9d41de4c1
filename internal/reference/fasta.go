// Package reference is the FASTA accessor collaborator (spec.md §4.2,
// marked out of scope for deep respecification beyond "only the N-mask
// retrieval interface"). The indexed-random-access reader below is adapted
// from grailbio/bio's encoding/fasta package, which implements the same
// samtools .fai index format the original implementation reads via
// htslib's faidx_fetch_seq.
package reference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/willf/bitset"
)

type readerAtCloser interface {
	io.ReaderAt
	io.Reader
	io.Closer
}

func openFile(path string) (readerAtCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// indexLine matches one line of a samtools .fai file:
// "<name>\t<length>\t<offset>\t<line bases>\t<line width>".
var indexLine = regexp.MustCompile(`(\S+)\t(\d+)\t(\d+)\t(\d+)\t(\d+)`)

type seqEntry struct {
	length    uint64
	offset    uint64
	lineBases uint64
	lineWidth uint64
}

// Fasta is a random-access, .fai-indexed FASTA reference.
type Fasta struct {
	r        readerAtCloser
	seqs     map[string]seqEntry
	seqNames []string
}

// Open builds a Fasta from a genome file and its companion .fai index.
func Open(fastaPath string, faiPath string) (*Fasta, error) {
	fa, err := openFile(fastaPath)
	if err != nil {
		return nil, err
	}
	idx, err := openFile(faiPath)
	if err != nil {
		fa.Close()
		return nil, fmt.Errorf("opening FASTA index %s: %w", faiPath, err)
	}
	defer idx.Close()
	f, err := newIndexed(fa, idx)
	if err != nil {
		fa.Close()
		return nil, err
	}
	return f, nil
}

// Close releases the underlying genome file handle.
func (f *Fasta) Close() error {
	return f.r.Close()
}

func newIndexed(fa readerAtCloser, index io.Reader) (*Fasta, error) {
	f := &Fasta{r: fa, seqs: make(map[string]seqEntry)}
	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		m := indexLine.FindStringSubmatch(scanner.Text())
		if len(m) != 6 {
			continue
		}
		var ent seqEntry
		ent.length, _ = strconv.ParseUint(m[2], 10, 64)
		ent.offset, _ = strconv.ParseUint(m[3], 10, 64)
		ent.lineBases, _ = strconv.ParseUint(m[4], 10, 64)
		ent.lineWidth, _ = strconv.ParseUint(m[5], 10, 64)
		f.seqs[m[1]] = ent
		f.seqNames = append(f.seqNames, m[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading FASTA index: %w", err)
	}
	sort.SliceStable(f.seqNames, func(i, j int) bool {
		return f.seqs[f.seqNames[i]].offset < f.seqs[f.seqNames[j]].offset
	})
	return f, nil
}

// Len returns the length of seqName in bases.
func (f *Fasta) Len(seqName string) (int, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return 0, fmt.Errorf("sequence not found in index: %s", seqName)
	}
	return int(ent.length), nil
}

// SeqNames returns all sequence names, in FASTA file order.
func (f *Fasta) SeqNames() []string {
	return f.seqNames
}

// Get returns the bases of seqName over the half-open interval [start, end).
func (f *Fasta) Get(seqName string, start, end int) (string, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return "", fmt.Errorf("sequence not found in index: %s", seqName)
	}
	if end <= start || uint64(end) > ent.length {
		return "", fmt.Errorf("invalid query range %d-%d for %s (length %d)", start, end, seqName, ent.length)
	}

	charsPerLine := ent.lineWidth - ent.lineBases
	offset := ent.offset + uint64(start) + charsPerLine*(uint64(start)/ent.lineBases)
	firstLineBases := ent.lineBases - uint64(start)%ent.lineBases
	newlines := uint64(0)
	span := uint64(end - start)
	if span > firstLineBases {
		newlines = 1 + (span-firstLineBases)/ent.lineBases
	}
	toRead := span + newlines*charsPerLine

	buf := make([]byte, toRead)
	n, err := f.r.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading FASTA bytes: %w", err)
	}
	buf = buf[:n]

	out := make([]byte, 0, span)
	linePos := (offset - ent.offset) % ent.lineWidth
	for _, b := range buf {
		if linePos < ent.lineBases {
			out = append(out, b)
		}
		linePos++
		if linePos == ent.lineWidth {
			linePos = 0
		}
	}
	if uint64(len(out)) != span {
		return "", fmt.Errorf("short read assembling %s:%d-%d", seqName, start, end)
	}
	return string(out), nil
}

// BuildNMask returns a bitset marking every ambiguous ('n'/'N') base of
// seqName (spec.md §4.2), read in one pass rather than a position at a
// time.
func BuildNMask(f *Fasta, seqName string) (*bitset.BitSet, error) {
	length, err := f.Len(seqName)
	if err != nil {
		return nil, err
	}
	seq, err := f.Get(seqName, 0, length)
	if err != nil {
		return nil, err
	}
	mask := bitset.New(uint(length))
	for i := 0; i < len(seq); i++ {
		if seq[i] == 'n' || seq[i] == 'N' {
			mask.Set(uint(i))
		}
	}
	return mask, nil
}
