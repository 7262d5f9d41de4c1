// Package background implements the Background Estimator (spec.md §4.3):
// a trimmed mean and standard deviation of per-window coverage sums, used
// to define the genome-wide depth expectation a candidate segment is
// contrasted against.
package background

import (
	"math"
	"sort"

	"github.com/willf/bitset"
	"gonum.org/v1/gonum/stat"

	"github.com/tobiasrausch/rayas/internal/model"
)

// trimFraction is the fraction dropped from each tail once enough windows
// have been collected to make trimming meaningful (spec.md §4.3).
const trimFraction = 0.25

// trimGate is the window count that must be exceeded before trimming kicks in.
const trimGate = 1000

// Estimate computes the population mean and standard deviation of
// window-summed coverage over clean (N-mask-free) windows of the given
// size.
func Estimate(nmask *bitset.BitSet, cov model.Track, window int) (mean, sd float64) {
	sums := collectWindowSums(nmask, cov, window)
	if len(sums) == 0 {
		return 0, 0
	}
	if len(sums) > trimGate {
		sort.Float64s(sums)
		lo := int(float64(len(sums)) * trimFraction)
		hi := len(sums) - lo
		sums = sums[lo:hi]
	}
	// gonum's stat.MeanVariance reports the sample (Bessel-corrected)
	// variance; spec.md §4.3 calls for the population variance (divide by
	// N), so it's accumulated directly against the gonum-computed mean
	// instead of forcing a library call that divides by N-1.
	mean = stat.Mean(sums, nil)
	var ss float64
	for _, v := range sums {
		d := v - mean
		ss += d * d
	}
	sd = math.Sqrt(ss / float64(len(sums)))
	return mean, sd
}

func collectWindowSums(nmask *bitset.BitSet, cov model.Track, window int) []float64 {
	var sums []float64
	for i := window; i <= len(cov); i += window {
		sum, clean := WindowCov(nmask, cov, i-window, i)
		if clean {
			sums = append(sums, float64(sum))
		}
	}
	return sums
}

// WindowCov sums cov[a:b], returning clean=false if any position in the
// range is N-masked (spec.md §4.4's window_cov helper, shared with the
// caller component).
func WindowCov(nmask *bitset.BitSet, cov model.Track, a, b int) (sum uint64, clean bool) {
	for k := a; k < b; k++ {
		if nmask != nil && nmask.Test(uint(k)) {
			return 0, false
		}
		sum += uint64(cov[k])
	}
	return sum, true
}
