package eventq

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/monitoring"
)

// diagHistory bounds the ring of recent push deltas kept for the
// summary statistics.
const diagHistory = 1024

// Diagnostics is the caller-owned view of queue behaviour, refreshed on
// every push and after every pop of a flush (which records a TimeDiff of
// zero). Counters are cumulative across the run; Size and TimeDiff
// reflect the most recent push or flush pop.
type Diagnostics struct {
	// Size is the buffered event count after the last push.
	Size int
	// TimeDiff is the last observed trigger-time delta, in ticks,
	// between an incoming event and the oldest buffered event.
	TimeDiff float64
	// CoincCount counts pops that found at least one coincidence
	// partner.
	CoincCount uint64
	// Singles counts emitted singles per source id.
	Singles [daq.MaxEventID]uint64
	// Dropped counts events discarded by flush timeouts or buffer
	// overflow; a non-zero value means coincidences may have been lost.
	Dropped uint64

	recent []float64 // ring of recent TimeDiff values
	next   int
}

// Reset zeroes all fields.
func (d *Diagnostics) Reset() {
	*d = Diagnostics{}
}

func (d *Diagnostics) recordPush(size int, tdiff float64) {
	d.Size = size
	d.TimeDiff = tdiff

	if len(d.recent) < diagHistory {
		d.recent = append(d.recent, tdiff)
	} else {
		d.recent[d.next] = tdiff
		d.next = (d.next + 1) % diagHistory
	}
}

func (d *Diagnostics) recordPop(eventID uint16, haveCoinc bool) {
	if haveCoinc {
		d.CoincCount++
	}
	if int(eventID) < len(d.Singles) {
		d.Singles[eventID]++
	} else {
		monitoring.Warnf("eventq: singles id %d outside diagnostic range %d", eventID, len(d.Singles))
	}
}

// SinglesTotal sums the per-source singles counters.
func (d *Diagnostics) SinglesTotal() uint64 {
	var total uint64
	for _, n := range d.Singles {
		total += n
	}
	return total
}

// Summary condenses the recent push deltas. All values are in ticks.
type Summary struct {
	Pushes   int
	Mean     float64
	StdDev   float64
	Median   float64
	P90, Max float64
}

// Summarize computes distribution statistics over the recent push
// deltas. With no pushes recorded it returns the zero Summary.
func (d *Diagnostics) Summarize() Summary {
	if len(d.recent) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(d.recent))
	copy(sorted, d.recent)
	sort.Float64s(sorted)

	return Summary{
		Pushes: len(sorted),
		Mean:   stat.Mean(sorted, nil),
		StdDev: stat.StdDev(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}
