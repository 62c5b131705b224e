package eventq

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/timeutil"
)

// recorder captures queue emissions for inspection.
type recorder struct {
	singles []*daq.Event
	coincs  [][2]*daq.Event

	failSingle error // returned by HandleSingle when set
	failCoinc  error // returned by HandleCoinc when set
}

func (r *recorder) HandleSingle(ev *daq.Event) error {
	if r.failSingle != nil {
		return r.failSingle
	}
	r.singles = append(r.singles, ev)
	return nil
}

func (r *recorder) HandleCoinc(ev, match *daq.Event) error {
	if r.failCoinc != nil {
		return r.failCoinc
	}
	r.coincs = append(r.coincs, [2]*daq.Event{ev, match})
	return nil
}

func headAt(t uint64) *daq.Event {
	return &daq.Event{Header: daq.Header{EventID: daq.EventHeadSingles}, TriggerTime: t}
}

func tailAt(t uint64) *daq.Event {
	return &daq.Event{Header: daq.Header{EventID: daq.EventTailSingles}, TriggerTime: t}
}

func singleTimes(r *recorder) []uint64 {
	out := make([]uint64, len(r.singles))
	for i, ev := range r.singles {
		out[i] = ev.TriggerTime
	}
	return out
}

func coincTimes(r *recorder) [][2]uint64 {
	out := make([][2]uint64, len(r.coincs))
	for i, pair := range r.coincs {
		out[i] = [2]uint64{pair[0].TriggerTime, pair[1].TriggerTime}
	}
	return out
}

func newTestQueue(window, span uint64, h Handler) *Queue {
	return New(Config{Window: window, MaxSpan: span}, h)
}

func TestSimplePairInOrder(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 1_000_000, rec)

	require.NoError(t, q.Push(headAt(1000), nil))
	require.NoError(t, q.Push(tailAt(1005), nil))
	assert.Equal(t, 2, q.Size(), "window alone must not trigger pops")

	require.NoError(t, q.Flush(-1, nil))

	assert.Equal(t, []uint64{1000, 1005}, singleTimes(rec))
	assert.Equal(t, [][2]uint64{{1000, 1005}, {1005, 1000}}, coincTimes(rec))
}

func TestPairReversedArrival(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 1_000_000, rec)

	require.NoError(t, q.Push(tailAt(1005), nil))
	require.NoError(t, q.Push(headAt(1000), nil))
	require.NoError(t, q.Flush(-1, nil))

	// Emission order follows trigger time, not arrival order.
	assert.Equal(t, []uint64{1000, 1005}, singleTimes(rec))
	assert.Equal(t, [][2]uint64{{1000, 1005}, {1005, 1000}}, coincTimes(rec))
}

func TestOutsideWindow(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 1_000_000, rec)

	require.NoError(t, q.Push(headAt(1000), nil))
	require.NoError(t, q.Push(tailAt(1100), nil))
	require.NoError(t, q.Flush(-1, nil))

	assert.Equal(t, []uint64{1000, 1100}, singleTimes(rec))
	assert.Empty(t, rec.coincs)
}

func TestThreeHeadsOneTail(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 1_000_000, rec)

	require.NoError(t, q.Push(headAt(100), nil))
	require.NoError(t, q.Push(headAt(102), nil))
	require.NoError(t, q.Push(headAt(103), nil))
	require.NoError(t, q.Push(tailAt(105), nil))
	require.NoError(t, q.Flush(-1, nil))

	assert.Equal(t, []uint64{100, 102, 103, 105}, singleTimes(rec))

	// Three forward reports at each head's pop, three swapped reports
	// at the tail's pop, and never a head-head pair.
	assert.Equal(t, [][2]uint64{
		{100, 105},
		{102, 105},
		{103, 105},
		{105, 100},
		{105, 102},
		{105, 103},
	}, coincTimes(rec))
}

func TestEqualTimestampsPair(t *testing.T) {
	// Equal cross-source timestamps pair: the predicate is |dt| <= W and
	// dt = 0. A zero Window selects DefaultWindow, so this queue runs with
	// the default window rather than W=0.
	rec := &recorder{}
	q := newTestQueue(0, 1_000_000, rec)

	require.NoError(t, q.Push(headAt(500), nil))
	require.NoError(t, q.Push(tailAt(500), nil))
	require.NoError(t, q.Flush(-1, nil))

	require.Len(t, rec.coincs, 2)
	// Ties emit in arrival order.
	assert.Equal(t, daq.EventHeadSingles, rec.singles[0].EventID)
	assert.Equal(t, daq.EventTailSingles, rec.singles[1].EventID)
}

func TestDrainBySpan(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 1000, rec)

	require.NoError(t, q.Push(headAt(0), nil))
	require.NoError(t, q.Push(headAt(999), nil))
	assert.Empty(t, rec.singles, "span 999 is within bounds")

	// The third push stretches the span to 1998 > 1000, forcing
	// exactly one pop; afterwards the span (999) is within bounds
	// again and two events remain buffered.
	require.NoError(t, q.Push(headAt(1998), nil))
	assert.Equal(t, []uint64{0}, singleTimes(rec))
	assert.Equal(t, 2, q.Size())
}

func TestSpanBoundHoldsAfterEveryPush(t *testing.T) {
	rec := &recorder{}
	const span = 500
	q := newTestQueue(10, span, rec)

	times := []uint64{0, 400, 900, 903, 2000, 1990, 2600, 2601, 5000}
	for _, tk := range times {
		ev := headAt(tk)
		if tk%2 == 1 {
			ev = tailAt(tk)
		}
		require.NoError(t, q.Push(ev, nil))
		assert.LessOrEqual(t, q.span(), uint64(span), "span bound violated after push @%d", tk)
	}
}

func TestMonotoneEmissionAndCompleteness(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 300, rec)

	// Deterministic scrambled arrival pattern.
	times := []uint64{100, 40, 220, 210, 90, 350, 330, 500, 470, 460, 800, 650}
	for i, tk := range times {
		ev := headAt(tk)
		if i%2 == 1 {
			ev = tailAt(tk)
		}
		require.NoError(t, q.Push(ev, nil))
	}
	require.NoError(t, q.Flush(-1, nil))

	// Every pushed event is emitted exactly once as a single.
	require.Len(t, rec.singles, len(times))

	// Singles trigger times are non-decreasing.
	emitted := singleTimes(rec)
	for i := 1; i < len(emitted); i++ {
		assert.GreaterOrEqual(t, emitted[i], emitted[i-1], "emission order regressed at %d", i)
	}
}

func TestCoincSymmetryAndNoSameSource(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(20, 1_000_000, rec)

	// Three cross-source pairs and one same-source near-pair.
	require.NoError(t, q.Push(headAt(100), nil))
	require.NoError(t, q.Push(tailAt(110), nil))
	require.NoError(t, q.Push(headAt(505), nil))
	require.NoError(t, q.Push(headAt(500), nil))
	require.NoError(t, q.Push(tailAt(515), nil))
	require.NoError(t, q.Flush(-1, nil))

	// Never two heads or two tails.
	seen := map[string]int{}
	for _, pair := range rec.coincs {
		require.NotEqual(t, pair[0].EventID, pair[1].EventID, "same-source pair emitted")
		key := fmt.Sprintf("%d-%d", pair[0].TriggerTime, pair[1].TriggerTime)
		seen[key]++
	}

	// Each matched pair appears exactly once per direction.
	for key, n := range seen {
		assert.Equal(t, 1, n, "pair %s reported %d times", key, n)
	}
	assert.Contains(t, seen, "100-110")
	assert.Contains(t, seen, "110-100")
	assert.Contains(t, seen, "500-515")
	assert.Contains(t, seen, "515-500")
	assert.Contains(t, seen, "505-515")
	assert.Contains(t, seen, "515-505")
	assert.Len(t, seen, 6)
}

func TestFlushTimeoutDiscards(t *testing.T) {
	rec := &recorder{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	q := New(Config{Window: 10, MaxSpan: 1 << 40, Clock: clock}, rec)

	var diag Diagnostics
	const pushed = 5000
	for i := 0; i < pushed; i++ {
		require.NoError(t, q.Push(headAt(uint64(i)*100), &diag))
	}

	// Zero deadline: warn, discard everything, return.
	require.NoError(t, q.Flush(0, &diag))
	assert.Zero(t, q.Size())
	assert.Empty(t, rec.singles)
	assert.Equal(t, uint64(pushed), diag.Dropped)
	assert.LessOrEqual(t, diag.SinglesTotal(), uint64(pushed))
}

func TestFlushDeadlineMidway(t *testing.T) {
	rec := &recorder{}
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	q := New(Config{Window: 10, MaxSpan: 1 << 40, Clock: clock}, rec)

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(headAt(uint64(i)*100), nil))
	}

	// Advance the clock past the deadline after the third pop.
	popped := 0
	rec.failSingle = nil
	origHandler := q.handler
	q.handler = handlerFunc{
		single: func(ev *daq.Event) error {
			popped++
			if popped == 3 {
				clock.Advance(time.Hour)
			}
			return origHandler.HandleSingle(ev)
		},
		coinc: origHandler.HandleCoinc,
	}

	var diag Diagnostics
	require.NoError(t, q.Flush(time.Second, &diag))
	assert.Equal(t, 3, popped)
	assert.Equal(t, uint64(7), diag.Dropped)
	assert.Zero(t, q.Size())
}

// handlerFunc adapts bare functions to the Handler interface.
type handlerFunc struct {
	single func(*daq.Event) error
	coinc  func(*daq.Event, *daq.Event) error
}

func (h handlerFunc) HandleSingle(ev *daq.Event) error  { return h.single(ev) }
func (h handlerFunc) HandleCoinc(a, b *daq.Event) error { return h.coinc(a, b) }

func TestCallbackErrorPropagates(t *testing.T) {
	boom := errors.New("downstream failed")
	rec := &recorder{failSingle: boom}
	q := newTestQueue(10, 100, rec)

	require.NoError(t, q.Push(headAt(0), nil))
	// This push forces a drain pop whose single callback fails.
	err := q.Push(headAt(5000), nil)
	require.ErrorIs(t, err, boom)

	// The offending event is considered popped.
	assert.Equal(t, 1, q.Size())
}

func TestBufferOverflowDropsAndRetries(t *testing.T) {
	rec := &recorder{}
	q := New(Config{Window: 10, MaxSpan: 1 << 40, MaxEvents: 4}, rec)

	var diag Diagnostics
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Push(headAt(uint64(i)), &diag))
	}
	require.Equal(t, 4, q.Size())

	// The fifth push hits the cap: the buffer is dropped and the
	// incoming event inserted on retry.
	require.NoError(t, q.Push(headAt(100), &diag))
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, uint64(4), diag.Dropped)
}

func TestDiagnosticsPerPush(t *testing.T) {
	rec := &recorder{}
	q := newTestQueue(10, 1000, rec)

	var diag Diagnostics
	require.NoError(t, q.Push(headAt(1000), &diag))
	assert.Equal(t, 1, diag.Size)
	assert.Equal(t, 0.0, diag.TimeDiff)

	require.NoError(t, q.Push(tailAt(1005), &diag))
	assert.Equal(t, 2, diag.Size)
	assert.Equal(t, 5.0, diag.TimeDiff)

	// An out-of-order arrival observes a negative delta against...
	// itself being oldest: delta is measured against the queue's
	// oldest event after insertion.
	require.NoError(t, q.Push(headAt(995), &diag))
	assert.Equal(t, 0.0, diag.TimeDiff)

	require.NoError(t, q.Flush(-1, &diag))
	assert.Equal(t, uint64(2), diag.Singles[daq.EventHeadSingles])
	assert.Equal(t, uint64(1), diag.Singles[daq.EventTailSingles])
	assert.NotZero(t, diag.CoincCount)

	sum := diag.Summarize()
	assert.Equal(t, 3+3, sum.Pushes, "flush pops record like pushes")
	assert.GreaterOrEqual(t, sum.Max, 5.0)
}
