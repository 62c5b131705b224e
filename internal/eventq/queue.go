package eventq

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/monitoring"
	"github.com/banshee-data/recoil.report/internal/timeutil"
	"github.com/banshee-data/recoil.report/internal/units"
)

// Default tuning at the default nanosecond tick clock.
const (
	// DefaultWindow is the coincidence window: 10 µs.
	DefaultWindow uint64 = 10_000
	// DefaultMaxSpan is the buffered time span that forces draining:
	// one second.
	DefaultMaxSpan uint64 = 1_000_000_000
	// DefaultMaxEvents caps the buffer; hitting it is treated like an
	// allocation failure per the degraded-but-continuing contract.
	DefaultMaxEvents = 1 << 20
)

// Handler receives the queue's emissions. Both callbacks run
// synchronously inside Push/Flush; an error aborts the current drain
// and propagates to the caller with the offending event already
// removed.
type Handler interface {
	// HandleSingle receives every event exactly once, in
	// non-decreasing trigger-time order.
	HandleSingle(ev *daq.Event) error

	// HandleCoinc receives each matched cross-source pair twice over
	// the pair's lifetime: once as (earlier, later) when the earlier
	// event is popped, once with the roles swapped when the later one
	// is. The popped event is always first.
	HandleCoinc(ev, match *daq.Event) error
}

// Config tunes a Queue. Zero values pick the defaults above; all tick
// quantities are in units of the trigger-timestamp clock.
type Config struct {
	Window    uint64 // coincidence window W
	MaxSpan   uint64 // buffered span T that triggers draining
	MaxEvents int    // buffer cap (insertion-failure stand-in)
	Clock     timeutil.Clock
}

type entry struct {
	ev *daq.Event

	// partners holds already-popped events this one matched, so the
	// pair is reported again with roles swapped when this event pops.
	partners []*daq.Event
}

// Queue buffers out-of-order events from the two frontends and emits
// singles and coincidences through its Handler. It is not safe for
// concurrent use; the surrounding driver serialises access.
type Queue struct {
	cfg     Config
	handler Handler
	events  []entry
}

// New builds a queue around handler.
func New(cfg Config, handler Handler) *Queue {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxSpan == 0 {
		cfg.MaxSpan = DefaultMaxSpan
	}
	if cfg.MaxEvents == 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Queue{cfg: cfg, handler: handler}
}

// Size returns the number of buffered events.
func (q *Queue) Size() int {
	return len(q.events)
}

// span is the trigger-time distance between the newest and oldest
// buffered events.
func (q *Queue) span() uint64 {
	if len(q.events) < 2 {
		return 0
	}
	return q.events[len(q.events)-1].ev.TriggerTime - q.events[0].ev.TriggerTime
}

// insert places ev into the sorted buffer, after any equal trigger
// times so that ties pop in arrival order. A full buffer is handled
// like the insertion-failure contract: drop everything, warn, retry.
func (q *Queue) insert(ev *daq.Event, diag *Diagnostics) error {
	if len(q.events) >= q.cfg.MaxEvents {
		monitoring.Logf("ERROR: eventq: buffer full at %d events; dropping queue and retrying (coincidences will be missed)", len(q.events))
		if diag != nil {
			diag.Dropped += uint64(len(q.events))
		}
		q.events = q.events[:0]
		if q.cfg.MaxEvents < 1 {
			return fmt.Errorf("eventq: cannot buffer event serial %d: max events %d", ev.Serial, q.cfg.MaxEvents)
		}
	}

	idx := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].ev.TriggerTime > ev.TriggerTime
	})
	// Upper-bound insert keeps equal trigger times in arrival order.
	q.events = append(q.events, entry{})
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = entry{ev: ev}
	return nil
}

// pop emits the earliest buffered event: the swapped reports of pairs
// already seen from the other vantage, any coincidences it forms with
// later cross-source events inside the window, then the event itself
// as a single. Every pair is thereby reported exactly twice, once at
// each member's pop. The event is removed even when a callback errors.
func (q *Queue) pop(diag *Diagnostics) error {
	if len(q.events) == 0 {
		return nil
	}
	e0 := q.events[0].ev

	var err error
	haveCoinc := false
	for _, partner := range q.events[0].partners {
		haveCoinc = true
		if err = q.handler.HandleCoinc(e0, partner); err != nil {
			break
		}
	}
	for i := 1; err == nil && i < len(q.events); i++ {
		match := q.events[i].ev
		if match.TriggerTime-e0.TriggerTime > q.cfg.Window {
			break // buffer is sorted: nothing further can match
		}
		if match.EventID == e0.EventID {
			continue // same source never pairs
		}
		haveCoinc = true
		q.events[i].partners = append(q.events[i].partners, e0)
		if err = q.handler.HandleCoinc(e0, match); err != nil {
			break
		}
	}
	if err == nil {
		err = q.handler.HandleSingle(e0)
	}

	copy(q.events, q.events[1:])
	q.events = q.events[:len(q.events)-1]

	if diag != nil {
		diag.recordPop(e0.EventID, haveCoinc)
	}
	return err
}

// Push inserts an event and drains the buffer until the buffered span
// no longer exceeds the configured maximum, guaranteeing that anything
// older than MaxSpan relative to the newest arrival has been emitted.
// The optional diagnostics object is updated with the push's
// observations.
func (q *Queue) Push(ev *daq.Event, diag *Diagnostics) error {
	if err := q.insert(ev, diag); err != nil {
		return err
	}

	tdiff := units.TickDelta(ev.TriggerTime, q.events[0].ev.TriggerTime)

	var err error
	for q.span() > q.cfg.MaxSpan {
		if err = q.pop(diag); err != nil {
			break
		}
	}

	if diag != nil {
		diag.recordPush(len(q.events), float64(tdiff))
	}
	return err
}

// Flush drains the queue. A negative timeout drains unconditionally;
// otherwise the wall-clock deadline is checked between pops and, once
// exceeded, the remainder is discarded with a warning (a timeout means
// coincidences were lost).
func (q *Queue) Flush(timeout time.Duration, diag *Diagnostics) error {
	start := q.cfg.Clock.Now()
	for len(q.events) > 0 {
		if timeout >= 0 && q.cfg.Clock.Since(start) >= timeout {
			monitoring.Warnf("eventq: flush deadline %v reached, discarding %d events", timeout, len(q.events))
			if diag != nil {
				diag.Dropped += uint64(len(q.events))
			}
			q.events = q.events[:0]
			return nil
		}
		if err := q.pop(diag); err != nil {
			return err
		}
		if diag != nil {
			diag.recordPush(len(q.events), 0)
		}
	}
	return nil
}
