// Package engine wires the analyzer together: the Head and Tail
// assemblers, the scalers, the run parameters, the coincidence queue,
// and the records store, all owned by one Engine object that the driver
// threads through its event loop.
package engine

import (
	"fmt"

	"github.com/banshee-data/recoil.report/internal/config"
	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/detector"
	"github.com/banshee-data/recoil.report/internal/eventq"
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/monitoring"
	"github.com/banshee-data/recoil.report/internal/records"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// consumer handles one recognised input event id.
type consumer func(ev *daq.Event) error

// Engine owns all analyzer state for one run. It is single-threaded by
// contract: the driver serialises Process calls.
type Engine struct {
	cfg   *config.TuningConfig
	store records.Writer

	head  *detector.Head
	tail  *detector.Tail
	coinc *detector.Coinc

	headScaler *detector.Scaler
	tailScaler *detector.Scaler
	runPars    *detector.RunParameters

	queue *eventq.Queue
	diag  eventq.Diagnostics

	// consumers dispatches input event ids registered at construction.
	consumers map[uint16]consumer

	// DecodeErrors counts events skipped because their payload could
	// not be decoded. Such errors never poison the stream.
	DecodeErrors uint64
}

// New builds an engine writing through store.
func New(cfg *config.TuningConfig, store records.Writer) *Engine {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	e := &Engine{
		cfg:        cfg,
		store:      store,
		head:       detector.NewHead(),
		tail:       detector.NewTail(),
		coinc:      detector.NewCoinc(),
		headScaler: detector.NewScaler("head"),
		tailScaler: detector.NewScaler("tail"),
		runPars:    detector.NewRunParameters(),
	}
	e.queue = eventq.New(eventq.Config{
		Window:    cfg.GetCoincidenceWindowTicks(),
		MaxSpan:   cfg.GetMaxBufferedSpanTicks(),
		MaxEvents: cfg.GetMaxBufferedEvents(),
	}, e)

	e.consumers = map[uint16]consumer{
		daq.EventHeadSingles: e.pushSingles,
		daq.EventTailSingles: e.pushSingles,
		daq.EventHeadScaler:  func(ev *daq.Event) error { return e.applyScaler(ev, e.headScaler) },
		daq.EventTailScaler:  func(ev *daq.Event) error { return e.applyScaler(ev, e.tailScaler) },
	}
	return e
}

// Head exposes the head assembler (read-only between events).
func (e *Engine) Head() *detector.Head { return e.head }

// Tail exposes the tail assembler (read-only between events).
func (e *Engine) Tail() *detector.Tail { return e.tail }

// Scaler returns the accumulator for the given scaler event id, nil for
// non-scaler ids.
func (e *Engine) Scaler(eventID uint16) *detector.Scaler {
	switch eventID {
	case daq.EventHeadScaler:
		return e.headScaler
	case daq.EventTailScaler:
		return e.tailScaler
	}
	return nil
}

// RunParameters exposes the per-frontend run boundary times.
func (e *Engine) RunParameters() *detector.RunParameters { return e.runPars }

// Diagnostics exposes the queue diagnostics, refreshed on every push.
func (e *Engine) Diagnostics() *eventq.Diagnostics { return &e.diag }

// QueueSize returns the number of events waiting in the queue.
func (e *Engine) QueueSize() int { return e.queue.Size() }

// BeginRun loads variables and resets per-run state. src may be nil to
// keep identity calibration.
func (e *Engine) BeginRun(src vars.Source) {
	if src != nil {
		e.head.SetVariables(src)
		e.tail.SetVariables(src)
		e.headScaler.SetVariables(src)
		e.tailScaler.SetVariables(src)
		e.runPars.ReadData(src)
	}
	e.headScaler.Reset()
	e.tailScaler.Reset()
	e.diag.Reset()
	e.DecodeErrors = 0
}

// Process routes one raw event. Unknown event ids are silently ignored;
// decode failures skip the event and continue; store and callback
// errors propagate.
func (e *Engine) Process(ev *daq.Event) error {
	handle, ok := e.consumers[ev.EventID]
	if !ok {
		return nil
	}
	return handle(ev)
}

// EndRun drains the queue under the configured flush deadline.
func (e *Engine) EndRun() error {
	return e.queue.Flush(e.cfg.GetFlushDeadline(), &e.diag)
}

// pushSingles stamps the event with its FPGA trigger time and hands it
// to the coincidence queue.
func (e *Engine) pushSingles(ev *daq.Event) error {
	tag := detector.BankHeadFpga
	if ev.EventID == daq.EventTailSingles {
		tag = detector.BankTailFpga
	}
	fpga, err := modules.UnpackFpga(ev, tag)
	if err != nil {
		e.skipEvent(ev, err)
		return nil
	}
	ev.TriggerTime = fpga.TriggerTime
	return e.queue.Push(ev, &e.diag)
}

// applyScaler folds one scaler readout into its accumulator and writes
// the period through to the store.
func (e *Engine) applyScaler(ev *daq.Event, s *detector.Scaler) error {
	if err := s.Unpack(ev); err != nil {
		e.skipEvent(ev, err)
		return nil
	}
	if e.store == nil {
		return nil
	}
	return e.store.WriteScaler(s)
}

// skipEvent records a per-event decode failure without poisoning the
// stream.
func (e *Engine) skipEvent(ev *daq.Event, err error) {
	e.DecodeErrors++
	monitoring.Warnf("engine: skipping event id %d serial %d: %v", ev.EventID, ev.Serial, err)
}

// HandleSingle implements eventq.Handler: unpack the popped event on
// its own side and persist the summary record.
func (e *Engine) HandleSingle(ev *daq.Event) error {
	switch ev.EventID {
	case daq.EventHeadSingles:
		if err := e.head.Unpack(ev); err != nil {
			e.skipEvent(ev, err)
			return nil
		}
		if e.store == nil {
			return nil
		}
		return e.store.WriteHeadSingles(e.head)
	case daq.EventTailSingles:
		if err := e.tail.Unpack(ev); err != nil {
			e.skipEvent(ev, err)
			return nil
		}
		if e.store == nil {
			return nil
		}
		return e.store.WriteTailSingles(e.tail)
	}
	return fmt.Errorf("engine: unexpected singles id %d", ev.EventID)
}

// HandleCoinc implements eventq.Handler. The queue reports every pair
// twice, once from each vantage; records are written only on the
// head-first report so each pair persists exactly once.
func (e *Engine) HandleCoinc(ev, match *daq.Event) error {
	if ev.EventID != daq.EventHeadSingles {
		return nil
	}
	headEv, tailEv := ev, match

	if err := e.head.Unpack(headEv); err != nil {
		e.skipEvent(headEv, err)
		return nil
	}
	if err := e.tail.Unpack(tailEv); err != nil {
		e.skipEvent(tailEv, err)
		return nil
	}
	e.coinc.Compose(e.head, e.tail, e.cfg.GetClockHz())
	if e.store == nil {
		return nil
	}
	return e.store.WriteCoinc(e.coinc)
}
