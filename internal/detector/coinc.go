package detector

import (
	"github.com/banshee-data/recoil.report/internal/units"
)

// Coinc is a complete coincidence event: both halves of the apparatus
// plus the cross-detector timing observables.
type Coinc struct {
	Head Head
	Tail Tail

	// Xtrig is the tail-head FPGA trigger-time difference in
	// microseconds (negative when the tail fired first).
	Xtrig float64
	// XtofHead is the crossover time of flight measured in the head
	// TDC; XtofTail the same measured in the tail TDC.
	XtofHead, XtofTail float64
}

// NewCoinc returns a reset coincidence record.
func NewCoinc() *Coinc {
	c := &Coinc{Head: *NewHead(), Tail: *NewTail()}
	c.Reset()
	return c
}

// Reset clears both halves and the cross observables.
func (c *Coinc) Reset() {
	c.Head.Reset()
	c.Tail.Reset()
	c.Xtrig = NoData()
	c.XtofHead, c.XtofTail = NoData(), NoData()
}

// Compose copies the matched pair into the record and computes the
// cross-detector observables. clockHz is the trigger-timestamp clock
// rate used to express Xtrig in microseconds.
func (c *Coinc) Compose(head *Head, tail *Tail, clockHz float64) {
	c.Head = *head
	c.Tail = *tail

	delta := units.TickDelta(tail.Fpga.TriggerTime, head.Fpga.TriggerTime)
	c.Xtrig = units.TicksToMicros(delta, clockHz)

	// Each side measures the other side's trigger in its own TDC, so
	// both flight times come from a single clock and need no
	// cross-frontend synchronisation.
	c.XtofHead = c.Head.Tcalx - c.Head.Tcal0
	c.XtofTail = c.Tail.Tcalx - c.Tail.Tcal0
}
