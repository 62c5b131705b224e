package modules

import (
	"errors"
	"fmt"

	"github.com/banshee-data/recoil.report/internal/daq"
)

// TdcChannels is the channel count of the multi-hit TDC.
const TdcChannels = 64

// NoTdcData marks a TDC channel with no leading edge. Measured times are
// non-negative 22-bit tick counts, so any negative value is out of band.
const NoTdcData int32 = -1

// TDC record word layout: bits 31-28 kind, 27-22 channel, 21-0 time.
const (
	tdcKindLeading  = 0x0
	tdcKindTrailing = 0x1
	tdcKindTrailer  = 0xF

	tdcTimeMask = 0x3FFFFF
)

// Tdc is the decoded record of the multi-hit TDC. Only the first leading
// edge per channel is kept; further hits are counted and discarded, and
// trailing edges are ignored entirely.
type Tdc struct {
	Leading [TdcChannels]int32 // first leading-edge time per channel, ticks

	// ExtraHits counts leading edges discarded because their channel
	// had already fired in this event.
	ExtraHits int

	// Valid is set once the bank's trailer record has been seen.
	Valid bool
}

// Reset returns every channel to the no-data state.
func (t *Tdc) Reset() {
	for i := range t.Leading {
		t.Leading[i] = NoTdcData
	}
	t.ExtraHits = 0
	t.Valid = false
}

// UnpackTdc fills t from the named bank of ev. An absent bank leaves the
// module in its reset state. The bank must terminate with a trailer
// record; one that does not fails the event.
func UnpackTdc(ev *daq.Event, tag string, t *Tdc) error {
	bank, err := ev.Bank(tag)
	if err != nil {
		if errors.Is(err, daq.ErrBankNotFound) {
			return nil
		}
		return err
	}
	words, err := bank.Uint32s()
	if err != nil {
		return err
	}
	for _, w := range words {
		kind := w >> 28
		switch kind {
		case tdcKindLeading:
			ch := (w >> 22) & 0x3F
			if t.Leading[ch] != NoTdcData {
				t.ExtraHits++
				continue
			}
			t.Leading[ch] = int32(w & tdcTimeMask)
		case tdcKindTrailing:
			// Trailing edges are not used.
		case tdcKindTrailer:
			t.Valid = true
			return nil
		default:
			return fmt.Errorf("%w: TDC bank %q has unknown record kind %#x",
				daq.ErrMalformedPayload, tag, kind)
		}
	}
	return fmt.Errorf("%w: TDC bank %q missing trailer", daq.ErrMalformedPayload, tag)
}

// TdcHit is one leading-edge measurement used when composing banks.
type TdcHit struct {
	Channel uint8
	Time    int32
}

// EncodeTdcHits serialises hits (in order) followed by the trailer
// record. Used by the event generator and tests.
func EncodeTdcHits(hits []TdcHit) []uint32 {
	words := make([]uint32, 0, len(hits)+1)
	for _, h := range hits {
		w := uint32(tdcKindLeading)<<28 |
			(uint32(h.Channel)&0x3F)<<22 |
			uint32(h.Time)&tdcTimeMask
		words = append(words, w)
	}
	return append(words, uint32(tdcKindTrailer)<<28)
}
