package modules

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/recoil.report/internal/daq"
)

// NoRawData marks a channel that carried no hardware data. It sits below
// any physical ADC or TDC range so it can never collide with a real sample.
const NoRawData int16 = math.MinInt16

// AdcChannels is the channel count of one ADC module.
const AdcChannels = 32

// ADC bank per-channel flag bits.
const (
	adcFlagValid     = 1 << 0
	adcFlagOverflow  = 1 << 1
	adcFlagUnderflow = 1 << 2
)

// Adc is the decoded record of one 32-channel peak-sensing ADC. Every
// channel is always written: invalid channels hold NoRawData.
type Adc struct {
	Data      [AdcChannels]int16
	Overflow  [AdcChannels]bool
	Underflow [AdcChannels]bool

	// Valid is set when at least one channel carried data.
	Valid bool
}

// Reset returns every channel to the no-data state.
func (a *Adc) Reset() {
	for i := range a.Data {
		a.Data[i] = NoRawData
		a.Overflow[i] = false
		a.Underflow[i] = false
	}
	a.Valid = false
}

// UnpackAdc fills a from the named bank of ev. An absent bank is not an
// error: the module simply stays in its reset state. A present but
// malformed bank fails the event.
func UnpackAdc(ev *daq.Event, tag string, a *Adc) error {
	bank, err := ev.Bank(tag)
	if err != nil {
		if errors.Is(err, daq.ErrBankNotFound) {
			return nil
		}
		return err
	}
	words, err := bank.Uint16s()
	if err != nil {
		return err
	}
	// Two words per channel: sample then flags.
	if len(words) != 2*AdcChannels {
		return fmt.Errorf("%w: ADC bank %q has %d words, want %d",
			daq.ErrMalformedPayload, tag, len(words), 2*AdcChannels)
	}
	for ch := 0; ch < AdcChannels; ch++ {
		sample := int16(words[2*ch])
		flags := words[2*ch+1]
		if flags&adcFlagValid == 0 {
			continue
		}
		a.Data[ch] = sample
		a.Overflow[ch] = flags&adcFlagOverflow != 0
		a.Underflow[ch] = flags&adcFlagUnderflow != 0
		a.Valid = true
	}
	return nil
}

// EncodeAdc serialises the module to its bank wire words. Channels at
// NoRawData encode as invalid. Used by the event generator and tests.
func EncodeAdc(a *Adc) []uint16 {
	words := make([]uint16, 2*AdcChannels)
	for ch := 0; ch < AdcChannels; ch++ {
		if a.Data[ch] == NoRawData {
			continue
		}
		var flags uint16 = adcFlagValid
		if a.Overflow[ch] {
			flags |= adcFlagOverflow
		}
		if a.Underflow[ch] {
			flags |= adcFlagUnderflow
		}
		words[2*ch] = uint16(a.Data[ch])
		words[2*ch+1] = flags
	}
	return words
}
