package detector

import (
	"errors"
	"fmt"

	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// ScalerChannels is the counter count of one scaler bank.
const ScalerChannels = 17

// Bank tags shared by both frontends' scaler events.
const (
	BankScalerCounts = "SCLR"
	BankScalerHeader = "SCHD"
)

// Scaler accumulates the periodic counter readouts of one frontend.
type Scaler struct {
	// Count holds the most recent period's increments; Sum the running
	// totals since run start; Rate the latest counts-per-second.
	Count [ScalerChannels]uint32
	Sum   [ScalerChannels]uint32
	Rate  [ScalerChannels]float64

	Variables struct {
		// Names labels each channel for reporting.
		Names [ScalerChannels]string
	}

	name string
}

// NewScaler returns a reset accumulator. name distinguishes the two
// frontends ("head" or "tail") in variable paths and reports.
func NewScaler(name string) *Scaler {
	s := &Scaler{name: name}
	s.Reset()
	return s
}

// Name returns the frontend label.
func (s *Scaler) Name() string { return s.name }

// Reset zeroes all counters. Called at run start.
func (s *Scaler) Reset() {
	for i := 0; i < ScalerChannels; i++ {
		s.Count[i] = 0
		s.Sum[i] = 0
		s.Rate[i] = 0
	}
}

// ChannelName returns the configured name of channel ch, or a numeric
// placeholder when unset.
func (s *Scaler) ChannelName(ch int) string {
	if ch < 0 || ch >= ScalerChannels {
		return ""
	}
	if s.Variables.Names[ch] == "" {
		return fmt.Sprintf("%s_scaler_%d", s.name, ch)
	}
	return s.Variables.Names[ch]
}

// SetVariables loads channel names from the variable store.
func (s *Scaler) SetVariables(src vars.Source) {
	for i := 0; i < ScalerChannels; i++ {
		path := fmt.Sprintf("/Equipment/%s/Scaler/names/%d", s.name, i)
		vars.FillString(src, path, &s.Variables.Names[i])
	}
}

// Unpack applies one scaler event: Count is overwritten with the
// period's increments, Sum accumulates, and Rate is derived from the
// period length carried in the scaler header bank.
func (s *Scaler) Unpack(ev *daq.Event) error {
	counts, err := ev.Bank(BankScalerCounts)
	if err != nil {
		return err
	}
	words, err := counts.Uint32s()
	if err != nil {
		return err
	}
	if len(words) != ScalerChannels {
		return fmt.Errorf("%w: scaler bank has %d counters, want %d",
			daq.ErrMalformedPayload, len(words), ScalerChannels)
	}

	periodMicros, err := scalerPeriod(ev)
	if err != nil {
		return err
	}
	periodSec := float64(periodMicros) / 1e6

	for i := 0; i < ScalerChannels; i++ {
		s.Count[i] = words[i]
		s.Sum[i] += words[i]
		if periodSec > 0 {
			s.Rate[i] = float64(words[i]) / periodSec
		} else {
			s.Rate[i] = 0
		}
	}
	return nil
}

func scalerPeriod(ev *daq.Event) (uint32, error) {
	hdr, err := ev.Bank(BankScalerHeader)
	if err != nil {
		if errors.Is(err, daq.ErrBankNotFound) {
			return 0, nil
		}
		return 0, err
	}
	words, err := hdr.Uint32s()
	if err != nil {
		return 0, err
	}
	if len(words) < 1 {
		return 0, fmt.Errorf("%w: empty scaler header bank", daq.ErrMalformedPayload)
	}
	return words[0], nil
}
