package modules

import (
	"fmt"

	"github.com/banshee-data/recoil.report/internal/daq"
)

// fpgaWords is the FPGA header bank size in 32-bit words: version,
// trigger count, trigger time (low, high), read time.
const fpgaWords = 5

// FpgaHeader is the decoded FPGA timestamp header. Its TriggerTime is
// the authoritative event time used for coincidence matching; the
// coarse time in the event header is bus/read time only.
type FpgaHeader struct {
	Version      uint32
	TriggerCount uint32
	TriggerTime  uint64 // clock ticks
	ReadTime     uint32
}

// Reset zeroes the header.
func (f *FpgaHeader) Reset() {
	*f = FpgaHeader{}
}

// UnpackFpga decodes the named FPGA header bank. Unlike the ADC/TDC
// banks this one is required: an event without its timestamp cannot be
// ordered, so an absent bank is an error.
func UnpackFpga(ev *daq.Event, tag string) (FpgaHeader, error) {
	var f FpgaHeader
	bank, err := ev.Bank(tag)
	if err != nil {
		return f, err
	}
	words, err := bank.Uint32s()
	if err != nil {
		return f, err
	}
	if len(words) != fpgaWords {
		return f, fmt.Errorf("%w: FPGA bank %q has %d words, want %d",
			daq.ErrMalformedPayload, tag, len(words), fpgaWords)
	}
	f.Version = words[0]
	f.TriggerCount = words[1]
	f.TriggerTime = uint64(words[2]) | uint64(words[3])<<32
	f.ReadTime = words[4]
	return f, nil
}

// EncodeFpga serialises the header to its bank wire words.
func EncodeFpga(f FpgaHeader) []uint32 {
	return []uint32{
		f.Version,
		f.TriggerCount,
		uint32(f.TriggerTime),
		uint32(f.TriggerTime >> 32),
		f.ReadTime,
	}
}
