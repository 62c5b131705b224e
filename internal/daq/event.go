package daq

import (
	"encoding/binary"
	"fmt"
)

// Event ids on the input stream. The head frontend reads the gamma
// detectors, the tail frontend the heavy-ion detectors; each also emits
// periodic scaler readouts.
const (
	EventHeadSingles uint16 = 1
	EventHeadScaler  uint16 = 2
	EventTailSingles uint16 = 3
	EventTailScaler  uint16 = 4
)

// Event ids emitted by the analyzer.
const (
	EventCoinc         uint16 = 5
	EventHeadScalerOut uint16 = 6
	EventTailScalerOut uint16 = 7
)

// MaxEventID bounds the per-source diagnostic counters.
const MaxEventID = 8

// HeaderSize is the wire size of an event header in bytes.
const HeaderSize = 16

// Header is the fixed 16-byte record that precedes every event payload.
// All fields are little-endian on the wire.
type Header struct {
	EventID     uint16 // source id (EventHeadSingles, ...)
	TriggerMask uint16
	Serial      uint32 // monotone per source
	UnixTime    uint32 // coarse wall-clock seconds, set by the frontend
	DataSize    uint32 // payload bytes following the header
}

// Event is one raw record from a frontend: header, opaque bank payload,
// and the authoritative trigger time extracted from the FPGA header bank.
//
// Events are owned by exactly one component at a time (reader, queue,
// consumer) and handed over by pointer.
type Event struct {
	Header
	Payload []byte

	// TriggerTime is the FPGA trigger timestamp in clock ticks. It is
	// filled in by the engine from the FPGA header bank before the event enters the
	// coincidence queue; the coarse Header.UnixTime is never used for
	// matching.
	TriggerTime uint64
}

// IsSingles reports whether the event carries detector data (as opposed
// to a scaler readout).
func (e *Event) IsSingles() bool {
	return e.EventID == EventHeadSingles || e.EventID == EventTailSingles
}

// DecodeHeader parses a 16-byte little-endian event header.
func DecodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("%w: header truncated at %d bytes", ErrMalformedPayload, len(buf))
	}
	h.EventID = binary.LittleEndian.Uint16(buf[0:2])
	h.TriggerMask = binary.LittleEndian.Uint16(buf[2:4])
	h.Serial = binary.LittleEndian.Uint32(buf[4:8])
	h.UnixTime = binary.LittleEndian.Uint32(buf[8:12])
	h.DataSize = binary.LittleEndian.Uint32(buf[12:16])
	return h, nil
}

// EncodeHeader serialises an event header to its 16-byte wire form.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.EventID)
	binary.LittleEndian.PutUint16(buf[2:4], h.TriggerMask)
	binary.LittleEndian.PutUint32(buf[4:8], h.Serial)
	binary.LittleEndian.PutUint32(buf[8:12], h.UnixTime)
	binary.LittleEndian.PutUint32(buf[12:16], h.DataSize)
	return buf
}

// Encode serialises the full event (header + payload) to wire form.
func (e *Event) Encode() []byte {
	h := e.Header
	h.DataSize = uint32(len(e.Payload))
	out := EncodeHeader(h)
	return append(out, e.Payload...)
}
