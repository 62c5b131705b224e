package daq

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Bank element type codes on the wire.
const (
	BankU16 uint16 = 2 // 16-bit words
	BankU32 uint16 = 3 // 32-bit words
)

// Errors surfaced by the bank reader. ErrBankNotFound is non-fatal by
// contract: callers fall back to an all-sentinel module. ErrMalformedPayload
// fails the current event only.
var (
	ErrBankNotFound     = errors.New("bank not found")
	ErrMalformedPayload = errors.New("malformed payload")
)

// containerHeaderSize covers the totalSize and flags words that open a
// payload; bankHeaderSize covers the tag/type/nwords header of each bank.
const (
	containerHeaderSize = 8
	bankHeaderSize      = 8
)

// Bank is one tagged, typed, length-prefixed array inside an event payload.
type Bank struct {
	Tag  string // 4 ASCII characters, unique per event
	Type uint16 // BankU16 or BankU32
	Data []byte // nwords * element size bytes, little-endian
}

// Count returns the number of elements in the bank.
func (b Bank) Count() int {
	switch b.Type {
	case BankU32:
		return len(b.Data) / 4
	default:
		return len(b.Data) / 2
	}
}

// Uint16s decodes the bank data as 16-bit words.
func (b Bank) Uint16s() ([]uint16, error) {
	if b.Type != BankU16 {
		return nil, fmt.Errorf("%w: bank %q has type %d, want %d", ErrMalformedPayload, b.Tag, b.Type, BankU16)
	}
	out := make([]uint16, len(b.Data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b.Data[2*i:])
	}
	return out, nil
}

// Uint32s decodes the bank data as 32-bit words.
func (b Bank) Uint32s() ([]uint32, error) {
	if b.Type != BankU32 {
		return nil, fmt.Errorf("%w: bank %q has type %d, want %d", ErrMalformedPayload, b.Tag, b.Type, BankU32)
	}
	out := make([]uint32, len(b.Data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b.Data[4*i:])
	}
	return out, nil
}

func elemSize(typ uint16) (int, bool) {
	switch typ {
	case BankU16:
		return 2, true
	case BankU32:
		return 4, true
	}
	return 0, false
}

// Banks parses the event payload into its banks. The payload opens with
// a totalSize/flags pair, then carries back-to-back banks of
// {tag 4×char, type u16, nwords u16, data}.
func (e *Event) Banks() ([]Bank, error) {
	p := e.Payload
	if len(p) < containerHeaderSize {
		return nil, fmt.Errorf("%w: container truncated at %d bytes", ErrMalformedPayload, len(p))
	}
	total := binary.LittleEndian.Uint32(p[0:4])
	if int(total) != len(p) {
		return nil, fmt.Errorf("%w: container size %d != payload size %d", ErrMalformedPayload, total, len(p))
	}

	var banks []Bank
	pos := containerHeaderSize
	for pos < len(p) {
		if len(p)-pos < bankHeaderSize {
			return nil, fmt.Errorf("%w: bank header truncated at offset %d", ErrMalformedPayload, pos)
		}
		tag := string(p[pos : pos+4])
		typ := binary.LittleEndian.Uint16(p[pos+4 : pos+6])
		nwords := int(binary.LittleEndian.Uint16(p[pos+6 : pos+8]))
		size, ok := elemSize(typ)
		if !ok {
			return nil, fmt.Errorf("%w: bank %q has unknown element type %d", ErrMalformedPayload, tag, typ)
		}
		dataLen := nwords * size
		pos += bankHeaderSize
		if len(p)-pos < dataLen {
			return nil, fmt.Errorf("%w: bank %q data truncated (%d of %d bytes)", ErrMalformedPayload, tag, len(p)-pos, dataLen)
		}
		banks = append(banks, Bank{Tag: tag, Type: typ, Data: p[pos : pos+dataLen]})
		pos += dataLen
	}
	return banks, nil
}

// Bank locates a bank by its 4-character tag. Returns ErrBankNotFound
// (wrapped) when the tag is absent, ErrMalformedPayload when the
// container cannot be walked.
func (e *Event) Bank(tag string) (Bank, error) {
	banks, err := e.Banks()
	if err != nil {
		return Bank{}, err
	}
	for _, b := range banks {
		if b.Tag == tag {
			return b, nil
		}
	}
	return Bank{}, fmt.Errorf("%w: %q", ErrBankNotFound, tag)
}

// PayloadBuilder assembles a bank container payload. Used by the event
// generator and by test fixtures to produce wire-format events.
type PayloadBuilder struct {
	flags uint32
	banks []Bank
}

// NewPayloadBuilder returns an empty builder with the given container flags.
func NewPayloadBuilder(flags uint32) *PayloadBuilder {
	return &PayloadBuilder{flags: flags}
}

// AddUint16s appends a bank of 16-bit words.
func (pb *PayloadBuilder) AddUint16s(tag string, words []uint16) *PayloadBuilder {
	data := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(data[2*i:], w)
	}
	pb.banks = append(pb.banks, Bank{Tag: tag, Type: BankU16, Data: data})
	return pb
}

// AddUint32s appends a bank of 32-bit words.
func (pb *PayloadBuilder) AddUint32s(tag string, words []uint32) *PayloadBuilder {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[4*i:], w)
	}
	pb.banks = append(pb.banks, Bank{Tag: tag, Type: BankU32, Data: data})
	return pb
}

// Bytes serialises the container.
func (pb *PayloadBuilder) Bytes() []byte {
	total := containerHeaderSize
	for _, b := range pb.banks {
		total += bankHeaderSize + len(b.Data)
	}
	out := make([]byte, 0, total)

	var hdr [containerHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(total))
	binary.LittleEndian.PutUint32(hdr[4:8], pb.flags)
	out = append(out, hdr[:]...)

	for _, b := range pb.banks {
		var bh [bankHeaderSize]byte
		copy(bh[0:4], b.Tag)
		binary.LittleEndian.PutUint16(bh[4:6], b.Type)
		size, _ := elemSize(b.Type)
		binary.LittleEndian.PutUint16(bh[6:8], uint16(len(b.Data)/size))
		out = append(out, bh[:]...)
		out = append(out, b.Data...)
	}
	return out
}
