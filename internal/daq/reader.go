package daq

import (
	"bufio"
	"fmt"
	"io"
)

// Reader pulls events off a byte stream (file or socket). It does not
// interpret payloads beyond sizing them from the header.
type Reader struct {
	r *bufio.Reader

	// EventsRead counts successfully framed events, including ones the
	// caller later rejects as malformed.
	EventsRead uint64
}

// NewReader wraps r for event framing.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 1<<16)}
}

// Next reads one event. Returns io.EOF at a clean end of stream;
// a truncated header or payload mid-stream is reported as
// io.ErrUnexpectedEOF.
func (r *Reader) Next() (*Event, error) {
	var hdrBuf [HeaderSize]byte
	if _, err := io.ReadFull(r.r, hdrBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read event header: %w", err)
	}
	hdr, err := DecodeHeader(hdrBuf[:])
	if err != nil {
		return nil, err
	}

	payload := make([]byte, hdr.DataSize)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read event payload (serial %d): %w", hdr.Serial, err)
	}

	r.EventsRead++
	return &Event{Header: hdr, Payload: payload}, nil
}

// DecodeDatagram parses a single datagram carrying one complete event
// (header + payload). Used by the UDP listener and the PCAP replayer.
func DecodeDatagram(buf []byte) (*Event, error) {
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if len(buf)-HeaderSize < int(hdr.DataSize) {
		return nil, fmt.Errorf("%w: datagram carries %d payload bytes, header says %d",
			ErrMalformedPayload, len(buf)-HeaderSize, hdr.DataSize)
	}
	payload := make([]byte, hdr.DataSize)
	copy(payload, buf[HeaderSize:HeaderSize+int(hdr.DataSize)])
	return &Event{Header: hdr, Payload: payload}, nil
}
