//go:build !pcap
// +build !pcap

package daq

import (
	"context"
	"errors"
)

// ReadPCAPFile is unavailable without the 'pcap' build tag (libpcap).
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, handler EventFunc) error {
	return errors.New("PCAP support not compiled in (rebuild with -tags pcap)")
}
