//go:build pcap
// +build pcap

package daq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/recoil.report/internal/monitoring"
)

// ReadPCAPFile replays DAQ events from a PCAP capture of the frontend
// UDP feed. Each matching datagram is decoded as one event and handed to
// the handler in capture order.
// This function is only available when building with the 'pcap' build tag.
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, handler EventFunc) error {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("set BPF filter %q: %w", filterStr, err)
	}
	monitoring.Logf("pcap: BPF filter set: %s", filterStr)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	eventCount := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("pcap: reader stopping (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				monitoring.Logf("pcap: replay complete: %d packets, %d events in %v",
					packetCount, eventCount, time.Since(startTime))
				return nil
			}
			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok || len(udp.Payload) == 0 {
				continue
			}

			ev, err := DecodeDatagram(udp.Payload)
			if err != nil {
				debugf("pcap: skipping malformed packet %d: %v", packetCount, err)
				continue
			}
			eventCount++
			if err := handler(ev); err != nil {
				return err
			}
		}
	}
}
