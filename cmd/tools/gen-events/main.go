// Command gen-events generates a synthetic event-stream file for
// exercising the analyzer without a beamline.
package main

import (
	"bufio"
	"flag"
	"log"
	"math/rand"
	"os"

	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/modules"
)

func main() {
	output := flag.String("o", "sample.evt", "output path")
	count := flag.Int("n", 1000, "number of singles events per side")
	coincFrac := flag.Float64("coinc", 0.2, "fraction of tail events paired with a head event")
	window := flag.Int64("window", 10_000, "pairing offset range in ticks")
	gap := flag.Int64("gap", 1_000_000, "maximum tick gap between triggers (drawn uniformly from 1..gap)")
	jitter := flag.Int64("jitter", 200_000, "arrival reordering jitter in ticks")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("create %s: %v", *output, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	var events []*daq.Event
	var headSerial, tailSerial uint32
	ticks := uint64(1_000_000)

	for i := 0; i < *count; i++ {
		ticks += uint64(rng.Int63n(*gap) + 1)
		headSerial++
		events = append(events, headEvent(rng, headSerial, ticks))

		if rng.Float64() < *coincFrac {
			// Paired tail trigger inside the window.
			offset := rng.Int63n(*window)
			tailSerial++
			events = append(events, tailEvent(rng, tailSerial, ticks+uint64(offset)))
		} else {
			ticks += uint64(rng.Int63n(*gap) + 1)
			tailSerial++
			events = append(events, tailEvent(rng, tailSerial, ticks))
		}
	}

	// Emulate network buffering: shuffle arrival order within the
	// jitter horizon.
	for i := 1; i < len(events); i++ {
		if rng.Int63n(2) == 0 && events[i].TriggerTime-events[i-1].TriggerTime < uint64(*jitter) {
			events[i], events[i-1] = events[i-1], events[i]
		}
	}

	written := 0
	for _, ev := range events {
		if _, err := w.Write(ev.Encode()); err != nil {
			log.Fatalf("write: %v", err)
		}
		written++
		if written%1000 == 0 {
			log.Printf("%d/%d events", written, len(events))
		}
	}
	log.Printf("wrote %d events to %s", written, *output)
}

func headEvent(rng *rand.Rand, serial uint32, ticks uint64) *daq.Event {
	var adc modules.Adc
	adc.Reset()
	for ch := 0; ch < modules.AdcChannels; ch++ {
		if rng.Float64() < 0.2 {
			adc.Data[ch] = int16(rng.Intn(4000))
		}
	}

	hits := []modules.TdcHit{{Channel: 0, Time: int32(rng.Intn(1 << 20))}}
	fpga := modules.FpgaHeader{Version: 1, TriggerCount: serial, TriggerTime: ticks, ReadTime: uint32(ticks / 1000)}

	payload := daq.NewPayloadBuilder(0).
		AddUint16s("VADC", modules.EncodeAdc(&adc)).
		AddUint32s("VTDC", modules.EncodeTdcHits(hits)).
		AddUint32s("VTRG", modules.EncodeFpga(fpga)).
		Bytes()

	return &daq.Event{
		Header: daq.Header{
			EventID:  daq.EventHeadSingles,
			Serial:   serial,
			UnixTime: uint32(ticks / 1_000_000_000),
			DataSize: uint32(len(payload)),
		},
		Payload:     payload,
		TriggerTime: ticks,
	}
}

func tailEvent(rng *rand.Rand, serial uint32, ticks uint64) *daq.Event {
	var adc0, adc1 modules.Adc
	adc0.Reset()
	adc1.Reset()
	for ch := 0; ch < modules.AdcChannels; ch++ {
		if rng.Float64() < 0.15 {
			adc0.Data[ch] = int16(rng.Intn(4000))
		}
		if rng.Float64() < 0.15 {
			adc1.Data[ch] = int16(rng.Intn(4000))
		}
	}

	hits := []modules.TdcHit{
		{Channel: 0, Time: int32(rng.Intn(1 << 20))},
		{Channel: 1, Time: int32(rng.Intn(1 << 20))},
	}
	fpga := modules.FpgaHeader{Version: 1, TriggerCount: serial, TriggerTime: ticks, ReadTime: uint32(ticks / 1000)}

	payload := daq.NewPayloadBuilder(0).
		AddUint16s("TLQ0", modules.EncodeAdc(&adc0)).
		AddUint16s("TLQ1", modules.EncodeAdc(&adc1)).
		AddUint32s("TLT0", modules.EncodeTdcHits(hits)).
		AddUint32s("TLTR", modules.EncodeFpga(fpga)).
		Bytes()

	return &daq.Event{
		Header: daq.Header{
			EventID:  daq.EventTailSingles,
			Serial:   serial,
			UnixTime: uint32(ticks / 1_000_000_000),
			DataSize: uint32(len(payload)),
		},
		Payload:     payload,
		TriggerTime: ticks,
	}
}
