package detector

import (
	"errors"
	"testing"

	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/testutil"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// buildHeadEvent assembles a wire-format head event.
func buildHeadEvent(serial uint32, trigger uint64, adcSamples map[int]int16, tdcHits []modules.TdcHit) *daq.Event {
	var adc modules.Adc
	adc.Reset()
	for ch, v := range adcSamples {
		adc.Data[ch] = v
	}
	fpga := modules.FpgaHeader{Version: 1, TriggerCount: serial, TriggerTime: trigger, ReadTime: 7}

	payload := daq.NewPayloadBuilder(0).
		AddUint16s(BankHeadAdc, modules.EncodeAdc(&adc)).
		AddUint32s(BankHeadTdc, modules.EncodeTdcHits(tdcHits)).
		AddUint32s(BankHeadFpga, modules.EncodeFpga(fpga)).
		Bytes()

	return &daq.Event{
		Header:  daq.Header{EventID: daq.EventHeadSingles, Serial: serial, DataSize: uint32(len(payload))},
		Payload: payload,
	}
}

// buildTailEvent assembles a wire-format tail event.
func buildTailEvent(serial uint32, trigger uint64, adc0Samples, adc1Samples map[int]int16, tdcHits []modules.TdcHit) *daq.Event {
	var adc0, adc1 modules.Adc
	adc0.Reset()
	adc1.Reset()
	for ch, v := range adc0Samples {
		adc0.Data[ch] = v
	}
	for ch, v := range adc1Samples {
		adc1.Data[ch] = v
	}
	fpga := modules.FpgaHeader{Version: 1, TriggerCount: serial, TriggerTime: trigger, ReadTime: 7}

	payload := daq.NewPayloadBuilder(0).
		AddUint16s(BankTailAdc0, modules.EncodeAdc(&adc0)).
		AddUint16s(BankTailAdc1, modules.EncodeAdc(&adc1)).
		AddUint32s(BankTailTdc, modules.EncodeTdcHits(tdcHits)).
		AddUint32s(BankTailFpga, modules.EncodeFpga(fpga)).
		Bytes()

	return &daq.Event{
		Header:  daq.Header{EventID: daq.EventTailSingles, Serial: serial, DataSize: uint32(len(payload))},
		Payload: payload,
	}
}

func TestHeadUnpack(t *testing.T) {
	h := NewHead()
	h.Variables.Tdc0.Channel[0] = 62
	h.Variables.Xtdc.Channel[0] = 63

	ev := buildHeadEvent(5, 123456, map[int]int16{0: 400, 3: 900},
		[]modules.TdcHit{
			{Channel: 0, Time: 1111},
			{Channel: 62, Time: 2000},
			{Channel: 63, Time: 2600},
		})

	if err := h.Unpack(ev); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	if h.Fpga.TriggerTime != 123456 {
		t.Errorf("TriggerTime = %d, want 123456", h.Fpga.TriggerTime)
	}
	if h.Header.Serial != 5 {
		t.Errorf("Serial = %d, want 5", h.Header.Serial)
	}
	testutil.AssertNear(t, "Bgo.Ecal[0]", h.Bgo.Ecal[0], 400, 1e-9)
	testutil.AssertNear(t, "Bgo.Ecal[3]", h.Bgo.Ecal[3], 900, 1e-9)
	testutil.AssertNear(t, "Bgo.Tcal[0]", h.Bgo.Tcal[0], 1111, 1e-9)
	testutil.AssertNear(t, "Tcal0", h.Tcal0, 2000, 1e-9)
	testutil.AssertNear(t, "Tcalx", h.Tcalx, 2600, 1e-9)
	if h.Bgo.Hit0 != 3 {
		t.Errorf("Hit0 = %d, want 3", h.Bgo.Hit0)
	}
}

func TestHeadUnpackMissingAdcBank(t *testing.T) {
	h := NewHead()
	fpga := modules.FpgaHeader{TriggerTime: 99}
	payload := daq.NewPayloadBuilder(0).
		AddUint32s(BankHeadFpga, modules.EncodeFpga(fpga)).
		Bytes()
	ev := &daq.Event{Header: daq.Header{EventID: daq.EventHeadSingles}, Payload: payload}

	if err := h.Unpack(ev); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	// Missing banks leave sentinels, never an error.
	testutil.AssertNoData(t, "Bgo.Sum", h.Bgo.Sum)
	testutil.AssertNoData(t, "Tcal0", h.Tcal0)
}

func TestHeadUnpackMissingFpgaIsError(t *testing.T) {
	h := NewHead()
	ev := &daq.Event{Payload: daq.NewPayloadBuilder(0).Bytes()}
	if err := h.Unpack(ev); !errors.Is(err, daq.ErrBankNotFound) {
		t.Errorf("err = %v, want ErrBankNotFound", err)
	}
}

func TestTailUnpack(t *testing.T) {
	tl := NewTail()
	// Back strips on the second ADC.
	for i := 16; i < 32; i++ {
		tl.Dsssd.Variables.Adc.Module[i] = 1
		tl.Dsssd.Variables.Adc.Channel[i] = i - 16
	}
	tl.Variables.Tdc0.Channel[0] = 60
	tl.Variables.Xtdc.Channel[0] = 61
	tl.Mcp.Variables.Adc.Module = []int{1, 1, 1, 1}
	tl.Mcp.Variables.Adc.Channel = []int{20, 21, 22, 23}
	tl.Mcp.Variables.Tdc.Channel = []int{2, 3}

	ev := buildTailEvent(8, 5555,
		map[int]int16{2: 700},              // front strip 2
		map[int]int16{1: 300, 20: 100, 21: 100, 22: 100, 23: 100}, // back strip 17 + MCP anodes
		[]modules.TdcHit{
			{Channel: 0, Time: 1500}, // dsssd time
			{Channel: 2, Time: 1000}, // mcp0
			{Channel: 3, Time: 1900}, // mcp1
			{Channel: 60, Time: 100},
			{Channel: 61, Time: 450},
		})

	if err := tl.Unpack(ev); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	testutil.AssertNear(t, "Dsssd.EFront", tl.Dsssd.EFront, 700, 1e-9)
	if tl.Dsssd.HitFront != 2 {
		t.Errorf("HitFront = %d, want 2", tl.Dsssd.HitFront)
	}
	testutil.AssertNear(t, "Dsssd.EBack", tl.Dsssd.EBack, 300, 1e-9)
	if tl.Dsssd.HitBack != 17 {
		t.Errorf("HitBack = %d, want 17", tl.Dsssd.HitBack)
	}
	testutil.AssertNear(t, "Mcp.Esum", tl.Mcp.Esum, 400, 1e-9)
	testutil.AssertNear(t, "Tof.Mcp", tl.Tof.Mcp, 900, 1e-9)
	testutil.AssertNear(t, "Tof.McpDsssd", tl.Dsssd.Tcal-tl.Mcp.Tcal[0], 500, 1e-9)
	testutil.AssertNear(t, "Tcal0", tl.Tcal0, 100, 1e-9)
	testutil.AssertNear(t, "Tcalx", tl.Tcalx, 450, 1e-9)
}

func TestCoincCompose(t *testing.T) {
	head := NewHead()
	head.Variables.Tdc0.Channel[0] = 62
	head.Variables.Xtdc.Channel[0] = 63
	headEv := buildHeadEvent(1, 2_000_000, map[int]int16{0: 100},
		[]modules.TdcHit{{Channel: 62, Time: 1000}, {Channel: 63, Time: 1750}})
	if err := head.Unpack(headEv); err != nil {
		t.Fatalf("head.Unpack: %v", err)
	}

	tail := NewTail()
	tail.Variables.Tdc0.Channel[0] = 60
	tail.Variables.Xtdc.Channel[0] = 61
	tailEv := buildTailEvent(2, 2_004_500, nil, nil,
		[]modules.TdcHit{{Channel: 60, Time: 2000}, {Channel: 61, Time: 2900}})
	if err := tail.Unpack(tailEv); err != nil {
		t.Fatalf("tail.Unpack: %v", err)
	}

	c := NewCoinc()
	c.Compose(head, tail, 1e9) // nanosecond ticks

	// 4500 ticks at 1 GHz = 4.5 µs, tail after head.
	testutil.AssertNear(t, "Xtrig", c.Xtrig, 4.5, 1e-9)
	testutil.AssertNear(t, "XtofHead", c.XtofHead, 750, 1e-9)
	testutil.AssertNear(t, "XtofTail", c.XtofTail, 900, 1e-9)

	// Reversed order yields a negative trigger delta.
	c.Compose(head, tail, 1e9)
	c2 := NewCoinc()
	c2.Compose(tailFirstHead(t, 2_004_500), tailAtTrigger(t, 2_000_000), 1e9)
	testutil.AssertNear(t, "Xtrig reversed", c2.Xtrig, -4.5, 1e-9)
}

// tailFirstHead unpacks a head event at the given trigger time.
func tailFirstHead(t *testing.T, trigger uint64) *Head {
	t.Helper()
	h := NewHead()
	ev := buildHeadEvent(1, trigger, nil, nil)
	if err := h.Unpack(ev); err != nil {
		t.Fatalf("head.Unpack: %v", err)
	}
	return h
}

// tailAtTrigger unpacks a tail event at the given trigger time.
func tailAtTrigger(t *testing.T, trigger uint64) *Tail {
	t.Helper()
	tl := NewTail()
	ev := buildTailEvent(1, trigger, nil, nil, nil)
	if err := tl.Unpack(ev); err != nil {
		t.Fatalf("tail.Unpack: %v", err)
	}
	return tl
}

func buildScalerEvent(eventID uint16, counts []uint32, periodMicros uint32) *daq.Event {
	payload := daq.NewPayloadBuilder(0).
		AddUint32s(BankScalerCounts, counts).
		AddUint32s(BankScalerHeader, []uint32{periodMicros}).
		Bytes()
	return &daq.Event{Header: daq.Header{EventID: eventID}, Payload: payload}
}

func TestScalerAccumulates(t *testing.T) {
	s := NewScaler("head")

	counts1 := make([]uint32, ScalerChannels)
	counts2 := make([]uint32, ScalerChannels)
	counts1[0], counts1[16] = 10, 5
	counts2[0], counts2[16] = 4, 1

	if err := s.Unpack(buildScalerEvent(daq.EventHeadScaler, counts1, 2_000_000)); err != nil {
		t.Fatalf("Unpack 1: %v", err)
	}
	if s.Count[0] != 10 || s.Sum[0] != 10 {
		t.Errorf("after first period: count %d sum %d", s.Count[0], s.Sum[0])
	}
	testutil.AssertNear(t, "Rate[0]", s.Rate[0], 5, 1e-9) // 10 counts / 2 s

	if err := s.Unpack(buildScalerEvent(daq.EventHeadScaler, counts2, 1_000_000)); err != nil {
		t.Fatalf("Unpack 2: %v", err)
	}
	if s.Count[0] != 4 {
		t.Errorf("Count[0] = %d, want overwrite to 4", s.Count[0])
	}
	if s.Sum[0] != 14 || s.Sum[16] != 6 {
		t.Errorf("Sum = %d/%d, want 14/6", s.Sum[0], s.Sum[16])
	}
	testutil.AssertNear(t, "Rate[0]", s.Rate[0], 4, 1e-9)

	s.Reset()
	if s.Sum[0] != 0 || s.Count[0] != 0 || s.Rate[0] != 0 {
		t.Error("Reset must zero all counters")
	}
}

func TestScalerWrongWidth(t *testing.T) {
	s := NewScaler("tail")
	ev := buildScalerEvent(daq.EventTailScaler, make([]uint32, 5), 1_000_000)
	if err := s.Unpack(ev); !errors.Is(err, daq.ErrMalformedPayload) {
		t.Errorf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestScalerChannelNames(t *testing.T) {
	s := NewScaler("head")
	src := vars.MapSource{
		"/Equipment/head/Scaler/names/0": "triggers_presented",
	}
	s.SetVariables(src)

	if got := s.ChannelName(0); got != "triggers_presented" {
		t.Errorf("ChannelName(0) = %q", got)
	}
	if got := s.ChannelName(1); got != "head_scaler_1" {
		t.Errorf("ChannelName(1) = %q, want placeholder", got)
	}
}

func TestRunParameters(t *testing.T) {
	rp := NewRunParameters()
	testutil.AssertNoData(t, "Runtime(head)", rp.Runtime(FrontendHead))

	src := vars.MapSource{
		"/Experiment/RunParameters/run_start":     []float64{100, 102},
		"/Experiment/RunParameters/run_stop":      []float64{700, 705},
		"/Experiment/RunParameters/trigger_start": []float64{110, 112},
		"/Experiment/RunParameters/trigger_stop":  []float64{690, 695},
	}
	rp.ReadData(src)

	testutil.AssertNear(t, "Runtime(head)", rp.Runtime(FrontendHead), 600, 1e-9)
	testutil.AssertNear(t, "Runtime(tail)", rp.Runtime(FrontendTail), 603, 1e-9)
	testutil.AssertNear(t, "Livetime(head)", rp.Livetime(FrontendHead), 580, 1e-9)
	testutil.AssertNoData(t, "Runtime(-1)", rp.Runtime(-1))
}

func TestHeadSetVariablesMissingKeysKeepDefaults(t *testing.T) {
	h := NewHead()
	h.SetVariables(vars.MapSource{}) // everything missing: warns, keeps identity

	if h.Bgo.Variables.Adc.Channel[5] != 5 || h.Bgo.Variables.Adc.Slope[5] != 1 {
		t.Error("identity defaults lost on empty source")
	}
}
