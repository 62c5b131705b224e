package detector

import (
	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// TailAdcModules is the number of ADC modules on the tail frontend.
const TailAdcModules = 2

// Bank tags of the tail (heavy-ion) frontend.
const (
	BankTailAdc0 = "TLQ0"
	BankTailAdc1 = "TLQ1"
	BankTailTdc  = "TLT0"
	BankTailFpga = "TLTR"
)

// TailVariables holds the tail-level timing channels, mirroring
// HeadVariables.
type TailVariables struct {
	Tdc0 ChannelVariables // own trigger
	Xtdc ChannelVariables // crossover (head trigger)
}

// Tail assembles one heavy-ion-side event across the focal-plane
// detectors.
type Tail struct {
	Header daq.Header
	Fpga   modules.FpgaHeader

	Adc [TailAdcModules]modules.Adc
	Tdc modules.Tdc

	Dsssd Dsssd
	Ic    IonChamber
	Mcp   Mcp
	Sb    SurfaceBarrier
	Nai   NaI
	Ge    Ge
	Tof   HiTof

	// Tcal0 is the calibrated own-trigger time, Tcalx the calibrated
	// crossover (head trigger) time, both from the tail TDC.
	Tcal0, Tcalx float64

	Variables TailVariables
}

// NewTail returns a reset assembler with identity calibration.
func NewTail() *Tail {
	t := &Tail{
		Dsssd: NewDsssd(),
		Ic:    NewIonChamber(),
		Mcp:   NewMcp(),
		Sb:    NewSurfaceBarrier(),
		Nai:   NewNaI(),
		Ge:    NewGe(),
		Variables: TailVariables{
			Tdc0: NewChannelVariables(1),
			Xtdc: NewChannelVariables(1),
		},
	}
	t.Reset()
	return t
}

// Reset clears modules and detectors to their no-data state.
func (t *Tail) Reset() {
	t.Header = daq.Header{}
	t.Fpga.Reset()
	for i := range t.Adc {
		t.Adc[i].Reset()
	}
	t.Tdc.Reset()
	t.Dsssd.Reset()
	t.Ic.Reset()
	t.Mcp.Reset()
	t.Sb.Reset()
	t.Nai.Reset()
	t.Ge.Reset()
	t.Tof.Reset()
	t.Tcal0, t.Tcalx = NoData(), NoData()
}

// SetVariables loads all tail-side calibration from the variable store.
// Paths live under /Equipment/Tail.
func (t *Tail) SetVariables(src vars.Source) {
	t.Dsssd.SetVariables(src, "/Equipment/Tail/Dsssd")
	t.Ic.SetVariables(src, "/Equipment/Tail/IonChamber")
	t.Mcp.SetVariables(src, "/Equipment/Tail/Mcp")
	t.Sb.SetVariables(src, "/Equipment/Tail/SurfaceBarrier")
	t.Nai.SetVariables(src, "/Equipment/Tail/NaI")
	t.Ge.SetVariables(src, "/Equipment/Tail/Ge")
	t.Variables.Tdc0.Set(src, "/Equipment/Tail/variables/tdc0")
	t.Variables.Xtdc.Set(src, "/Equipment/Tail/variables/xtdc")
}

// Unpack decodes the event's banks and runs the read/calculate sequence
// over the focal-plane detectors, then the cross-detector flight times.
func (t *Tail) Unpack(ev *daq.Event) error {
	t.Reset()
	t.Header = ev.Header

	fpga, err := modules.UnpackFpga(ev, BankTailFpga)
	if err != nil {
		return err
	}
	t.Fpga = fpga

	if err := modules.UnpackAdc(ev, BankTailAdc0, &t.Adc[0]); err != nil {
		return err
	}
	if err := modules.UnpackAdc(ev, BankTailAdc1, &t.Adc[1]); err != nil {
		return err
	}
	if err := modules.UnpackTdc(ev, BankTailTdc, &t.Tdc); err != nil {
		return err
	}

	adcs := []*modules.Adc{&t.Adc[0], &t.Adc[1]}
	t.Dsssd.ReadData(adcs, &t.Tdc)
	t.Dsssd.Calculate()
	t.Ic.ReadData(adcs, &t.Tdc)
	t.Ic.Calculate()
	t.Mcp.ReadData(adcs, &t.Tdc)
	t.Mcp.Calculate()
	t.Sb.ReadData(adcs)
	t.Sb.Calculate()
	t.Nai.ReadData(adcs)
	t.Nai.Calculate()
	t.Ge.ReadData(adcs)
	t.Ge.Calculate()

	// Flight times need the per-detector times computed above.
	t.Tof.Calculate(t)

	t.Tcal0 = CalibrateTdc(tdcSample(&t.Tdc, &t.Variables.Tdc0, 0),
		t.Variables.Tdc0.Slope[0], t.Variables.Tdc0.Offset[0])
	t.Tcalx = CalibrateTdc(tdcSample(&t.Tdc, &t.Variables.Xtdc, 0),
		t.Variables.Xtdc.Slope[0], t.Variables.Xtdc.Offset[0])
	return nil
}
