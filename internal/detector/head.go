package detector

import (
	"github.com/banshee-data/recoil.report/internal/daq"
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// Bank tags of the head (gamma) frontend.
const (
	BankHeadAdc  = "VADC"
	BankHeadTdc  = "VTDC"
	BankHeadFpga = "VTRG"
)

// HeadVariables holds the head-level timing channels: the frontend's
// own trigger in its TDC and the crossover channel that records the
// tail trigger for independent time-of-flight.
type HeadVariables struct {
	Tdc0 ChannelVariables // own trigger
	Xtdc ChannelVariables // crossover (tail trigger)
}

// Head assembles one gamma-side event: module decode, detector
// calibration, and the trigger times the coincidence builder needs.
type Head struct {
	Header daq.Header
	Fpga   modules.FpgaHeader

	Adc modules.Adc
	Tdc modules.Tdc

	Bgo Bgo

	// Tcal0 is the calibrated own-trigger time, Tcalx the calibrated
	// crossover (tail trigger) time, both from the head TDC.
	Tcal0, Tcalx float64

	Variables HeadVariables
}

// NewHead returns a reset assembler with identity calibration.
func NewHead() *Head {
	h := &Head{
		Bgo: NewBgo(),
		Variables: HeadVariables{
			Tdc0: NewChannelVariables(1),
			Xtdc: NewChannelVariables(1),
		},
	}
	h.Reset()
	return h
}

// Reset clears modules and detectors to their no-data state.
func (h *Head) Reset() {
	h.Header = daq.Header{}
	h.Fpga.Reset()
	h.Adc.Reset()
	h.Tdc.Reset()
	h.Bgo.Reset()
	h.Tcal0, h.Tcalx = NoData(), NoData()
}

// SetVariables loads all head-side calibration from the variable store.
// Paths live under /Equipment/Head.
func (h *Head) SetVariables(src vars.Source) {
	h.Bgo.SetVariables(src, "/Equipment/Head/Bgo")
	h.Variables.Tdc0.Set(src, "/Equipment/Head/variables/tdc0")
	h.Variables.Xtdc.Set(src, "/Equipment/Head/variables/xtdc")
}

// Unpack decodes the event's banks and runs the read/calculate sequence
// over the gamma detectors. An absent ADC or TDC bank leaves sentinels;
// a missing FPGA bank or malformed payload fails the event.
func (h *Head) Unpack(ev *daq.Event) error {
	h.Reset()
	h.Header = ev.Header

	fpga, err := modules.UnpackFpga(ev, BankHeadFpga)
	if err != nil {
		return err
	}
	h.Fpga = fpga

	if err := modules.UnpackAdc(ev, BankHeadAdc, &h.Adc); err != nil {
		return err
	}
	if err := modules.UnpackTdc(ev, BankHeadTdc, &h.Tdc); err != nil {
		return err
	}

	h.Bgo.ReadData(&h.Adc, &h.Tdc)
	h.Bgo.Calculate()

	h.Tcal0 = CalibrateTdc(tdcSample(&h.Tdc, &h.Variables.Tdc0, 0),
		h.Variables.Tdc0.Slope[0], h.Variables.Tdc0.Offset[0])
	h.Tcalx = CalibrateTdc(tdcSample(&h.Tdc, &h.Variables.Xtdc, 0),
		h.Variables.Xtdc.Slope[0], h.Variables.Xtdc.Offset[0])
	return nil
}
