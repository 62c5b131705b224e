package detector

import (
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// Detector counts for the auxiliary tail detectors.
const (
	SurfaceBarrierChannels = 2
	NaIChannels            = 2
)

// SurfaceBarrier is the pair of silicon surface-barrier monitors.
type SurfaceBarrier struct {
	Ecal [SurfaceBarrierChannels]float64

	Variables struct {
		Adc ChannelVariables
	}

	eraw [SurfaceBarrierChannels]int16
}

// NewSurfaceBarrier returns a reset detector with identity calibration.
func NewSurfaceBarrier() SurfaceBarrier {
	sb := SurfaceBarrier{}
	sb.Variables.Adc = NewChannelVariables(SurfaceBarrierChannels)
	sb.Reset()
	return sb
}

// Reset sets all observables to no-data.
func (sb *SurfaceBarrier) Reset() {
	fillNoData(sb.Ecal[:])
	for i := range sb.eraw {
		sb.eraw[i] = modules.NoRawData
	}
}

// SetVariables loads the calibration from the variable store.
func (sb *SurfaceBarrier) SetVariables(src vars.Source, dir string) {
	sb.Variables.Adc.Set(src, dir+"/variables/adc")
}

// ReadData copies raw samples from the mapped module channels.
func (sb *SurfaceBarrier) ReadData(adcs []*modules.Adc) {
	for i := 0; i < SurfaceBarrierChannels; i++ {
		sb.eraw[i] = adcSample(adcs, &sb.Variables.Adc, i)
	}
}

// Calculate calibrates both detectors.
func (sb *SurfaceBarrier) Calculate() {
	for i := 0; i < SurfaceBarrierChannels; i++ {
		sb.Ecal[i] = Calibrate(sb.eraw[i], sb.Variables.Adc.Slope[i], sb.Variables.Adc.Pedestal[i], sb.Variables.Adc.Offset[i])
	}
}

// NaI is the pair of sodium-iodide scintillators.
type NaI struct {
	Ecal [NaIChannels]float64

	Variables struct {
		Adc ChannelVariables
	}

	eraw [NaIChannels]int16
}

// NewNaI returns a reset detector with identity calibration.
func NewNaI() NaI {
	n := NaI{}
	n.Variables.Adc = NewChannelVariables(NaIChannels)
	n.Reset()
	return n
}

// Reset sets all observables to no-data.
func (n *NaI) Reset() {
	fillNoData(n.Ecal[:])
	for i := range n.eraw {
		n.eraw[i] = modules.NoRawData
	}
}

// SetVariables loads the calibration from the variable store.
func (n *NaI) SetVariables(src vars.Source, dir string) {
	n.Variables.Adc.Set(src, dir+"/variables/adc")
}

// ReadData copies raw samples from the mapped module channels.
func (n *NaI) ReadData(adcs []*modules.Adc) {
	for i := 0; i < NaIChannels; i++ {
		n.eraw[i] = adcSample(adcs, &n.Variables.Adc, i)
	}
}

// Calculate calibrates both detectors.
func (n *NaI) Calculate() {
	for i := 0; i < NaIChannels; i++ {
		n.Ecal[i] = Calibrate(n.eraw[i], n.Variables.Adc.Slope[i], n.Variables.Adc.Pedestal[i], n.Variables.Adc.Offset[i])
	}
}

// Ge is the single germanium detector.
type Ge struct {
	Ecal float64

	Variables struct {
		Adc ChannelVariables
	}

	eraw int16
}

// NewGe returns a reset detector with identity calibration.
func NewGe() Ge {
	g := Ge{}
	g.Variables.Adc = NewChannelVariables(1)
	g.Reset()
	return g
}

// Reset sets the observable to no-data.
func (g *Ge) Reset() {
	g.Ecal = NoData()
	g.eraw = modules.NoRawData
}

// SetVariables loads the calibration from the variable store.
func (g *Ge) SetVariables(src vars.Source, dir string) {
	g.Variables.Adc.Set(src, dir+"/variables/adc")
}

// ReadData copies the raw sample from the mapped module channel.
func (g *Ge) ReadData(adcs []*modules.Adc) {
	g.eraw = adcSample(adcs, &g.Variables.Adc, 0)
}

// Calculate calibrates the energy, pedestal-subtracted.
func (g *Ge) Calculate() {
	g.Ecal = Calibrate(g.eraw, g.Variables.Adc.Slope[0], g.Variables.Adc.Pedestal[0], g.Variables.Adc.Offset[0])
}
