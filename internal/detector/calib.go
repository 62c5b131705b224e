package detector

import (
	"math"

	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// NoData is the calibrated no-data sentinel.
func NoData() float64 {
	return math.NaN()
}

// IsData reports whether v carries a measurement.
func IsData(v float64) bool {
	return !math.IsNaN(v)
}

// ChannelVariables maps a detector's logical channels onto module
// channels and holds the per-channel calibration. Defaults are identity:
// map = logical index, slope 1, offset 0, pedestal 0, module 0.
//
// Variables are loaded once per run and read-only during an event.
type ChannelVariables struct {
	Module   []int // which ADC module feeds the channel (multi-module detectors)
	Channel  []int // logical -> physical channel map
	Slope    []float64
	Offset   []float64
	Pedestal []float64
}

// NewChannelVariables returns identity variables for n logical channels.
func NewChannelVariables(n int) ChannelVariables {
	v := ChannelVariables{
		Module:   make([]int, n),
		Channel:  make([]int, n),
		Slope:    make([]float64, n),
		Offset:   make([]float64, n),
		Pedestal: make([]float64, n),
	}
	v.Reset()
	return v
}

// Reset restores identity defaults.
func (v *ChannelVariables) Reset() {
	for i := range v.Channel {
		v.Module[i] = 0
		v.Channel[i] = i
		v.Slope[i] = 1
		v.Offset[i] = 0
		v.Pedestal[i] = 0
	}
}

// Set reads the channel schema below dir (dir + "/channel", "/module",
// "/slope", "/offset", "/pedestal"). Missing keys keep defaults.
func (v *ChannelVariables) Set(src vars.Source, dir string) {
	vars.FillInts(src, dir+"/channel", v.Channel)
	vars.FillInts(src, dir+"/module", v.Module)
	vars.FillDoubles(src, dir+"/slope", v.Slope)
	vars.FillDoubles(src, dir+"/offset", v.Offset)
	vars.FillDoubles(src, dir+"/pedestal", v.Pedestal)
}

// PositionVariables holds per-channel detector positions in cm.
type PositionVariables struct {
	X, Y, Z []float64
}

// NewPositionVariables returns zeroed positions for n channels.
func NewPositionVariables(n int) PositionVariables {
	return PositionVariables{
		X: make([]float64, n),
		Y: make([]float64, n),
		Z: make([]float64, n),
	}
}

// Set reads positions below dir (dir + "/x", "/y", "/z").
func (p *PositionVariables) Set(src vars.Source, dir string) {
	vars.FillDoubles(src, dir+"/x", p.X)
	vars.FillDoubles(src, dir+"/y", p.Y)
	vars.FillDoubles(src, dir+"/z", p.Z)
}

// Calibrate transforms one raw ADC sample into a calibrated value:
// slope*(raw - pedestal) + offset. The raw sentinel calibrates to NoData.
func Calibrate(raw int16, slope, pedestal, offset float64) float64 {
	if raw == modules.NoRawData {
		return NoData()
	}
	return slope*(float64(raw)-pedestal) + offset
}

// CalibrateTdc transforms one raw TDC leading-edge time. Pedestals do
// not apply to timing channels.
func CalibrateTdc(raw int32, slope, offset float64) float64 {
	if raw == modules.NoTdcData {
		return NoData()
	}
	return slope*float64(raw) + offset
}

// adcSample reads the raw sample feeding logical channel i, resolving
// the module and channel maps. Out-of-range maps read as no data.
func adcSample(adcs []*modules.Adc, v *ChannelVariables, i int) int16 {
	mod, ch := v.Module[i], v.Channel[i]
	if mod < 0 || mod >= len(adcs) || ch < 0 || ch >= modules.AdcChannels {
		return modules.NoRawData
	}
	return adcs[mod].Data[ch]
}

// tdcSample reads the raw leading-edge time feeding logical channel i.
func tdcSample(tdc *modules.Tdc, v *ChannelVariables, i int) int32 {
	ch := v.Channel[i]
	if ch < 0 || ch >= modules.TdcChannels {
		return modules.NoTdcData
	}
	return tdc.Leading[ch]
}

// sumValid adds the values that carry data. It returns NoData when none do.
func sumValid(values []float64) float64 {
	sum, any := 0.0, false
	for _, v := range values {
		if IsData(v) {
			sum += v
			any = true
		}
	}
	if !any {
		return NoData()
	}
	return sum
}

// maxValid returns the index and value of the largest data-carrying
// entry, or (-1, NoData) when none carries data.
func maxValid(values []float64) (int, float64) {
	best, bestVal := -1, NoData()
	for i, v := range values {
		// NaN comparisons are false, so sentinels never win.
		if v > bestVal || (best == -1 && IsData(v)) {
			best, bestVal = i, v
		}
	}
	return best, bestVal
}

// fillNoData sets every entry of values to the sentinel.
func fillNoData(values []float64) {
	for i := range values {
		values[i] = NoData()
	}
}
