package detector

import (
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// DsssdChannels is the strip count of the silicon strip detector:
// strips 0-15 face the beam ("front"), 16-31 sit behind ("back").
const DsssdChannels = 32

// DsssdVariables is the calibration set for the strip detector.
type DsssdVariables struct {
	Adc ChannelVariables // 32 energy channels, spread over the tail ADC pair
	Tdc ChannelVariables // single timing channel
}

// Dsssd is the double-sided silicon strip detector at the focal plane.
type Dsssd struct {
	// Ecal holds calibrated strip energies.
	Ecal [DsssdChannels]float64
	// EFront and EBack are the highest energies in the front and back
	// strip groups; HitFront and HitBack their strip indices (-1 if none).
	EFront, EBack     float64
	HitFront, HitBack int
	// Tcal is the calibrated time signal.
	Tcal float64

	Variables DsssdVariables

	eraw [DsssdChannels]int16
	traw int32
}

// NewDsssd returns a reset detector with identity calibration.
func NewDsssd() Dsssd {
	d := Dsssd{
		Variables: DsssdVariables{
			Adc: NewChannelVariables(DsssdChannels),
			Tdc: NewChannelVariables(1),
		},
	}
	d.Reset()
	return d
}

// Reset sets all observables to no-data.
func (d *Dsssd) Reset() {
	fillNoData(d.Ecal[:])
	d.EFront, d.EBack = NoData(), NoData()
	d.HitFront, d.HitBack = -1, -1
	d.Tcal = NoData()
	for i := range d.eraw {
		d.eraw[i] = modules.NoRawData
	}
	d.traw = modules.NoTdcData
}

// SetVariables loads the calibration from the variable store.
func (d *Dsssd) SetVariables(src vars.Source, dir string) {
	d.Variables.Adc.Set(src, dir+"/variables/adc")
	d.Variables.Tdc.Set(src, dir+"/variables/tdc")
}

// ReadData copies raw samples from the mapped module channels.
func (d *Dsssd) ReadData(adcs []*modules.Adc, tdc *modules.Tdc) {
	for i := 0; i < DsssdChannels; i++ {
		d.eraw[i] = adcSample(adcs, &d.Variables.Adc, i)
	}
	d.traw = tdcSample(tdc, &d.Variables.Tdc, 0)
}

// Calculate calibrates the strips and finds the highest front and back
// hits.
func (d *Dsssd) Calculate() {
	for i := 0; i < DsssdChannels; i++ {
		d.Ecal[i] = Calibrate(d.eraw[i], d.Variables.Adc.Slope[i], d.Variables.Adc.Pedestal[i], d.Variables.Adc.Offset[i])
	}
	d.Tcal = CalibrateTdc(d.traw, d.Variables.Tdc.Slope[0], d.Variables.Tdc.Offset[0])

	d.HitFront, d.EFront = maxValid(d.Ecal[:DsssdChannels/2])
	hitBack, eBack := maxValid(d.Ecal[DsssdChannels/2:])
	d.EBack = eBack
	if hitBack >= 0 {
		hitBack += DsssdChannels / 2
	}
	d.HitBack = hitBack
}
