package detector

import (
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// IonChamberAnodes is the anode count of the ionization chamber.
const IonChamberAnodes = 4

// IonChamberVariables is the calibration set for the ion chamber.
type IonChamberVariables struct {
	Adc ChannelVariables
	Tdc ChannelVariables
}

// IonChamber measures energy loss of heavy ions across its anodes.
type IonChamber struct {
	// Anode holds the calibrated anode energies.
	Anode [IonChamberAnodes]float64
	// Tcal is the calibrated time signal.
	Tcal float64
	// Sum is the sum of valid anode energies.
	Sum float64

	Variables IonChamberVariables

	eraw [IonChamberAnodes]int16
	traw int32
}

// NewIonChamber returns a reset detector with identity calibration.
func NewIonChamber() IonChamber {
	ic := IonChamber{
		Variables: IonChamberVariables{
			Adc: NewChannelVariables(IonChamberAnodes),
			Tdc: NewChannelVariables(1),
		},
	}
	ic.Reset()
	return ic
}

// Reset sets all observables to no-data.
func (ic *IonChamber) Reset() {
	fillNoData(ic.Anode[:])
	ic.Tcal = NoData()
	ic.Sum = NoData()
	for i := range ic.eraw {
		ic.eraw[i] = modules.NoRawData
	}
	ic.traw = modules.NoTdcData
}

// SetVariables loads the calibration from the variable store.
func (ic *IonChamber) SetVariables(src vars.Source, dir string) {
	ic.Variables.Adc.Set(src, dir+"/variables/adc")
	ic.Variables.Tdc.Set(src, dir+"/variables/tdc")
}

// ReadData copies raw samples from the mapped module channels.
func (ic *IonChamber) ReadData(adcs []*modules.Adc, tdc *modules.Tdc) {
	for i := 0; i < IonChamberAnodes; i++ {
		ic.eraw[i] = adcSample(adcs, &ic.Variables.Adc, i)
	}
	ic.traw = tdcSample(tdc, &ic.Variables.Tdc, 0)
}

// Calculate calibrates the anodes and sums the valid energies.
func (ic *IonChamber) Calculate() {
	for i := 0; i < IonChamberAnodes; i++ {
		ic.Anode[i] = Calibrate(ic.eraw[i], ic.Variables.Adc.Slope[i], ic.Variables.Adc.Pedestal[i], ic.Variables.Adc.Offset[i])
	}
	ic.Tcal = CalibrateTdc(ic.traw, ic.Variables.Tdc.Slope[0], ic.Variables.Tdc.Offset[0])
	ic.Sum = sumValid(ic.Anode[:])
}
