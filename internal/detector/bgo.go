package detector

import (
	"sort"

	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// BgoChannels is the number of crystals in the gamma array.
const BgoChannels = 30

// BgoVariables is the calibration set for the gamma array.
type BgoVariables struct {
	Adc ChannelVariables
	Tdc ChannelVariables
	Pos PositionVariables
}

// Bgo is the gamma-ray scintillator array on the head side.
type Bgo struct {
	// Ecal holds calibrated energies, Tcal calibrated times, per crystal.
	Ecal [BgoChannels]float64
	Tcal [BgoChannels]float64
	// Esort is Ecal sorted high to low (non-data entries last).
	Esort [BgoChannels]float64
	// Sum is the sum of all valid energies.
	Sum float64
	// Hit0 is the crystal with the highest energy, -1 if none fired.
	Hit0 int
	// X0, Y0, Z0 are the position of the highest-energy hit; T0 its time.
	X0, Y0, Z0, T0 float64

	Variables BgoVariables

	eraw [BgoChannels]int16
	traw [BgoChannels]int32
}

// NewBgo returns a reset array with identity calibration.
func NewBgo() Bgo {
	b := Bgo{
		Variables: BgoVariables{
			Adc: NewChannelVariables(BgoChannels),
			Tdc: NewChannelVariables(BgoChannels),
			Pos: NewPositionVariables(BgoChannels),
		},
	}
	b.Reset()
	return b
}

// Reset sets all observables to no-data.
func (b *Bgo) Reset() {
	fillNoData(b.Ecal[:])
	fillNoData(b.Tcal[:])
	fillNoData(b.Esort[:])
	b.Sum = NoData()
	b.Hit0 = -1
	b.X0, b.Y0, b.Z0, b.T0 = NoData(), NoData(), NoData(), NoData()
	for i := range b.eraw {
		b.eraw[i] = modules.NoRawData
		b.traw[i] = modules.NoTdcData
	}
}

// SetVariables loads the calibration from the variable store.
func (b *Bgo) SetVariables(src vars.Source, dir string) {
	b.Variables.Adc.Set(src, dir+"/variables/adc")
	b.Variables.Tdc.Set(src, dir+"/variables/tdc")
	b.Variables.Pos.Set(src, dir+"/variables/position")
}

// ReadData copies raw samples from the mapped module channels.
func (b *Bgo) ReadData(adc *modules.Adc, tdc *modules.Tdc) {
	adcs := []*modules.Adc{adc}
	for i := 0; i < BgoChannels; i++ {
		b.eraw[i] = adcSample(adcs, &b.Variables.Adc, i)
		b.traw[i] = tdcSample(tdc, &b.Variables.Tdc, i)
	}
}

// Calculate calibrates every channel and computes the derived
// aggregates: the sorted energy list, the valid-energy sum, and the
// position and time of the highest-energy hit.
func (b *Bgo) Calculate() {
	for i := 0; i < BgoChannels; i++ {
		b.Ecal[i] = Calibrate(b.eraw[i], b.Variables.Adc.Slope[i], b.Variables.Adc.Pedestal[i], b.Variables.Adc.Offset[i])
		b.Tcal[i] = CalibrateTdc(b.traw[i], b.Variables.Tdc.Slope[i], b.Variables.Tdc.Offset[i])
	}

	copy(b.Esort[:], b.Ecal[:])
	sort.SliceStable(b.Esort[:], func(i, j int) bool {
		a, c := b.Esort[i], b.Esort[j]
		switch {
		case !IsData(a):
			return false
		case !IsData(c):
			return true
		default:
			return a > c
		}
	})

	b.Sum = sumValid(b.Ecal[:])

	hit, _ := maxValid(b.Ecal[:])
	b.Hit0 = hit
	if hit >= 0 {
		b.X0 = b.Variables.Pos.X[hit]
		b.Y0 = b.Variables.Pos.Y[hit]
		b.Z0 = b.Variables.Pos.Z[hit]
		b.T0 = b.Tcal[hit]
	}
}
