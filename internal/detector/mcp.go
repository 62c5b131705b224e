package detector

import (
	"github.com/banshee-data/recoil.report/internal/modules"
	"github.com/banshee-data/recoil.report/internal/vars"
)

// McpAnodes is the anode count of the first micro-channel plate;
// McpDetectors the number of MCP timing planes.
const (
	McpAnodes    = 4
	McpDetectors = 2
)

// mcpHalfLength scales the anode charge centroid to a position in mm
// (half the side length of the sensitive area).
const mcpHalfLength = 25.0

// McpVariables is the calibration set for the MCP pair.
type McpVariables struct {
	Adc    ChannelVariables // anode charges
	TacAdc ChannelVariables // MCP0-MCP1 TAC signal
	Tdc    ChannelVariables // one timing channel per plane
}

// Mcp is the micro-channel plate pair that times and localises ions at
// the focal-plane entrance.
type Mcp struct {
	// Anode holds the calibrated anode charges of MCP0.
	Anode [McpAnodes]float64
	// Tcal holds the calibrated times of the two planes.
	Tcal [McpDetectors]float64
	// Esum is the sum of valid anode charges.
	Esum float64
	// Tac is the calibrated MCP0-MCP1 time-to-amplitude signal.
	Tac float64
	// X and Y are the charge-centroid position of the hit, in mm.
	X, Y float64

	Variables McpVariables

	eraw   [McpAnodes]int16
	tacraw int16
	traw   [McpDetectors]int32
}

// NewMcp returns a reset detector with identity calibration.
func NewMcp() Mcp {
	m := Mcp{
		Variables: McpVariables{
			Adc:    NewChannelVariables(McpAnodes),
			TacAdc: NewChannelVariables(1),
			Tdc:    NewChannelVariables(McpDetectors),
		},
	}
	m.Reset()
	return m
}

// Reset sets all observables to no-data.
func (m *Mcp) Reset() {
	fillNoData(m.Anode[:])
	fillNoData(m.Tcal[:])
	m.Esum = NoData()
	m.Tac = NoData()
	m.X, m.Y = NoData(), NoData()
	for i := range m.eraw {
		m.eraw[i] = modules.NoRawData
	}
	m.tacraw = modules.NoRawData
	for i := range m.traw {
		m.traw[i] = modules.NoTdcData
	}
}

// SetVariables loads the calibration from the variable store.
func (m *Mcp) SetVariables(src vars.Source, dir string) {
	m.Variables.Adc.Set(src, dir+"/variables/adc")
	m.Variables.TacAdc.Set(src, dir+"/variables/tac_adc")
	m.Variables.Tdc.Set(src, dir+"/variables/tdc")
}

// ReadData copies raw samples from the mapped module channels.
func (m *Mcp) ReadData(adcs []*modules.Adc, tdc *modules.Tdc) {
	for i := 0; i < McpAnodes; i++ {
		m.eraw[i] = adcSample(adcs, &m.Variables.Adc, i)
	}
	m.tacraw = adcSample(adcs, &m.Variables.TacAdc, 0)
	for i := 0; i < McpDetectors; i++ {
		m.traw[i] = tdcSample(tdc, &m.Variables.Tdc, i)
	}
}

// Calculate calibrates anodes, TAC and times, then derives the anode
// sum and the charge-centroid position. The centroid needs all four
// anodes; with any anode missing the position stays no-data.
func (m *Mcp) Calculate() {
	for i := 0; i < McpAnodes; i++ {
		m.Anode[i] = Calibrate(m.eraw[i], m.Variables.Adc.Slope[i], m.Variables.Adc.Pedestal[i], m.Variables.Adc.Offset[i])
	}
	m.Tac = Calibrate(m.tacraw, m.Variables.TacAdc.Slope[0], m.Variables.TacAdc.Pedestal[0], m.Variables.TacAdc.Offset[0])
	for i := 0; i < McpDetectors; i++ {
		m.Tcal[i] = CalibrateTdc(m.traw[i], m.Variables.Tdc.Slope[i], m.Variables.Tdc.Offset[i])
	}

	m.Esum = sumValid(m.Anode[:])

	a := m.Anode
	// NaN anodes or a zero total leave X/Y as no-data.
	total := a[0] + a[1] + a[2] + a[3]
	if IsData(total) && total != 0 {
		m.X = mcpHalfLength * ((a[1] + a[2]) - (a[0] + a[3])) / total
		m.Y = mcpHalfLength * ((a[0] + a[1]) - (a[2] + a[3])) / total
	}
}
