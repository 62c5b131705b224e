package detector

// HiTof holds the times of flight between the focal-plane detectors,
// all measured inside the tail TDC against the first MCP plane.
type HiTof struct {
	// Mcp is MCP0 -> MCP1.
	Mcp float64
	// McpDsssd is MCP0 -> silicon strip detector.
	McpDsssd float64
	// McpIc is MCP0 -> ion chamber.
	McpIc float64
}

// Reset sets all times to no-data.
func (t *HiTof) Reset() {
	t.Mcp = NoData()
	t.McpDsssd = NoData()
	t.McpIc = NoData()
}

// Calculate derives the flight times from the tail detectors. NaN
// inputs propagate, so a missing endpoint leaves that flight time at
// no-data.
func (t *HiTof) Calculate(tail *Tail) {
	t.Mcp = tail.Mcp.Tcal[1] - tail.Mcp.Tcal[0]
	t.McpDsssd = tail.Dsssd.Tcal - tail.Mcp.Tcal[0]
	t.McpIc = tail.Ic.Tcal - tail.Mcp.Tcal[0]
}
