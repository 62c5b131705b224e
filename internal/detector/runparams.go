package detector

import (
	"github.com/banshee-data/recoil.report/internal/vars"
)

// Frontend indices into the run-parameter arrays.
const (
	FrontendHead = 0
	FrontendTail = 1
	NumFrontends = 2
)

// RunParameters tracks the per-frontend run and trigger boundary times,
// in seconds of each frontend's timestamp clock. They are read from the
// variable store by ReadData (at run start); no end-of-run record is
// read at run stop. They serve only the downstream runtime/livetime
// accounting.
type RunParameters struct {
	RunStart     [NumFrontends]float64
	RunStop      [NumFrontends]float64
	TriggerStart [NumFrontends]float64
	TriggerStop  [NumFrontends]float64
}

// NewRunParameters returns a reset tracker.
func NewRunParameters() *RunParameters {
	rp := &RunParameters{}
	rp.Reset()
	return rp
}

// Reset sets all boundary times to no-data.
func (rp *RunParameters) Reset() {
	fillNoData(rp.RunStart[:])
	fillNoData(rp.RunStop[:])
	fillNoData(rp.TriggerStart[:])
	fillNoData(rp.TriggerStop[:])
}

// ReadData fills the boundary times from the store. Each key is a
// two-element array indexed by frontend. Missing keys keep no-data.
func (rp *RunParameters) ReadData(src vars.Source) {
	vars.FillDoubles(src, "/Experiment/RunParameters/run_start", rp.RunStart[:])
	vars.FillDoubles(src, "/Experiment/RunParameters/run_stop", rp.RunStop[:])
	vars.FillDoubles(src, "/Experiment/RunParameters/trigger_start", rp.TriggerStart[:])
	vars.FillDoubles(src, "/Experiment/RunParameters/trigger_stop", rp.TriggerStop[:])
}

// Runtime returns run_stop - run_start for the given frontend, NoData
// when either boundary is missing.
func (rp *RunParameters) Runtime(frontend int) float64 {
	if frontend < 0 || frontend >= NumFrontends {
		return NoData()
	}
	return rp.RunStop[frontend] - rp.RunStart[frontend]
}

// Livetime returns trigger_stop - trigger_start for the given frontend.
func (rp *RunParameters) Livetime(frontend int) float64 {
	if frontend < 0 || frontend >= NumFrontends {
		return NoData()
	}
	return rp.TriggerStop[frontend] - rp.TriggerStart[frontend]
}
