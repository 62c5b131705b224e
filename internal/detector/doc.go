// Package detector turns decoded module data into calibrated physics
// observables: per-detector calibration, derived aggregates, the Head
// and Tail event assemblers, the coincidence record, scalers, and run
// parameters.
//
// No-data semantics: a channel that carried no hardware data calibrates
// to NaN (NoData), NaN propagates through arithmetic, comparisons
// against NaN are false so sentinels never win a max search, and sums
// skip non-data inputs (a sum with no valid input is itself NoData).
package detector
