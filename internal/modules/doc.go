// Package modules decodes the per-module banks inside a raw event into
// typed channel data: peak-sensing ADCs, a multi-hit TDC, and the FPGA
// header that carries the authoritative trigger timestamp.
//
// Channels with no hardware data hold the raw no-data sentinel; the
// detector layer promotes that to the calibrated sentinel.
package modules
