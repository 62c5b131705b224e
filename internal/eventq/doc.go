// Package eventq implements the timestamp-ordered coincidence queue at
// the heart of the analyzer.
//
// Events from the two frontends arrive in arbitrary interleaving and
// mild disorder. The queue keeps them sorted by trigger time, emits
// each event exactly once as a single, and reports every cross-source
// pair whose trigger times fall within the coincidence window. An event
// leaves the buffer only once the buffered span proves no future
// arrival can still match it.
package eventq
