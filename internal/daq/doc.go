// Package daq owns the wire layer of the analyzer data model.
//
// Responsibilities: the 16-byte event header codec, the self-describing
// bank container inside each event payload, stream reading from files or
// UDP, and PCAP replay. This layer produces raw events consumed by the
// module decoders and the coincidence queue.
//
// Dependency rule: daq has no inward dependencies on higher layers.
package daq
