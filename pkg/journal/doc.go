// Package journal records render cycles in a bbolt database and replays
// them.
//
// Each record holds the cycle's tree and patch batch in the wire format of
// package protocol, with event handlers dropped. Records are keyed by a
// journal sequence that keeps growing when several program runs share one
// file; a cycle number of 0 marks the start of a run.
//
// Replay applies every recorded batch to an in-memory DOM and checks the
// result against the HTML of the recorded tree, so a journal doubles as a
// regression corpus for the differ and the applier.
package journal
