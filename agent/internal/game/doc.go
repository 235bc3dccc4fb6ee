// Package game holds the observed monster state produced by the overlay and a
// replay producer that feeds recorded observations into the push pipeline.
//
// Monster, Part and Ailment mirror what a memory reader observes on each
// tick, including display-only fields (name, crown, enrage flags) that are
// not synchronized.
//
// Replay reads a JSON-lines recording, one Tick per line, and calls the
// given Sink for every monster slot of every tick at a fixed interval.
package game
