// Package midi defines the MIDI event type carried opaquely by the
// transport: the wire carries five integers (event type, three data bytes,
// sample offset within the block) and nothing else. Interpreting the event
// type and data bytes as note-on/off/control-change/etc. is the DSP
// callback's job, not the transport's.
package midi

// Event is one MIDI event scheduled within a processing block.
type Event struct {
	Type   int32 // e.g. 9 for note-on, 8 for note-off; plugin-defined beyond that
	A      int32 // first data byte (e.g. channel or note number, by convention)
	B      int32 // second data byte (e.g. note number or velocity)
	C      int32 // third data byte, rarely used
	Offset int32 // frame offset within the current block
}
