// Package fifo implements the bounded shared-memory byte FIFO that carries
// control/metadata traffic between the host and its plugin child: open and
// close, sample-rate and buffer-size negotiation, MIDI events, and
// processing lifecycle notifications. It does not carry audio; the audio
// region is a separate raw shared-memory buffer (see package audioregion).
//
// A [FIFO] is single-producer, single-consumer in the sense that one
// process writes and the other reads a given direction, but either process
// may touch it from more than one goroutine (an audio thread and a control
// thread) — all header access is serialized by
// a pair of process-shared semaphores living in the FIFO's shared segment:
// one ([FIFO.lock]/[FIFO.unlock]) guarding start/end/data, the other
// counting unread messages for [FIFO.WaitForMessage].
//
// The wait-and-retry backoff on full/empty conditions is deliberate rather
// than condition-variable-based: this FIFO only ever carries small control
// messages, so occasional short sleeps are an acceptable cost for keeping
// the header to two semaphores.
package fifo
