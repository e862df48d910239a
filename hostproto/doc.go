// Package hostproto implements the host side of the plugin transport: the
// dispatcher that answers the child's handshake queries and failure/done
// notifications, the outbound operations (process, show/hide UI, sample
// rate push, MIDI delivery) that drive a child plugin, and the supervisor
// that spawns the child process and wires its two FIFO keys onto its
// command line.
package hostproto
