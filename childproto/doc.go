// Package childproto implements the child side of the plugin transport: the
// dispatcher that answers StartProcessing by invoking the embedding
// plugin's DSP hooks, the startup handshake (querying the host for sample
// rate and buffer size), and the Attached→Configured→Idle↔Processing→
// Closing→Detached lifecycle state machine.
package childproto
