// Package audioregion implements the host-side audio region manager: a
// resizable, zero-copy raw float32 shared-memory buffer used to exchange
// one processing block's worth of audio with the child, and the
// StartProcessing/ProcessingDone round-trip that flips its ownership.
//
// The region is never a fifo.FIFO — it carries no header, no semaphores of
// its own, and no framing. Ownership of its contents flips by protocol, not
// by lock: inputs are host-owned until StartProcessing is sent, then
// child-owned until ProcessingDone comes back, then outputs are host-owned
// again. Callers that violate this (issue a second StartProcessing before
// the first ProcessingDone) get no error — the protocol does not defend
// against it, matching the "no lock protects it" contract of this region.
package audioregion
