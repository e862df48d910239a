//go:build linux

package hostproto

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/remoteplugin/audioregion"
	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/midi"
	"github.com/ardnew/remoteplugin/pkg"
	"github.com/ardnew/remoteplugin/proto"
)

// Host is the host-side protocol endpoint: it owns the uplink/downlink
// FIFOs, the audio region, and the negotiated stream parameters, and
// answers the child's queries and notifications.
type Host struct {
	// SessionID tags every log line this host/child pair emits, so that
	// several overlapping host↔child pairs driven by one DAW process can be
	// told apart in a shared log stream. It never touches the wire protocol.
	SessionID string

	endpoint *proto.Endpoint
	region   *audioregion.Manager

	mu             sync.RWMutex
	sampleRate     int32
	framesPerBlock int32
	inputs         int32
	outputs        int32

	failed  atomic.Bool
	ready   atomic.Bool
	running atomic.Bool
	closed  atomic.Bool
	uplink  *fifo.FIFO
	downlnk *fifo.FIFO
}

// New wires a Host over an already-created uplink (child→host) and
// downlink (host→child) FIFO pair. sampleRate and framesPerBlock are the
// values pushed to the child in answer to its startup queries. busyInterval
// overrides how often WaitForReply(busy=true) services BusyPoll; zero
// selects proto.DefaultBusyInterval.
func New(uplink, downlink *fifo.FIFO, sampleRate, framesPerBlock int32, busyInterval time.Duration) *Host {
	h := &Host{
		SessionID:      uuid.NewString(),
		uplink:         uplink,
		downlnk:        downlink,
		sampleRate:     sampleRate,
		framesPerBlock: framesPerBlock,
	}
	h.endpoint = proto.NewEndpoint(uplink, downlink, h.dispatch)
	h.endpoint.BusyInterval = busyInterval
	h.region = audioregion.NewManager(h.endpoint)
	return h
}

// Failed reports whether a GeneralFailure has been observed from the child.
func (h *Host) Failed() bool { return h.failed.Load() }

// Ready reports whether the child has sent InitDone.
func (h *Host) Ready() bool { return h.ready.Load() }

// Run pumps the uplink FIFO, dispatching every message until the child
// sends GeneralFailure or the caller's own teardown closes the FIFO out
// from under it. Intended to run in its own goroutine as the control-thread
// loop described for the host side. Run reports ErrAlreadyRunning if called
// again while a previous call is still pumping.
func (h *Host) Run() error {
	if !h.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer h.running.Store(false)

	for {
		_, keepRunning, err := h.endpoint.FetchAndDispatchOne()
		if err != nil {
			return err
		}
		if !keepRunning {
			return nil
		}
	}
}

// dispatch implements the host-side message handling contract: it answers
// the child's zero-arg SampleRateInformation/BufferSizeInformation queries,
// tracks InitDone/GeneralFailure, and records channel-count changes the
// child reports. Any other id is logged and dropped — a protocol
// violation, not a fatal condition.
func (h *Host) dispatch(msg proto.Message) bool {
	switch msg.ID {
	case proto.GeneralFailure:
		h.failed.Store(true)
		pkg.LogError(pkg.ComponentHost, "child reported general failure", "session", h.SessionID)
		return false

	case proto.InitDone:
		h.ready.Store(true)
		return true

	case proto.ProcessingDone:
		// Normally consumed directly by Endpoint.WaitForReply; seeing one
		// here means it arrived outside a pending StartProcessing and is a
		// no-op.
		return true

	case proto.SampleRateInformation:
		if len(msg.Args) == 0 {
			h.mu.RLock()
			sr := h.sampleRate
			h.mu.RUnlock()
			if err := h.endpoint.Send(proto.New(proto.SampleRateInformation).AddInt(sr)); err != nil {
				pkg.LogError(pkg.ComponentHost, "failed answering sample-rate query", "error", err)
			}
		}
		return true

	case proto.BufferSizeInformation:
		if len(msg.Args) == 0 {
			h.mu.RLock()
			frames := h.framesPerBlock
			h.mu.RUnlock()
			if err := h.endpoint.Send(proto.New(proto.BufferSizeInformation).AddInt(frames)); err != nil {
				pkg.LogError(pkg.ComponentHost, "failed answering buffer-size query", "error", err)
			}
		}
		return true

	case proto.ChangeInputCount:
		h.mu.Lock()
		h.inputs = msg.Int(0)
		h.mu.Unlock()
		return true

	case proto.ChangeOutputCount:
		h.mu.Lock()
		h.outputs = msg.Int(0)
		h.mu.Unlock()
		return true

	default:
		pkg.LogWarn(pkg.ComponentHost, "dropping message with unhandled id", "id", msg.ID)
		return true
	}
}

// UpdateSampleRate pushes a new sample rate to the child.
func (h *Host) UpdateSampleRate(sr int32) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	h.mu.Lock()
	h.sampleRate = sr
	h.mu.Unlock()
	return h.endpoint.Send(proto.New(proto.SampleRateInformation).AddInt(sr))
}

// UpdateBufferSize pushes a new frames-per-block to the child.
func (h *Host) UpdateBufferSize(frames int32) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	h.mu.Lock()
	h.framesPerBlock = frames
	h.mu.Unlock()
	return h.endpoint.Send(proto.New(proto.BufferSizeInformation).AddInt(frames))
}

// ShowUI and HideUI tell the child to show or hide its editor window.
func (h *Host) ShowUI() error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.endpoint.Send(proto.New(proto.ShowUI))
}

func (h *Host) HideUI() error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.endpoint.Send(proto.New(proto.HideUI))
}

// ProcessMIDIEvent delivers one scheduled MIDI event to the child.
func (h *Host) ProcessMIDIEvent(ev midi.Event) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	msg := proto.New(proto.MidiEvent).AddInt(ev.Type).AddInt(ev.A).AddInt(ev.B).AddInt(ev.C).AddInt(ev.Offset)
	return h.endpoint.Send(msg)
}

// EnsureCapacity grows the audio region for the given channel counts and
// block length, if needed, announcing the new key to the child.
func (h *Host) EnsureCapacity(inputs, outputs, frames int) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.region.EnsureCapacity(inputs, outputs, frames)
}

// Process drives one processing block through the audio region.
func (h *Host) Process(in, out []float32, wait bool) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.region.Process(in, out, wait)
}

// WaitForProcessing blocks for the outstanding StartProcessing's reply.
func (h *Host) WaitForProcessing(out []float32) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.region.WaitForProcessing(out)
}

// WaitForProcessingContext behaves like WaitForProcessing but also bounds
// the wait by ctx, returning ErrCancelled or ErrTimeout rather than
// blocking past a caller-imposed real-time deadline.
func (h *Host) WaitForProcessingContext(ctx context.Context, out []float32) error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.region.WaitForProcessingContext(ctx, out)
}

// ClosePlugin asks the child to shut down cleanly.
func (h *Host) ClosePlugin() error {
	if h.closed.Load() {
		return pkg.ErrNotRunning
	}
	return h.endpoint.Send(proto.New(proto.ClosePlugin))
}

// Close tears down the audio region and both FIFOs. The host created all
// three, so it is responsible for destroying them; a failure in one
// teardown step must not prevent the others from running, so every error
// is collected rather than returning only the first. Close is idempotent:
// a second call reports ErrNotRunning instead of re-destroying the FIFOs.
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return pkg.ErrNotRunning
	}
	var result *multierror.Error
	if err := h.region.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := h.uplink.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := h.downlnk.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
