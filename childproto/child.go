//go:build linux

package childproto

import (
	"sync"
	"sync/atomic"

	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/midi"
	"github.com/ardnew/remoteplugin/pkg"
	"github.com/ardnew/remoteplugin/proto"
	"github.com/ardnew/remoteplugin/shm"
)

// State is one of the child lifecycle's stations.
type State int

const (
	Attached State = iota
	Configured
	Idle
	Processing
	Closing
	Detached
)

func (s State) String() string {
	switch s {
	case Attached:
		return "Attached"
	case Configured:
		return "Configured"
	case Idle:
		return "Idle"
	case Processing:
		return "Processing"
	case Closing:
		return "Closing"
	case Detached:
		return "Detached"
	default:
		return "Unknown"
	}
}

// DSP is implemented by the plugin-specific embedding code. The transport
// invokes it opaquely; it never interprets the audio or MIDI payloads.
type DSP interface {
	UpdateSampleRate(sampleRate int32)
	UpdateBufferSize(framesPerBlock int32)
	Process(in, out []float32)
	ProcessMIDIEvent(ev midi.Event)
}

// SettingsHook is implemented by plugin-specific embedding code that wants
// to persist or restore its state. It is optional: a Child with no
// SettingsHook set answers every settings/preset message with a silent
// no-op, matching the original base class's unimplemented "default: break".
type SettingsHook interface {
	SaveSettingsToFile(path string) error
	SaveSettingsToString() (string, error)
	LoadSettingsFromFile(path string) error
	LoadSettingsFromString(settings string) error
	LoadPresetFromFile(path string) error
}

// Child is the child-side protocol endpoint.
type Child struct {
	endpoint     *proto.Endpoint
	dsp          DSP
	settingsHook SettingsHook

	mu             sync.Mutex
	state          State
	gotSampleRate  bool
	gotBufferSize  bool
	sampleRate     int32
	framesPerBlock int32
	inputs         int
	outputs        int

	region *shm.Segment

	running atomic.Bool

	uplink   *fifo.FIFO
	downlink *fifo.FIFO
}

// New wires a Child over the uplink (child→host) and downlink (host→child)
// FIFOs the host created; the keys for these arrive on the child process's
// command line. inputs/outputs are the plugin's fixed channel counts,
// needed to slice the audio region once the host announces it.
func New(uplink, downlink *fifo.FIFO, dsp DSP, inputs, outputs int) *Child {
	c := &Child{uplink: uplink, downlink: downlink, dsp: dsp, inputs: inputs, outputs: outputs, state: Attached}
	c.endpoint = proto.NewEndpoint(downlink, uplink, c.dispatch)
	return c
}

// SetSettingsHook installs the embedder's settings/preset handler. It may
// be called at any time before Run; a nil hook restores the default
// no-op behavior.
func (c *Child) SetSettingsHook(h SettingsHook) {
	c.mu.Lock()
	c.settingsHook = h
	c.mu.Unlock()
}

// State reports the child's current lifecycle state.
func (c *Child) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run sends the startup handshake queries, then pumps the downlink FIFO
// until dispatch signals termination. It returns nil when termination
// follows ClosePlugin, ErrGeneralFailure when it follows the host's
// GeneralFailure, and ErrInvalidState when it follows a message the child
// could not handle (it has then already sent GeneralFailure to the host).
// Run reports ErrAlreadyRunning if called again while a previous call is
// still pumping.
func (c *Child) Run() error {
	if !c.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer c.running.Store(false)

	if err := c.endpoint.Send(proto.New(proto.SampleRateInformation)); err != nil {
		return err
	}
	if err := c.endpoint.Send(proto.New(proto.BufferSizeInformation)); err != nil {
		return err
	}

	for {
		msg, keepRunning, err := c.endpoint.FetchAndDispatchOne()
		if err != nil {
			return err
		}
		if !keepRunning {
			switch msg.ID {
			case proto.ClosePlugin:
				return nil
			case proto.GeneralFailure:
				return pkg.ErrGeneralFailure
			default:
				return pkg.ErrInvalidState
			}
		}
	}
}

func (c *Child) dispatch(msg proto.Message) bool {
	switch msg.ID {
	case proto.SampleRateInformation:
		if len(msg.Args) == 0 {
			return true // our own query, echoed by nobody; ignore
		}
		sr := msg.Int(0)
		c.mu.Lock()
		c.sampleRate = sr
		c.gotSampleRate = true
		c.maybeConfigured()
		c.mu.Unlock()
		c.dsp.UpdateSampleRate(sr)
		return true

	case proto.BufferSizeInformation:
		if len(msg.Args) == 0 {
			return true
		}
		frames := msg.Int(0)
		c.mu.Lock()
		c.framesPerBlock = frames
		c.gotBufferSize = true
		c.maybeConfigured()
		c.mu.Unlock()
		c.dsp.UpdateBufferSize(frames)
		return true

	case proto.MidiEvent:
		ev := midi.Event{Type: msg.Int(0), A: msg.Int(1), B: msg.Int(2), C: msg.Int(3), Offset: msg.Int(4)}
		c.dsp.ProcessMIDIEvent(ev)
		return true

	case proto.StartProcessing:
		return c.handleStartProcessing()

	case proto.ChangeSharedMemoryKey:
		return c.handleChangeSharedMemoryKey(msg)

	case proto.SaveSettingsToFile:
		c.withSettingsHook(func(h SettingsHook) error { return h.SaveSettingsToFile(msg.String(0)) })
		return true

	case proto.SaveSettingsToString:
		c.withSettingsHook(func(h SettingsHook) error { _, err := h.SaveSettingsToString(); return err })
		return true

	case proto.LoadSettingsFromFile:
		c.withSettingsHook(func(h SettingsHook) error { return h.LoadSettingsFromFile(msg.String(0)) })
		return true

	case proto.LoadSettingsFromString:
		c.withSettingsHook(func(h SettingsHook) error { return h.LoadSettingsFromString(msg.String(0)) })
		return true

	case proto.LoadPresetFromFile:
		c.withSettingsHook(func(h SettingsHook) error { return h.LoadPresetFromFile(msg.String(0)) })
		return true

	case proto.ClosePlugin:
		c.mu.Lock()
		c.state = Closing
		c.mu.Unlock()
		return false

	case proto.GeneralFailure:
		c.mu.Lock()
		c.state = Closing
		c.mu.Unlock()
		return false

	default:
		pkg.LogWarn(pkg.ComponentChild, "dropping message with unhandled id", "id", msg.ID)
		return true
	}
}

// maybeConfigured transitions Attached→Configured once both handshake
// answers have arrived and announces readiness to the host. Callers must
// hold c.mu.
func (c *Child) maybeConfigured() {
	if c.state == Attached && c.gotSampleRate && c.gotBufferSize {
		c.state = Configured
		if err := c.endpoint.Send(proto.New(proto.InitDone)); err != nil {
			pkg.LogError(pkg.ComponentChild, "failed sending InitDone", "error", err)
		}
	}
}

// withSettingsHook invokes fn with the installed SettingsHook, if any,
// logging but not failing the connection on error: the original base
// class treats these messages as fire-and-forget, and an embedder's
// persistence failure is not a transport-level protocol error.
func (c *Child) withSettingsHook(fn func(SettingsHook) error) {
	c.mu.Lock()
	hook := c.settingsHook
	c.mu.Unlock()
	if hook == nil {
		return
	}
	if err := fn(hook); err != nil {
		pkg.LogError(pkg.ComponentChild, "settings hook failed", "error", err)
	}
}

func (c *Child) handleStartProcessing() bool {
	c.mu.Lock()
	if c.state != Idle && c.state != Configured {
		c.state = Closing
		c.mu.Unlock()
		pkg.LogError(pkg.ComponentChild, "StartProcessing received before Configured")
		_ = c.endpoint.Send(proto.New(proto.GeneralFailure))
		return false
	}
	c.state = Processing
	region := c.region
	inputs, outputs, frames := c.inputs, c.outputs, int(c.framesPerBlock)
	c.mu.Unlock()

	if region == nil {
		pkg.LogError(pkg.ComponentChild, "StartProcessing received with no audio region attached")
		_ = c.endpoint.Send(proto.New(proto.GeneralFailure))
		c.mu.Lock()
		c.state = Closing
		c.mu.Unlock()
		return false
	}

	all := region.Floats()
	in := all[:inputs*frames]
	out := all[inputs*frames : (inputs+outputs)*frames]
	c.dsp.Process(in, out)

	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()

	return c.endpoint.Send(proto.New(proto.ProcessingDone)) == nil
}

// handleChangeSharedMemoryKey attaches (or, for key==0, just detaches) the
// announced region, then echoes the same message back as an acknowledgement:
// audioregion.Manager.EnsureCapacity on the host side waits for this exact
// reply before destroying the region it just replaced, so the old segment
// is never torn down while this child might still reference it.
func (c *Child) handleChangeSharedMemoryKey(msg proto.Message) bool {
	key, size := msg.Int(0), msg.Int(1)

	c.mu.Lock()
	old := c.region
	c.mu.Unlock()

	if old != nil {
		if err := old.Detach(); err != nil {
			pkg.LogError(pkg.ComponentChild, "failed detaching old audio region", "error", err)
		}
	}

	if key == 0 {
		c.mu.Lock()
		c.region = nil
		c.mu.Unlock()
		return c.endpoint.Send(proto.New(proto.ChangeSharedMemoryKey).AddInt(0).AddInt(0)) == nil
	}

	seg, err := shm.Attach(int(key), int(size))
	if err != nil {
		pkg.LogError(pkg.ComponentChild, "failed attaching new audio region", "error", err)
		_ = c.endpoint.Send(proto.New(proto.GeneralFailure))
		return false
	}

	c.mu.Lock()
	c.region = seg
	c.mu.Unlock()
	return c.endpoint.Send(proto.New(proto.ChangeSharedMemoryKey).AddInt(key).AddInt(size)) == nil
}

// SetChannelCounts tells the host about a change in the plugin's input or
// output channel count, e.g. after the user changes a channel-count
// parameter on the embedded plugin. The host updates its own bookkeeping
// and resizes the audio region on its next EnsureCapacity call. It reports
// ErrNotRunning once the child has detached (Close has been called).
func (c *Child) SetChannelCounts(inputs, outputs int32) error {
	if c.State() == Detached {
		return pkg.ErrNotRunning
	}
	if err := c.endpoint.Send(proto.New(proto.ChangeInputCount).AddInt(inputs)); err != nil {
		return err
	}
	return c.endpoint.Send(proto.New(proto.ChangeOutputCount).AddInt(outputs))
}

// Close detaches the audio region (if any). The child never destroys the
// FIFOs or semaphores — it is never their master.
func (c *Child) Close() error {
	c.mu.Lock()
	region := c.region
	c.region = nil
	c.state = Detached
	c.mu.Unlock()
	if region == nil {
		return nil
	}
	return region.Detach()
}
