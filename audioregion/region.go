//go:build linux

package audioregion

import (
	"context"

	"github.com/ardnew/remoteplugin/pkg"
	"github.com/ardnew/remoteplugin/proto"
	"github.com/ardnew/remoteplugin/shm"
)

// Manager owns the host side of the audio region: it grows the region on
// demand, announces the new key to the child, and shuttles one block's
// worth of samples in and out per StartProcessing/ProcessingDone round trip.
type Manager struct {
	endpoint *proto.Endpoint

	seg     *shm.Segment
	inputs  int
	outputs int
	frames  int
}

// NewManager builds a Manager that will drive processing over endpoint.
// The region itself is allocated lazily by the first EnsureCapacity call.
func NewManager(endpoint *proto.Endpoint) *Manager {
	return &Manager{endpoint: endpoint}
}

// requiredFloats is the float32 length of a region sized for the given
// channel counts and block length: input half followed by output half.
func requiredFloats(inputs, outputs, frames int) int {
	return (inputs + outputs) * frames
}

// EnsureCapacity replaces the region if it is smaller than what (inputs,
// outputs, frames) requires, or if it was allocated for a different
// (inputs, outputs, frames) layout; the replacement is sized exactly for
// the new layout, so it can be smaller than the old one. On replacement a
// new region is allocated under a fresh key, the child is told via
// ChangeSharedMemoryKey, and EnsureCapacity
// blocks on the child's acknowledgement (the child re-attaches synchronously
// from within its own dispatch of ChangeSharedMemoryKey and echoes the same
// message back) before the previous region is detached and destroyed —
// never before, so the child is never left referencing a destroyed segment.
func (m *Manager) EnsureCapacity(inputs, outputs, frames int) error {
	need := requiredFloats(inputs, outputs, frames)
	have := 0
	if m.seg != nil {
		have = m.seg.Size() / 4
	}
	if have >= need && m.inputs == inputs && m.outputs == outputs && m.frames == frames {
		return nil
	}

	newSeg, err := shm.Create(need * 4)
	if err != nil {
		return err
	}

	oldSeg := m.seg
	m.seg = newSeg
	m.inputs, m.outputs, m.frames = inputs, outputs, frames

	msg := proto.New(proto.ChangeSharedMemoryKey).AddInt(int32(newSeg.Key())).AddInt(int32(newSeg.Size()))
	if err := m.endpoint.Send(msg); err != nil {
		return err
	}

	reply, err := m.endpoint.WaitForReply(proto.ChangeSharedMemoryKey, false)
	if err != nil {
		return err
	}
	if reply.ID == proto.GeneralFailure {
		return pkg.ErrGeneralFailure
	}

	if oldSeg != nil {
		if err := oldSeg.Detach(); err != nil {
			return err
		}
		if err := oldSeg.Destroy(); err != nil {
			return err
		}
	}

	pkg.LogInfo(pkg.ComponentAudio, "audio region resized",
		"inputs", inputs, "outputs", outputs, "frames", frames, "key", newSeg.Key())
	return nil
}

// inputFloats and outputFloats slice the region into its host-writes and
// child-writes halves.
func (m *Manager) inputFloats() []float32 {
	all := m.seg.Floats()
	return all[:m.inputs*m.frames]
}

func (m *Manager) outputFloats() []float32 {
	all := m.seg.Floats()
	return all[m.inputs*m.frames : (m.inputs+m.outputs)*m.frames]
}

// Process copies inBlock into the region's input half and sends
// StartProcessing. If wait is true, it then blocks on WaitForProcessing and
// copies the result into outBlock before returning; otherwise it returns
// immediately and the caller must call WaitForProcessing itself once it is
// ready to block.
func (m *Manager) Process(inBlock, outBlock []float32, wait bool) error {
	if m.seg == nil {
		return pkg.ErrNotConfigured
	}
	copy(m.inputFloats(), inBlock)

	if err := m.endpoint.Send(proto.New(proto.StartProcessing)); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	return m.WaitForProcessing(outBlock)
}

// WaitForProcessing blocks for the child's ProcessingDone reply, then
// copies the region's output half into outBlock.
func (m *Manager) WaitForProcessing(outBlock []float32) error {
	if m.seg == nil {
		return pkg.ErrNotConfigured
	}
	reply, err := m.endpoint.WaitForReply(proto.ProcessingDone, false)
	if err != nil {
		return err
	}
	if reply.ID == proto.GeneralFailure {
		return pkg.ErrGeneralFailure
	}
	copy(outBlock, m.outputFloats())
	return nil
}

// WaitForProcessingContext behaves like WaitForProcessing but also bounds
// the wait by ctx, for a host that needs to honor a real-time processing
// deadline rather than block indefinitely for a stalled or deadlocked child.
func (m *Manager) WaitForProcessingContext(ctx context.Context, outBlock []float32) error {
	if m.seg == nil {
		return pkg.ErrNotConfigured
	}
	reply, err := m.endpoint.WaitForReplyContext(ctx, proto.ProcessingDone, false)
	if err != nil {
		return err
	}
	if reply.ID == proto.GeneralFailure {
		return pkg.ErrGeneralFailure
	}
	copy(outBlock, m.outputFloats())
	return nil
}

// Close detaches and, since the host created it, destroys the current
// region. Safe to call with no region allocated.
func (m *Manager) Close() error {
	if m.seg == nil {
		return nil
	}
	if err := m.seg.Detach(); err != nil {
		return err
	}
	return m.seg.Destroy()
}
