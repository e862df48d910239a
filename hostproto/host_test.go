//go:build linux

package hostproto

import (
	"errors"
	"testing"
	"time"

	"github.com/ardnew/remoteplugin/audioregion"
	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/midi"
	"github.com/ardnew/remoteplugin/pkg"
	"github.com/ardnew/remoteplugin/proto"
)

func fifoPair(t *testing.T) (master, peer *fifo.FIFO) {
	t.Helper()
	m, err := fifo.NewMaster(fifo.DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	p, err := fifo.Open(m.Key(), fifo.DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return m, p
}

// newTestHost builds a Host whose FIFOs are backed by real shared memory,
// plus a raw proto.Endpoint standing in for the child side so tests can
// script specific child behavior without a real subprocess.
func newTestHost(t *testing.T, sampleRate, framesPerBlock int32) (*Host, *proto.Endpoint) {
	t.Helper()
	uplink, uplinkPeer := fifoPair(t)
	downlink, downlinkPeer := fifoPair(t)

	host := &Host{uplink: uplink, downlnk: downlink, sampleRate: sampleRate, framesPerBlock: framesPerBlock}
	host.endpoint = proto.NewEndpoint(uplink, downlink, host.dispatch)
	host.region = audioregion.NewManager(host.endpoint)

	childEndpoint := proto.NewEndpoint(downlinkPeer, uplinkPeer, func(proto.Message) bool { return true })
	return host, childEndpoint
}

func TestHandshakeAnswersBufferSizeQuery(t *testing.T) {
	host, child := newTestHost(t, 44100, 256)
	go host.Run()

	if err := child.Send(proto.New(proto.BufferSizeInformation)); err != nil {
		t.Fatalf("Send query: %v", err)
	}
	reply, err := child.WaitForReply(proto.BufferSizeInformation, false)
	if err != nil {
		t.Fatalf("WaitForReply: %v", err)
	}
	if got := reply.Int(0); got != 256 {
		t.Errorf("buffer size reply = %d, want 256", got)
	}
}

func TestHandshakeAnswersSampleRateQuery(t *testing.T) {
	host, child := newTestHost(t, 48000, 512)
	go host.Run()

	if err := child.Send(proto.New(proto.SampleRateInformation)); err != nil {
		t.Fatalf("Send query: %v", err)
	}
	reply, err := child.WaitForReply(proto.SampleRateInformation, false)
	if err != nil {
		t.Fatalf("WaitForReply: %v", err)
	}
	if got := reply.Int(0); got != 48000 {
		t.Errorf("sample rate reply = %d, want 48000", got)
	}
}

func TestMIDIDeliveryCarriesExactValues(t *testing.T) {
	host, child := newTestHost(t, 44100, 256)

	if err := host.ProcessMIDIEvent(midi.Event{Type: 9, A: 0, B: 60, C: 100, Offset: 0}); err != nil {
		t.Fatalf("ProcessMIDIEvent: %v", err)
	}
	msg, err := child.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.ID != proto.MidiEvent {
		t.Fatalf("ID = %v, want MidiEvent", msg.ID)
	}
	want := []int32{9, 0, 60, 100, 0}
	for i, w := range want {
		if got := msg.Int(i); got != w {
			t.Errorf("arg[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestGracefulShutdownObservesClosePlugin(t *testing.T) {
	host, child := newTestHost(t, 44100, 256)

	if err := host.ClosePlugin(); err != nil {
		t.Fatalf("ClosePlugin: %v", err)
	}
	msg, err := child.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.ID != proto.ClosePlugin {
		t.Fatalf("ID = %v, want ClosePlugin", msg.ID)
	}
}

func TestGeneralFailureStopsRunLoop(t *testing.T) {
	host, child := newTestHost(t, 44100, 256)

	done := make(chan error, 1)
	go func() { done <- host.Run() }()

	if err := child.Send(proto.New(proto.GeneralFailure)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after GeneralFailure")
	}
	if !host.Failed() {
		t.Error("Failed() should be true after GeneralFailure")
	}
}

func TestRunTwiceReportsAlreadyRunning(t *testing.T) {
	host, child := newTestHost(t, 44100, 256)

	done := make(chan struct{})
	go func() {
		_ = host.Run()
		close(done)
	}()
	t.Cleanup(func() {
		_ = child.Send(proto.New(proto.GeneralFailure))
		<-done
	})

	// Give the first Run a moment to claim the running flag before the
	// second call races it.
	time.Sleep(10 * time.Millisecond)

	if err := host.Run(); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Fatalf("second Run err = %v, want ErrAlreadyRunning", err)
	}
}

func TestCloseTwiceReportsNotRunning(t *testing.T) {
	host, _ := newTestHost(t, 44100, 256)

	if err := host.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := host.Close(); !errors.Is(err, pkg.ErrNotRunning) {
		t.Fatalf("second Close err = %v, want ErrNotRunning", err)
	}
}

func TestOperationsAfterCloseReportNotRunning(t *testing.T) {
	host, _ := newTestHost(t, 44100, 256)

	if err := host.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := host.ClosePlugin(); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("ClosePlugin err = %v, want ErrNotRunning", err)
	}
	if err := host.ShowUI(); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("ShowUI err = %v, want ErrNotRunning", err)
	}
	if err := host.ProcessMIDIEvent(midi.Event{}); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("ProcessMIDIEvent err = %v, want ErrNotRunning", err)
	}
}
