//go:build linux

package proto

import (
	"testing"

	"github.com/ardnew/remoteplugin/fifo"
)

func newFIFOPair(t *testing.T) (master, peer *fifo.FIFO) {
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

func TestEncodeDecodeRoundTrip(t *testing.T) {
	master, peer := newFIFOPair(t)

	want := New(MidiEvent).AddInt(9).AddInt(0).AddInt(60).AddInt(100).AddInt(3)
	if err := Encode(master, want); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(peer)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("ID = %v, want %v", got.ID, want.ID)
	}
	if len(got.Args) != len(want.Args) {
		t.Fatalf("len(Args) = %d, want %d", len(got.Args), len(want.Args))
	}
	for i := range want.Args {
		if got.Args[i] != want.Args[i] {
			t.Errorf("Args[%d] = %q, want %q", i, got.Args[i], want.Args[i])
		}
	}
}

func TestEncodeDecodeZeroArgMessage(t *testing.T) {
	master, peer := newFIFOPair(t)

	if err := Encode(master, New(StartProcessing)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(peer)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != StartProcessing {
		t.Errorf("ID = %v, want StartProcessing", got.ID)
	}
	if len(got.Args) != 0 {
		t.Errorf("Args = %v, want empty", got.Args)
	}
}

func TestEncodeDecodeMultipleMessagesPreserveOrder(t *testing.T) {
	master, peer := newFIFOPair(t)

	ids := []ID{InitDone, ShowUI, HideUI, ClosePlugin}
	for _, id := range ids {
		if err := Encode(master, New(id)); err != nil {
			t.Fatalf("Encode(%v): %v", id, err)
		}
	}
	for _, want := range ids {
		got, err := Decode(peer)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.ID != want {
			t.Errorf("Decode = %v, want %v", got.ID, want)
		}
	}
}

func TestEncodeDecodeStringArgsByteIdentical(t *testing.T) {
	master, peer := newFIFOPair(t)

	want := New(SaveSettingsToFile).AddString("/tmp/preset with spaces & stuff.xml")
	if err := Encode(master, want); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(peer)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.String(0) != want.String(0) {
		t.Errorf("round-tripped string = %q, want %q", got.String(0), want.String(0))
	}
}
