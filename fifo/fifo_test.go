//go:build linux

package fifo

import (
	"sync"
	"testing"
	"time"
)

func TestNewMasterOpenRoundTrip(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()

	peer, err := Open(m.Key(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer peer.Close()

	if err := m.WriteInt(42); err != nil {
		t.Fatalf("WriteInt: %v", err)
	}
	got, err := peer.ReadInt()
	if err != nil {
		t.Fatalf("ReadInt: %v", err)
	}
	if got != 42 {
		t.Errorf("ReadInt = %d, want 42", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()
	peer, err := Open(m.Key(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer peer.Close()

	want := "hello, plugin"
	if err := m.WriteString(want); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	got, err := peer.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != want {
		t.Errorf("ReadString = %q, want %q", got, want)
	}
}

func TestEmptyStringRoundTrip(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()
	peer, err := Open(m.Key(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer peer.Close()

	if err := m.WriteString(""); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	got, err := peer.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "" {
		t.Errorf("ReadString = %q, want empty", got)
	}
}

// TestCompactionAllowsFullReuse writes, drains, and writes again near
// capacity: draining makes start catch up to end, read() then resets both
// to 0, and a second near-capacity write must fit without blocking.
func TestCompactionAllowsFullReuse(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()
	peer, err := Open(m.Key(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer peer.Close()

	chunk := make([]byte, 3900)
	for i := range chunk {
		chunk[i] = byte(i)
	}

	if err := m.write(chunk); err != nil {
		t.Fatalf("first write: %v", err)
	}
	out := make([]byte, 3900)
	if err := peer.read(out); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := range out {
		if out[i] != chunk[i] {
			t.Fatalf("byte %d = %x, want %x", i, out[i], chunk[i])
		}
	}

	done := make(chan error, 1)
	go func() { done <- m.write(chunk) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second write: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second write blocked despite the buffer having been drained")
	}
}

func TestRingInvariantsHold(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()

	for i := 0; i < 20; i++ {
		if err := m.write([]byte{byte(i)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if m.start() < 0 || m.start() > m.end() || m.end() > m.capacity {
			t.Fatalf("invariant violated: start=%d end=%d", m.start(), m.end())
		}
	}
}

func TestWaitForMessageBlocksUntilMarked(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()

	var wg sync.WaitGroup
	woke := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.WaitForMessage()
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("WaitForMessage returned before MarkMessageSent")
	case <-time.After(50 * time.Millisecond):
	}

	if err := m.MarkMessageSent(); err != nil {
		t.Fatalf("MarkMessageSent: %v", err)
	}

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("WaitForMessage did not return after MarkMessageSent")
	}
	wg.Wait()
}

func TestMessagesPending(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()

	if m.MessagesPending() {
		t.Fatal("MessagesPending true before any MarkMessageSent")
	}
	if err := m.MarkMessageSent(); err != nil {
		t.Fatalf("MarkMessageSent: %v", err)
	}
	if !m.MessagesPending() {
		t.Fatal("MessagesPending false after MarkMessageSent")
	}
	if err := m.WaitForMessage(); err != nil {
		t.Fatalf("WaitForMessage: %v", err)
	}
	if m.MessagesPending() {
		t.Fatal("MessagesPending true after WaitForMessage drained it")
	}
}

func TestRecursiveLock(t *testing.T) {
	m, err := NewMaster(DefaultOptions())
	if err != nil {
		t.Fatalf("NewMaster: %v", err)
	}
	defer m.Close()

	m.Lock()
	m.Lock()
	m.Unlock()
	m.Unlock()

	// A third party must now be able to acquire the lock without blocking.
	done := make(chan struct{})
	go func() {
		m.Lock()
		m.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock still held after matching unlocks")
	}
}

func TestFormatParseInt(t *testing.T) {
	cases := []int32{0, 1, -1, 123456, -987654}
	for _, v := range cases {
		if got := ParseInt(FormatInt(v)); got != v {
			t.Errorf("ParseInt(FormatInt(%d)) = %d", v, got)
		}
	}
}

func TestParseIntMalformedReturnsZero(t *testing.T) {
	for _, s := range []string{"", "abc", "12x4", "--1"} {
		if got := ParseInt(s); got != 0 {
			t.Errorf("ParseInt(%q) = %d, want 0", s, got)
		}
	}
}
