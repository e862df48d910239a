//go:build linux

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/remoteplugin/pkg"
)

// Semaphore is a process-shared counting semaphore backed by a System V
// semaphore set containing exactly one semaphore. [golang.org/x/sys/unix]
// exposes Semget/Semop directly; Semctl has no generic wrapper (its third
// argument is a C union whose shape depends on the command), so the few
// commands this package needs — SETVAL, GETVAL, IPC_RMID — go through a raw
// syscall, the same idiom the retrieval pack uses for ioctls without a
// typed wrapper.
type Semaphore struct {
	id      int
	master  bool
	touched bool
}

// sembufOp builds the single-element Sembuf slice for a wait (-1) or
// post (+1) operation. SemFlg is left 0: operations block rather than
// failing with EAGAIN, matching sem_wait/sem_post semantics.
func sembufOp(delta int16) []unix.Sembuf {
	return []unix.Sembuf{{SemNum: 0, SemOp: delta, SemFlg: 0}}
}

// NewSemaphore allocates a fresh semaphore set with one semaphore,
// initialized to initial, and takes ownership of destroying it.
func NewSemaphore(initial int) (*Semaphore, error) {
	id, err := unix.Semget(unix.IPC_PRIVATE, 1, unix.IPC_CREAT|permissions)
	if err != nil {
		return nil, fmt.Errorf("%w: semget: %v", pkg.ErrSemaphoreInit, err)
	}
	sem := &Semaphore{id: id, master: true}
	if err := sem.setval(initial); err != nil {
		_ = sem.Destroy()
		return nil, err
	}
	return sem, nil
}

// OpenSemaphore wraps an existing semaphore set by id, without taking
// ownership of destroying it. Used by a non-master endpoint that learned
// the id out-of-band (read from the FIFO header alongside its shared-memory
// key).
func OpenSemaphore(id int32) *Semaphore {
	return &Semaphore{id: int(id), master: false}
}

func (s *Semaphore) setval(val int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(s.id), 0, unix.SETVAL, uintptr(val), 0, 0)
	if errno != 0 {
		return fmt.Errorf("%w: semctl SETVAL: %v", pkg.ErrSemaphoreInit, errno)
	}
	return nil
}

// Wait blocks while the count is zero, then decrements it.
func (s *Semaphore) Wait() error {
	if err := unix.Semop(s.id, sembufOp(-1)); err != nil {
		return fmt.Errorf("semop wait: %w", err)
	}
	return nil
}

// Post increments the count and wakes one waiter.
func (s *Semaphore) Post() error {
	if err := unix.Semop(s.id, sembufOp(1)); err != nil {
		return fmt.Errorf("semop post: %w", err)
	}
	return nil
}

// Value returns the current count.
func (s *Semaphore) Value() (int, error) {
	v, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(s.id), 0, unix.GETVAL, 0, 0, 0)
	if errno != 0 {
		return 0, fmt.Errorf("semctl GETVAL: %w", errno)
	}
	return int(v), nil
}

// Destroy releases the kernel semaphore set. Only the master — the
// endpoint that created it via [NewSemaphore] — should call this; the FIFO
// that owns a pair of semaphores enforces that by only ever constructing
// master semaphores for itself and non-master ones for its peer.
func (s *Semaphore) Destroy() error {
	if s.touched {
		return nil
	}
	s.touched = true
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(s.id), 0, unix.IPC_RMID, 0, 0, 0)
	if errno != 0 {
		return fmt.Errorf("semctl IPC_RMID: %w", errno)
	}
	return nil
}

// ID returns the semaphore set id, suitable for transmitting to a peer
// process alongside a FIFO's shared-memory key.
func (s *Semaphore) ID() int32 { return int32(s.id) }

var _ = unsafe.Sizeof(unix.Sembuf{}) // documents that Sembuf is a fixed kernel ABI struct
