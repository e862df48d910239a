//go:build linux

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/remoteplugin/pkg"
)

// permissions is the access mode applied to every segment this package
// creates: owner read/write only.
const permissions = 0o600

// Segment is a System V shared-memory region mapped into the calling
// process. The zero value is not usable; construct one with [Create] or
// [Attach].
type Segment struct {
	key     int
	id      int
	size    int
	addr    uintptr
	master  bool
	touched bool // set once Detach has run, makes a second Detach a no-op
}

// Create allocates a new segment of exactly size bytes, picking a fresh key
// by incrementing a counter until an exclusive creation succeeds. The
// returned Segment is the master of the key: only it may call [Segment.Destroy].
func Create(size int) (*Segment, error) {
	if size <= 0 {
		return nil, pkg.ErrInvalidParameter
	}

	var id int
	var key int
	var err error
	for key = 1; ; key++ {
		id, err = unix.SysvShmGet(key, size, unix.IPC_CREAT|unix.IPC_EXCL|permissions)
		if err == nil {
			break
		}
		if err == unix.EEXIST {
			continue
		}
		return nil, fmt.Errorf("%w: shmget key=%d: %v", pkg.ErrAllocationFailed, key, err)
	}

	addr, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		_, _ = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("%w: shmat key=%d: %v", pkg.ErrAllocationFailed, key, err)
	}

	pkg.LogDebug(pkg.ComponentShm, "segment created", "key", key, "size", size)

	return &Segment{key: key, id: id, size: size, addr: addr, master: true}, nil
}

// Attach maps an existing segment identified by key into the caller's
// address space. It returns [pkg.ErrNotFound] if no segment with that key
// exists.
func Attach(key int, size int) (*Segment, error) {
	id, err := unix.SysvShmGet(key, size, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: key=%d: %v", pkg.ErrNotFound, key, err)
	}

	addr, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: key=%d: %v", pkg.ErrNotFound, key, err)
	}

	pkg.LogDebug(pkg.ComponentShm, "segment attached", "key", key, "size", size)

	return &Segment{key: key, id: id, size: size, addr: addr, master: false}, nil
}

// Key returns the segment's shared-memory key.
func (s *Segment) Key() int { return s.key }

// Size returns the segment's size in bytes.
func (s *Segment) Size() int { return s.size }

// Bytes returns a byte slice backed directly by the mapped shared memory.
// The slice is valid until [Segment.Detach] is called; using it afterward
// is undefined behavior, same as dereferencing a dangling pointer.
func (s *Segment) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(s.addr)), s.size)
}

// Floats returns a float32 slice backed directly by the mapped shared
// memory, for use by the audio region (which is a flat f32 buffer, never a
// byte FIFO). The length is size/4, rounded down.
func (s *Segment) Floats() []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(s.addr)), s.size/4)
}

// Detach unmaps the segment locally. It has no effect on other attachments
// and is safe to call more than once.
func (s *Segment) Detach() error {
	if s.touched {
		return nil
	}
	s.touched = true
	if err := unix.SysvShmDetach(s.addr); err != nil {
		return fmt.Errorf("shmdt key=%d: %w", s.key, err)
	}
	pkg.LogDebug(pkg.ComponentShm, "segment detached", "key", s.key)
	return nil
}

// Destroy marks the segment for deletion; storage is reclaimed by the
// kernel after the last detach. Only the creator (the segment returned by
// [Create]) may call this — calling it on an attached, non-master segment
// returns [pkg.ErrInvalidState].
func (s *Segment) Destroy() error {
	if !s.master {
		return pkg.ErrInvalidState
	}
	if _, err := unix.SysvShmCtl(s.id, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("shmctl IPC_RMID key=%d: %w", s.key, err)
	}
	pkg.LogDebug(pkg.ComponentShm, "segment destroyed", "key", s.key)
	return nil
}
