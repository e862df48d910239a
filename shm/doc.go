// Package shm implements the keyed shared-memory segment primitive used by
// the remote plugin transport (the host and its out-of-process plugin
// child).
//
// A [Segment] is a fixed-size region of System V shared memory identified
// by a small positive integer key. Exactly one process — the creator,
// or "master" in the terminology of the wider transport — calls [Create];
// any other process that knows the key calls [Attach] to map the same
// pages into its own address space. Both processes eventually call
// [Segment.Detach]; only the creator calls [Segment.Destroy].
//
// The primitive gives no thread-safety guarantees over the mapped bytes.
// Callers that need concurrent access — the fifo package's ring buffer, the
// audioregion package's flat float buffer — layer their own synchronization
// (a [Semaphore] pair, or protocol-level ownership handoff) on top.
//
// This package is Linux-only: it talks to the kernel's System V IPC
// facilities (shmget/shmat/shmdt/shmctl, semget/semop/semctl) directly via
// [golang.org/x/sys/unix], the same way the rest of the retrieval pack
// reaches for raw syscalls when no higher-level wrapper exists.
package shm
