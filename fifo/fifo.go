package fifo

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/ardnew/remoteplugin/pkg"
	"github.com/ardnew/remoteplugin/shm"
)

// DefaultCapacity is the byte capacity of the ring buffer proper, not
// counting the header, used when no [Options] override is given. 4000 bytes
// keeps the whole segment within a single memory page alongside the header
// on a 4K-page system.
const DefaultCapacity int32 = 4000

// DefaultPollInterval is how long write/read back off before retrying a
// full or empty buffer, used when no [Options] override is given. The
// original backoff is a few microseconds of busy-wait; Go's scheduler
// cannot usefully sleep that short, so this rounds up to the smallest
// interval that still yields the processor without busy-spinning.
const DefaultPollInterval = 50 * time.Microsecond

// Header field byte offsets within the segment.
const (
	offDataSemID = 0
	offMsgSemID  = 4
	offStart     = 8
	offEnd       = 12
	offData      = 16
)

// headerSize is the number of bytes preceding the ring buffer's data area.
const headerSize = offData

// Options configures the tunables of a FIFO. A master and its peer must
// agree on Capacity (it determines the shared segment's size); PollInterval
// may differ between them since it only governs local retry backoff.
type Options struct {
	Capacity     int32
	PollInterval time.Duration
}

// DefaultOptions returns the transport's built-in tunables.
func DefaultOptions() Options {
	return Options{Capacity: DefaultCapacity, PollInterval: DefaultPollInterval}
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// FIFO is a bounded byte ring buffer living in shared memory, guarded by a
// pair of process-shared semaphores. See the package doc for the ownership
// and concurrency model.
type FIFO struct {
	seg     *shm.Segment
	dataSem *shm.Semaphore
	msgSem  *shm.Semaphore
	master  bool

	capacity     int32
	pollInterval time.Duration

	lockDepth int
}

// NewMaster creates a new FIFO: a fresh shared segment, a fresh pair of
// semaphores, and a zeroed ring. The caller is the FIFO's master and is
// responsible for eventually calling [FIFO.Close] to tear everything down;
// the key needed by the peer process to [Open] this FIFO is [FIFO.Key].
// Zero-valued fields in opts fall back to [DefaultOptions].
func NewMaster(opts Options) (*FIFO, error) {
	opts = opts.withDefaults()
	seg, err := shm.Create(int(headerSize + opts.Capacity))
	if err != nil {
		return nil, err
	}

	dataSem, err := shm.NewSemaphore(1)
	if err != nil {
		seg.Detach()
		seg.Destroy()
		return nil, err
	}
	msgSem, err := shm.NewSemaphore(0)
	if err != nil {
		dataSem.Destroy()
		seg.Detach()
		seg.Destroy()
		return nil, err
	}

	b := seg.Bytes()
	binary.LittleEndian.PutUint32(b[offDataSemID:], uint32(dataSem.ID()))
	binary.LittleEndian.PutUint32(b[offMsgSemID:], uint32(msgSem.ID()))
	binary.LittleEndian.PutUint32(b[offStart:], 0)
	binary.LittleEndian.PutUint32(b[offEnd:], 0)

	pkg.LogDebug(pkg.ComponentFifo, "fifo master created", "key", seg.Key(), "capacity", opts.Capacity)

	return &FIFO{
		seg: seg, dataSem: dataSem, msgSem: msgSem, master: true,
		capacity: opts.Capacity, pollInterval: opts.PollInterval,
	}, nil
}

// Open attaches to an existing FIFO by its shared-memory key. The two
// semaphore ids are read out of the header, written there by the master in
// [NewMaster]; the caller does not need to know them in advance, but must
// pass the same Capacity the master used since the master created the
// segment at that size. Zero-valued fields in opts fall back to
// [DefaultOptions].
func Open(key int32, opts Options) (*FIFO, error) {
	opts = opts.withDefaults()
	seg, err := shm.Attach(int(key), int(headerSize+opts.Capacity))
	if err != nil {
		return nil, err
	}
	b := seg.Bytes()
	dataSemID := int32(binary.LittleEndian.Uint32(b[offDataSemID:]))
	msgSemID := int32(binary.LittleEndian.Uint32(b[offMsgSemID:]))

	pkg.LogDebug(pkg.ComponentFifo, "fifo opened", "key", key, "capacity", opts.Capacity)

	return &FIFO{
		seg:          seg,
		dataSem:      shm.OpenSemaphore(dataSemID),
		msgSem:       shm.OpenSemaphore(msgSemID),
		master:       false,
		capacity:     opts.Capacity,
		pollInterval: opts.PollInterval,
	}, nil
}

// Key returns the shared-memory key a peer needs to [Open] this FIFO.
func (f *FIFO) Key() int32 { return int32(f.seg.Key()) }

// Close detaches the shared segment and, if this FIFO is the master,
// destroys the segment and both semaphores. Safe to call once per FIFO.
func (f *FIFO) Close() error {
	var err error
	if e := f.seg.Detach(); e != nil {
		err = e
	}
	if f.master {
		if e := f.dataSem.Destroy(); e != nil && err == nil {
			err = e
		}
		if e := f.msgSem.Destroy(); e != nil && err == nil {
			err = e
		}
		if e := f.seg.Destroy(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// lock acquires the header lock, recursively. Only the outermost call
// actually waits on the data semaphore; the same goroutine must pair every
// lock with an unlock, same as a C recursive mutex.
func (f *FIFO) lock() {
	f.lockDepth++
	if f.lockDepth == 1 {
		f.dataSem.Wait()
	}
}

// unlock releases one level of recursion, posting the data semaphore only
// when the outermost lock is released.
func (f *FIFO) unlock() {
	if f.lockDepth <= 0 {
		return
	}
	f.lockDepth--
	if f.lockDepth == 0 {
		f.dataSem.Post()
	}
}

func (f *FIFO) start() int32 { return int32(binary.LittleEndian.Uint32(f.seg.Bytes()[offStart:])) }
func (f *FIFO) end() int32   { return int32(binary.LittleEndian.Uint32(f.seg.Bytes()[offEnd:])) }

func (f *FIFO) setStart(v int32) {
	binary.LittleEndian.PutUint32(f.seg.Bytes()[offStart:], uint32(v))
}
func (f *FIFO) setEnd(v int32) {
	binary.LittleEndian.PutUint32(f.seg.Bytes()[offEnd:], uint32(v))
}

func (f *FIFO) data() []byte { return f.seg.Bytes()[offData : offData+f.capacity] }

// write copies len(p) bytes into the ring, compacting or blocking as
// necessary. p must fit within the FIFO's capacity.
func (f *FIFO) write(p []byte) error {
	n := int32(len(p))
	if n > f.capacity {
		return pkg.ErrBufferTooSmall
	}

	f.lock()
	for n > f.capacity-f.end() {
		if f.start() > 0 {
			d := f.data()
			copy(d, d[f.start():f.end()])
			f.setEnd(f.end() - f.start())
			f.setStart(0)
		}
		f.unlock()
		time.Sleep(f.pollInterval)
		f.lock()
	}
	copy(f.data()[f.end():], p)
	f.setEnd(f.end() + n)
	f.unlock()
	return nil
}

// read copies exactly len(p) bytes out of the ring into p, blocking until
// enough data has been written.
func (f *FIFO) read(p []byte) error {
	n := int32(len(p))
	if n > f.capacity {
		return pkg.ErrBufferTooSmall
	}

	f.lock()
	for n > f.end()-f.start() {
		f.unlock()
		time.Sleep(f.pollInterval)
		f.lock()
	}
	copy(p, f.data()[f.start():])
	f.setStart(f.start() + n)
	if f.start() == f.end() {
		f.setStart(0)
		f.setEnd(0)
	}
	f.unlock()
	return nil
}

// WriteInt writes a 4-byte little-endian integer.
func (f *FIFO) WriteInt(v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return f.write(buf[:])
}

// ReadInt reads a 4-byte little-endian integer.
func (f *FIFO) ReadInt() (int32, error) {
	var buf [4]byte
	if err := f.read(buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteString writes a length-prefixed string: a 4-byte length followed by
// the raw (non-null-terminated) bytes.
func (f *FIFO) WriteString(s string) error {
	if err := f.WriteInt(int32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return f.write([]byte(s))
}

// ReadString reads a length-prefixed string written by [FIFO.WriteString].
func (f *FIFO) ReadString() (string, error) {
	n, err := f.ReadInt()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if n < 0 {
		return "", fmt.Errorf("%w: negative string length %d", pkg.ErrProtocol, n)
	}
	buf := make([]byte, n)
	if err := f.read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Lock acquires the recursive header lock. Exported so the message framer
// can bracket an entire encode or decode under one outer lock.
func (f *FIFO) Lock() { f.lock() }

// Unlock releases one level of the recursive header lock.
func (f *FIFO) Unlock() { f.unlock() }

// WaitForMessage blocks until at least one complete message is available.
func (f *FIFO) WaitForMessage() error {
	return f.msgSem.Wait()
}

// MarkMessageSent signals that one complete message has been written.
// Callers must call this only after releasing the header lock: a receiver
// waking from WaitForMessage must be able to acquire the lock immediately.
func (f *FIFO) MarkMessageSent() error {
	return f.msgSem.Post()
}

// MessagesPending reports whether at least one unread message is queued.
func (f *FIFO) MessagesPending() bool {
	v, err := f.msgSem.Value()
	if err != nil {
		return false
	}
	return v > 0
}

// FormatInt and ParseInt mirror the protocol's stringly-typed integer
// argument convention: arguments are ASCII-decimal, and a malformed argument
// parses as 0 rather than erroring, matching atoi's historical behavior
// that the protocol was built around.
func FormatInt(v int32) string { return strconv.FormatInt(int64(v), 10) }

func ParseInt(s string) int32 {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}
