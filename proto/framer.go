package proto

import "github.com/ardnew/remoteplugin/fifo"

// Encode writes msg onto f as a complete frame: `i32 id, i32 argc, argc ×
// (i32 len, len bytes)`. The whole encoding happens under a single outer
// lock so a concurrent writer on the same FIFO (there should be none, but
// nothing stops an endpoint from trying) never observes a half-written
// frame; MarkMessageSent is called only after the lock is released, so a
// receiver waking from WaitForMessage can acquire the lock immediately.
func Encode(f *fifo.FIFO, msg Message) error {
	f.Lock()
	err := func() error {
		if err := f.WriteInt(int32(msg.ID)); err != nil {
			return err
		}
		if err := f.WriteInt(int32(len(msg.Args))); err != nil {
			return err
		}
		for _, arg := range msg.Args {
			if err := f.WriteString(arg); err != nil {
				return err
			}
		}
		return nil
	}()
	f.Unlock()
	if err != nil {
		return err
	}
	return f.MarkMessageSent()
}

// Decode blocks until a complete frame is available on f, then reads and
// returns it.
func Decode(f *fifo.FIFO) (Message, error) {
	if err := f.WaitForMessage(); err != nil {
		return Message{}, err
	}

	f.Lock()
	defer f.Unlock()

	id, err := f.ReadInt()
	if err != nil {
		return Message{}, err
	}
	argc, err := f.ReadInt()
	if err != nil {
		return Message{}, err
	}
	args := make([]string, 0, argc)
	for i := int32(0); i < argc; i++ {
		s, err := f.ReadString()
		if err != nil {
			return Message{}, err
		}
		args = append(args, s)
	}
	return Message{ID: ID(id), Args: args}, nil
}
