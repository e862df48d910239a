//go:build linux

package hostproto

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/pkg"
)

// Spawn creates a fresh uplink/downlink FIFO pair and launches the child
// binary at path, passing the uplink and downlink shared-memory keys as
// its first two command-line arguments (in that order), followed by the
// negotiated FIFO capacity and poll interval as --fifo-capacity/
// --poll-interval flags so the child attaches with matching tunables, then
// extraArgs. The caller observes the child's exit via the returned
// *exec.Cmd rather than any reply on the transport: a clean ClosePlugin
// shutdown exits 0, any internal child failure exits non-zero.
func Spawn(path string, extraArgs []string, sampleRate, framesPerBlock int32, opts fifo.Options, busyInterval time.Duration) (*Host, *exec.Cmd, error) {
	uplink, err := fifo.NewMaster(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("uplink fifo: %w", err)
	}
	downlink, err := fifo.NewMaster(opts)
	if err != nil {
		uplink.Close()
		return nil, nil, fmt.Errorf("downlink fifo: %w", err)
	}

	args := append([]string{
		fifo.FormatInt(uplink.Key()),
		fifo.FormatInt(downlink.Key()),
		"--fifo-capacity", fifo.FormatInt(opts.Capacity),
		"--poll-interval", opts.PollInterval.String(),
	}, extraArgs...)

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		uplink.Close()
		downlink.Close()
		return nil, nil, fmt.Errorf("%w: spawn %s: %v", pkg.ErrGeneralFailure, path, err)
	}

	host := New(uplink, downlink, sampleRate, framesPerBlock, busyInterval)

	pkg.LogInfo(pkg.ComponentHost, "child spawned", "session", host.SessionID, "path", path, "pid", cmd.Process.Pid,
		"uplink_key", uplink.Key(), "downlink_key", downlink.Key(), "capacity", opts.Capacity)

	return host, cmd, nil
}
