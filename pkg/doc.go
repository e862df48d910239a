// Package pkg provides shared utilities for the remote plugin transport.
//
// This package contains common functionality used across the shm, fifo,
// proto, audioregion, hostproto, and childproto packages, including:
//
//   - Structured logging via [github.com/sirupsen/logrus]
//   - Sentinel error types for the transport
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps a [logrus.Logger] with transport-specific
// context:
//
//	pkg.SetLogLevel(logrus.DebugLevel)
//	pkg.LogInfo(pkg.ComponentHost, "child spawned", "pid", pid)
//
// # Errors
//
// Common transport errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNotFound) {
//	    // key does not name a live segment
//	}
package pkg
