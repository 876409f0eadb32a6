// Package terab is a thin, idiomatic-Go facade over core, preserving the
// original client library's top-level entry points (Initialize, Shutdown,
// Connect, Disconnect) for callers porting code from the C/C++ client.
// New code should prefer core.NewConnection directly.
package terab

import (
	"context"

	"github.com/Lokad/Terab/core"
)

// Initialize performs any process-wide setup the underlying platform
// requires. On every platform this library targets it is a no-op success,
// mirroring terab_initialize in the original client (a Windows-only
// WSAStartup call with no equivalent needed under Go's net package).
func Initialize() core.StatusCode { return core.StatusSuccess }

// Shutdown performs any process-wide teardown paired with Initialize. Like
// Initialize it is a no-op on every platform this library targets.
func Shutdown() core.StatusCode { return core.StatusSuccess }

// Connect parses connString, dials it, and returns the open connection,
// which itself serves as the opaque handle for every subsequent operation
// (the original client's connection_t is literally a connection_s*; this
// library keeps that shape instead of introducing an integer handle
// table).
func Connect(ctx context.Context, connString string, opts ...core.Option) (*core.Connection, error) {
	conn, err := core.NewConnection(connString, opts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Open(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// Disconnect closes conn. The reason parameter is accepted for parity with
// the original client's connection_close(handle, reason) signature, where
// reason distinguishes a graceful shutdown from an error-driven one; this
// implementation ignores it (it is neither logged nor sent to the server),
// since Go's explicit *core.Error already carries the failure detail that
// mattered on the path that led here.
func Disconnect(conn *core.Connection, reason error) core.StatusCode {
	_ = reason
	if err := conn.Close(); err != nil {
		return core.StatusOf(err)
	}
	return core.StatusSuccess
}
