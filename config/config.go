package config

import (
	"time"

	"go.uber.org/zap"
)

type (
	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// the socket.
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data
		// was received in this period of time, the connection is closed.
		ReadTimeout time.Duration
		// WriteBufferSize stores the serialized response head and sized bodies before
		// they are flushed onto the socket.
		WriteBufferSize int
		// MaxHeadSize limits the total size of the request line plus the headers
		// section of a single request.
		MaxHeadSize int
	}

	Engine struct {
		// EventLoops is the number of event-loop goroutines connections are
		// distributed across by the callback and detached drivers.
		EventLoops int
		// PendingResponses bounds the per-connection queue of responses awaiting
		// transmission in the detached driver. Once full, fragment processing for
		// the connection stalls until the transmission catches up.
		PendingResponses int
		// MaxConnections bounds how many connections the structured driver serves
		// at once. Excess connections wait for a seat.
		MaxConnections int64
	}
)

// Config holds settings used across the engine, mainly restrictions, limitations and
// pre-allocations. Modify defaults (returned via Default()) instead of constructing
// an instance manually.
type Config struct {
	NET    NET
	Engine Engine
	// Logger receives the engine's observability stream. Silent if left nil.
	Logger *zap.Logger
}

// Default returns a well-balanced default config.
func Default() *Config {
	return &Config{
		NET: NET{
			ReadBufferSize:  4 * 1024,
			ReadTimeout:     90 * time.Second,
			WriteBufferSize: 4 * 1024,
			MaxHeadSize:     16 * 1024,
		},
		Engine: Engine{
			EventLoops:       8,
			PendingResponses: 16,
			MaxConnections:   4096,
		},
	}
}
