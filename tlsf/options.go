package tlsf

import (
	"io"
	"log/slog"
	"os"
)

// PoisonByte fills the payload of freed blocks when Options.Poison is set.
const PoisonByte = 0xA5

// traceAlloc turns on per-operation debug logging on stderr for pools created
// without an explicit logger. Controlled by the TLSF_LOG_ALLOC env var.
var traceAlloc = os.Getenv("TLSF_LOG_ALLOC") != ""

// Options configures a pool.
//
// Use DefaultOptions() for production defaults.
type Options struct {
	// Logger receives lifecycle events (areas added or rejected, destroy) and, at
	// debug level, allocation failures and realloc decisions.
	// Default: nil, which discards everything unless TLSF_LOG_ALLOC is set.
	Logger *slog.Logger

	// Poison fills freed payload bytes with PoisonByte so that use-after-free
	// reads are recognisable. Costs a memset per free.
	// Default: false
	Poison bool

	// VerifyEveryOp runs Verify after every mutating call and panics with the
	// validation error on corruption. O(blocks) per call; meant for tests.
	// Default: false
	VerifyEveryOp bool
}

// DefaultOptions returns the production defaults: no logging, no poisoning,
// no self-verification.
func DefaultOptions() Options {
	return Options{}
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if traceAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
