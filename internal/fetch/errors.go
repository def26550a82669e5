package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies where a run failed.
type Kind int

const (
	KindUnknown       Kind = iota
	KindConnection         // endpoint unreachable or handshake failed
	KindRequest            // RPC failed, connection dropped, or the response was empty or malformed
	KindSerialization      // decoded metadata could not be rendered
	KindIO                 // output file could not be written
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindRequest:
		return "request error"
	case KindSerialization:
		return "serialization error"
	case KindIO:
		return "io error"
	default:
		return "error"
	}
}

// Error is the failure of one step of a run.
type Error struct {
	Kind Kind
	Op   string // step that failed, e.g. "connect", "fetch metadata"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ExitCode maps an error to the process exit status: 0 for nil, a distinct
// status per Kind, and 1 for anything unclassified (usage, config).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindConnection:
		return 2
	case KindRequest:
		return 3
	case KindSerialization:
		return 4
	case KindIO:
		return 5
	default:
		return 1
	}
}
