// Package fault defines the error kinds the driver loop dispatches on.
package fault

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/txpump/pkg/types"
)

// Kind classifies a failure by how the driver must react to it.
type Kind int

const (
	// Unknown is the kind of errors that carry no fault.Error.
	Unknown Kind = iota
	// ConnectionError: the ledger is unreachable or on the wrong network
	// at startup. Fatal.
	ConnectionError
	// SyncError: a snapshot fetch failed after startup. Retried.
	SyncError
	// InsufficientFundsError: the set cannot cover amount plus fee.
	InsufficientFundsError
	// EmptyFundsError: the set has no entries.
	EmptyFundsError
	// SubmissionError: the submit endpoint rejected the transaction or
	// could not be reached.
	SubmissionError
	// ConsistencyError: local state disagrees with a built transaction.
	ConsistencyError
	// BuildError: any other failure while building or signing.
	BuildError
)

var kindNames = map[Kind]string{
	Unknown:                "Unknown",
	ConnectionError:        "ConnectionError",
	SyncError:              "SyncError",
	InsufficientFundsError: "InsufficientFundsError",
	EmptyFundsError:        "EmptyFundsError",
	SubmissionError:        "SubmissionError",
	ConsistencyError:       "ConsistencyError",
	BuildError:             "BuildError",
}

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Op     string
	TxHash types.Hash
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if !e.TxHash.IsZero() {
		msg += " (tx " + e.TxHash.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, fault.E(k)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// New returns an error of kind k for operation op wrapping err.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Newf is New with a formatted message.
func Newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

// E returns a bare error of kind k for use as an errors.Is target.
func E(k Kind) *Error {
	return &Error{Kind: k}
}

// WithTx returns a copy of e tagged with the transaction hash.
func (e *Error) WithTx(h types.Hash) *Error {
	c := *e
	c.TxHash = h
	return &c
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// TxHashOf returns the transaction hash recorded in err's chain, if any.
func TxHashOf(err error) types.Hash {
	var fe *Error
	for e := err; errors.As(e, &fe); e = fe.Err {
		if !fe.TxHash.IsZero() {
			return fe.TxHash
		}
	}
	return types.Hash{}
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// Fatal reports whether the driver must stop on err.
func Fatal(err error) bool {
	return KindOf(err) == ConnectionError
}
