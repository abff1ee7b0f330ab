package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps failures to reach the RPC endpoint at all.
	ErrTransport = errors.New("ledger transport failure")
	// ErrObjectNotFound is returned when the ledger reports a missing object.
	ErrObjectNotFound = errors.New("ledger object not found")
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Method  string `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
