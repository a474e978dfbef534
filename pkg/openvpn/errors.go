package openvpn

import (
	"errors"
	"fmt"
)

// Op names the stage of a management session that failed
type Op string

const (
	OpDial  Op = "dial"
	OpGreet Op = "greet"
	OpWrite Op = "write"
	OpRead  Op = "read"
	OpParse Op = "parse"
)

var (
	// ErrMalformedLine is wrapped by every client line parse failure
	ErrMalformedLine = errors.New("malformed client line")

	// ErrIncompleteResponse means the connection closed before the END line
	ErrIncompleteResponse = errors.New("response ended before END")

	// ErrUnexpectedGreeting means the first line on the port was not an >INFO greeting
	ErrUnexpectedGreeting = errors.New("unexpected greeting")

	// ErrResponseTooLarge means the daemon kept sending past the size limit
	ErrResponseTooLarge = errors.New("response exceeds size limit")
)

// ProtocolError is the single failure type returned by a status poll
type ProtocolError struct {
	Op      Op
	Address string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("openvpn %s %s: %v", e.Op, e.Address, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// CommandError is a management interface "ERROR: ..." reply
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("management interface error: %s", e.Message)
}
