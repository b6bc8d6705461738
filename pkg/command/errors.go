package command

import (
	"errors"
	"fmt"
)

// Status codes reported after processing a frame.
const (
	StatusSuccess     = 0
	StatusEmptyString = -1
	StatusBufferFull  = -1
	StatusNotFound    = -2
	StatusWrongFormat = -3
)

// StatusError is a command failure carrying its status code.
type StatusError struct {
	Code int
	Msg  string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Msg, e.Code)
}

var (
	// ErrEmptyString indicates a frame with no content.
	ErrEmptyString = &StatusError{Code: StatusEmptyString, Msg: "empty command"}
	// ErrBufferFull indicates a byte was dropped as the frame is full.
	ErrBufferFull = &StatusError{Code: StatusBufferFull, Msg: "command buffer full"}
	// ErrCommandNotFound indicates an unknown command, target or argument.
	ErrCommandNotFound = &StatusError{Code: StatusNotFound, Msg: "command not found"}
	// ErrWrongFormat indicates misplaced or missing markers.
	ErrWrongFormat = &StatusError{Code: StatusWrongFormat, Msg: "wrong command format"}
)

// StatusOf maps an error returned by this package to its status code.
// nil maps to StatusSuccess, unknown errors to StatusWrongFormat.
func StatusOf(err error) int {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return StatusWrongFormat
}
