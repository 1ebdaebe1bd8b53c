package infusion

import "errors"

var (
	// ErrVIDExists indicates an entity was registered with a vid already
	// present under the same command type. Duplicate vids are a fatal
	// construction error for the entity being registered.
	ErrVIDExists = errors.New("infusion: vid already registered")

	// ErrNotConnected indicates a send was attempted before Connect
	// completed or after Close.
	ErrNotConnected = errors.New("infusion: not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("infusion: already connected")

	// ErrLoginFailed indicates the controller rejected the LOGIN
	// handshake on a command connection.
	ErrLoginFailed = errors.New("infusion: login failed")

	// ErrInvalidText indicates a text variable write contained a newline
	// or carriage return, which the wire protocol cannot carry.
	ErrInvalidText = errors.New("infusion: newlines are not allowed in text values")

	// ErrTaskNotFound indicates a task lookup by name matched nothing.
	ErrTaskNotFound = errors.New("infusion: task not found")
)
