package transport

import "errors"

var (
	// ErrLengthMismatch indicates a transfer or read returned a different
	// number of bytes than requested.
	ErrLengthMismatch = errors.New("transport: transfer length mismatch")

	// ErrBadAck indicates a chip-select command was not acknowledged.
	ErrBadAck = errors.New("transport: chip-select command rejected")

	// ErrTagMismatch indicates a model-socket response carried a different
	// tag than the request.
	ErrTagMismatch = errors.New("transport: model tag mismatch")

	// ErrPayloadTooLarge indicates a payload exceeds the carrier protocol's
	// message limit.
	ErrPayloadTooLarge = errors.New("transport: payload exceeds protocol limit")
)
