package link

import "errors"

// Driver-level failures.
var (
	// ErrTimeout means the chip stayed busy for the whole retry budget.
	ErrTimeout = errors.New("link: chip communication timeout")

	// ErrAlarm means the chip reported the alarm state. The chip requires
	// external recovery; no further exchange will succeed.
	ErrAlarm = errors.New("link: chip is in alarm state")

	// ErrCRCMismatch means a response failed CRC validation.
	ErrCRCMismatch = errors.New("link: response crc mismatch")

	// ErrResponseTooLarge means a continued response exceeded the configured
	// accumulation limit.
	ErrResponseTooLarge = errors.New("link: continued response exceeds size limit")

	// ErrSizeMismatch means the size declared inside an encrypted-command
	// response does not match the ciphertext actually received.
	ErrSizeMismatch = errors.New("link: command size mismatch in response")

	// ErrUnexpectedResponse means a response payload has a length the
	// protocol does not allow for the request that produced it.
	ErrUnexpectedResponse = errors.New("link: unexpected response length")

	// ErrPayloadTooLarge means a request payload exceeds the one-byte length
	// field.
	ErrPayloadTooLarge = errors.New("link: request payload too large")
)

// Response status sentinels, one per documented chip status code.
// [Status.Check] attaches the numeric code when returning these.
var (
	ErrRespDisabled    = errors.New("link: response disabled")
	ErrHandshakeFailed = errors.New("link: handshake error")
	ErrNoSession       = errors.New("link: no secure session established")
	ErrTagInvalid      = errors.New("link: authentication tag error")
	ErrRequestCRC      = errors.New("link: crc validation failed")
	ErrUnknownRequest  = errors.New("link: unknown request")
	ErrGeneral         = errors.New("link: general error")
	ErrNoResponse      = errors.New("link: no response from chip")

	// ErrUnknownStatus is the fallback for status codes outside the
	// documented set.
	ErrUnknownStatus = errors.New("link: unknown response error")
)
