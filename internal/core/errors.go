// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the decode, decrypt and capture stages.
var (
	// Binary reader errors
	ErrTruncatedInput      = errors.New("meshmon: truncated input")
	ErrVarintOverflow      = errors.New("meshmon: varint overflow")
	ErrUnsupportedWireType = errors.New("meshmon: unsupported wire type")
	ErrInvalidFieldNumber  = errors.New("meshmon: invalid field number")
	ErrWireTypeMismatch    = errors.New("meshmon: unexpected wire type")

	// Envelope / payload errors
	ErrMalformedEnvelope = errors.New("meshmon: malformed envelope")
	ErrInvalidData       = errors.New("meshmon: invalid data message")

	// Decryption errors
	ErrDecryptionExhausted = errors.New("meshmon: decryption exhausted")
	ErrPKIEncrypted        = errors.New("meshmon: pki encrypted")
	ErrInvalidKey          = errors.New("meshmon: invalid key length")

	// Capture errors
	ErrMalformedCaptureLine = errors.New("meshmon: malformed capture line")

	// Configuration errors
	ErrConfigInvalid = errors.New("meshmon: invalid configuration")

	// Pipeline errors
	ErrPipelineStopped = errors.New("meshmon: pipeline stopped")

	// Plugin errors
	ErrPluginNotFound = errors.New("meshmon: plugin not found")
)

// FieldError records a field that could not be decoded. Decoders collect
// these and keep going where the wire format allows it.
type FieldError struct {
	Field int32
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %d: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
