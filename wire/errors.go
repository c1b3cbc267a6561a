package wire

import (
	"errors"
	"fmt"
)

// Sentinel and structured errors mirroring the original implementation's
// error taxonomy (see original_source/src/error.rs): truncated reads,
// structural violations of the wire format, and out-of-range field values
// are distinguished so callers can tell "not enough bytes yet" apart from
// "this will never be valid".
var (
	// ErrBufferUnsatisfied indicates the supplied reader did not have
	// enough bytes to complete decoding a message. This is not
	// necessarily fatal — a stream-based caller should read more and
	// retry — which is why it is returned instead of panicking on a short
	// read the way a naive binary.Read-based decoder would.
	ErrBufferUnsatisfied = errors.New("wire: buffer unsatisfied")

	// ErrZeroPipeID indicates a message was constructed or decoded with a
	// pipe id of 0, which is reserved and never a valid pipe identifier.
	ErrZeroPipeID = errors.New("wire: pipe id must be non-zero")
)

// PayloadTooLargeError indicates a Block payload exceeded MaxPayloadSize.
type PayloadTooLargeError struct {
	Length int
	Max    int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("wire: payload length %d exceeds maximum %d", e.Length, e.Max)
}

// LossRateTooBigError indicates a Block loss rate exceeded MaxLossRate.
type LossRateTooBigError struct {
	Loss int
	Max  int
}

func (e *LossRateTooBigError) Error() string {
	return fmt.Sprintf("wire: loss rate %d exceeds maximum %d", e.Loss, e.Max)
}

// IllegalControlTypeError indicates a Control message's sub-tag byte did
// not match any known Control variant ('Q' for SystemConfig, 'P' for
// Ping).
type IllegalControlTypeError struct {
	Tag byte
}

func (e *IllegalControlTypeError) Error() string {
	return fmt.Sprintf("wire: illegal control type tag %#x", e.Tag)
}

// IllegalBooleanRepresentationError indicates that Close's bitfield held
// reserved bits (1-7) that must be zero. DecodeBlock does not return it:
// every bit of Block's bitfield is defined (EOF and loss rate).
type IllegalBooleanRepresentationError struct {
	Value byte
}

func (e *IllegalBooleanRepresentationError) Error() string {
	return fmt.Sprintf("wire: illegal boolean representation %#x", e.Value)
}
