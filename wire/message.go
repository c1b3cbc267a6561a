// Package wire implements the binary message codec exchanged between
// dispatcher-driven sockets: a fixed-layout encoding of four message
// variants (Open, Close, Block, Control), deliberately simpler than a
// general-purpose serialization format since every field's size is known
// ahead of decoding. Unlike Control's SystemConfig/Ping pair, which share
// one leading tag byte, Open/Close/Block carry no type discriminator of
// their own — the pipe-multiplexing layer that frames a byte stream into
// these messages (out of scope for this package and not part of the
// dispatch package either) already knows which variant comes next.
package wire

// PipeID identifies a logical pipe multiplexed over one dispatcher stream.
// 0 is reserved and never valid on the wire.
type PipeID uint16

// MaxPayloadSize is the largest payload a Block message may carry: 0xEFFF
// (61,439) bytes.
const MaxPayloadSize = 0xEFFF

// MaxLossRate is the largest value Block's Loss field may hold: 0x7F (127).
const MaxLossRate = 0x7F

// MaxMessageSize is the largest single encoded message this package's
// callers should expect to frame over an unreliable transport: the IPv4
// maximum UDP payload, 65,507 bytes. It is informational only — the
// Decode* functions do not enforce it, since enforcement is a transport-layer concern (see
// DESIGN.md's Open Question record).
const MaxMessageSize = 65507

// Control sub-tags: the single leading byte that discriminates Control's
// two payload shapes from one another.
const (
	controlSystemConfig byte = 'Q'
	controlPing         byte = 'P'
)

// Message is implemented by every message type this package encodes.
type Message interface {
	isMessage()
}

// Open announces a new pipe and the function it is opened against.
type Open struct {
	PipeID     PipeID
	FunctionID uint16
	Priority   uint8
	Params     []byte
}

func (Open) isMessage() {}

// NewOpen constructs an Open message, rejecting a zero pipe id.
func NewOpen(pipeID PipeID, functionID uint16, priority uint8, params []byte) (Open, error) {
	if pipeID == 0 {
		return Open{}, ErrZeroPipeID
	}
	return Open{PipeID: pipeID, FunctionID: functionID, Priority: priority, Params: params}, nil
}

// Close announces that a pipe's function call has finished, successfully or
// not. When Failure is true, Result carries error information instead of a
// normal return value.
type Close struct {
	PipeID  PipeID
	Failure bool
	Result  []byte
}

func (Close) isMessage() {}

// NewClose constructs a Close message, rejecting a zero pipe id.
func NewClose(pipeID PipeID, failure bool, result []byte) (Close, error) {
	if pipeID == 0 {
		return Close{}, ErrZeroPipeID
	}
	return Close{PipeID: pipeID, Failure: failure, Result: result}, nil
}

// Block carries a chunk of pipe payload, plus the loss-rate and EOF
// signalling the original protocol piggybacks on data frames rather than
// carrying in separate control messages.
type Block struct {
	PipeID  PipeID
	Loss    uint8
	EOF     bool
	Payload []byte
}

func (Block) isMessage() {}

// NewBlock constructs a Block message, validating pipe id, payload size,
// and loss rate the same way the original's constructors do. If eof is
// true, callers are expected (but not required — see spec) to pass loss 0.
func NewBlock(pipeID PipeID, payload []byte, loss uint8, eof bool) (Block, error) {
	if pipeID == 0 {
		return Block{}, ErrZeroPipeID
	}
	if len(payload) > MaxPayloadSize {
		return Block{}, &PayloadTooLargeError{Length: len(payload), Max: MaxPayloadSize}
	}
	if loss > MaxLossRate {
		return Block{}, &LossRateTooBigError{Loss: int(loss), Max: MaxLossRate}
	}
	return Block{PipeID: pipeID, Loss: loss, EOF: eof, Payload: payload}, nil
}

// Control carries session-level signalling, distinct from any particular
// pipe: a SystemConfig handshake or a liveness Ping. Its wire shape is
// chosen by a single leading tag byte ('Q' or 'P').
type Control struct {
	Payload ControlPayload
}

func (Control) isMessage() {}

// ControlPayload is implemented by SystemConfig and Ping.
type ControlPayload interface {
	controlTag() byte
}

// SystemConfig is exchanged once per session to negotiate protocol version
// and identify both endpoints and the session itself.
type SystemConfig struct {
	Version        uint16
	NodeID         [16]byte
	SessionID      [16]byte
	UTCTime        uint64
	PingInterval   uint32
	SessionTimeout uint32
}

func (SystemConfig) controlTag() byte { return controlSystemConfig }

// Ping is a liveness heartbeat carrying the sender's current UTC time.
type Ping struct {
	UTCTime uint64
}

func (Ping) controlTag() byte { return controlPing }

// NewSystemConfig wraps cfg as a Control message.
func NewSystemConfig(cfg SystemConfig) Control {
	return Control{Payload: cfg}
}

// NewPing returns a Control message carrying a Ping at utcTime.
func NewPing(utcTime uint64) Control {
	return Control{Payload: Ping{UTCTime: utcTime}}
}
