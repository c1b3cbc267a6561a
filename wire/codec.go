package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// Encode writes msg to w in its fixed binary layout. All multi-byte
// integers are little-endian; [u16 length][bytes] is used for every
// variable-length field. Unlike Decode (see DecodeOpen/DecodeClose/
// DecodeBlock/DecodeControl), Encode can dispatch generically on msg's
// concrete type because the caller already knows what it is constructing;
// there is no corresponding generic Decode, since Open/Close/Block carry no
// wire-level type discriminator of their own for a blind reader to key off.
func Encode(w io.Writer, msg Message) error {
	switch m := msg.(type) {
	case Open:
		return m.WriteTo(w)
	case Close:
		return m.WriteTo(w)
	case Block:
		return m.WriteTo(w)
	case Control:
		return m.WriteTo(w)
	default:
		return errors.New("wire: unsupported message type")
	}
}

// WriteTo encodes m as [pipe_id u16][function_id u16][priority u8]
// [params bin].
func (m Open) WriteTo(w io.Writer) error {
	buf := make([]byte, 5+2+len(m.Params))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(m.PipeID))
	binary.LittleEndian.PutUint16(buf[2:4], m.FunctionID)
	buf[4] = m.Priority
	binary.LittleEndian.PutUint16(buf[5:7], uint16(len(m.Params)))
	copy(buf[7:], m.Params)
	return writeAll(w, buf)
}

// DecodeOpen reads a single Open message: [pipe_id u16][function_id u16]
// [priority u8][params bin].
func DecodeOpen(r io.Reader) (Open, error) {
	head, err := readFull(r, 5)
	if err != nil {
		return Open{}, err
	}
	pipeID := PipeID(binary.LittleEndian.Uint16(head[0:2]))
	functionID := binary.LittleEndian.Uint16(head[2:4])
	priority := head[4]
	if pipeID == 0 {
		return Open{}, ErrZeroPipeID
	}
	params, err := readBin(r)
	if err != nil {
		return Open{}, err
	}
	return Open{PipeID: pipeID, FunctionID: functionID, Priority: priority, Params: params}, nil
}

// WriteTo encodes m as [pipe_id u16][bitfield u8][result bin]. Bitfield bit
// 0 is Failure; bits 1-7 are reserved and always written as zero.
func (m Close) WriteTo(w io.Writer) error {
	buf := make([]byte, 3+2+len(m.Result))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(m.PipeID))
	if m.Failure {
		buf[2] = 1
	}
	binary.LittleEndian.PutUint16(buf[3:5], uint16(len(m.Result)))
	copy(buf[5:], m.Result)
	return writeAll(w, buf)
}

// DecodeClose reads a single Close message: [pipe_id u16][bitfield u8]
// [result bin].
func DecodeClose(r io.Reader) (Close, error) {
	head, err := readFull(r, 3)
	if err != nil {
		return Close{}, err
	}
	pipeID := PipeID(binary.LittleEndian.Uint16(head[0:2]))
	bitfield := head[2]
	if pipeID == 0 {
		return Close{}, ErrZeroPipeID
	}
	if bitfield&^1 != 0 {
		return Close{}, &IllegalBooleanRepresentationError{Value: bitfield}
	}
	result, err := readBin(r)
	if err != nil {
		return Close{}, err
	}
	return Close{PipeID: pipeID, Failure: bitfield&1 != 0, Result: result}, nil
}

// WriteTo encodes m as [pipe_id u16][bitfield u8][payload bin]. Bitfield
// bit 7 is EOF; bits 0-6 are the loss rate (0..=127).
func (m Block) WriteTo(w io.Writer) error {
	buf := make([]byte, 3+2+len(m.Payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(m.PipeID))
	bitfield := m.Loss & MaxLossRate
	if m.EOF {
		bitfield |= 0x80
	}
	buf[2] = bitfield
	binary.LittleEndian.PutUint16(buf[3:5], uint16(len(m.Payload)))
	copy(buf[5:], m.Payload)
	return writeAll(w, buf)
}

// DecodeBlock reads a single Block message: [pipe_id u16][bitfield u8]
// [payload bin]. payload.len() is not itself checked against
// MaxPayloadSize — a length that arrived on the wire already fits in a
// u16, and spec.md leaves MAX_MESSAGE_SIZE enforcement to the transport.
func DecodeBlock(r io.Reader) (Block, error) {
	head, err := readFull(r, 3)
	if err != nil {
		return Block{}, err
	}
	pipeID := PipeID(binary.LittleEndian.Uint16(head[0:2]))
	bitfield := head[2]
	if pipeID == 0 {
		return Block{}, ErrZeroPipeID
	}
	loss := bitfield &^ 0x80
	eof := bitfield&0x80 != 0
	payload, err := readBin(r)
	if err != nil {
		return Block{}, err
	}
	return Block{PipeID: pipeID, Loss: loss, EOF: eof, Payload: payload}, nil
}

// WriteTo encodes m as a single leading tag byte ('Q' or 'P') followed by
// the selected payload's fields.
func (m Control) WriteTo(w io.Writer) error {
	switch p := m.Payload.(type) {
	case SystemConfig:
		buf := make([]byte, 1+2+16+16+8+4+4)
		buf[0] = controlSystemConfig
		i := 1
		binary.LittleEndian.PutUint16(buf[i:], p.Version)
		i += 2
		copy(buf[i:], p.NodeID[:])
		i += 16
		copy(buf[i:], p.SessionID[:])
		i += 16
		binary.LittleEndian.PutUint64(buf[i:], p.UTCTime)
		i += 8
		binary.LittleEndian.PutUint32(buf[i:], p.PingInterval)
		i += 4
		binary.LittleEndian.PutUint32(buf[i:], p.SessionTimeout)
		return writeAll(w, buf)
	case Ping:
		buf := make([]byte, 1+8)
		buf[0] = controlPing
		binary.LittleEndian.PutUint64(buf[1:], p.UTCTime)
		return writeAll(w, buf)
	default:
		return errors.New("wire: unsupported control payload type")
	}
}

// DecodeControl reads a single Control message, dispatching on its leading
// tag byte: 'Q' for SystemConfig, 'P' for Ping. Any other tag byte is
// reported as IllegalControlTypeError.
func DecodeControl(r io.Reader) (Control, error) {
	tag, err := readFull(r, 1)
	if err != nil {
		return Control{}, err
	}

	switch tag[0] {
	case controlSystemConfig:
		buf, err := readFull(r, 2+16+16+8+4+4)
		if err != nil {
			return Control{}, err
		}
		var cfg SystemConfig
		i := 0
		cfg.Version = binary.LittleEndian.Uint16(buf[i:])
		i += 2
		copy(cfg.NodeID[:], buf[i:i+16])
		i += 16
		copy(cfg.SessionID[:], buf[i:i+16])
		i += 16
		cfg.UTCTime = binary.LittleEndian.Uint64(buf[i:])
		i += 8
		cfg.PingInterval = binary.LittleEndian.Uint32(buf[i:])
		i += 4
		cfg.SessionTimeout = binary.LittleEndian.Uint32(buf[i:])
		return Control{Payload: cfg}, nil
	case controlPing:
		buf, err := readFull(r, 8)
		if err != nil {
			return Control{}, err
		}
		return Control{Payload: Ping{UTCTime: binary.LittleEndian.Uint64(buf)}}, nil
	default:
		return Control{}, &IllegalControlTypeError{Tag: tag[0]}
	}
}

func writeAll(w io.Writer, buf []byte) error {
	_, err := w.Write(buf)
	return err
}

// readFull reads exactly n bytes, mapping a short or empty read to
// ErrBufferUnsatisfied rather than a bare io.EOF/io.ErrUnexpectedEOF, per
// spec.md's single "need more bytes" signal.
func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrBufferUnsatisfied
		}
		return nil, err
	}
	return buf, nil
}

// readBin reads a [u16 length][bytes] binary field.
func readBin(r io.Reader) ([]byte, error) {
	lenBuf, err := readFull(r, 2)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint16(lenBuf)
	if n == 0 {
		return nil, nil
	}
	return readFull(r, int(n))
}
