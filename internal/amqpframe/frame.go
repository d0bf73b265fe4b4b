package amqpframe

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

// ProtocolHeader is the 8-byte greeting a client sends before any frame:
// "AMQP" 0 major minor revision.
var ProtocolHeader = []byte{'A', 'M', 'Q', 'P', 0, 0, 9, 1}

// ReadProtocolHeader reads and validates the greeting. Any mismatch is a
// DecodeError (spec: malformed input aborts the connection).
func ReadProtocolHeader(r io.Reader) error {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, ProtocolHeader) {
		return &DecodeError{Reason: "bad protocol header"}
	}
	return nil
}

// ContentHeader carries a publish's total body size and basic-properties.
type ContentHeader struct {
	BodySize   uint64
	Properties Table
}

// ContentBody is one chunk of a publish's payload bytes.
type ContentBody struct {
	Payload []byte
}

// Heartbeat is the empty keep-alive frame.
type Heartbeat struct{}

// basic-properties bit order, MSB (bit 15) to LSB, per AMQP 0-9-1 class.basic.
var propertyOrder = []string{
	"content_type", "content_encoding", "headers", "delivery_mode", "priority",
	"correlation_id", "reply_to", "expiration", "message_id", "timestamp",
	"type", "user_id", "app_id", "cluster_id",
}

func encodeProperties(w *writer, props Table) {
	var flags uint16
	var body writer
	for i, name := range propertyOrder {
		v, ok := props[name]
		if !ok || v == nil {
			continue
		}
		flags |= 1 << uint(15-i)
		switch name {
		case "headers":
			if t, ok := v.(Table); ok {
				body.rawTable(t)
			} else if m, ok := v.(map[string]any); ok {
				body.rawTable(Table(m))
			} else {
				body.rawTable(Table{})
			}
		case "delivery_mode", "priority":
			body.octet(toByte(v))
		case "timestamp":
			body.longlong(toUint64(v))
		default:
			body.shortstr(toStr(v))
		}
	}
	w.short(flags)
	w.buf.Write(body.buf.Bytes())
}

func decodeProperties(r *reader) (Table, error) {
	flags, err := r.short()
	if err != nil {
		return nil, err
	}
	props := Table{}
	for i, name := range propertyOrder {
		if flags&(1<<uint(15-i)) == 0 {
			continue
		}
		switch name {
		case "headers":
			t, err := r.table()
			if err != nil {
				return nil, err
			}
			props[name] = t
		case "delivery_mode", "priority":
			b, err := r.octet()
			if err != nil {
				return nil, err
			}
			props[name] = b
		case "timestamp":
			t, err := r.longlong()
			if err != nil {
				return nil, err
			}
			props[name] = int64(t)
		default:
			s, err := r.shortstr()
			if err != nil {
				return nil, err
			}
			props[name] = s
		}
	}
	return props, nil
}

func toByte(v any) byte {
	switch x := v.(type) {
	case byte:
		return x
	case int:
		return byte(x)
	case int8:
		return byte(x)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case int64:
		return uint64(x)
	case int:
		return uint64(x)
	case uint64:
		return x
	default:
		return 0
	}
}

func toStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// MarshalContentHeader encodes class-id(Basic)+weight(0)+body-size+properties.
func MarshalContentHeader(h ContentHeader) []byte {
	var w writer
	w.short(ClassBasic)
	w.short(0) // weight
	w.longlong(h.BodySize)
	encodeProperties(&w, h.Properties)
	return w.buf.Bytes()
}

// DecodeContentHeader parses a content-header frame payload.
func DecodeContentHeader(payload []byte) (ContentHeader, error) {
	r := newReader(payload)
	if _, err := r.short(); err != nil { // class-id
		return ContentHeader{}, err
	}
	if _, err := r.short(); err != nil { // weight
		return ContentHeader{}, err
	}
	size, err := r.longlong()
	if err != nil {
		return ContentHeader{}, err
	}
	props, err := decodeProperties(r)
	if err != nil {
		return ContentHeader{}, err
	}
	return ContentHeader{BodySize: size, Properties: props}, nil
}

// --- generic frame I/O ------------------------------------------------------

// ReadFrame blocks until one full frame has arrived on r, returning its
// channel id and decoded payload. A frame whose trailing octet is not
// FrameEnd is a DecodeError per spec §4.1 ("malformed input within an
// otherwise-complete frame ... aborts the connection").
func ReadFrame(r *bufio.Reader) (channelID uint16, frame any, err error) {
	head := make([]byte, 7)
	if _, err = io.ReadFull(r, head); err != nil {
		return 0, nil, err
	}
	typ := head[0]
	channelID = binary.BigEndian.Uint16(head[1:3])
	size := binary.BigEndian.Uint32(head[3:7])

	payload := make([]byte, size)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	end, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	if end != FrameEnd {
		return 0, nil, &DecodeError{Reason: "missing frame-end octet"}
	}

	switch typ {
	case TypeMethod:
		m, err := DecodeMethod(payload)
		return channelID, m, err
	case TypeHeader:
		h, err := DecodeContentHeader(payload)
		return channelID, h, err
	case TypeBody:
		return channelID, ContentBody{Payload: payload}, nil
	case TypeHeartbeat:
		return channelID, Heartbeat{}, nil
	default:
		return 0, nil, &DecodeError{Reason: "unknown frame type"}
	}
}

// WriteFrame writes one complete frame (header, payload, frame-end) to w.
func WriteFrame(w io.Writer, channelID uint16, typ byte, payload []byte) error {
	head := make([]byte, 7)
	head[0] = typ
	binary.BigEndian.PutUint16(head[1:3], channelID)
	binary.BigEndian.PutUint32(head[3:7], uint32(len(payload)))
	if _, err := w.Write(head); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err := w.Write([]byte{FrameEnd})
	return err
}

// WriteMethod encodes and writes a method frame.
func WriteMethod(w io.Writer, channelID uint16, m Method) error {
	payload, err := MarshalMethod(m)
	if err != nil {
		return err
	}
	return WriteFrame(w, channelID, TypeMethod, payload)
}

// WriteContentHeader encodes and writes a content-header frame.
func WriteContentHeader(w io.Writer, channelID uint16, h ContentHeader) error {
	return WriteFrame(w, channelID, TypeHeader, MarshalContentHeader(h))
}

// WriteContentBody encodes and writes a content-body frame.
func WriteContentBody(w io.Writer, channelID uint16, payload []byte) error {
	return WriteFrame(w, channelID, TypeBody, payload)
}
