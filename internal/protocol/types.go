package protocol

const (
	// Magic is "BIRD" in ASCII.
	Magic      uint32 = 0x42495244
	Version    uint16 = 1
	HeaderSize uint16 = 32

	// FlagIsReply marks frames written by the harness in answer to a command.
	FlagIsReply uint32 = 0x02

	// DefaultMaxPayload bounds a single frame payload. Screenshots are the largest replies.
	DefaultMaxPayload uint64 = 64 * 1024 * 1024
)

// MessageType is the stable wire discriminant of a frame. Values are assigned
// explicitly and are never reused or renumbered.
type MessageType uint32

// FieldType is the TLV type tag of one payload field.
type FieldType uint8

const (
	// FieldInt64 is a big-endian two's complement integer.
	FieldInt64  FieldType = 1
	FieldBool   FieldType = 2
	FieldString FieldType = 3
	FieldBytes  FieldType = 4
	// FieldGroup carries a nested TLV payload.
	FieldGroup FieldType = 5
)

func (t FieldType) String() string {
	switch t {
	case FieldInt64:
		return "int64"
	case FieldBool:
		return "bool"
	case FieldString:
		return "string"
	case FieldBytes:
		return "bytes"
	case FieldGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Header is the fixed 32-byte frame header.
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageID   uint64
	MessageType MessageType
	Flags       uint32
	PayloadLen  uint64
}

// Field is one TLV payload field.
type Field struct {
	ID    uint16
	Type  FieldType
	Value []byte
}

// Message is one complete frame: header plus ordered fields.
type Message struct {
	Header Header
	Fields []Field
}

// IsReply reports whether the frame carries FlagIsReply.
func (m *Message) IsReply() bool {
	return m != nil && m.Header.Flags&FlagIsReply != 0
}
