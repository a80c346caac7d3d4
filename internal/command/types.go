package command

import "github.com/danmuck/birdctl/internal/protocol"

// Command message types. Values identify a variant on the wire and are never
// reused or renumbered; new commands take the next free value in their block.
const (
	MsgConfigure               protocol.MessageType = 0x0101
	MsgConfigureWithResolution protocol.MessageType = 0x0102
	MsgGetConfiguration        protocol.MessageType = 0x0103
	MsgGetGlobalConfiguration  protocol.MessageType = 0x0104
	MsgGetStateInfo            protocol.MessageType = 0x0105

	MsgLoadLevel  protocol.MessageType = 0x0201
	MsgRestart    protocol.MessageType = 0x0202
	MsgNextLevel  protocol.MessageType = 0x0203
	MsgFinishRun  protocol.MessageType = 0x0204
	MsgFinishPlay protocol.MessageType = 0x0205

	MsgClick      protocol.MessageType = 0x0301
	MsgDrag       protocol.MessageType = 0x0302
	MsgMouseWheel protocol.MessageType = 0x0303

	MsgShoot                      protocol.MessageType = 0x0401
	MsgShootWithStateInfoReturned protocol.MessageType = 0x0402

	MsgScreenShot protocol.MessageType = 0x0501
)

// Reply message types.
const (
	MsgReplyBool          protocol.MessageType = 0x8001
	MsgReplyBytes         protocol.MessageType = 0x8002
	MsgReplyStateInfo     protocol.MessageType = 0x8003
	MsgReplyConfiguration protocol.MessageType = 0x8004
	MsgReplyGrades        protocol.MessageType = 0x8005
)

// Command field IDs.
const (
	fieldTeamID     uint16 = 1
	fieldResolution uint16 = 2
	fieldLevel      uint16 = 3

	fieldX     uint16 = 10
	fieldY     uint16 = 11
	fieldDX    uint16 = 12
	fieldDY    uint16 = 13
	fieldDelta uint16 = 14

	fieldShot uint16 = 20

	fieldDirectory uint16 = 30
)

// Shot group field IDs.
const (
	shotX     uint16 = 1
	shotY     uint16 = 2
	shotDX    uint16 = 3
	shotDY    uint16 = 4
	shotTShot uint16 = 5
	shotTTap  uint16 = 6
)

// Reply field IDs.
const (
	fieldAck  uint16 = 100
	fieldBlob uint16 = 101

	fieldScore uint16 = 110
	fieldState uint16 = 111

	fieldPlayerID      uint16 = 120
	fieldCurrentLevel  uint16 = 121
	fieldRun           uint16 = 122
	fieldMaxLevel      uint16 = 123
	fieldScreenshotDir uint16 = 124
	fieldMainDir       uint16 = 125
	fieldGrade         uint16 = 126
)

// Grade group field IDs.
const (
	gradeLevel uint16 = 1
	gradeValue uint16 = 2
)

// ReplyShape is what the harness sends back for a command. It is not
// self-describing from the command frame; each variant declares it.
type ReplyShape int

const (
	ReplyNone ReplyShape = iota
	ReplyBool
	ReplyBytes
	ReplyStateInfo
	ReplyConfiguration
	ReplyGrades
)

func (s ReplyShape) String() string {
	switch s {
	case ReplyNone:
		return "none"
	case ReplyBool:
		return "bool"
	case ReplyBytes:
		return "bytes"
	case ReplyStateInfo:
		return "state_info"
	case ReplyConfiguration:
		return "configuration"
	case ReplyGrades:
		return "grades"
	default:
		return "unknown"
	}
}

// MessageType returns the reply frame type for s. ReplyNone has none.
func (s ReplyShape) MessageType() (protocol.MessageType, bool) {
	switch s {
	case ReplyBool:
		return MsgReplyBool, true
	case ReplyBytes:
		return MsgReplyBytes, true
	case ReplyStateInfo:
		return MsgReplyStateInfo, true
	case ReplyConfiguration:
		return MsgReplyConfiguration, true
	case ReplyGrades:
		return MsgReplyGrades, true
	default:
		return 0, false
	}
}
