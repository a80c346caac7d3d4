package command

import (
	"fmt"
	"io"
	"sort"

	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/protocol"
)

var gradeSpecs = []protocol.FieldSpec{
	{ID: gradeLevel, Type: protocol.FieldInt64, Required: true},
	{ID: gradeValue, Type: protocol.FieldInt64, Required: true},
}

var replySchemas = map[protocol.MessageType][]protocol.FieldSpec{
	MsgReplyBool:  {{ID: fieldAck, Type: protocol.FieldBool, Required: true}},
	MsgReplyBytes: {{ID: fieldBlob, Type: protocol.FieldBytes, Required: true}},
	MsgReplyStateInfo: {
		{ID: fieldScore, Type: protocol.FieldInt64, Required: true},
		{ID: fieldState, Type: protocol.FieldString, Required: true},
	},
	MsgReplyConfiguration: {
		{ID: fieldPlayerID, Type: protocol.FieldString, Required: true},
		{ID: fieldCurrentLevel, Type: protocol.FieldInt64, Required: true},
		{ID: fieldRun, Type: protocol.FieldInt64, Required: true},
		{ID: fieldMaxLevel, Type: protocol.FieldInt64, Required: true},
		{ID: fieldScreenshotDir, Type: protocol.FieldString},
		{ID: fieldMainDir, Type: protocol.FieldString},
		{ID: fieldGrade, Type: protocol.FieldGroup, Repeated: true},
	},
	MsgReplyGrades: {{ID: fieldGrade, Type: protocol.FieldGroup, Repeated: true}},
}

func replyMessage(id uint64, t protocol.MessageType, fields ...protocol.Field) *protocol.Message {
	return &protocol.Message{
		Header: protocol.Header{
			MessageID:   id,
			MessageType: t,
			Flags:       protocol.FlagIsReply,
		},
		Fields: fields,
	}
}

// WriteReply encodes a reply frame built by one of the New*Reply functions.
func WriteReply(w io.Writer, msg *protocol.Message) error {
	return protocol.Encode(w, msg)
}

func NewBoolReply(id uint64, ack bool) *protocol.Message {
	return replyMessage(id, MsgReplyBool, protocol.NewFieldBool(fieldAck, ack))
}

func NewBytesReply(id uint64, blob []byte) *protocol.Message {
	return replyMessage(id, MsgReplyBytes, protocol.NewFieldBytes(fieldBlob, blob))
}

func NewStateInfoReply(id uint64, info game.StateInfo) *protocol.Message {
	return replyMessage(id, MsgReplyStateInfo,
		protocol.NewFieldInt(fieldScore, info.Score),
		protocol.NewFieldString(fieldState, info.State),
	)
}

func NewConfigurationReply(id uint64, cfg game.Configuration) *protocol.Message {
	fields := []protocol.Field{
		protocol.NewFieldString(fieldPlayerID, cfg.PlayerID),
		protocol.NewFieldInt(fieldCurrentLevel, cfg.CurrentLevel),
		protocol.NewFieldInt(fieldRun, cfg.Run),
		protocol.NewFieldInt(fieldMaxLevel, cfg.MaxLevel),
		protocol.NewFieldString(fieldScreenshotDir, cfg.ScreenshotDir),
		protocol.NewFieldString(fieldMainDir, cfg.MainDir),
	}
	fields = append(fields, gradeFields(cfg.LevelGrades)...)
	return replyMessage(id, MsgReplyConfiguration, fields...)
}

func NewGradesReply(id uint64, grades map[int]int) *protocol.Message {
	return replyMessage(id, MsgReplyGrades, gradeFields(grades)...)
}

// DecodeBoolReply returns the acknowledgement carried by msg.
func DecodeBoolReply(msg *protocol.Message) (bool, error) {
	sm, err := parseReply(msg, MsgReplyBool)
	if err != nil {
		return false, err
	}
	return sm.Fields[fieldAck].Bool, nil
}

func DecodeBytesReply(msg *protocol.Message) ([]byte, error) {
	sm, err := parseReply(msg, MsgReplyBytes)
	if err != nil {
		return nil, err
	}
	return sm.Fields[fieldBlob].Bytes, nil
}

func DecodeStateInfoReply(msg *protocol.Message) (game.StateInfo, error) {
	sm, err := parseReply(msg, MsgReplyStateInfo)
	if err != nil {
		return game.StateInfo{}, err
	}
	return game.StateInfo{Score: sm.Int(fieldScore), State: sm.Str(fieldState)}, nil
}

func DecodeConfigurationReply(msg *protocol.Message) (game.Configuration, error) {
	sm, err := parseReply(msg, MsgReplyConfiguration)
	if err != nil {
		return game.Configuration{}, err
	}
	grades, err := decodeGrades(sm.All(fieldGrade))
	if err != nil {
		return game.Configuration{}, err
	}
	return game.Configuration{
		PlayerID:      sm.Str(fieldPlayerID),
		CurrentLevel:  sm.Int(fieldCurrentLevel),
		Run:           sm.Int(fieldRun),
		MaxLevel:      sm.Int(fieldMaxLevel),
		ScreenshotDir: sm.Str(fieldScreenshotDir),
		MainDir:       sm.Str(fieldMainDir),
		LevelGrades:   grades,
	}, nil
}

func DecodeGradesReply(msg *protocol.Message) (map[int]int, error) {
	sm, err := parseReply(msg, MsgReplyGrades)
	if err != nil {
		return nil, err
	}
	return decodeGrades(sm.All(fieldGrade))
}

// CheckReplyShape verifies that msg is a reply frame of the given shape
// without decoding its fields.
func CheckReplyShape(msg *protocol.Message, shape ReplyShape) error {
	want, ok := shape.MessageType()
	if !ok {
		return fmt.Errorf("%w: %s has no reply frame", ErrReplyShapeMismatch, shape)
	}
	if !msg.IsReply() {
		return ErrNotReply
	}
	if msg.Header.MessageType != want {
		return fmt.Errorf("%w: want %s got 0x%04x", ErrReplyShapeMismatch, shape, uint32(msg.Header.MessageType))
	}
	return nil
}

func parseReply(msg *protocol.Message, want protocol.MessageType) (*protocol.SemanticMessage, error) {
	if msg == nil {
		return nil, ErrNotReply
	}
	if !msg.IsReply() {
		return nil, ErrNotReply
	}
	if msg.Header.MessageType != want {
		return nil, fmt.Errorf("%w: want 0x%04x got 0x%04x", ErrReplyShapeMismatch, uint32(want), uint32(msg.Header.MessageType))
	}
	sm, err := protocol.ParseSemantic(msg, protocol.Schema{MessageType: want, Fields: replySchemas[want]})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return sm, nil
}

func gradeFields(grades map[int]int) []protocol.Field {
	levels := make([]int, 0, len(grades))
	for level := range grades {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	out := make([]protocol.Field, 0, len(levels))
	for _, level := range levels {
		out = append(out, protocol.NewFieldGroup(fieldGrade,
			protocol.NewFieldInt(gradeLevel, level),
			protocol.NewFieldInt(gradeValue, grades[level]),
		))
	}
	return out
}

func decodeGrades(values []protocol.Value) (map[int]int, error) {
	grades := make(map[int]int, len(values))
	for i, v := range values {
		sm, err := protocol.ParseGroup(v.Group, gradeSpecs)
		if err != nil {
			return nil, fmt.Errorf("%w: grade[%d]: %w", ErrMalformed, i, err)
		}
		grades[sm.Int(gradeLevel)] = sm.Int(gradeValue)
	}
	return grades, nil
}
