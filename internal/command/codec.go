package command

import (
	"fmt"
	"io"
	"sort"

	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/protocol"
)

// NewMessage builds the frame for cmd under message id.
func NewMessage(id uint64, cmd Command) (*protocol.Message, error) {
	if cmd == nil {
		return nil, ErrNilCommand
	}
	return &protocol.Message{
		Header: protocol.Header{
			MessageID:   id,
			MessageType: cmd.Type(),
		},
		Fields: cmd.fields(),
	}, nil
}

// WriteCommand encodes cmd onto w as one frame.
func WriteCommand(w io.Writer, id uint64, cmd Command) error {
	msg, err := NewMessage(id, cmd)
	if err != nil {
		return err
	}
	return protocol.Encode(w, msg)
}

// ReadCommand reads one frame from r and decodes it as a command.
func ReadCommand(r io.Reader) (uint64, Command, error) {
	msg, err := protocol.Decode(r)
	if err != nil {
		return 0, nil, err
	}
	cmd, err := DecodeCommand(msg)
	if err != nil {
		return msg.Header.MessageID, nil, err
	}
	return msg.Header.MessageID, cmd, nil
}

type variant struct {
	fields []protocol.FieldSpec
	build  func(m *protocol.SemanticMessage) (Command, error)
}

var (
	specTeamID = protocol.FieldSpec{ID: fieldTeamID, Type: protocol.FieldString, Required: true}
	specShots  = protocol.FieldSpec{ID: fieldShot, Type: protocol.FieldGroup, Repeated: true}

	shotSpecs = []protocol.FieldSpec{
		{ID: shotX, Type: protocol.FieldInt64, Required: true},
		{ID: shotY, Type: protocol.FieldInt64, Required: true},
		{ID: shotDX, Type: protocol.FieldInt64},
		{ID: shotDY, Type: protocol.FieldInt64},
		{ID: shotTShot, Type: protocol.FieldInt64, Required: true},
		{ID: shotTTap, Type: protocol.FieldInt64, Required: true},
	}
)

func requiredInt(id uint16) protocol.FieldSpec {
	return protocol.FieldSpec{ID: id, Type: protocol.FieldInt64, Required: true}
}

var variants = map[protocol.MessageType]variant{
	MsgConfigure: {
		fields: []protocol.FieldSpec{specTeamID},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return Configure{TeamID: m.Str(fieldTeamID)}, nil
		},
	},
	MsgConfigureWithResolution: {
		fields: []protocol.FieldSpec{
			specTeamID,
			{ID: fieldResolution, Type: protocol.FieldString, Required: true},
		},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return ConfigureWithResolution{TeamID: m.Str(fieldTeamID), Resolution: m.Str(fieldResolution)}, nil
		},
	},
	MsgGetConfiguration: {
		fields: []protocol.FieldSpec{specTeamID},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return GetConfiguration{TeamID: m.Str(fieldTeamID)}, nil
		},
	},
	MsgGetGlobalConfiguration: {
		build: func(*protocol.SemanticMessage) (Command, error) { return GetGlobalConfiguration{}, nil },
	},
	MsgGetStateInfo: {
		build: func(*protocol.SemanticMessage) (Command, error) { return GetStateInfo{}, nil },
	},
	MsgLoadLevel: {
		fields: []protocol.FieldSpec{requiredInt(fieldLevel)},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return LoadLevel{Level: m.Int(fieldLevel)}, nil
		},
	},
	MsgRestart: {
		build: func(*protocol.SemanticMessage) (Command, error) { return Restart{}, nil },
	},
	MsgNextLevel: {
		build: func(*protocol.SemanticMessage) (Command, error) { return NextLevel{}, nil },
	},
	MsgFinishRun: {
		build: func(*protocol.SemanticMessage) (Command, error) { return FinishRun{}, nil },
	},
	MsgFinishPlay: {
		build: func(*protocol.SemanticMessage) (Command, error) { return FinishPlay{}, nil },
	},
	MsgClick: {
		fields: []protocol.FieldSpec{requiredInt(fieldX), requiredInt(fieldY)},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return Click{X: m.Int(fieldX), Y: m.Int(fieldY)}, nil
		},
	},
	MsgDrag: {
		fields: []protocol.FieldSpec{
			requiredInt(fieldX), requiredInt(fieldY), requiredInt(fieldDX), requiredInt(fieldDY),
		},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return Drag{X: m.Int(fieldX), Y: m.Int(fieldY), DX: m.Int(fieldDX), DY: m.Int(fieldDY)}, nil
		},
	},
	MsgMouseWheel: {
		fields: []protocol.FieldSpec{requiredInt(fieldDelta)},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return MouseWheel{Delta: m.Int(fieldDelta)}, nil
		},
	},
	MsgShoot: {
		fields: []protocol.FieldSpec{specShots},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			shots, err := decodeShots(m.All(fieldShot))
			if err != nil {
				return nil, err
			}
			return Shoot{Shots: shots}, nil
		},
	},
	MsgShootWithStateInfoReturned: {
		fields: []protocol.FieldSpec{specShots},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			shots, err := decodeShots(m.All(fieldShot))
			if err != nil {
				return nil, err
			}
			return ShootWithStateInfoReturned{Shots: shots}, nil
		},
	},
	MsgScreenShot: {
		fields: []protocol.FieldSpec{{ID: fieldDirectory, Type: protocol.FieldString}},
		build: func(m *protocol.SemanticMessage) (Command, error) {
			return ScreenShot{Directory: m.Str(fieldDirectory)}, nil
		},
	},
}

// DecodeCommand rebuilds the command carried by msg.
func DecodeCommand(msg *protocol.Message) (Command, error) {
	if msg == nil {
		return nil, ErrNilCommand
	}
	v, ok := variants[msg.Header.MessageType]
	if !ok || msg.IsReply() {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnknownCommand, uint32(msg.Header.MessageType))
	}
	sm, err := protocol.ParseSemantic(msg, protocol.Schema{
		MessageType: msg.Header.MessageType,
		Fields:      v.fields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%04x: %w", ErrMalformed, uint32(msg.Header.MessageType), err)
	}
	cmd, err := v.build(sm)
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%04x: %w", ErrMalformed, uint32(msg.Header.MessageType), err)
	}
	return cmd, nil
}

// Types lists every known command message type in ascending order.
func Types() []protocol.MessageType {
	out := make([]protocol.MessageType, 0, len(variants))
	for t := range variants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func decodeShots(values []protocol.Value) ([]game.Shot, error) {
	shots := make([]game.Shot, 0, len(values))
	for i, v := range values {
		sm, err := protocol.ParseGroup(v.Group, shotSpecs)
		if err != nil {
			return nil, fmt.Errorf("shot[%d]: %w", i, err)
		}
		shots = append(shots, game.Shot{
			X:     sm.Int(shotX),
			Y:     sm.Int(shotY),
			DX:    sm.Int(shotDX),
			DY:    sm.Int(shotDY),
			TShot: sm.Int(shotTShot),
			TTap:  sm.Int(shotTTap),
		})
	}
	return shots, nil
}
