package command

import (
	"fmt"

	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/protocol"
)

// Command is one request sent to the harness. The set is closed: only types
// in this package implement it.
type Command interface {
	// Name is a display name for logs. It never appears on the wire.
	Name() string
	// Type is the stable wire discriminant.
	Type() protocol.MessageType
	// Reply is the shape the harness answers with.
	Reply() ReplyShape

	fields() []protocol.Field
}

// Marker interfaces tie each command to its reply shape at compile time.
// Every variant embeds exactly one of the *Reply helpers below.
type (
	BoolCommand interface {
		Command
		expectsBool()
	}
	BytesCommand interface {
		Command
		expectsBytes()
	}
	StateInfoCommand interface {
		Command
		expectsStateInfo()
	}
	ConfigurationCommand interface {
		Command
		expectsConfiguration()
	}
	GradesCommand interface {
		Command
		expectsGrades()
	}
	OneWayCommand interface {
		Command
		expectsNothing()
	}
)

type boolReply struct{}

func (boolReply) Reply() ReplyShape { return ReplyBool }
func (boolReply) expectsBool()      {}

type bytesReply struct{}

func (bytesReply) Reply() ReplyShape { return ReplyBytes }
func (bytesReply) expectsBytes()     {}

type stateInfoReply struct{}

func (stateInfoReply) Reply() ReplyShape { return ReplyStateInfo }
func (stateInfoReply) expectsStateInfo() {}

type configurationReply struct{}

func (configurationReply) Reply() ReplyShape     { return ReplyConfiguration }
func (configurationReply) expectsConfiguration() {}

type gradesReply struct{}

func (gradesReply) Reply() ReplyShape { return ReplyGrades }
func (gradesReply) expectsGrades()    {}

type noReply struct{}

func (noReply) Reply() ReplyShape { return ReplyNone }
func (noReply) expectsNothing()   {}

// Configure registers the team with the harness.
type Configure struct {
	boolReply
	TeamID string
}

func (Configure) Name() string               { return "Configuration" }
func (Configure) Type() protocol.MessageType { return MsgConfigure }
func (c Configure) String() string           { return fmt.Sprintf("Player  Id: %s is configured", c.TeamID) }
func (c Configure) fields() []protocol.Field {
	return []protocol.Field{protocol.NewFieldString(fieldTeamID, c.TeamID)}
}

// ConfigureWithResolution registers the team and requests a screen resolution.
type ConfigureWithResolution struct {
	boolReply
	TeamID     string
	Resolution string
}

func (ConfigureWithResolution) Name() string               { return "Configuration With Resolution" }
func (ConfigureWithResolution) Type() protocol.MessageType { return MsgConfigureWithResolution }
func (c ConfigureWithResolution) fields() []protocol.Field {
	return []protocol.Field{
		protocol.NewFieldString(fieldTeamID, c.TeamID),
		protocol.NewFieldString(fieldResolution, c.Resolution),
	}
}

// GetConfiguration fetches the player's Configuration.
type GetConfiguration struct {
	configurationReply
	TeamID string
}

func (GetConfiguration) Name() string               { return "Get Configuration" }
func (GetConfiguration) Type() protocol.MessageType { return MsgGetConfiguration }
func (c GetConfiguration) fields() []protocol.Field {
	return []protocol.Field{protocol.NewFieldString(fieldTeamID, c.TeamID)}
}

// GetGlobalConfiguration fetches the best grade per level across players.
type GetGlobalConfiguration struct {
	gradesReply
}

func (GetGlobalConfiguration) Name() string               { return "Get Global Configuration" }
func (GetGlobalConfiguration) Type() protocol.MessageType { return MsgGetGlobalConfiguration }
func (GetGlobalConfiguration) fields() []protocol.Field   { return nil }

type GetStateInfo struct {
	stateInfoReply
}

func (GetStateInfo) Name() string               { return "Get State Info" }
func (GetStateInfo) Type() protocol.MessageType { return MsgGetStateInfo }
func (GetStateInfo) fields() []protocol.Field   { return nil }

// LevelNext asks the harness to load the level after the current one.
const LevelNext = -1

// LoadLevel loads Level, or the next level when Level is LevelNext.
type LoadLevel struct {
	boolReply
	Level int
}

// NewLoadNextLevel returns LoadLevel{Level: LevelNext}.
func NewLoadNextLevel() LoadLevel {
	return LoadLevel{Level: LevelNext}
}

func (LoadLevel) Name() string               { return "Load Level" }
func (LoadLevel) Type() protocol.MessageType { return MsgLoadLevel }
func (c LoadLevel) fields() []protocol.Field {
	return []protocol.Field{protocol.NewFieldInt(fieldLevel, c.Level)}
}

type Restart struct {
	boolReply
}

func (Restart) Name() string               { return "Restart the Level" }
func (Restart) Type() protocol.MessageType { return MsgRestart }
func (Restart) fields() []protocol.Field   { return nil }

type NextLevel struct {
	boolReply
}

func (NextLevel) Name() string               { return "Next Level" }
func (NextLevel) Type() protocol.MessageType { return MsgNextLevel }
func (NextLevel) fields() []protocol.Field   { return nil }

type FinishRun struct {
	boolReply
}

func (FinishRun) Name() string               { return "Finish Run" }
func (FinishRun) Type() protocol.MessageType { return MsgFinishRun }
func (FinishRun) fields() []protocol.Field   { return nil }

type FinishPlay struct {
	noReply
}

func (FinishPlay) Name() string               { return "Finish Play" }
func (FinishPlay) Type() protocol.MessageType { return MsgFinishPlay }
func (FinishPlay) fields() []protocol.Field   { return nil }

type Click struct {
	noReply
	X, Y int
}

func (Click) Name() string               { return "Click" }
func (Click) Type() protocol.MessageType { return MsgClick }
func (c Click) String() string           { return fmt.Sprintf("Click at (%d %d)", c.X, c.Y) }
func (c Click) fields() []protocol.Field {
	return []protocol.Field{
		protocol.NewFieldInt(fieldX, c.X),
		protocol.NewFieldInt(fieldY, c.Y),
	}
}

// Drag presses at (X, Y) and releases at (X+DX, Y+DY).
type Drag struct {
	noReply
	X, Y, DX, DY int
}

func (Drag) Name() string               { return "Drag" }
func (Drag) Type() protocol.MessageType { return MsgDrag }
func (c Drag) String() string {
	return fmt.Sprintf("Drag from (%d %d) to (%d  %d)", c.X, c.Y, c.X+c.DX, c.Y+c.DY)
}
func (c Drag) fields() []protocol.Field {
	return []protocol.Field{
		protocol.NewFieldInt(fieldX, c.X),
		protocol.NewFieldInt(fieldY, c.Y),
		protocol.NewFieldInt(fieldDX, c.DX),
		protocol.NewFieldInt(fieldDY, c.DY),
	}
}

// MouseWheel scrolls by Delta notches; negative zooms out.
type MouseWheel struct {
	noReply
	Delta int
}

func (MouseWheel) Name() string               { return "Mouse Wheel" }
func (MouseWheel) Type() protocol.MessageType { return MsgMouseWheel }
func (c MouseWheel) fields() []protocol.Field {
	return []protocol.Field{protocol.NewFieldInt(fieldDelta, c.Delta)}
}

// Shoot executes Shots in order.
type Shoot struct {
	boolReply
	Shots []game.Shot
}

func (Shoot) Name() string               { return "Shoot Cmd" }
func (Shoot) Type() protocol.MessageType { return MsgShoot }
func (c Shoot) fields() []protocol.Field { return shotFields(c.Shots) }

// ShootWithStateInfoReturned executes Shots in order and answers with the
// resulting StateInfo.
type ShootWithStateInfoReturned struct {
	stateInfoReply
	Shots []game.Shot
}

func (ShootWithStateInfoReturned) Name() string { return "Shoot Cmd (with state returned)" }
func (ShootWithStateInfoReturned) Type() protocol.MessageType {
	return MsgShootWithStateInfoReturned
}
func (c ShootWithStateInfoReturned) fields() []protocol.Field { return shotFields(c.Shots) }

// ScreenShot requests the current frame. Directory is optional and passed
// through to the harness untouched.
type ScreenShot struct {
	bytesReply
	Directory string
}

func (ScreenShot) Name() string               { return "Screen Shot" }
func (ScreenShot) Type() protocol.MessageType { return MsgScreenShot }
func (c ScreenShot) fields() []protocol.Field {
	return []protocol.Field{protocol.NewFieldString(fieldDirectory, c.Directory)}
}

func shotFields(shots []game.Shot) []protocol.Field {
	out := make([]protocol.Field, 0, len(shots))
	for _, s := range shots {
		out = append(out, protocol.NewFieldGroup(fieldShot,
			protocol.NewFieldInt(shotX, s.X),
			protocol.NewFieldInt(shotY, s.Y),
			protocol.NewFieldInt(shotDX, s.DX),
			protocol.NewFieldInt(shotDY, s.DY),
			protocol.NewFieldInt(shotTShot, s.TShot),
			protocol.NewFieldInt(shotTTap, s.TTap),
		))
	}
	return out
}

var (
	_ BoolCommand          = Configure{}
	_ BoolCommand          = ConfigureWithResolution{}
	_ ConfigurationCommand = GetConfiguration{}
	_ GradesCommand        = GetGlobalConfiguration{}
	_ StateInfoCommand     = GetStateInfo{}
	_ BoolCommand          = LoadLevel{}
	_ BoolCommand          = Restart{}
	_ BoolCommand          = NextLevel{}
	_ BoolCommand          = FinishRun{}
	_ OneWayCommand        = FinishPlay{}
	_ OneWayCommand        = Click{}
	_ OneWayCommand        = Drag{}
	_ OneWayCommand        = MouseWheel{}
	_ BoolCommand          = Shoot{}
	_ StateInfoCommand     = ShootWithStateInfoReturned{}
	_ BytesCommand         = ScreenShot{}
)
