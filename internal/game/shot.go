package game

import "fmt"

// Shot is one scheduled input: a press at (X, Y) dragged by (DX, DY),
// released at TShot and tapped at TTap. Position in a shot sequence is
// execution order.
type Shot struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	DX    int `json:"dx" yaml:"dx"`
	DY    int `json:"dy" yaml:"dy"`
	TShot int `json:"t_shot" yaml:"t_shot"`
	TTap  int `json:"t_tap" yaml:"t_tap"`
}

// NewShot builds a shot with a zero drag delta.
func NewShot(x, y, tShot, tTap int) Shot {
	return Shot{X: x, Y: y, TShot: tShot, TTap: tTap}
}

// NewDragShot builds a shot with an explicit drag delta.
func NewDragShot(x, y, dx, dy, tShot, tTap int) Shot {
	return Shot{X: x, Y: y, DX: dx, DY: dy, TShot: tShot, TTap: tTap}
}

func (s Shot) String() string {
	return fmt.Sprintf("Shoot from: (%d  %d ) at time %d tap at %d", s.X, s.Y, s.TShot, s.TTap)
}
