package game

// Labels reported by the harness in StateInfo.State.
const (
	StatePlaying = "PLAYING"
	StateWon     = "WON"
	StateLost    = "LOST"
)

// StateInfo is the harness view of the running level. Only the harness
// produces one.
type StateInfo struct {
	Score int    `json:"score" yaml:"score"`
	State string `json:"state" yaml:"state"`
}

func (s StateInfo) Playing() bool { return s.State == StatePlaying }
func (s StateInfo) Won() bool     { return s.State == StateWon }
func (s StateInfo) Lost() bool    { return s.State == StateLost }
