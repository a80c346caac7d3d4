package game

import (
	"fmt"
	"sort"
	"strings"
)

// Configuration is the per-player record kept by the harness. Local changes
// made through its methods stay local until the caller persists them.
type Configuration struct {
	PlayerID      string      `json:"player_id" yaml:"player_id"`
	CurrentLevel  int         `json:"current_level" yaml:"current_level"`
	Run           int         `json:"run" yaml:"run"`
	MaxLevel      int         `json:"max_level" yaml:"max_level"`
	ScreenshotDir string      `json:"screenshot_dir" yaml:"screenshot_dir"`
	MainDir       string      `json:"main_dir" yaml:"main_dir"`
	LevelGrades   map[int]int `json:"level_grades" yaml:"level_grades"`
}

func (c *Configuration) IncreaseMax() {
	c.MaxLevel++
}

func (c *Configuration) IncreaseRun() {
	c.Run++
}

// UpdateLevelGrades records grade for the current level if it beats the
// stored one.
func (c *Configuration) UpdateLevelGrades(grade int) {
	if c.LevelGrades == nil {
		c.LevelGrades = make(map[int]int)
	}
	if prev, ok := c.LevelGrades[c.CurrentLevel]; ok && prev >= grade {
		return
	}
	c.LevelGrades[c.CurrentLevel] = grade
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := c
	if c.LevelGrades != nil {
		out.LevelGrades = make(map[int]int, len(c.LevelGrades))
		for k, v := range c.LevelGrades {
			out.LevelGrades[k] = v
		}
	}
	return out
}

// Levels returns the graded levels in ascending order.
func (c Configuration) Levels() []int {
	levels := make([]int, 0, len(c.LevelGrades))
	for level := range c.LevelGrades {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func (c Configuration) String() string {
	var b strings.Builder
	b.WriteString("Configuration: #########################\n")
	fmt.Fprintf(&b, " The player is %s\n Current Level: %d\n Max Level: %d", c.PlayerID, c.CurrentLevel, c.MaxLevel)
	for _, level := range c.Levels() {
		fmt.Fprintf(&b, "\n Level %d Grades: %d", level, c.LevelGrades[level])
	}
	b.WriteString("\n #########################\n")
	return b.String()
}
