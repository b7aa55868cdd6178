package reaction

import "github.com/zhouzirui/jokebox/internal/display"

// Mood 设备对评分的反应类别（原型中的舵机笑脸与蜂鸣器效果都由它驱动）。
type Mood string

const (
	Groan   Mood = "groan"
	Meh     Mood = "meh"
	Smile   Mood = "smile"
	Laugh   Mood = "laugh"
	Roar    Mood = "roar"
	Neutral Mood = "neutral"
)

// Reaction 评分对应的展示方式。
type Reaction struct {
	Mood    Mood
	Color   display.Color
	Message string
	// Intensity 0-1，用于驱动外设动作幅度。
	Intensity float32
}

var reactions = map[int]Reaction{
	1: {Mood: Groan, Color: display.Red, Message: "Tough crowd...", Intensity: 0.1},
	2: {Mood: Meh, Color: display.Magenta, Message: "I'll try harder.", Intensity: 0.3},
	3: {Mood: Smile, Color: display.Yellow, Message: "Not bad!", Intensity: 0.5},
	4: {Mood: Laugh, Color: display.Green, Message: "Glad you liked it!", Intensity: 0.8},
	5: {Mood: Roar, Color: display.Cyan, Message: "Comedy gold!", Intensity: 1},
}

// Analyze 根据 1-5 的评分给出反应，越界的分数返回中性反应。
func Analyze(score int) Reaction {
	if r, ok := reactions[score]; ok {
		return r
	}
	return Reaction{Mood: Neutral, Color: display.White, Message: "Thanks anyway.", Intensity: 0}
}
