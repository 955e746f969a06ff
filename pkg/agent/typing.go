package agent

import (
	"math/rand"
	"time"

	"github.com/aika-bot/aika/pkg/affection"
)

// Characters per minute by pace.
var typingSpeeds = map[string]float64{
	"slow":   100,
	"normal": 200,
	"fast":   350,
}

// Thinking pause bounds in seconds.
var thinkingTimes = map[string][2]float64{
	"short":  {1, 2},
	"medium": {2, 4},
	"long":   {4, 8},
}

// TypingParams tells a channel how to fake typing for one message.
type TypingParams struct {
	Speed    string
	Thinking string
	Duration time.Duration
}

// TypingParamsFor picks a typing pace from the affection band and the
// message length. Warmer relationships type faster with less pause.
func TypingParamsFor(message string, lvl affection.Level, rng *rand.Rand) TypingParams {
	speed := "slow"
	thinking := "long"
	switch {
	case levelAtLeast(lvl, "Crush"):
		speed, thinking = "fast", "short"
	case levelAtLeast(lvl, "Friend"):
		speed, thinking = "normal", "medium"
	}
	if len([]rune(message)) > 100 {
		speed = "slow"
	}

	return TypingParams{
		Speed:    speed,
		Thinking: thinking,
		Duration: typingDuration(message, speed, thinking, rng),
	}
}

func typingDuration(message, speed, thinking string, rng *rand.Rand) time.Duration {
	cpm, ok := typingSpeeds[speed]
	if !ok {
		cpm = typingSpeeds["normal"]
	}
	typingSeconds := float64(len([]rune(message))) / cpm * 60

	bounds, ok := thinkingTimes[thinking]
	if !ok {
		bounds = thinkingTimes["medium"]
	}
	var r float64
	if rng != nil {
		r = rng.Float64()
	} else {
		r = rand.Float64()
	}
	thinkingSeconds := bounds[0] + r*(bounds[1]-bounds[0])

	return time.Duration((typingSeconds + thinkingSeconds) * float64(time.Second))
}
