package affection

import "strings"

// ActionDecay is the pseudo-action that applies inactivity decay.
const ActionDecay = "decay"

// ActionBaseMessage is the flat per-message bump applied when no other
// action triggered.
const ActionBaseMessage = "base_message"

// ActionNeutral is the no-op sentiment result.
const ActionNeutral = "neutral"

// Context carries per-user counters into a scoring calculation.
type Context struct {
	ConsecutivePositive int
	ConsecutiveNegative int
	DaysInactive        int
}

// Calculator is the pure scoring function over an immutable policy.
type Calculator struct {
	policy *Policy
}

func NewCalculator(policy *Policy) *Calculator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Calculator{policy: policy}
}

// CalculateChange returns the post-clamp score delta for action at
// currentScore. Callers add the returned value as-is: it already equals
// clamp(currentScore+raw, 0, 100) - currentScore, so the stored score
// can never leave [0,100].
func (c *Calculator) CalculateChange(action string, currentScore float64, ctx Context) float64 {
	change := 0.0

	if factor, ok := c.policy.PositiveFactors[action]; ok {
		change = factor

		// Diminishing returns once affection is already high.
		if currentScore > 80 {
			change *= 0.7
		} else if currentScore > 60 {
			change *= 0.85
		}
		if ctx.ConsecutivePositive > 3 {
			change *= 1.2
		}
	} else if factor, ok := c.policy.NegativeFactors[action]; ok {
		change = factor

		// Low affection makes negative actions sting harder.
		if currentScore < 30 {
			change *= 1.3
		}
		if ctx.ConsecutiveNegative > 2 {
			change *= 1.3
		}
	} else if action == ActionBaseMessage {
		change = c.policy.BaseMessage
	} else if action == ActionDecay {
		if ctx.DaysInactive >= c.policy.DecayThresholdDays {
			change = -c.policy.DecayRate * float64(ctx.DaysInactive-c.policy.DecayThresholdDays+1)
		}
	}

	newScore := clampScore(currentScore + change)
	return newScore - currentScore
}

// AnalyzeSentiment classifies a message into a scoring action by
// counting keyword occurrences (case-insensitive substring match).
// A mention of another girl takes absolute priority; otherwise the
// majority of positive vs negative matches decides; ties are neutral.
func (c *Calculator) AnalyzeSentiment(message string) (string, float64) {
	message = strings.ToLower(message)

	positiveCount := countMatches(message, c.policy.PositiveWords)
	negativeCount := countMatches(message, c.policy.NegativeWords)
	otherGirlCount := countMatches(message, c.policy.OtherGirlWords)

	if otherGirlCount > 0 {
		return "mention_other_girl", -5.0
	}
	if positiveCount > negativeCount {
		magnitude := float64(positiveCount) * 0.5
		if magnitude > 2.0 {
			magnitude = 2.0
		}
		return "compliment", magnitude
	}
	if negativeCount > positiveCount {
		magnitude := -float64(negativeCount)
		if magnitude < -5.0 {
			magnitude = -5.0
		}
		return "rude", magnitude
	}
	return ActionNeutral, 0.0
}

func countMatches(message string, words []string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(message, strings.ToLower(word)) {
			count++
		}
	}
	return count
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
