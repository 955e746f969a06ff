package affection

import "time"

// Mood names used by State.CurrentMood.
const (
	MoodHappy   = "happy"
	MoodSad     = "sad"
	MoodAngry   = "angry"
	MoodJealous = "jealous"
	MoodNeutral = "neutral"
	MoodExcited = "excited"
)

// SpecialEvent is one recorded relationship milestone.
type SpecialEvent struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// State is the per-user affection record. Created lazily on first
// access, never deleted, persisted as a whole snapshot after every
// mutation.
type State struct {
	UserID          string    `json:"user_id"`
	Score           float64   `json:"score"`
	LastInteraction time.Time `json:"last_interaction"`

	InteractionCount    int `json:"interaction_count"`
	ConsecutivePositive int `json:"consecutive_positive"`
	ConsecutiveNegative int `json:"consecutive_negative"`

	CurrentMood   string  `json:"current_mood"`
	MoodIntensity float64 `json:"mood_intensity"`
	MoodReason    string  `json:"mood_reason"`

	IsIgnoring  bool       `json:"is_ignoring"`
	IgnoreUntil *time.Time `json:"ignore_until,omitempty"`

	SpecialEvents []SpecialEvent `json:"special_events"`

	TotalMessages        int `json:"total_messages"`
	PositiveInteractions int `json:"positive_interactions"`
	NegativeInteractions int `json:"negative_interactions"`
	GiftsReceived        int `json:"gifts_received"`
	DatesHad             int `json:"dates_had"`
}

func newState(userID string, now time.Time) *State {
	return &State{
		UserID:          userID,
		Score:           20.0,
		LastInteraction: now,
		CurrentMood:     MoodNeutral,
		MoodIntensity:   0.5,
		SpecialEvents:   []SpecialEvent{},
	}
}
