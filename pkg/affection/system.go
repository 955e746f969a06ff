package affection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aika-bot/aika/pkg/logger"
)

const sulkDuration = 30 * time.Minute

// Status is a derived snapshot of a user's relationship.
type Status struct {
	Score            float64 `json:"score"`
	Level            string  `json:"level"`
	NextLevel        string  `json:"next_level"`
	ProgressToNext   float64 `json:"progress_to_next"`
	Mood             string  `json:"mood"`
	MoodIntensity    float64 `json:"mood_intensity"`
	IsIgnoring       bool    `json:"is_ignoring"`
	InteractionCount int     `json:"interaction_count"`
	Greeting         string  `json:"greeting"`
}

// System owns all per-user affection state and its persistence file.
// All methods serialize on one mutex: the snapshot file is rewritten in
// full on every mutation, so writers must not interleave.
type System struct {
	statesFile string
	calc       *Calculator

	mu     sync.Mutex
	states map[string]*State

	now func() time.Time
}

// NewSystem loads (or lazily creates) the affection state file under
// dataDir. A nil policy selects the built-in table.
func NewSystem(dataDir string, policy *Policy) (*System, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create affection data dir: %w", err)
	}
	s := &System{
		statesFile: filepath.Join(dataDir, "affection_states.json"),
		calc:       NewCalculator(policy),
		states:     map[string]*State{},
		now:        time.Now,
	}
	s.loadStates()
	return s, nil
}

func (s *System) loadStates() {
	data, err := os.ReadFile(s.statesFile)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.ErrorCF("affection", "failed to load affection states", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	states := map[string]*State{}
	if err := json.Unmarshal(data, &states); err != nil {
		logger.ErrorCF("affection", "failed to parse affection states", map[string]interface{}{"error": err.Error()})
		return
	}
	s.states = states
}

// saveStatesLocked snapshots all states. Write failures are logged and
// swallowed; in-memory state stays authoritative.
func (s *System) saveStatesLocked() {
	data, err := json.MarshalIndent(s.states, "", "  ")
	if err != nil {
		logger.ErrorCF("affection", "failed to marshal affection states", map[string]interface{}{"error": err.Error()})
		return
	}
	tmp := s.statesFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.ErrorCF("affection", "failed to write affection states", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := os.Rename(tmp, s.statesFile); err != nil {
		logger.ErrorCF("affection", "failed to replace affection states", map[string]interface{}{"error": err.Error()})
	}
}

func (s *System) stateLocked(userID string) *State {
	st, ok := s.states[userID]
	if !ok {
		st = newState(userID, s.now())
		s.states[userID] = st
	}
	return st
}

// GetState returns a copy of the user's state, creating it if needed.
func (s *System) GetState(userID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.stateLocked(userID)
}

// GetLevel returns the user's current band.
func (s *System) GetLevel(userID string) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LevelForScore(s.stateLocked(userID).Score)
}

// Update applies one scoring action and persists the snapshot.
// While sulking it is a no-op that reports the remaining cooldown; the
// transition back to normal happens lazily on the first call after
// IgnoreUntil elapses.
func (s *System) Update(userID, action string, ctx Context) (float64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(userID, action, ctx)
}

func (s *System) updateLocked(userID, action string, ctx Context) (float64, string) {
	st := s.stateLocked(userID)
	now := s.now()

	if st.IsIgnoring && st.IgnoreUntil != nil {
		if now.Before(*st.IgnoreUntil) {
			remaining := int(st.IgnoreUntil.Sub(now).Minutes())
			return st.Score, fmt.Sprintf("まだ怒ってる...（残り%d分）", remaining)
		}
		st.IsIgnoring = false
		st.IgnoreUntil = nil
	}

	ctx.ConsecutivePositive = st.ConsecutivePositive
	ctx.ConsecutiveNegative = st.ConsecutiveNegative

	change := s.calc.CalculateChange(action, st.Score, ctx)

	oldScore := st.Score
	st.Score = clampScore(st.Score + change)
	st.LastInteraction = now
	st.InteractionCount++
	st.TotalMessages++

	if change > 0 {
		st.ConsecutivePositive++
		st.ConsecutiveNegative = 0
		st.PositiveInteractions++
	} else if change < 0 {
		st.ConsecutiveNegative++
		st.ConsecutivePositive = 0
		st.NegativeInteractions++

		// A hard hit while the relationship is already shaky starts a sulk.
		if change <= -5 && st.Score < 50 {
			st.IsIgnoring = true
			until := now.Add(sulkDuration)
			st.IgnoreUntil = &until
		}
	}

	s.saveStatesLocked()

	return st.Score, scoreChangeFeedback(oldScore, st.Score)
}

func scoreChangeFeedback(oldScore, newScore float64) string {
	change := newScore - oldScore
	switch {
	case change > 3:
		return "好感度が大幅に上昇！"
	case change > 1:
		return "好感度が上がった～"
	case change > 0:
		return "好感度が少し上昇"
	case change < -3:
		return "好感度が大幅に下降..."
	case change < -1:
		return "好感度が下がった"
	case change < 0:
		return "好感度が少し下降"
	}
	return ""
}

var (
	morningGreetings = []string{"おはよう", "お早う", "good morning"}
	nightGreetings   = []string{"おやすみ", "お休み", "good night"}
)

// ProcessMessage analyzes one user message, applies inactivity decay
// and every triggered action, and returns the score after all actions
// have been folded in.
func (s *System) ProcessMessage(userID, message string, responseTimeSeconds float64) (float64, string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	now := s.now()

	// Decay first, while LastInteraction still reflects the gap.
	daysInactive := int(now.Sub(st.LastInteraction).Hours() / 24)
	if daysInactive >= s.calc.policy.DecayThresholdDays {
		s.updateLocked(userID, ActionDecay, Context{DaysInactive: daysInactive})
	}

	triggered := []string{}

	sentimentAction, _ := s.calc.AnalyzeSentiment(message)
	if sentimentAction != ActionNeutral {
		triggered = append(triggered, sentimentAction)
	}

	lowered := strings.ToLower(message)
	hour := now.Hour()
	if containsAny(lowered, morningGreetings) {
		if hour >= 5 && hour <= 10 {
			triggered = append(triggered, "good_morning_night")
		}
	} else if containsAny(lowered, nightGreetings) {
		if hour >= 20 && hour <= 24 {
			triggered = append(triggered, "good_morning_night")
		}
	}

	if responseTimeSeconds > 0 && responseTimeSeconds < 60 {
		triggered = append(triggered, "quick_response")
	}

	score := st.Score
	for _, action := range triggered {
		score, _ = s.updateLocked(userID, action, Context{})
	}
	if len(triggered) == 0 {
		score, _ = s.updateLocked(userID, ActionBaseMessage, Context{})
	}

	return score, interactionFeedback(triggered), triggered
}

func containsAny(message string, words []string) bool {
	for _, word := range words {
		if strings.Contains(message, word) {
			return true
		}
	}
	return false
}

func interactionFeedback(actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	feedbacks := []string{}
	for _, action := range actions {
		switch action {
		case "compliment":
			feedbacks = append(feedbacks, "そう言ってもらえて、すごく嬉しいな～")
		case "mention_other_girl":
			feedbacks = append(feedbacks, "（少し不機嫌そう）")
		case "rude":
			feedbacks = append(feedbacks, "（少し悲しそう）")
		case "good_morning_night":
			feedbacks = append(feedbacks, "気が利くね～")
		case "quick_response":
			feedbacks = append(feedbacks, "返信が早いね！")
		}
	}
	return strings.Join(feedbacks, " ")
}

// ApplyDecay applies inactivity decay for one user if the threshold has
// been reached. Used by the background scheduler.
func (s *System) ApplyDecay(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(userID)
	daysInactive := int(s.now().Sub(st.LastInteraction).Hours() / 24)
	if daysInactive >= s.calc.policy.DecayThresholdDays {
		s.updateLocked(userID, ActionDecay, Context{DaysInactive: daysInactive})
	}
}

// ApplyDecayAll sweeps decay across every known user.
func (s *System) ApplyDecayAll() {
	s.mu.Lock()
	userIDs := make([]string, 0, len(s.states))
	for id := range s.states {
		userIDs = append(userIDs, id)
	}
	s.mu.Unlock()
	for _, id := range userIDs {
		s.ApplyDecay(id)
	}
}

// UserIDs lists every user with affection state.
func (s *System) UserIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.states))
	for id := range s.states {
		out = append(out, id)
	}
	return out
}

// RelationshipStatus derives the presentation snapshot for a user.
func (s *System) RelationshipStatus(userID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	lvl := LevelForScore(st.Score)
	next := NextLevelName(lvl)
	if next == "" {
		next = "max"
	}

	return Status{
		Score:            st.Score,
		Level:            lvl.Name,
		NextLevel:        next,
		ProgressToNext:   ProgressWithin(lvl, st.Score),
		Mood:             st.CurrentMood,
		MoodIntensity:    st.MoodIntensity,
		IsIgnoring:       st.IsIgnoring,
		InteractionCount: st.InteractionCount,
		Greeting:         lvl.Greeting,
	}
}

// SetMood directly sets the user's mood state.
func (s *System) SetMood(userID, mood string, intensity float64, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	st.CurrentMood = mood
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	st.MoodIntensity = intensity
	st.MoodReason = reason
	s.saveStatesLocked()
}

// AddSpecialEvent records a milestone and applies its bonus action.
func (s *System) AddSpecialEvent(userID, eventType, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	st.SpecialEvents = append(st.SpecialEvents, SpecialEvent{
		Type:        eventType,
		Description: description,
		Date:        s.now(),
	})

	switch eventType {
	case "first_date":
		st.DatesHad++
		s.updateLocked(userID, "date", Context{})
	case "anniversary":
		s.updateLocked(userID, "anniversary", Context{})
	case "gift":
		st.GiftsReceived++
		s.updateLocked(userID, "gift", Context{})
	}

	s.saveStatesLocked()
}

// PromptHint maps the current level, mood and sulk flag to guidance for
// the generation provider. Derived only; no mutation.
func (s *System) PromptHint(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	lvl := LevelForScore(st.Score)

	hints := []string{}
	switch lvl.Name {
	case "Stranger":
		hints = append(hints, "まだ知り合ったばかりなので、礼儀正しく友好的に接する")
	case "Acquaintance":
		hints = append(hints, "少しずつ親しくなってきたので、少しリラックスできる")
	case "Friend":
		hints = append(hints, "親友なので、もっと個人的な考えを共有できる")
	case "Close Friend":
		hints = append(hints, "関係が良いので、甘えたり冗談を言ったりできる")
	case "Crush":
		hints = append(hints, "あなたに好意を持っているので、時々恥ずかしがったり暗示したりする")
	case "Lover":
		hints = append(hints, "恋愛関係なので、愛情や思いを表現できる")
	case "Soulmate":
		hints = append(hints, "ソウルメイトなので、深く愛し合い、無条件で支え合う")
	}

	switch st.CurrentMood {
	case MoodHappy:
		hints = append(hints, "今は気分が良い")
	case MoodSad:
		hints = append(hints, "今は少し悲しい、慰めが必要")
	case MoodAngry:
		hints = append(hints, "今は少し怒っている")
	case MoodJealous:
		hints = append(hints, "今は少し嫉妬している")
	}

	if st.IsIgnoring {
		hints = append(hints, "今はすねているので、相手に慰めてもらう必要がある")
	}

	return strings.Join(hints, "\n")
}
