package affection

// Level is a named band of the affection score range. Bands partition
// [0,100] with inclusive lower and exclusive upper bounds.
type Level struct {
	Name     string
	Min      float64
	Max      float64
	Greeting string
}

var levels = []Level{
	{Name: "Stranger", Min: 0, Max: 10, Greeting: "こんにちは、あなたは誰ですか？"},
	{Name: "Acquaintance", Min: 10, Max: 30, Greeting: "やあ、最近どう？"},
	{Name: "Friend", Min: 30, Max: 50, Greeting: "今日は何を話そうか？"},
	{Name: "Close Friend", Min: 50, Max: 70, Greeting: "ちょうどあなたのことを考えていたところだよ～"},
	{Name: "Crush", Min: 70, Max: 85, Greeting: "あなたと話すのは本当に楽しいです"},
	{Name: "Lover", Min: 85, Max: 95, Greeting: "会いたくなっちゃった、何してるの？"},
	{Name: "Soulmate", Min: 95, Max: 100, Greeting: "何があっても、私はあなたのそばにいるよ"},
}

// Levels returns the ordered band table.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// LevelForScore maps a score to its band. Scores at or above 100 stay
// in the Soulmate band.
func LevelForScore(score float64) Level {
	for _, lvl := range levels {
		if score >= lvl.Min && score < lvl.Max {
			return lvl
		}
	}
	if score >= 100 {
		return levels[len(levels)-1]
	}
	return levels[0]
}

// NextLevelName returns the band above lvl, or "" at the top.
func NextLevelName(lvl Level) string {
	for i, candidate := range levels {
		if candidate.Name == lvl.Name && i < len(levels)-1 {
			return levels[i+1].Name
		}
	}
	return ""
}

// ProgressWithin reports how far score sits inside its band, 0–100.
func ProgressWithin(lvl Level, score float64) float64 {
	span := lvl.Max - lvl.Min
	if span <= 0 {
		return 0
	}
	progress := (score - lvl.Min) / span * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
