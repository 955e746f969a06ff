package affection

import (
	"encoding/json"
	"fmt"
	"os"
)

// Policy is the data-driven scoring table. It is loaded once and never
// mutated at runtime, which keeps the calculator pure and testable.
type Policy struct {
	BaseMessage float64 `json:"base_message"`

	PositiveFactors map[string]float64 `json:"positive_factors"`
	NegativeFactors map[string]float64 `json:"negative_factors"`

	DecayRate          float64 `json:"decay_rate"`
	DecayThresholdDays int     `json:"decay_threshold_days"`

	PositiveWords  []string `json:"positive_words"`
	NegativeWords  []string `json:"negative_words"`
	OtherGirlWords []string `json:"other_girl_words"`
}

// DefaultPolicy returns the built-in scoring table.
func DefaultPolicy() *Policy {
	return &Policy{
		BaseMessage: 0.1,
		PositiveFactors: map[string]float64{
			"compliment":            2.0,
			"gift":                  5.0,
			"remember_detail":       3.0,
			"share_feeling":         1.5,
			"ask_about_day":         1.0,
			"good_morning_night":    1.5,
			"initiate_conversation": 1.0,
			"quick_response":        0.5,
			"long_conversation":     2.0,
			"use_nickname":          1.0,
			"apologize":             2.0,
			"keep_promise":          3.0,
		},
		NegativeFactors: map[string]float64{
			"ignore":              -3.0,
			"forget_important":    -4.0,
			"mention_other_girl":  -5.0,
			"rude":                -5.0,
			"lie":                 -8.0,
			"break_promise":       -6.0,
			"late_response_hours": -0.5,
			"one_word_reply":      -0.5,
			"insult":              -10.0,
			"pressure":            -3.0,
		},
		DecayRate:          0.3,
		DecayThresholdDays: 2,
		PositiveWords: []string{
			"綺麗", "可愛い", "賢い", "優しい", "親切", "好き", "愛", "想", "良い",
			"素晴らしい", "優秀", "すごい", "ありがとう", "感謝", "嬉しい", "幸せ", "素敵",
			"miss", "love", "like", "beautiful", "cute", "smart", "thanks",
			"happy", "glad", "wonderful", "amazing", "great", "good",
		},
		NegativeWords: []string{
			"醜い", "バカ", "馬鹿", "嫌い", "憎い", "出て行け", "うるさい", "悪い", "ダメ",
			"愚か", "つまらない", "気持ち悪い", "失望", "怒り", "憤り", "悲しい",
			"hate", "stupid", "ugly", "boring", "annoying", "bad",
			"terrible", "awful", "disappointed", "angry",
		},
		OtherGirlWords: []string{
			"他の女の子", "別の女の子", "彼女", "元カノ", "ex", "other girl",
		},
	}
}

// LoadPolicy reads a policy table from a JSON file. Missing fields fall
// back to the built-in defaults so operators can override selectively.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read affection policy %s: %w", path, err)
	}
	policy := DefaultPolicy()
	if err := json.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("parse affection policy %s: %w", path, err)
	}
	return policy, nil
}
