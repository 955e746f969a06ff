package agent

import (
	"math/rand"
	"strings"
	"time"

	"github.com/aika-bot/aika/pkg/affection"
	"github.com/aika-bot/aika/pkg/memory"
)

var initiativeTopics = map[string][]string{
	"morning": {
		"おはよう～今日も元気いっぱいでね☀️",
		"起きた？もう会いたくなっちゃった",
		"おはよう！今日は何か予定ある？",
		"おはよう～昨日はよく眠れた？",
	},
	"noon": {
		"お昼ご飯食べた？ちゃんと食べてね",
		"こんにちは～何してるの？",
		"私、ちょうどお昼食べ終わったよ、あなたは？",
		"ちょっと休憩して、無理しないでね",
	},
	"evening": {
		"晩ご飯食べた？今日はどうだった？",
		"こんばんは～会いたいな",
		"何してるの？私、すごく退屈だよ",
		"今日は疲れた？早めに休んでね",
	},
	"night": {
		"もう寝る時間だよ、おやすみ～💕",
		"おやすみなさい、いい夢見てね",
		"眠れない時は私と話そうね",
		"今日もお疲れ様、ゆっくり休んで",
	},
	"random": {
		"さっき歌を聴いてて、急にあなたのことを思い出した",
		"何してるの？すごく会いたいな",
		"今日は天気がいいから、お散歩したいな",
		"さっきすごく面白いこと見たよ",
		"急に鍋が食べたくなった、あなたは？",
		"ドラマ見てるけど、すごく退屈だよ",
		"忙しい？暇なら一緒にいてくれない？",
	},
	"memory_based": {
		"前に%sって言ってたけど、その後どうなった？",
		"急にあなたが%sが好きだって言ってたのを思い出した",
		"今日%sを見て、真っ先にあなたのことを思い出した",
	},
	"affection_based": {
		"あなたと話すのがどんどん好きになってきた",
		"あなたと一緒にいると、いつも楽しいよ",
		"何があっても、私はあなたのそばにいるから",
	},
}

// Initiative decides when the character reaches out unprompted and
// what she says.
type Initiative struct {
	affection *affection.System
	shortTerm *memory.ShortTerm
	styler    *Styler
	rng       *rand.Rand
	now       func() time.Time
}

func NewInitiative(affectionSys *affection.System, shortTerm *memory.ShortTerm, styler *Styler, rng *rand.Rand) *Initiative {
	if styler == nil {
		styler = NewStyler(nil)
	}
	return &Initiative{
		affection: affectionSys,
		shortTerm: shortTerm,
		styler:    styler,
		rng:       rng,
		now:       time.Now,
	}
}

func (in *Initiative) float() float64 {
	if in.rng != nil {
		return in.rng.Float64()
	}
	return rand.Float64()
}

func (in *Initiative) pick(options []string) string {
	if in.rng != nil {
		return options[in.rng.Intn(len(options))]
	}
	return options[rand.Intn(len(options))]
}

// ShouldInitiate decides probabilistically whether to reach out.
// Warmer relationships and long silences raise the odds; a sulking
// character never initiates.
func (in *Initiative) ShouldInitiate(userID string, maxIntervalMinutes int) bool {
	state := in.affection.GetState(userID)
	if state.IsIgnoring {
		return false
	}

	minutesSince := in.now().Sub(state.LastInteraction).Minutes()

	probability := 0.1 + (state.Score/100)*0.3
	if maxIntervalMinutes > 0 && minutesSince > float64(maxIntervalMinutes) {
		probability += 0.2
	}
	return in.float() < probability
}

// Generate produces one unprompted message for the user, themed by the
// hour of day and occasionally personalized from recent topics.
func (in *Initiative) Generate(userID string) string {
	lvl := in.affection.GetLevel(userID)

	hour := in.now().Hour()
	var category string
	switch {
	case hour >= 6 && hour < 11:
		category = "morning"
	case hour >= 11 && hour < 14:
		category = "noon"
	case hour >= 17 && hour < 21:
		category = "evening"
	case hour >= 21 || hour < 1:
		category = "night"
	default:
		category = "random"
	}

	templates := append([]string{}, initiativeTopics[category]...)
	if levelAtLeast(lvl, "Crush") {
		templates = append(templates, initiativeTopics["affection_based"]...)
	}
	topics := in.shortTerm.Topics(userID, 10)
	if len(topics) > 0 {
		templates = append(templates, initiativeTopics["memory_based"]...)
	}
	if len(templates) == 0 {
		return ""
	}

	message := in.pick(templates)
	if strings.Contains(message, "%s") {
		if len(topics) > 0 {
			message = strings.Replace(message, "%s", in.pick(topics), -1)
		} else {
			message = in.pick(initiativeTopics["random"])
		}
	}

	return in.styler.Apply(message, lvl)
}
