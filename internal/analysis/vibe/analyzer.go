package vibe

import (
	"strings"
)

// Label 表示启发式识别出的消息语气。
type Label string

const (
	Neutral Label = "neutral"
	Curious Label = "curious"
	Flirty  Label = "flirty"
	Hyped   Label = "hyped"
	Salty   Label = "salty"
	Sad     Label = "sad"
	Playful Label = "playful"
)

// Reading 是一条消息的启发式解读结果。
type Reading struct {
	Label   Label
	Emoji   string
	Mood    string
	Insight string
	Score   int
}

// labelOrder 决定同分时的优先级，保证结果稳定。
var labelOrder = []Label{Flirty, Salty, Sad, Hyped, Playful, Curious}

var keywordBuckets = map[Label][]string{
	Curious: {
		"who", "what", "why", "how", "when", "where", "which", "wonder", "curious", "question",
		"tell me", "do you", "are you", "have you", "是谁", "为什么", "怎么",
	},
	Flirty: {
		"crush", "cute", "date", "kiss", "love", "like you", "beautiful", "handsome", "hot", "miss you",
		"heart", "❤", "😍", "😘", "喜欢你", "暗恋",
	},
	Hyped: {
		"amazing", "awesome", "omg", "insane", "can't wait", "lets go", "let's go", "wow", "best", "legend",
		"🔥", "🚀", "太棒了", "激动",
	},
	Salty: {
		"hate", "annoying", "fake", "rude", "stop", "worst", "cringe", "mad", "angry", "ugh",
		"😡", "🙄", "讨厌", "生气",
	},
	Sad: {
		"sad", "miss", "lonely", "sorry", "cry", "hurt", "alone", "tired", "depressed", "upset",
		"😢", "😭", "难过", "伤心",
	},
	Playful: {
		"lol", "lmao", "haha", "jk", "joke", "funny", "prank", "guess", "bet", "dare",
		"😂", "🤣", "😜", "哈哈",
	},
}

var profiles = map[Label]Reading{
	Neutral: {Emoji: "😐", Mood: "Chill", Insight: "Low-key message, the sender is keeping it casual."},
	Curious: {Emoji: "🧐", Mood: "Curious", Insight: "Someone wants to know more about you and is testing the waters."},
	Flirty:  {Emoji: "😏", Mood: "Flirty", Insight: "There's a crush energy here, they might be shooting their shot."},
	Hyped:   {Emoji: "🤩", Mood: "Hyped", Insight: "Big fan energy, the sender is genuinely excited about you."},
	Salty:   {Emoji: "🧂", Mood: "Salty", Insight: "A little shade in this one, the sender may be venting."},
	Sad:     {Emoji: "🥺", Mood: "Soft", Insight: "This reads vulnerable, the sender might need some kindness."},
	Playful: {Emoji: "😜", Mood: "Playful", Insight: "Pure chaos energy, they are probably just messing around."},
}

var replyBank = map[Label][]string{
	Neutral: {"Noted 📝", "Say more, anon 👀", "Okay but who is this?"},
	Curious: {"Wouldn't you like to know 😌", "Ask me IRL 👀", "That's classified information 🤐"},
	Flirty:  {"Shoot your shot properly 😏", "DMs are open, coward 💌", "Blushing? Never. Okay maybe 🙈"},
	Hyped:   {"Stop, you're too kind 🥹", "The hype is mutual 🔥", "Framing this one 🖼️"},
	Salty:   {"Noted and ignored ✌️", "Sending you a glass of water 💧", "Hater detected 🚨"},
	Sad:     {"Sending you a big hug 🤗", "You're not alone, anon 💛", "My DMs are open if you need it"},
	Playful: {"The audacity 😂", "Nice try, anon 🤡", "I'm screenshotting this lol"},
}

// Analyze 根据关键词和标点给出语气判断。
func Analyze(text string) Reading {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return reading(Neutral, 0)
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, strings.ToLower(word)) {
				scores[label] += 3
			}
		}
	}

	// 问号偏向好奇，感叹号偏向兴奋。
	scores[Curious] += strings.Count(text, "?")
	if n := strings.Count(text, "!"); n > 0 {
		scores[Hyped] += n * 2
	}

	best, bestScore := Neutral, 0
	for _, label := range labelOrder {
		if scores[label] > bestScore {
			best, bestScore = label, scores[label]
		}
	}
	return reading(best, bestScore)
}

// Replies 返回与语气匹配的三条回复建议。
func Replies(text string) []string {
	label := Analyze(text).Label
	return append([]string(nil), replyBank[label]...)
}

func reading(label Label, score int) Reading {
	r := profiles[label]
	r.Label = label
	r.Score = score
	return r
}
