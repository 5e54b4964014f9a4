// Package emotion scores texts against keyword and pattern heuristics to tag
// every chat event with a dominant emotion. Pure and allocation-light: it runs
// inside the room controller's serialized section.
package emotion

import (
	"regexp"
	"strings"

	"babel-relay/contract"
	"babel-relay/domain"
)

var _ contract.IEmotionDetector = (*Detector)(nil)

var keywords = map[domain.Emotion][]string{
	domain.EmotionHappy: {
		"happy", "joy", "great", "awesome", "wonderful", "fantastic",
		"amazing", "love", "perfect", "excellent", "brilliant", "good",
		"nice", "smile", "laugh", "haha", "lol", "yay", "celebrate",
	},
	domain.EmotionSad: {
		"sad", "cry", "tears", "depressed", "down", "upset", "disappointed",
		"hurt", "painful", "sorry", "regret", "miss", "lonely", "hopeless",
		"tragic", "terrible", "awful", "horrible",
	},
	domain.EmotionAngry: {
		"angry", "mad", "furious", "rage", "hate", "annoyed", "frustrated",
		"irritated", "outraged", "disgusted", "ridiculous", "unacceptable",
		"infuriating",
	},
	domain.EmotionExcited: {
		"excited", "thrilled", "pumped", "energetic", "eager", "enthusiastic",
		"incredible", "wow", "omg", "can't wait",
	},
	domain.EmotionConfused: {
		"confused", "puzzled", "lost", "unclear", "huh", "don't understand",
		"complicated", "uncertain", "doubt", "strange",
	},
}

var patterns = map[domain.Emotion][]*regexp.Regexp{
	domain.EmotionHappy: {
		regexp.MustCompile(`:-?\)`),
		regexp.MustCompile(`:D`),
		regexp.MustCompile(`\bhaha\b`),
		regexp.MustCompile(`\blol\b`),
		regexp.MustCompile(`\byay\b`),
	},
	domain.EmotionSad: {
		regexp.MustCompile(`:-?\(`),
		regexp.MustCompile(`\*sigh\*`),
		regexp.MustCompile(`\bcry\b`),
	},
	domain.EmotionAngry: {
		regexp.MustCompile(`>:\(`),
		regexp.MustCompile(`\bdamn\b`),
	},
	domain.EmotionExcited: {
		regexp.MustCompile(`\bwow\b`),
		regexp.MustCompile(`\bomg\b`),
	},
}

var (
	multiBang = regexp.MustCompile(`!{2,}`)
	capsWord  = regexp.MustCompile(`\b[A-Z]{3,}\b`)
)

// noiseFloor is the score below which everything reads as neutral.
const noiseFloor = 0.1

type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) Analyze(text string) domain.EmotionReading {
	scores := make(map[domain.Emotion]float64, len(keywords))
	lower := strings.ToLower(text)

	for emo, words := range keywords {
		scores[emo] = keywordScore(lower, words)
	}
	for emo, res := range patterns {
		scores[emo] += patternScore(text, res) * 0.5
	}
	if emo, bonus := punctuationHint(text); bonus > 0 {
		scores[emo] += bonus
	}

	best := domain.EmotionNeutral
	bestScore := 0.0
	for emo, score := range scores {
		if score > bestScore {
			best, bestScore = emo, score
		}
	}
	if bestScore < noiseFloor {
		return domain.EmotionReading{Primary: domain.EmotionNeutral, Confidence: 0.9}
	}
	return domain.EmotionReading{Primary: best, Confidence: min(0.95, bestScore)}
}

func keywordScore(lower string, words []string) float64 {
	matches := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			matches++
		}
	}
	wordCount := float64(len(strings.Fields(lower)))
	return min(1.0, float64(matches)/max(wordCount*0.1, 1))
}

func patternScore(text string, res []*regexp.Regexp) float64 {
	matches := 0
	for _, re := range res {
		if re.MatchString(text) {
			matches++
		}
	}
	return min(0.5, float64(matches)*0.2)
}

// punctuationHint reads intensity cues the keyword lists can't see: repeated
// exclamation marks, a high question-mark ratio, shouting in caps.
func punctuationHint(text string) (domain.Emotion, float64) {
	if multiBang.MatchString(text) {
		return domain.EmotionExcited, 0.3
	}
	if len(text) > 0 && float64(strings.Count(text, "?"))/float64(len(text)) > 0.1 {
		return domain.EmotionConfused, 0.2
	}
	if capsWord.MatchString(text) {
		return domain.EmotionAngry, 0.3
	}
	return domain.EmotionNeutral, 0
}
