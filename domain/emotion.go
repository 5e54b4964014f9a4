package domain

// Emotion is the annotation attached to every chat event. Detection is
// heuristic; Neutral is the fallback when nothing scores above the noise
// threshold.
type Emotion string

const (
	EmotionHappy    Emotion = "happy"
	EmotionSad      Emotion = "sad"
	EmotionAngry    Emotion = "angry"
	EmotionExcited  Emotion = "excited"
	EmotionConfused Emotion = "confused"
	EmotionNeutral  Emotion = "neutral"
)

// EmotionReading is the outcome of analyzing one text.
type EmotionReading struct {
	Primary    Emotion
	Confidence float64
}
