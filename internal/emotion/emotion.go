// Package emotion implements the deterministic, content-based affective
// label assigned to a completed answer, per the nine-label scheme.
package emotion

import (
	"strings"

	"github.com/nitk-assistant/query-engine/internal/model"
)

// answerGroups are checked against the final answer text, in priority order.
var answerGroups = []struct {
	keywords []string
	label    model.Emotion
}{
	{[]string{"congratulations", "excellent", "wonderful", "amazing", "fantastic"}, model.EmotionHappy},
	{[]string{"exciting", "thrilled", "incredible"}, model.EmotionExcited},
	{[]string{"sorry", "unfortunately", "problem", "issue", "error"}, model.EmotionSad},
	{[]string{"interesting", "surprising", "remarkable", "wow"}, model.EmotionSurprised},
	{[]string{"unclear", "confusing", "not sure", "difficult to"}, model.EmotionConfused},
	{[]string{"think", "consider", "analyze", "complex", "depends"}, model.EmotionThinking},
}

// questionGroups are checked against the original question only when no
// answerGroups keyword matched.
var questionGroups = []struct {
	keywords []string
	label    model.Emotion
}{
	{[]string{"hello", "hi", "hey", "good morning", "good afternoon"}, model.EmotionGreeting},
	{[]string{"bye", "goodbye", "see you", "farewell"}, model.EmotionGoodbye},
}

// Label classifies the completed answer text, falling back to the original
// question and finally to neutral. It never returns anything outside the
// nine enumerated labels.
func Label(question, answer string) model.Emotion {
	lowerAnswer := strings.ToLower(answer)
	for _, g := range answerGroups {
		if containsAny(lowerAnswer, g.keywords) {
			return g.label
		}
	}

	lowerQuestion := strings.ToLower(question)
	for _, g := range questionGroups {
		if containsAny(lowerQuestion, g.keywords) {
			return g.label
		}
	}

	return model.EmotionNeutral
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
