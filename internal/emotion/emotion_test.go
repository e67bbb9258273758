package emotion

import (
	"testing"

	"github.com/nitk-assistant/query-engine/internal/model"
)

func TestLabel_AnswerKeywordPriority(t *testing.T) {
	cases := []struct {
		name     string
		question string
		answer   string
		want     model.Emotion
	}{
		{"happy", "tell me about the fest", "Congratulations to the winning team!", model.EmotionHappy},
		{"excited", "what's happening", "This is an exciting and thrilled announcement.", model.EmotionExcited},
		{"sad", "what went wrong", "Unfortunately there was an issue with the system.", model.EmotionSad},
		{"surprised", "tell me more", "That is a remarkable and surprising result.", model.EmotionSurprised},
		{"confused", "explain this", "The situation is unclear and confusing.", model.EmotionConfused},
		{"thinking", "what do you think", "I think we need to consider and analyze this complex situation.", model.EmotionThinking},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Label(c.question, c.answer); got != c.want {
				t.Errorf("Label() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestLabel_FallsBackToQuestionGreeting(t *testing.T) {
	got := Label("Hello there, how are you?", "NITK was established in 1960.")
	if got != model.EmotionGreeting {
		t.Errorf("Label() = %q, want greeting", got)
	}
}

func TestLabel_FallsBackToQuestionGoodbye(t *testing.T) {
	got := Label("Goodbye for now", "NITK was established in 1960.")
	if got != model.EmotionGoodbye {
		t.Errorf("Label() = %q, want goodbye", got)
	}
}

func TestLabel_DefaultsToNeutral(t *testing.T) {
	got := Label("Who is the director?", "The director of NITK is Prof. B. Ravi.")
	if got != model.EmotionNeutral {
		t.Errorf("Label() = %q, want neutral", got)
	}
}

func TestLabel_AnswerTakesPriorityOverQuestion(t *testing.T) {
	got := Label("Hello, what's the news", "Unfortunately there was an error fetching that.")
	if got != model.EmotionSad {
		t.Errorf("Label() = %q, want sad (answer keywords beat question keywords)", got)
	}
}

func TestLabel_AlwaysOneOfNineLabels(t *testing.T) {
	valid := map[model.Emotion]bool{
		model.EmotionHappy: true, model.EmotionExcited: true, model.EmotionSad: true,
		model.EmotionSurprised: true, model.EmotionConfused: true, model.EmotionThinking: true,
		model.EmotionGreeting: true, model.EmotionGoodbye: true, model.EmotionNeutral: true,
	}
	inputs := []struct{ q, a string }{
		{"", ""},
		{"random question", "random answer with no keywords"},
		{"hi", "congratulations on the exciting win"},
	}
	for _, in := range inputs {
		got := Label(in.q, in.a)
		if !valid[got] {
			t.Errorf("Label(%q, %q) = %q, not one of the nine labels", in.q, in.a, got)
		}
	}
}
