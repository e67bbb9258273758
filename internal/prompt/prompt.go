// Package prompt assembles the system and user prompts sent to the
// generative LLM for the static retrieval path.
package prompt

import (
	"fmt"
	"time"

	"github.com/nitk-assistant/query-engine/internal/model"
)

const systemTemplate = `You are the institutional knowledge assistant for NITK Surathkal. Today's date is %s.

RULES:
- Answer only from the provided context. If the context does not contain the answer, say so plainly rather than guessing.
- Use past tense for events and dates before %s, and future tense for dates after it. Never blur this distinction.
- Never use vague time references such as "recently" or "soon" — cite the actual date from the context when one is available.
- If you are uncertain about any fact, say so explicitly instead of presenting a guess as settled.
- Do not include an emotional label, tag, or meta-commentary about your own response in the answer text.`

// System returns the dated system prompt with a format-specific instruction
// block appended.
func System(now time.Time, format model.Format) string {
	date := now.Format("January 2, 2006")
	base := fmt.Sprintf(systemTemplate, date, date)

	if format == model.FormatVoice {
		return base + "\n\nRESPONSE FORMAT: 50-80 words of conversational prose suitable for text-to-speech. No bullet points, no headings."
	}
	return base + "\n\nRESPONSE FORMAT: 150-300 words of structured prose. Bullet points are permitted for lists."
}

// User builds the "Context / Question / Answer" user turn from joined
// document bodies and the original question.
func User(context, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s\n\nAnswer:", context, question)
}
