package model

import "time"

// CachedResponse is the persisted value behind a response cache entry.
type CachedResponse struct {
	QuestionNormalized string    `json:"question_normalized"`
	Format             Format    `json:"response_format"`
	LLMResponse        string    `json:"llm_response"`
	Emotion            Emotion   `json:"emotion"`
	Timestamp          time.Time `json:"timestamp"`
}
