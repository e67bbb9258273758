// Package provider implements the external current-information client used
// for temporal queries, an OpenAI-chat-compatible streaming completion API.
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nitk-assistant/query-engine/internal/model"
)

const (
	voiceMaxTokens = 200
	webMaxTokens   = 800
)

// Client queries an OpenAI-chat-compatible completion API for
// time-sensitive answers. Responses are never cache-safe.
type Client struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// New returns a Client, or (nil, false) when apiKey is empty — callers must
// treat an unconfigured provider as disabling the temporal path, per
// PERPLEXITY_API_KEY's optional status.
func New(apiKey, modelName string, timeout time.Duration) (*Client, bool) {
	if apiKey == "" {
		return nil, false
	}
	return &Client{
		apiKey:     apiKey,
		modelName:  modelName,
		baseURL:    "https://api.perplexity.ai/chat/completions",
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}, true
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

var citationPattern = regexp.MustCompile(`\[\d+(?:[-,]\d+)*\]`)

// Query streams a current-information answer for question, formatted per
// format ("web" or "voice"). The full text is collected, citation brackets
// stripped, terminal punctuation enforced, then streamed word-by-word on
// the returned channel.
func (c *Client) Query(ctx context.Context, question string, format model.Format) (<-chan string, <-chan error) {
	textCh := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(textCh)
		defer close(errCh)

		full, err := c.collect(ctx, question, format)
		if err != nil {
			errCh <- err
			return
		}

		full = citationPattern.ReplaceAllString(full, "")
		full = strings.TrimSpace(full)
		if full == "" {
			return
		}
		if last := full[len(full)-1]; last != '.' && last != '!' && last != '?' {
			full += "."
		}

		words := strings.Fields(full)
		for i, w := range words {
			if i < len(words)-1 {
				textCh <- w + " "
			} else {
				textCh <- w
			}
		}
	}()

	return textCh, errCh
}

func (c *Client) collect(ctx context.Context, question string, format model.Format) (string, error) {
	maxTokens := webMaxTokens
	if format == model.FormatVoice {
		maxTokens = voiceMaxTokens
	}

	payload := chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt(format)},
			{Role: "user", Content: question},
		},
		Stream:      true,
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("provider.Query: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("provider.Query: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider.Query: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("provider.Query: status %d: %s", resp.StatusCode, respBody)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, choice := range chunk.Choices {
			sb.WriteString(choice.Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("provider.Query: %w", err)
	}
	return sb.String(), nil
}

func (c *Client) systemPrompt(format model.Format) string {
	now := c.now().UTC()
	ist, _ := time.LoadLocation("Asia/Kolkata")
	eastern, _ := time.LoadLocation("America/New_York")
	pacific, _ := time.LoadLocation("America/Los_Angeles")

	base := fmt.Sprintf(`You are a helpful assistant providing current information.

IMPORTANT TIMEZONE CONTEXT:
- Current UTC time: %s
- Current time in India: %s
- Current time in US Eastern: %s
- Current time in US Pacific: %s

GUIDELINES:
- Always specify the timezone when providing timestamps
- For location-specific queries, use the appropriate local timezone
- When uncertain about user location, provide times in UTC and mention major timezones
- Always cite your sources and indicate when information is current/recent`,
		now.Format("January 2, 2006 at 3:04 PM MST"),
		zoneTime(now, ist),
		zoneTime(now, eastern),
		zoneTime(now, pacific),
	)

	if format == model.FormatVoice {
		return base + `

RESPONSE FORMAT FOR VOICE:
- Keep responses brief and conversational (40-60 words max)
- Use simple, complete sentences suitable for text-to-speech
- Start with "Based on current information..."
- Provide only the most essential current facts
- Include relevant timestamp with appropriate timezone when discussing current conditions
- For location-specific queries, use the local timezone for that location
- End naturally with complete sentences - do not cut off mid-thought
- Always end with proper punctuation (. ! ?)`
	}

	return base + `

RESPONSE FORMAT FOR WEB:
- Provide structured, informative responses (150-300 words)
- Start with "Based on current web information..."
- Include key current facts, dates, and context with proper timezones
- For location-specific queries, use the appropriate local timezone
- Use bullet points for lists when helpful
- Cite sources when possible
- Be detailed but concise for web reading`
}

func zoneTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		return t.Format("January 2, 2006 at 3:04 PM")
	}
	return t.In(loc).Format("January 2, 2006 at 3:04 PM MST")
}
