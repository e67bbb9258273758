// Package llmclient streams answers from the Vertex AI Gemini models used
// to synthesize responses over retrieved context.
package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"

	"github.com/nitk-assistant/query-engine/internal/retry"
)

// Client streams generated text from Gemini. Regional locations use the Go
// SDK; "global" uses the REST endpoint directly since the SDK does not
// support it.
type Client struct {
	client     *genai.Client
	httpClient *http.Client
	project    string
	location   string
	model      string
	useREST    bool
}

// New creates a Client for project/location/model.
func New(ctx context.Context, project, location, model string) (*Client, error) {
	if location == "global" {
		httpClient, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return nil, fmt.Errorf("llmclient.New: default credentials: %w", err)
		}
		return &Client{
			httpClient: httpClient,
			project:    project,
			location:   location,
			model:      model,
			useREST:    true,
		}, nil
	}

	client, err := genai.NewClient(ctx, project, location)
	if err != nil {
		return nil, fmt.Errorf("llmclient.New: %w", err)
	}
	return &Client{client: client, project: project, location: location, model: model}, nil
}

// Stream sends systemPrompt + userPrompt to the model and returns a channel
// of text chunks plus a channel that carries at most one terminal error.
// The text channel closes when generation completes; tokens arrive in the
// exact order the upstream stream produced them.
func (c *Client) Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	textCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(textCh)
		defer close(errCh)

		var err error
		if c.useREST {
			err = c.streamREST(ctx, systemPrompt, userPrompt, textCh)
		} else {
			err = c.streamSDK(ctx, systemPrompt, userPrompt, textCh)
		}
		if err != nil {
			errCh <- err
		}
	}()

	return textCh, errCh
}

func (c *Client) streamSDK(ctx context.Context, systemPrompt, userPrompt string, textCh chan<- string) error {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	iter := model.GenerateContentStream(ctx, genai.Text(userPrompt))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			if retry.IsRetryable(err) {
				return retry.ErrRateLimited
			}
			return fmt.Errorf("llmclient.streamSDK: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					textCh <- string(t)
				}
			}
		}
	}
}

type restGenerateRequest struct {
	Contents          []restContent         `json:"contents"`
	SystemInstruction *restContent          `json:"systemInstruction,omitempty"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

type restGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) streamREST(ctx context.Context, systemPrompt, userPrompt string, textCh chan<- string) error {
	url := fmt.Sprintf(
		"https://aiplatform.googleapis.com/v1/projects/%s/locations/global/publishers/google/models/%s:streamGenerateContent?alt=sse",
		c.project, c.model,
	)
	return c.streamRESTAgainst(ctx, url, systemPrompt, userPrompt, textCh)
}

// streamRESTAgainst issues the streaming REST call against an explicit URL,
// separated from streamREST so tests can point it at a local server.
func (c *Client) streamRESTAgainst(ctx context.Context, url, systemPrompt, userPrompt string, textCh chan<- string) error {
	reqBody := restGenerateRequest{
		Contents: []restContent{{Role: "user", Parts: []restPart{{Text: userPrompt}}}},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &restContent{Role: "user", Parts: []restPart{{Text: systemPrompt}}}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("llmclient.streamREST: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("llmclient.streamREST: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llmclient.streamREST: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if retry.IsRetryableStatus(resp.StatusCode) {
			return retry.ErrRateLimited
		}
		return fmt.Errorf("llmclient.streamREST: status %d: %s", resp.StatusCode, body)
	}

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

		var chunk restGenerateResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("llmclient.streamREST: API error %d: %s", chunk.Error.Code, chunk.Error.Message)
		}
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					textCh <- part.Text
				}
			}
		}
	}
	return scanner.Err()
}

// HealthCheck validates the Gemini connection with a minimal request.
func (c *Client) HealthCheck(ctx context.Context) error {
	textCh, errCh := c.Stream(ctx, "", "Reply with only: OK")
	var sb strings.Builder
	for chunk := range textCh {
		sb.WriteString(chunk)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("llm health check failed (model: %s, location: %s): %w", c.model, c.location, err)
	}
	if sb.Len() == 0 {
		return fmt.Errorf("llm returned empty response (model: %s)", c.model)
	}
	slog.Info("llm health check passed", "model", c.model, "location", c.location)
	return nil
}

// Close releases the underlying SDK client, if any.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
