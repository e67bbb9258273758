package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nitk-assistant/query-engine/internal/model"
)

func sseBody(chunks []string) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString("data: " + c + "\n\n")
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

func newTestClient(t *testing.T, body string, status int) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := &Client{
		apiKey:     "test-key",
		modelName:  "sonar",
		baseURL:    srv.URL,
		httpClient: srv.Client(),
		now:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return c
}

func TestNew_EmptyKeyDisablesProvider(t *testing.T) {
	_, ok := New("", "sonar", 30*time.Second)
	if ok {
		t.Error("New() with empty key should report ok=false")
	}
}

func TestNew_NonEmptyKeyEnablesProvider(t *testing.T) {
	c, ok := New("key", "sonar", 30*time.Second)
	if !ok || c == nil {
		t.Error("New() with a key should report ok=true and a non-nil client")
	}
}

func TestQuery_StripsCitationsAndAddsPunctuation(t *testing.T) {
	body := sseBody([]string{
		`{"choices":[{"delta":{"content":"The event happened recently [1][2-3]"}}]}`,
	})
	c := newTestClient(t, body, http.StatusOK)

	textCh, errCh := c.Query(context.Background(), "what happened", model.FormatWeb)
	var sb strings.Builder
	for tok := range textCh {
		sb.WriteString(tok)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	got := sb.String()
	if strings.Contains(got, "[1]") || strings.Contains(got, "[2-3]") {
		t.Errorf("Query() result still has citation brackets: %q", got)
	}
	if !strings.HasSuffix(strings.TrimSpace(got), ".") {
		t.Errorf("Query() result missing terminal punctuation: %q", got)
	}
}

func TestQuery_AlreadyPunctuatedTextUnchanged(t *testing.T) {
	body := sseBody([]string{
		`{"choices":[{"delta":{"content":"It is done!"}}]}`,
	})
	c := newTestClient(t, body, http.StatusOK)

	textCh, errCh := c.Query(context.Background(), "q", model.FormatVoice)
	var sb strings.Builder
	for tok := range textCh {
		sb.WriteString(tok)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if strings.TrimSpace(sb.String()) != "It is done!" {
		t.Errorf("Query() = %q, want unchanged %q", sb.String(), "It is done!")
	}
}

func TestQuery_NonOKStatusIsError(t *testing.T) {
	c := newTestClient(t, `{"error":"rate limited"}`, http.StatusTooManyRequests)

	_, errCh := c.Query(context.Background(), "q", model.FormatWeb)
	if err := <-errCh; err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestSystemPrompt_FormatSpecificBudget(t *testing.T) {
	c := newTestClient(t, "", http.StatusOK)

	voice := c.systemPrompt(model.FormatVoice)
	if !strings.Contains(voice, "40-60 words") {
		t.Error("voice system prompt should mention the 40-60 word budget")
	}

	web := c.systemPrompt(model.FormatWeb)
	if !strings.Contains(web, "150-300 words") {
		t.Error("web system prompt should mention the 150-300 word budget")
	}
}
