package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func collectStream(t *testing.T, chunks <-chan string, errs <-chan error) (string, error) {
	t.Helper()
	var b strings.Builder
	for chunks != nil || errs != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			b.WriteString(c)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return b.String(), err
			}
		}
	}
	return b.String(), nil
}

func deltaEvent(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

func sseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *OpenAIProvider {
	p := NewOpenAIProvider(srv.URL, "test-key", "")
	p.Client = srv.Client()
	return p
}

func TestStreamChatConcatenatesDeltas(t *testing.T) {
	body := deltaEvent("Hello") +
		deltaEvent(", ") +
		`data: {"choices":[{"delta":{}}]}` + "\n\n" + // empty delta skipped
		deltaEvent("world") +
		"data: [DONE]\n\n"
	srv := sseServer(t, http.StatusOK, body)
	p := testProvider(srv)

	chunks, errs := p.StreamChat(context.Background(), "gpt-3.5-turbo", "sys", []Message{
		{Role: RoleUser, Content: "hi"},
	})
	got, err := collectStream(t, chunks, errs)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "Hello, world" {
		t.Fatalf("stream output = %q, want %q", got, "Hello, world")
	}
}

func TestStreamChatStopsAtDoneSentinel(t *testing.T) {
	body := deltaEvent("before") + "data: [DONE]\n\n" + deltaEvent("after")
	srv := sseServer(t, http.StatusOK, body)
	p := testProvider(srv)

	chunks, errs := p.StreamChat(context.Background(), "gpt-3.5-turbo", "sys", []Message{
		{Role: RoleUser, Content: "hi"},
	})
	got, err := collectStream(t, chunks, errs)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "before" {
		t.Fatalf("stream output = %q, want only content before the sentinel", got)
	}
}

func TestStreamChatMalformedEvent(t *testing.T) {
	body := deltaEvent("ok") + "data: {not json}\n\n"
	srv := sseServer(t, http.StatusOK, body)
	p := testProvider(srv)

	chunks, errs := p.StreamChat(context.Background(), "gpt-3.5-turbo", "sys", []Message{
		{Role: RoleUser, Content: "hi"},
	})
	got, err := collectStream(t, chunks, errs)
	if err == nil {
		t.Fatal("expected error for malformed stream event")
	}
	if got != "ok" {
		t.Fatalf("deltas before the malformed event should still arrive, got %q", got)
	}
}

func TestStreamChatUpstreamAPIError(t *testing.T) {
	body := `{"error":{"message":"Rate limit reached","type":"requests","param":"","code":"rate_limit_exceeded"}}`
	srv := sseServer(t, http.StatusTooManyRequests, body)
	p := testProvider(srv)

	chunks, errs := p.StreamChat(context.Background(), "gpt-3.5-turbo", "sys", []Message{
		{Role: RoleUser, Content: "hi"},
	})
	_, err := collectStream(t, chunks, errs)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "Rate limit reached" || apiErr.Code != "rate_limit_exceeded" {
		t.Fatalf("api error = %+v", apiErr)
	}
}

func TestStreamChatValidation(t *testing.T) {
	p := NewOpenAIProvider("http://unused.invalid", "", "")
	chunks, errs := p.StreamChat(context.Background(), "gpt-3.5-turbo", "sys", []Message{
		{Role: RoleUser, Content: "hi"},
	})
	if _, err := collectStream(t, chunks, errs); err == nil {
		t.Fatal("expected error for missing api key")
	}

	p = NewOpenAIProvider("http://unused.invalid", "k", "")
	chunks, errs = p.StreamChat(context.Background(), "gpt-3.5-turbo", "sys", nil)
	if _, err := collectStream(t, chunks, errs); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestBuildMessagesSystemPromptBeforeFinalUserTurn(t *testing.T) {
	msgs := buildMessages("context here", []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "last"},
	})
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role
	}
	want := []string{RoleUser, RoleAssistant, RoleSystem, RoleUser}
	if len(roles) != len(want) {
		t.Fatalf("roles = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("roles = %v, want %v", roles, want)
		}
	}
	if msgs[2].Content != "context here" || msgs[3].Content != "last" {
		t.Fatalf("messages out of order: %+v", msgs)
	}
}

func TestEmbedSendsModelAndInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "text-embedding-ada-002" || req.Input != "what is go" {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	p := testProvider(srv)
	vec, err := p.Embed(context.Background(), "text-embedding-ada-002", "what is go")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("embedding = %v", vec)
	}
}

func TestEmbedUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := testProvider(srv)
	if _, err := p.Embed(context.Background(), "text-embedding-ada-002", "x"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}
