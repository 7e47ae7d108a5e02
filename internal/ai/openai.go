package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxCompletionTokens = 1000
	temperature         = 0.7
)

type OpenAIProvider struct {
	BaseURL string
	APIKey  string
	Org     string
	Client  *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, org string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Org:     org,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type openaiMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatReq struct {
	Model       string      `json:"model"`
	Messages    []openaiMsg `json:"messages"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float64     `json:"temperature"`
	Stream      bool        `json:"stream"`
}

type openaiStreamResp struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type openaiErrResp struct {
	Error *APIError `json:"error,omitempty"`
}

// buildMessages sends every message except the last, then the system prompt
// as its own system-role message, then the final user message.
func buildMessages(systemPrompt string, messages []Message) []openaiMsg {
	out := make([]openaiMsg, 0, len(messages)+1)
	for _, m := range messages[:len(messages)-1] {
		out = append(out, openaiMsg{Role: m.Role, Content: m.Content})
	}
	out = append(out, openaiMsg{Role: RoleSystem, Content: systemPrompt})
	last := messages[len(messages)-1]
	out = append(out, openaiMsg{Role: last.Role, Content: last.Content})
	return out
}

func (p *OpenAIProvider) newRequest(ctx context.Context, path string, body []byte) (*http.Request, error) {
	url := strings.TrimRight(p.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.Org != "" {
		req.Header.Set("OpenAI-Organization", p.Org)
	}
	return req, nil
}

// upstreamError decodes a non-200 body. A structured error object is raised
// as a typed *APIError with all four fields intact; anything else becomes a
// generic error embedding the decoded body.
func upstreamError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	var decoded openaiErrResp
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != nil && decoded.Error.Message != "" {
		return decoded.Error
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("openai: %s", msg)
}

// StreamChat calls the chat-completion API in streaming mode and re-emits the
// token deltas as they arrive. The channels close on the [DONE] sentinel or
// natural end of the upstream stream; a malformed event aborts with an error.
func (p *OpenAIProvider) StreamChat(ctx context.Context, model, systemPrompt string, messages []Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if p.Client == nil {
			errs <- errors.New("openai: http client is nil")
			return
		}
		if strings.TrimSpace(p.APIKey) == "" {
			errs <- errors.New("openai: api key is required")
			return
		}
		if len(messages) == 0 {
			errs <- errors.New("openai: messages are required")
			return
		}

		reqBody := openaiChatReq{
			Model:       model,
			Messages:    buildMessages(systemPrompt, messages),
			MaxTokens:   maxCompletionTokens,
			Temperature: temperature,
			Stream:      true,
		}

		b, err := json.Marshal(reqBody)
		if err != nil {
			errs <- err
			return
		}

		req, err := p.newRequest(ctx, "/chat/completions", b)
		if err != nil {
			errs <- err
			return
		}

		resp, err := p.Client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errs <- upstreamError(resp)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var decoded openaiStreamResp
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				errs <- fmt.Errorf("openai: malformed stream event: %w", err)
				return
			}
			if len(decoded.Choices) == 0 {
				continue
			}
			delta := decoded.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case chunks <- delta:
			case <-ctx.Done():
				return
			}
		}

		if err := sc.Err(); err != nil {
			errs <- err
			return
		}
	}()

	return chunks, errs
}

type openaiEmbedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed produces a single embedding vector for the input text.
func (p *OpenAIProvider) Embed(ctx context.Context, model, input string) ([]float32, error) {
	if p.Client == nil {
		return nil, errors.New("openai: http client is nil")
	}

	b, err := json.Marshal(openaiEmbedReq{Model: model, Input: input})
	if err != nil {
		return nil, err
	}

	req, err := p.newRequest(ctx, "/embeddings", b)
	if err != nil {
		return nil, err
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("failed to create embedding")
	}

	var decoded openaiEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if len(decoded.Data) == 0 {
		return nil, errors.New("failed to create embedding")
	}
	return decoded.Data[0].Embedding, nil
}
