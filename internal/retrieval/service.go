// Package retrieval turns a free-text query into a token-budgeted context
// string assembled from the caller's document chunks.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/identity"
	"github.com/brainwave-ai/gateway/internal/supabase"
)

var (
	ErrQueryMissing      = errors.New("query parameter is required")
	ErrCredentialMissing = errors.New("jwt parameter is required")
)

const (
	matchCount         = 10
	matchThreshold     = 0.78
	minContentLength   = 50
	contextTokenBudget = 1500
)

// Matcher is the slice of the supabase client the service needs.
type Matcher interface {
	MatchDocumentChunks(ctx context.Context, params supabase.MatchParams) ([]supabase.ChunkMatch, error)
}

// Identities resolves a credential without a cache layer in front.
type Identities interface {
	ResolveDirect(ctx context.Context, credential string) (*identity.User, error)
}

type Service struct {
	embedder   ai.Embedder
	matcher    Matcher
	identities Identities
	embedModel string
	codec      tokenizer.Codec
}

func NewService(embedder ai.Embedder, matcher Matcher, identities Identities, embedModel string) (*Service, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &Service{
		embedder:   embedder,
		matcher:    matcher,
		identities: identities,
		embedModel: embedModel,
		codec:      codec,
	}, nil
}

// Search embeds the query, runs the similarity search scoped to the caller's
// documents, and assembles the context text. An empty string is a valid
// result: no matches cleared the similarity threshold or length floor.
func (s *Service) Search(ctx context.Context, query, credential string, searchSpace []int64) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrQueryMissing
	}
	if credential == "" {
		return "", ErrCredentialMissing
	}

	user, err := s.identities.ResolveDirect(ctx, credential)
	if err != nil {
		return "", err
	}

	sanitized := strings.ReplaceAll(strings.TrimSpace(query), "\n", " ")

	embedding, err := s.embedder.Embed(ctx, s.embedModel, sanitized)
	if err != nil {
		return "", err
	}

	matches, err := s.matcher.MatchDocumentChunks(ctx, supabase.MatchParams{
		Embedding:        embedding,
		MatchCount:       matchCount,
		MatchThreshold:   matchThreshold,
		MinContentLength: minContentLength,
		UserID:           user.ID,
		SearchSpace:      searchSpace,
	})
	if err != nil {
		return "", err
	}

	return s.assembleContext(matches)
}

// assembleContext concatenates ranked chunks until the running token count
// reaches the budget. The chunk that crosses the budget is still appended in
// full; truncating mid-chunk would hand the model a broken sentence.
func (s *Service) assembleContext(matches []supabase.ChunkMatch) (string, error) {
	var (
		b          strings.Builder
		tokenCount int
	)
	for _, match := range matches {
		content := strings.TrimSpace(match.Content)
		if content == "" {
			continue
		}
		ids, _, err := s.codec.Encode(content)
		if err != nil {
			return "", fmt.Errorf("failed to tokenize chunk: %w", err)
		}
		tokenCount += len(ids)
		b.WriteString(content)
		b.WriteString("\n---\n")
		if tokenCount >= contextTokenBudget {
			break
		}
	}
	return b.String(), nil
}
