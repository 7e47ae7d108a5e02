// Package supabase wraps the managed backend: GoTrue identity, PostgREST
// tables and RPCs, and object storage. The gateway treats it as an opaque
// relational + object store with a known query surface.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

type Config struct {
	URL        string
	ServiceKey string
}

type Client struct {
	client *supabase.Client
	cfg    Config
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, errors.New("supabase service key is required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Client{client: client, cfg: cfg}, nil
}

// AuthUser is the identity-provider half of a resolved user.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GetUserByToken validates a bearer credential against GoTrue and returns
// the identity it resolves to.
func (c *Client) GetUserByToken(ctx context.Context, token string) (*AuthUser, error) {
	_ = ctx // gotrue-go manages its own request lifecycle
	resp, err := c.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return &AuthUser{
		ID:    resp.ID.String(),
		Email: resp.Email,
		Name:  metadataName(resp.User),
	}, nil
}

func metadataName(u types.User) string {
	for _, key := range []string{"name", "full_name"} {
		if v, ok := u.UserMetadata[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return u.Email
}

// Profile is the application half of a resolved user.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Tier   *int   `json:"tier"`
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	_ = ctx
	var profiles []Profile
	_, err := c.client.From("profiles").
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

// ConfigRow is one tenant-wide tunable limit.
type ConfigRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (c *Client) GetConfigRows(ctx context.Context) ([]ConfigRow, error) {
	_ = ctx
	var rows []ConfigRow
	_, err := c.client.From("system_config").
		Select("*", "", false).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get system config: %w", err)
	}
	return rows, nil
}

func (c *Client) InsertConfigRows(ctx context.Context, rows []ConfigRow) error {
	_ = ctx
	_, _, err := c.client.From("system_config").
		Insert(rows, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to seed system config: %w", err)
	}
	return nil
}

// ChunkMatch is one similarity-search hit. Ephemeral: it exists only as a
// query result.
type ChunkMatch struct {
	ID         int64   `json:"id"`
	DocumentID int64   `json:"document_id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// MatchParams mirrors the arguments of the match_document_chunks stored
// procedure.
type MatchParams struct {
	Embedding        []float32 `json:"query_embedding"`
	MatchCount       int       `json:"match_count"`
	MatchThreshold   float64   `json:"match_threshold"`
	MinContentLength int       `json:"min_content_length"`
	UserID           string    `json:"p_user_id"`
	SearchSpace      []int64   `json:"p_search_space,omitempty"`
}

// MatchDocumentChunks runs the pgvector similarity search scoped to the
// caller's permitted documents.
func (c *Client) MatchDocumentChunks(ctx context.Context, params MatchParams) ([]ChunkMatch, error) {
	_ = ctx
	raw := c.client.Rpc("match_document_chunks", "", params)
	if raw == "" {
		return nil, errors.New("failed to match document chunks")
	}
	var matches []ChunkMatch
	if err := json.Unmarshal([]byte(raw), &matches); err != nil {
		// PostgREST reports errors as a JSON object, not an array.
		var pgErr struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal([]byte(raw), &pgErr); jsonErr == nil && pgErr.Message != "" {
			return nil, fmt.Errorf("failed to match document chunks: %s", pgErr.Message)
		}
		return nil, fmt.Errorf("failed to match document chunks: %w", err)
	}
	return matches, nil
}

// Document is a stored upload plus its extracted text.
type Document struct {
	ID               int64  `json:"id"`
	UserID           string `json:"user_id"`
	FileName         string `json:"file_name"`
	Path             string `json:"path"`
	FileSizeBytes    int64  `json:"file_size_bytes"`
	Content          string `json:"content"`
	ProcessingStatus string `json:"processing_status"`
}

func (c *Client) GetDocument(ctx context.Context, id int64) (*Document, error) {
	_ = ctx
	var docs []Document
	_, err := c.client.From("documents").
		Select("*", "", false).
		Eq("id", fmt.Sprintf("%d", id)).
		ExecuteTo(&docs)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// InsertDocument creates a document row and returns its id.
func (c *Client) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	_ = ctx
	var inserted []Document
	_, err := c.client.From("documents").
		Insert([]Document{doc}, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document: %w", err)
	}
	if len(inserted) == 0 {
		return 0, errors.New("failed to insert document")
	}
	return inserted[0].ID, nil
}

// SumDocumentSizes returns the total stored bytes for a user's documents.
func (c *Client) SumDocumentSizes(ctx context.Context, userID string) (int64, error) {
	_ = ctx
	var sizes []struct {
		FileSizeBytes int64 `json:"file_size_bytes"`
	}
	_, err := c.client.From("documents").
		Select("file_size_bytes", "", false).
		Eq("user_id", userID).
		ExecuteTo(&sizes)
	if err != nil {
		return 0, fmt.Errorf("failed to sum document sizes: %w", err)
	}
	var total int64
	for _, s := range sizes {
		total += s.FileSizeBytes
	}
	return total, nil
}

func (c *Client) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_ = ctx
	_, _, err := c.client.From("documents").
		Update(map[string]any{"processing_status": status}, "minimal", "").
		Eq("id", fmt.Sprintf("%d", id)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// ChunkRow is one embedded slice of a document, ready for insertion.
type ChunkRow struct {
	DocumentID int64     `json:"document_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	ChunkIndex int       `json:"chunk_index"`
}

func (c *Client) InsertChunks(ctx context.Context, rows []ChunkRow) error {
	_ = ctx
	if len(rows) == 0 {
		return nil
	}
	_, _, err := c.client.From("document_chunks").
		Insert(rows, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert document chunks: %w", err)
	}
	return nil
}

// SignedUpload carries everything the client needs to PUT the file.
type SignedUpload struct {
	SignedURL string `json:"signedUrl"`
	Token     string `json:"token"`
	Path      string `json:"path"`
}

// CreateSignedUploadURL issues a one-time upload URL in the documents bucket.
func (c *Client) CreateSignedUploadURL(ctx context.Context, bucket, path string) (*SignedUpload, error) {
	_ = ctx
	resp, err := c.client.Storage.CreateSignedUploadUrl(bucket, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed upload url: %w", err)
	}
	return &SignedUpload{
		SignedURL: resp.Url,
		Token:     signedURLToken(resp.Url),
		Path:      path,
	}, nil
}

func signedURLToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("token"))
}
