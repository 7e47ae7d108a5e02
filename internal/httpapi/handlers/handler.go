package handlers

import (
	"context"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/common"
	"github.com/brainwave-ai/gateway/internal/config"
	"github.com/brainwave-ai/gateway/internal/identity"
	"github.com/brainwave-ai/gateway/internal/ingest"
	"github.com/brainwave-ai/gateway/internal/supabase"

	"github.com/gin-gonic/gin"
)

// Searcher produces the token-budgeted context text for a query.
type Searcher interface {
	Search(ctx context.Context, query, credential string, searchSpace []int64) (string, error)
}

// IdentityResolver resolves a bearer credential, cache first.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*identity.User, error)
}

// DocumentStore is the slice of the supabase client the upload path needs.
type DocumentStore interface {
	SumDocumentSizes(ctx context.Context, userID string) (int64, error)
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (*supabase.SignedUpload, error)
	InsertDocument(ctx context.Context, doc supabase.Document) (int64, error)
}

// JobPublisher enqueues ingestion work for the worker.
type JobPublisher interface {
	PublishUpload(ctx context.Context, job ingest.Job) error
}

type Handler struct {
	Cfg        config.Config
	Identities IdentityResolver
	Retrieval  Searcher
	Streamer   ai.ChatStreamer
	Documents  DocumentStore
	Jobs       JobPublisher
}

func NewHandler(cfg config.Config, identities IdentityResolver, retrieval Searcher, streamer ai.ChatStreamer, documents DocumentStore, jobs JobPublisher) *Handler {
	return &Handler{
		Cfg:        cfg,
		Identities: identities,
		Retrieval:  retrieval,
		Streamer:   streamer,
		Documents:  documents,
		Jobs:       jobs,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"status": "ok"})
}
