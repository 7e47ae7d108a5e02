package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/supabase"
)

// ErrContentNotReady means the document row exists but its extracted text
// has not landed yet (the client may still be uploading). The consumer nacks
// into the retry queue on this error.
var ErrContentNotReady = errors.New("document content not ready")

// DocumentStore is the slice of the supabase client the processor needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, id int64) (*supabase.Document, error)
	UpdateDocumentStatus(ctx context.Context, id int64, status string) error
	InsertChunks(ctx context.Context, rows []supabase.ChunkRow) error
}

type Processor struct {
	store      DocumentStore
	embedder   ai.Embedder
	embedModel string
}

func NewProcessor(store DocumentStore, embedder ai.Embedder, embedModel string) *Processor {
	return &Processor{store: store, embedder: embedder, embedModel: embedModel}
}

// Process chunks and embeds one document, then marks it ready. Failures
// after the status flip to processing mark the document errored so the UI
// does not show it as stuck.
func (p *Processor) Process(ctx context.Context, job Job) error {
	doc, err := p.store.GetDocument(ctx, job.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %d not found", job.DocumentID)
	}
	if doc.ProcessingStatus == StatusReady {
		// Redelivery after a lost ack; nothing to do.
		return nil
	}
	if strings.TrimSpace(doc.Content) == "" {
		return ErrContentNotReady
	}

	if err := p.store.UpdateDocumentStatus(ctx, doc.ID, StatusProcessing); err != nil {
		return err
	}

	start := time.Now()
	chunks := ChunkText(doc.Content, 0, 0)

	rows := make([]supabase.ChunkRow, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := p.embedder.Embed(ctx, p.embedModel, chunk)
		if err != nil {
			_ = p.store.UpdateDocumentStatus(ctx, doc.ID, StatusError)
			return fmt.Errorf("embed chunk %d of document %d: %w", i, doc.ID, err)
		}
		rows = append(rows, supabase.ChunkRow{
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Content:    chunk,
			Embedding:  embedding,
			ChunkIndex: i,
		})
	}

	if err := p.store.InsertChunks(ctx, rows); err != nil {
		_ = p.store.UpdateDocumentStatus(ctx, doc.ID, StatusError)
		return err
	}

	if err := p.store.UpdateDocumentStatus(ctx, doc.ID, StatusReady); err != nil {
		return err
	}

	log.Printf("ingest done job=%s doc=%d chunks=%d cost=%s", job.ID, doc.ID, len(rows), time.Since(start))
	return nil
}
