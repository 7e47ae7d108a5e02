package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/config"
	"github.com/brainwave-ai/gateway/internal/identity"
	"github.com/brainwave-ai/gateway/internal/ingest"
	"github.com/brainwave-ai/gateway/internal/supabase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	text      string
	err       error
	lastQuery string
	lastCred  string
	lastSpace []int64
	calls     int
}

func (f *fakeSearcher) Search(ctx context.Context, query, credential string, searchSpace []int64) (string, error) {
	f.calls++
	f.lastQuery = query
	f.lastCred = credential
	f.lastSpace = searchSpace
	return f.text, f.err
}

type fakeResolver struct {
	user *identity.User
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, credential string) (*identity.User, error) {
	return f.user, f.err
}

// fakeStreamer plays back a scripted stream: a pre-stream error, or the
// chunks followed by an optional mid-stream error.
type fakeStreamer struct {
	chunks     []string
	preErr     error
	midErr     error
	lastModel  string
	lastPrompt string
	lastMsgs   []ai.Message
}

func (f *fakeStreamer) StreamChat(ctx context.Context, model, systemPrompt string, messages []ai.Message) (<-chan string, <-chan error) {
	f.lastModel = model
	f.lastPrompt = systemPrompt
	f.lastMsgs = messages

	chunks := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if f.preErr != nil {
			errs <- f.preErr
			return
		}
		for _, c := range f.chunks {
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
		}
		if f.midErr != nil {
			errs <- f.midErr
		}
	}()
	return chunks, errs
}

type fakeDocs struct {
	used      int64
	sumErr    error
	signed    *supabase.SignedUpload
	signErr   error
	insertID  int64
	insertErr error
	inserted  *supabase.Document
}

func (f *fakeDocs) SumDocumentSizes(ctx context.Context, userID string) (int64, error) {
	return f.used, f.sumErr
}

func (f *fakeDocs) CreateSignedUploadURL(ctx context.Context, bucket, path string) (*supabase.SignedUpload, error) {
	if f.signErr != nil {
		return nil, f.signErr
	}
	if f.signed != nil {
		return f.signed, nil
	}
	return &supabase.SignedUpload{SignedURL: "https://storage/" + path, Token: "tok", Path: path}, nil
}

func (f *fakeDocs) InsertDocument(ctx context.Context, doc supabase.Document) (int64, error) {
	f.inserted = &doc
	return f.insertID, f.insertErr
}

type fakeJobs struct {
	published []ingest.Job
	err       error
}

func (f *fakeJobs) PublishUpload(ctx context.Context, job ingest.Job) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, job)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		StorageBucket:      "documents",
		FreeStorageLimitMB: 10,
		ProStorageLimitMB:  100,
	}
}

func tierPtr(n int) *int { return &n }

func doJSON(t *testing.T, handler gin.HandlerFunc, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Handle(method, path, handler)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
