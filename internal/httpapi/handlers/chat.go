package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/brainwave-ai/gateway/internal/ai"
	"github.com/brainwave-ai/gateway/internal/common"
)

const defaultModel = "gpt-3.5-turbo"

const systemPromptBase = "You are BrainBot, a helpful assistant that answers questions about the user's documents. Answer concisely and use markdown where it helps."

const systemPromptSources = "\n\nUse the following passages from the user's documents to ground your answer. If the passages do not contain the answer, say so.\n\n"

type chatModel struct {
	ID        string `json:"id"`
	MaxLength int    `json:"maxLength"`
}

type chatRequest struct {
	JWT         string       `json:"jwt"`
	Model       chatModel    `json:"model"`
	Messages    []ai.Message `json:"messages"`
	SearchSpace []int64      `json:"search_space"`
}

// Chat streams a completion back to the caller as raw token deltas, with no
// framing. The auth gate and rate limiter have already passed by the time
// this runs.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	// The auth gate bound the body with ShouldBindBodyWith; bind from the
	// same cached bytes.
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	if len(req.Messages) == 0 {
		common.Fail(c, http.StatusBadRequest, "messages are required")
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != ai.RoleUser {
		common.Fail(c, http.StatusBadRequest, "last message must be from the user")
		return
	}

	ctx := c.Request.Context()

	systemPrompt := systemPromptBase
	if len(req.SearchSpace) > 0 {
		contextText, err := h.Retrieval.Search(ctx, last.Content, req.JWT, req.SearchSpace)
		if err != nil {
			log.Printf("chat retrieval failed err=%v", err)
			common.Fail(c, http.StatusInternalServerError, "error processing your request")
			return
		}
		if contextText != "" {
			systemPrompt = systemPromptBase + systemPromptSources + contextText
		}
	}

	model := req.Model.ID
	if model == "" {
		model = defaultModel
	}

	chunks, errs := h.Streamer.StreamChat(ctx, model, systemPrompt, req.Messages)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		common.Fail(c, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Headers are held back until the first delta so an upstream failure can
	// still surface as a proper error status. Once streaming starts, errors
	// can only end the stream.
	started := false
	for {
		select {
		case delta, ok := <-chunks:
			if !ok {
				return
			}
			if !started {
				c.Header("Content-Type", "text/plain; charset=utf-8")
				c.Status(http.StatusOK)
				started = true
			}
			if _, err := c.Writer.WriteString(delta); err != nil {
				return
			}
			flusher.Flush()

		case err := <-errs:
			if err == nil {
				continue
			}
			if started {
				log.Printf("chat stream errored mid-stream err=%v", err)
				c.Abort()
				return
			}
			var apiErr *ai.APIError
			if errors.As(err, &apiErr) {
				common.Fail(c, http.StatusInternalServerError, apiErr.Message)
				return
			}
			log.Printf("chat stream failed err=%v", err)
			common.Fail(c, http.StatusInternalServerError, "error processing your request")
			return

		case <-ctx.Done():
			// Caller went away; stop enqueuing promptly.
			return
		}
	}
}
