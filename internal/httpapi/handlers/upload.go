package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainwave-ai/gateway/internal/common"
	"github.com/brainwave-ai/gateway/internal/identity"
	"github.com/brainwave-ai/gateway/internal/ingest"
	"github.com/brainwave-ai/gateway/internal/supabase"
)

type uploadRequest struct {
	FileName string `json:"file_name"`
}

const bytesPerMB = 1024 * 1024

// Upload checks the caller's storage quota and hands back a signed upload
// URL. Unlike the chat endpoint, the credential arrives in the Authorization
// header.
func (h *Handler) Upload(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":       "not_authenticated",
			"description": "The user does not have an active session or is not authenticated",
		})
		return
	}

	user, err := h.Identities.Resolve(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrCredentialMissing):
			common.Fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrUserNotFound),
			errors.Is(err, identity.ErrProfileNotFound),
			errors.Is(err, identity.ErrTierMissing):
			common.Fail(c, http.StatusNotFound, err.Error())
		default:
			log.Printf("upload identity resolve failed err=%v", err)
			common.Fail(c, http.StatusInternalServerError, "error processing your request")
		}
		return
	}

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FileName) == "" {
		common.Fail(c, http.StatusBadRequest, "file_name is required")
		return
	}

	usedBytes, err := h.Documents.SumDocumentSizes(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("upload quota check failed user=%s err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, "error processing your request")
		return
	}

	limitMB := h.Cfg.FreeStorageLimitMB
	if *user.Tier >= 1 {
		limitMB = h.Cfg.ProStorageLimitMB
	}
	if usedBytes/bytesPerMB >= int64(limitMB) {
		common.Fail(c, http.StatusInsufficientStorage, "storage quota exceeded")
		return
	}

	path := user.ID + "/" + req.FileName
	signed, err := h.Documents.CreateSignedUploadURL(c.Request.Context(), h.Cfg.StorageBucket, path)
	if err != nil {
		log.Printf("upload signed url failed user=%s err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, "error processing your request")
		return
	}

	docID, err := h.Documents.InsertDocument(c.Request.Context(), supabase.Document{
		UserID:           user.ID,
		FileName:         req.FileName,
		Path:             path,
		ProcessingStatus: ingest.StatusPending,
	})
	if err != nil {
		log.Printf("upload document insert failed user=%s err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, "error processing your request")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, "error processing your request")
		return
	}
	if err := h.Jobs.PublishUpload(c.Request.Context(), ingest.Job{
		ID:         jobID,
		UserID:     user.ID,
		DocumentID: docID,
	}); err != nil {
		log.Printf("upload enqueue failed user=%s doc=%d err=%v", user.ID, docID, err)
		common.Fail(c, http.StatusInternalServerError, "error processing your request")
		return
	}

	common.OK(c, gin.H{
		"data": gin.H{
			"signedUrl": signed.SignedURL,
			"token":     signed.Token,
			"path":      signed.Path,
			"file_name": req.FileName,
		},
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
