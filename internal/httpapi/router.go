package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainwave-ai/gateway/internal/common"
	"github.com/brainwave-ai/gateway/internal/httpapi/handlers"
	"github.com/brainwave-ai/gateway/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler, resolver middleware.UserResolver, counters middleware.Counter, configs middleware.ConfigLoader) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())

	// Pre-route order matters: recovery outermost, then request ids, then
	// the gates. Only the chat endpoint is auth-gated and rate-limited;
	// vector-search resolves identity itself and upload reads the
	// Authorization header.
	chain := middleware.NewChain().
		Pre(middleware.Recovery()).
		Pre(middleware.RequestID(), "!/ping").
		Pre(middleware.AuthGate(resolver), "/api/chat").
		Pre(middleware.RateLimit(counters, configs), "/api/chat")
	r.Use(chain.Handler())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	r.POST("/api/chat", h.Chat)
	r.POST("/api/vector-search", h.VectorSearch)
	r.POST("/api/upload", h.Upload)

	return r
}
