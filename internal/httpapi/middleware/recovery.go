package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainwave-ai/gateway/internal/common"
)

// Recovery turns a panic anywhere below it into a 500 instead of a dropped
// connection. If streaming already started the response cannot be rewritten;
// the panic is still logged.
func Recovery() Factory {
	return func(next Handler) Handler {
		return func(c *gin.Context) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("panic recovered path=%s err=%v", c.Request.URL.Path, r)
					if !c.Writer.Written() {
						common.Fail(c, http.StatusInternalServerError, "internal server error")
					} else {
						c.Abort()
					}
				}
			}()
			next(c)
		}
	}
}
