package common

import (
	"crypto/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// OK writes a 200 response with the given payload.
func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

// Fail writes an error response. Only the curated message is serialized;
// raw internal errors never reach the client.
func Fail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{"error": msg})
}

func NewULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
