package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/brainwave-ai/gateway/internal/common"
	"github.com/brainwave-ai/gateway/internal/identity"
)

// UserKey is the gin context key the resolved user is stored under.
const UserKey = "auth_user"

// UserResolver is the slice of identity.Resolver the gate needs.
type UserResolver interface {
	Resolve(ctx context.Context, credential string) (*identity.User, error)
}

type credentialBody struct {
	JWT string `json:"jwt"`
}

// AuthGate resolves a session from the bearer credential embedded in the
// JSON request body (this endpoint family's convention) and rejects requests
// it cannot resolve. The body is bound with ShouldBindBodyWith so the route
// handler can bind it again.
func AuthGate(resolver UserResolver) Factory {
	return func(next Handler) Handler {
		return func(c *gin.Context) {
			var body credentialBody
			if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
				common.Fail(c, http.StatusBadRequest, identity.ErrCredentialMissing.Error())
				return
			}

			user, err := resolver.Resolve(c.Request.Context(), body.JWT)
			if err != nil {
				common.Fail(c, authStatus(err), err.Error())
				return
			}

			c.Set(UserKey, user)
			next(c)
		}
	}
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrCredentialMissing):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrProfileNotFound),
		errors.Is(err, identity.ErrTierMissing):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserFromContext returns the user the auth gate resolved for this request.
func UserFromContext(c *gin.Context) (*identity.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*identity.User)
	return u, ok
}
