// Package identity resolves bearer credentials into full user records.
package identity

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brainwave-ai/gateway/internal/supabase"
)

var (
	ErrCredentialMissing = errors.New("credential not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrTierMissing       = errors.New("user tier not found")
)

// User is the merged identity-provider record plus profile row.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Tier  *int   `json:"tier"`
}

// Provider is the slice of the supabase client the resolver needs.
type Provider interface {
	GetUserByToken(ctx context.Context, token string) (*supabase.AuthUser, error)
	GetProfile(ctx context.Context, userID string) (*supabase.Profile, error)
}

// Cache is the slice of the redis store the resolver needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

const userCacheTTL = 5 * time.Minute

type Resolver struct {
	provider  Provider
	cache     Cache
	jwtSecret string
}

func NewResolver(provider Provider, cache Cache, jwtSecret string) *Resolver {
	return &Resolver{provider: provider, cache: cache, jwtSecret: jwtSecret}
}

// Resolve turns a bearer credential into a full user record, consulting the
// cache first. Resolved users are cached for five minutes keyed by the
// credential itself; a tier change server-side is not visible until the entry
// expires.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*User, error) {
	if credential == "" {
		return nil, ErrCredentialMissing
	}

	if r.cache != nil {
		var cached User
		ok, err := r.cache.GetJSON(ctx, userCacheKey(credential), &cached)
		if err != nil {
			log.Printf("identity cache read failed err=%v", err)
		}
		if ok && cached.ID != "" {
			return guardTier(&cached)
		}
	}

	user, err := r.resolveFresh(ctx, credential)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		// Best effort: a cache write failure is an optimization lost, not a
		// request failure.
		if err := r.cache.SetJSON(ctx, userCacheKey(credential), user, userCacheTTL); err != nil {
			log.Printf("identity cache write failed user=%s err=%v", user.ID, err)
		}
	}

	return guardTier(user)
}

// ResolveDirect skips the cache layer entirely.
func (r *Resolver) ResolveDirect(ctx context.Context, credential string) (*User, error) {
	if credential == "" {
		return nil, ErrCredentialMissing
	}
	user, err := r.resolveFresh(ctx, credential)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Resolver) resolveFresh(ctx context.Context, credential string) (*User, error) {
	if !r.credentialParses(credential) {
		return nil, ErrUserNotFound
	}

	authUser, err := r.provider.GetUserByToken(ctx, credential)
	if err != nil || authUser == nil {
		return nil, ErrUserNotFound
	}

	profile, err := r.provider.GetProfile(ctx, authUser.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	name := profile.Name
	if name == "" {
		name = authUser.Name
	}
	return &User{
		ID:    authUser.ID,
		Email: authUser.Email,
		Name:  name,
		Tier:  profile.Tier,
	}, nil
}

// credentialParses fails fast on garbage tokens before a provider round-trip.
// With a configured secret the signature and expiry are checked locally; the
// provider remains the source of truth either way.
func (r *Resolver) credentialParses(credential string) bool {
	if r.jwtSecret != "" {
		_, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(r.jwtSecret), nil
		})
		return err == nil
	}
	_, _, err := jwt.NewParser().ParseUnverified(credential, jwt.MapClaims{})
	return err == nil
}

func guardTier(u *User) (*User, error) {
	if u.Tier == nil {
		return nil, ErrTierMissing
	}
	return u, nil
}

func userCacheKey(credential string) string {
	return "user:" + credential
}
