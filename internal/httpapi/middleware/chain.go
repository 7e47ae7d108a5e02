// Package middleware holds the path-scoped middleware chain and the gates
// that run inside it.
package middleware

import "github.com/gin-gonic/gin"

// Handler is one link in a composed chain.
type Handler func(c *gin.Context)

// Factory wraps an inner handler. The returned handler may call next and
// return, call next and post-process, or short-circuit by writing its own
// response (aborting the gin context) without calling next.
type Factory func(next Handler) Handler

// Scoped pairs a middleware factory with the path patterns it applies to.
type Scoped struct {
	Patterns []string
	Factory  Factory
}

// Chain is an ordered pair of path-scoped middleware lists: one run before
// the route, one after.
type Chain struct {
	pre  []Scoped
	post []Scoped
}

func NewChain() *Chain {
	return &Chain{}
}

func (ch *Chain) Pre(f Factory, patterns ...string) *Chain {
	ch.pre = append(ch.pre, Scoped{Patterns: patterns, Factory: f})
	return ch
}

func (ch *Chain) Post(f Factory, patterns ...string) *Chain {
	ch.post = append(ch.post, Scoped{Patterns: patterns, Factory: f})
	return ch
}

// Compose folds an ordered middleware list, right to left, into a single
// handler ending at terminal. A middleware whose patterns do not match the
// request path is skipped: the request falls through to the next link.
func Compose(scoped []Scoped, terminal Handler) Handler {
	next := terminal
	for i := len(scoped) - 1; i >= 0; i-- {
		s := scoped[i]
		inner := next
		wrapped := s.Factory(inner)
		next = func(c *gin.Context) {
			if MatchesAny(s.Patterns, c.Request.URL.Path) {
				wrapped(c)
				return
			}
			inner(c)
		}
	}
	return next
}

// Handler flattens the chain into one gin middleware: the pre list runs
// first, then the route (via gin's own dispatch), then the post list. A
// short-circuiting pre middleware aborts the context, so neither the route
// nor the post list runs.
func (ch *Chain) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		terminal := func(c *gin.Context) {
			c.Next()
			if c.IsAborted() {
				return
			}
			Compose(ch.post, func(*gin.Context) {})(c)
		}
		Compose(ch.pre, terminal)(c)
	}
}
