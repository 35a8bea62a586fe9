package auth

import (
	"context"
	"strings"
)

const bearerPrefix = "Bearer "

// UserContext is the identity resolved for one request. The zero value is anonymous.
type UserContext struct {
	userID string
	token  string
}

// Authenticated builds a UserContext for a known user, mainly for tests and internal callers.
func Authenticated(userID, token string) UserContext {
	return UserContext{userID: userID, token: token}
}

func (u UserContext) CurrentUserID() (string, bool) {
	return u.userID, u.userID != ""
}

func (u UserContext) IsAuthenticated() bool {
	return u.userID != ""
}

// Token is the raw bearer token the identity was resolved from.
func (u UserContext) Token() string {
	return u.token
}

// Resolver turns an Authorization header value into a UserContext.
type Resolver struct {
	tokens TokenService
}

func NewResolver(tokens TokenService) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve never fails: a missing, malformed or expired token is simply anonymous.
func (r *Resolver) Resolve(authorization string) UserContext {
	token := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if token == "" {
		return UserContext{}
	}
	if !r.tokens.IsValid(token) {
		return UserContext{}
	}
	userID, ok := r.tokens.UserID(token)
	if !ok || userID == "" {
		return UserContext{}
	}
	return UserContext{userID: userID, token: token}
}

type userContextKey struct{}

func WithUserContext(ctx context.Context, u UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// FromContext returns the request's UserContext, anonymous when none was stored.
func FromContext(ctx context.Context) UserContext {
	u, _ := ctx.Value(userContextKey{}).(UserContext)
	return u
}
