package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// AccessTokenQueryParam carries a bearer token for clients that cannot set headers.
const AccessTokenQueryParam = "access_token"

// ExtractToken returns the Authorization header value, falling back to the
// access_token query parameter. An empty string means no token was sent.
func ExtractToken(c *gin.Context) string {
	if authHeader := strings.TrimSpace(c.GetHeader("Authorization")); authHeader != "" {
		return authHeader
	}
	return strings.TrimSpace(c.Query(AccessTokenQueryParam))
}

// BearerToken strips an optional "Bearer " prefix.
func BearerToken(value string) string {
	const bearerPrefix = "Bearer "
	if len(value) >= len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(value[len(bearerPrefix):])
	}
	return value
}
