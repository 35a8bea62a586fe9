package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maskPlaceholder = "****"
	idLength        = 16
)

// MaskAPIKey keeps the first and last four characters of keys longer than eight.
// Lengths count runes, not bytes.
func MaskAPIKey(apiKey string) string {
	runes := []rune(apiKey)
	if len(runes) <= 8 {
		return maskPlaceholder
	}
	return string(runes[:4]) + maskPlaceholder + string(runes[len(runes)-4:])
}

// ValidateAPIKeyFormat applies the provider's minimal shape rules to a key.
func ValidateAPIKeyFormat(apiKey, provider string) bool {
	n := utf8.RuneCountInString(apiKey)
	switch strings.ToLower(provider) {
	case "openai", "deepseek":
		return strings.HasPrefix(apiKey, "sk-") && n >= 20
	case "gemini":
		return n >= 20
	case "ollama":
		return true
	default:
		return n >= 10
	}
}

// GenerateID returns a 16 character URL-safe identifier from crypto/rand.
func GenerateID() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 16)
	for sb.Len() < idLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(buf)
		for _, r := range encoded {
			if r == '+' || r == '/' || r == '=' {
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()[:idLength], nil
}
