package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of tokens issued by JWTService. Subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a token is issued for.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// TokenService answers the two questions the resolver asks about a bearer token.
type TokenService interface {
	IsValid(token string) bool
	UserID(token string) (string, bool)
}

// JWTService issues and validates HS256 tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

var _ TokenService = (*JWTService)(nil)

func NewJWTService(secret string, ttl time.Duration, clock clockwork.Clock) *JWTService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JWTService{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Issue signs a token for the identity and returns it with its expiry.
func (s *JWTService) Issue(id Identity) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature and expiry and returns the claims.
func (s *JWTService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) IsValid(tokenString string) bool {
	_, err := s.Parse(tokenString)
	return err == nil
}

func (s *JWTService) UserID(tokenString string) (string, bool) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}
