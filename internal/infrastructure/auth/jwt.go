package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
)

// TokenType distinguishes the two tokens of a pair; the claim is checked on
// every validation so one can never stand in for the other
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// clockSkew tolerated on exp, nbf and iat between the API replicas
const clockSkew = 30 * time.Second

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims identify the ledger user a token was issued to
type Claims struct {
	jwt.RegisteredClaims
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"is_admin,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

// TokenPair is what a login or refresh hands back to the client
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// GenerateTokenInput is the identity embedded in a new pair
type GenerateTokenInput struct {
	UserID   uuid.UUID
	Username string
	IsAdmin  bool
}

// tokenKind holds what differs between access and refresh tokens
type tokenKind struct {
	typ    TokenType
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// JWTService signs and validates HS256 token pairs
type JWTService struct {
	access          tokenKind
	refresh         tokenKind
	issuer          string
	maxRefreshCount int
	now             func() time.Time
}

// NewJWTService builds the service from cfg. The refresh secret falls back to
// the access secret when unset; the token_type claim still keeps them apart.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return newJWTService(cfg, time.Now)
}

func newJWTService(cfg config.JWTConfig, now func() time.Time) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}
	s := &JWTService{
		issuer:          cfg.Issuer,
		maxRefreshCount: cfg.MaxRefreshCount,
		now:             now,
	}
	s.access = s.kind(TokenTypeAccess, cfg.Secret, cfg.AccessTokenExpiration)
	s.refresh = s.kind(TokenTypeRefresh, refreshSecret, cfg.RefreshTokenExpiration)
	return s
}

func (s *JWTService) kind(typ TokenType, secret string, ttl time.Duration) tokenKind {
	return tokenKind{
		typ:    typ,
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(s.issuer),
			jwt.WithAudience(s.issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
			jwt.WithTimeFunc(s.now),
		),
	}
}

// GenerateTokenPair issues a fresh pair, as on login
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	return s.issuePair(input, 0)
}

func (s *JWTService) issuePair(input GenerateTokenInput, refreshCount int) (*TokenPair, error) {
	now := s.now()
	access, accessExp, err := s.sign(s.access, input, now, 0)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sign(s.refresh, input, now, refreshCount)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) sign(k tokenKind, input GenerateTokenInput, now time.Time, refreshCount int) (string, time.Time, error) {
	expires := now.Add(k.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:       input.UserID.String(),
		Username:     input.Username,
		IsAdmin:      input.IsAdmin,
		TokenType:    k.typ,
		RefreshCount: refreshCount,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateAccessToken returns the claims of a valid access token
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(s.access, tokenString)
}

// ValidateRefreshToken returns the claims of a valid refresh token
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(s.refresh, tokenString)
}

// parseErrors maps jwt parse failures onto the package errors; anything not
// listed is ErrInvalidToken
var parseErrors = []struct{ from, to error }{
	{jwt.ErrTokenExpired, ErrExpiredToken},
	{jwt.ErrTokenNotValidYet, ErrTokenNotYetValid},
	{jwt.ErrTokenUsedBeforeIssued, ErrTokenNotYetValid},
}

func (s *JWTService) validate(k tokenKind, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := k.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	})
	if err != nil {
		for _, m := range parseErrors {
			if errors.Is(err, m.from) {
				return nil, m.to
			}
		}
		return nil, ErrInvalidToken
	}

	switch {
	case claims.TokenType != k.typ:
		return nil, ErrInvalidTokenType
	case claims.UserID == "":
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Rotate issues the pair that follows an already validated refresh token.
// The refresh counter travels with the chain so it cannot grow without bound.
func (s *JWTService) Rotate(claims *Claims) (*TokenPair, error) {
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidTokenType
	}
	if s.maxRefreshCount > 0 && claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, ErrInvalidClaims
	}
	return s.issuePair(GenerateTokenInput{
		UserID:   userID,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}, claims.RefreshCount+1)
}

// GetUserUUID parses the user_id claim
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GetRemainingTTL is how long the token stays valid; revocations are kept
// that long
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
