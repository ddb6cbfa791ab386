package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

const (
	issuer         = "siterent-backend"
	accessAudience = "ledger-api"
)

// OperatorClaims identifies the back-office operator or service calling the
// ledger API.
type OperatorClaims struct {
	OperatorID string    `json:"operator_id"`
	Type       TokenType `json:"type"`
	Roles      []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role.
func (c *OperatorClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type TokenManager interface {
	GenerateAccessToken(operatorID string, roles []string) (string, error)
	GenerateServiceToken(name string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

type tokenManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{
		secret:    []byte(secret),
		accessTTL: time.Hour,
		now:       time.Now,
	}
}

func (m *tokenManager) sign(claims OperatorClaims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.OperatorID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{accessAudience},
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *tokenManager) GenerateAccessToken(operatorID string, roles []string) (string, error) {
	return m.sign(OperatorClaims{OperatorID: operatorID, Type: TokenTypeAccess, Roles: roles}, m.accessTTL)
}

// GenerateServiceToken issues a long-lived token for batch callers such as
// the reconciliation cron job.
func (m *tokenManager) GenerateServiceToken(name string, ttl time.Duration) (string, error) {
	return m.sign(OperatorClaims{OperatorID: name, Type: TokenTypeService}, ttl)
}

func (m *tokenManager) ValidateToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(accessAudience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.OperatorID == "" {
		claims.OperatorID = claims.Subject
	}
	return claims, nil
}
