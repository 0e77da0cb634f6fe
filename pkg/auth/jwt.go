package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ManagementSigner mints HS256 management tokens for the video provider's
// REST API from an app access key and secret.
type ManagementSigner struct {
	accessKey string
	secret    []byte
	now       func() time.Time
}

// New creates a new management token signer/verifier.
func New(accessKey, secret string) *ManagementSigner {
	return &ManagementSigner{accessKey: accessKey, secret: []byte(secret), now: time.Now}
}

// Sign creates a management token valid for ttl
func (s *ManagementSigner) Sign(ttl time.Duration) (string, error) {
	if s.accessKey == "" || len(s.secret) == 0 {
		return "", errors.New("missing access key or secret")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"access_key": s.accessKey,
		"type":       "management",
		"version":    2,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"nbf":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify checks a token signed with this secret and returns its access_key claim
func (s *ManagementSigner) Verify(tok string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if typ, _ := claims["type"].(string); typ != "management" {
		return "", errors.New("not a management token")
	}
	key, _ := claims["access_key"].(string)
	if key == "" {
		return "", errors.New("no access_key")
	}
	return key, nil
}
