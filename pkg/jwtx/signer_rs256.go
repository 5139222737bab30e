package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/probot/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// RS256Signer implements the Signer interface using RSA SHA-256.
type RS256Signer struct {
	key *rsa.PrivateKey
	alg string
}

func newRS256Signer(pemKey []byte) (*RS256Signer, error) {
	key, err := cryptox.ParseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}

	return &RS256Signer{
		key: key,
		alg: jwt.SigningMethodRS256.Alg(),
	}, nil
}

func (s *RS256Signer) Alg() string { return s.alg }

// Sign turns the claims into a compact JWT.
func (s *RS256Signer) Sign(claims AppClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(s.key)
}

// PublicKey is what GitHub holds for the app, exposed for verification in
// tests and tooling.
func (s *RS256Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// Validate does a quick sanity check to make sure we actually have a key.
func (s *RS256Signer) Validate() error {
	if s.key == nil {
		return errors.New("jwtx: nil RSA key")
	}
	return s.key.Validate()
}
