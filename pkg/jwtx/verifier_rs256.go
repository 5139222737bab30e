package jwtx

import (
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier checks app JWTs against the app's public key. GitHub does
// this server side; we use it in tests and in the CLI's token inspection.
type RS256Verifier struct {
	pub    *rsa.PublicKey
	appID  int64
	leeway time.Duration
	now    func() time.Time
}

// NewVerifierRS256 creates a verifier for tokens issued by appID. An appID
// of zero accepts any issuer.
func NewVerifierRS256(pub *rsa.PublicKey, appID int64) *RS256Verifier {
	return &RS256Verifier{
		pub:    pub,
		appID:  appID,
		leeway: ClockSkewMargin,
		now:    time.Now,
	}
}

// Verify validates the JWT string and returns its parsed claims.
func (v *RS256Verifier) Verify(tokenStr string) (AppClaims, error) {
	// Expiry is validated below with our own clock so tests can move it.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims AppClaims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return v.pub, nil
	})
	if err != nil {
		return AppClaims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if !token.Valid {
		return AppClaims{}, ErrMalformed
	}

	expected := ""
	if v.appID != 0 {
		expected = strconv.FormatInt(v.appID, 10)
	}
	if err := claims.ValidateIssuer(expected); err != nil {
		return AppClaims{}, err
	}
	if err := claims.ValidateExpiry(v.now(), v.leeway); err != nil {
		return AppClaims{}, err
	}

	return claims, nil
}
