package jwtx

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AppTokenTTL is the longest lifetime GitHub accepts for an app JWT.
	AppTokenTTL = 10 * time.Minute

	// ClockSkewMargin backdates iat so that a server clock slightly behind
	// ours does not reject a freshly minted token.
	ClockSkewMargin = 30 * time.Second
)

// AppClaims are the claims GitHub expects when an app authenticates as
// itself: issuer is the numeric app id, nothing else is custom.
type AppClaims struct {
	jwt.RegisteredClaims
}

// NewAppClaims builds claims for appID valid from now-ClockSkewMargin for
// AppTokenTTL.
func NewAppClaims(appID int64, now time.Time) AppClaims {
	issuedAt := now.Add(-ClockSkewMargin).Truncate(time.Second)
	return AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    strconv.FormatInt(appID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(AppTokenTTL)),
		},
	}
}

// AppID parses the issuer back into an app id.
func (c *AppClaims) AppID() (int64, error) {
	id, err := strconv.ParseInt(c.Issuer, 10, 64)
	if err != nil {
		return 0, ErrIssuer
	}
	return id, nil
}

// ExpiresIn returns how long the token stays valid after now, zero when it
// has already expired or carries no exp.
func (c *AppClaims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *AppClaims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired and isn't issued in the
// future beyond leeway.
func (c *AppClaims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.IssuedAt != nil && now.Before(c.IssuedAt.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
