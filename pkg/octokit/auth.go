package octokit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/probot/pkg/cryptox"
	"github.com/aussiebroadwan/probot/pkg/jwtx"
	"github.com/patrickmn/go-cache"
)

// appTokenRefreshMargin drops a cached app JWT this long before it
// expires so an in-flight request never carries a stale one.
const appTokenRefreshMargin = time.Minute

// authenticator produces the Authorization header value for a request.
type authenticator interface {
	authorization() (string, error)
}

// newAuthenticator picks the strategy for a. Without a token or any app
// credentials requests go out unauthenticated and nil is returned.
func newAuthenticator(a *Auth) authenticator {
	switch {
	case a.IsToken():
		return tokenAuth(a.Token)
	case a == nil || (a.AppID == 0 && a.PrivateKey == ""):
		return nil
	default:
		return &appAuth{
			appID:      a.AppID,
			privateKey: a.PrivateKey,
			cache:      a.Cache,
			now:        time.Now,
		}
	}
}

type tokenAuth string

func (t tokenAuth) authorization() (string, error) {
	return "token " + string(t), nil
}

// appAuth signs short-lived RS256 JWTs that identify the app itself.
type appAuth struct {
	appID      int64
	privateKey string
	cache      *cache.Cache
	now        func() time.Time

	once      sync.Once
	signer    jwtx.Signer
	signerErr error
}

// cacheKey includes a key fingerprint so a rotated key never reuses a JWT
// signed with its predecessor.
func (a *appAuth) cacheKey() string {
	return "octokit:app-jwt:" + strconv.FormatInt(a.appID, 10) + ":" + cryptox.Fingerprint(a.privateKey)[:16]
}

func (a *appAuth) loadSigner() (jwtx.Signer, error) {
	a.once.Do(func() {
		if a.appID == 0 {
			a.signerErr = ErrMissingAppID
			return
		}
		if a.privateKey == "" {
			a.signerErr = ErrMissingPrivateKey
			return
		}
		pemKey, err := cryptox.NormalizePrivateKey(a.privateKey)
		if err != nil {
			a.signerErr = fmt.Errorf("octokit: app private key: %w", err)
			return
		}
		a.signer, a.signerErr = jwtx.NewSignerRS256([]byte(pemKey))
		if a.signerErr != nil {
			a.signerErr = fmt.Errorf("octokit: app private key: %w", a.signerErr)
		}
	})
	return a.signer, a.signerErr
}

func (a *appAuth) authorization() (string, error) {
	signer, err := a.loadSigner()
	if err != nil {
		return "", err
	}

	if a.cache != nil {
		if cached, ok := a.cache.Get(a.cacheKey()); ok {
			if token, ok := cached.(string); ok {
				return "Bearer " + token, nil
			}
		}
	}

	now := a.now()
	claims := jwtx.NewAppClaims(a.appID, now)
	token, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("octokit: sign app jwt: %w", err)
	}

	if a.cache != nil {
		if ttl := claims.ExpiresIn(now) - appTokenRefreshMargin; ttl > 0 {
			a.cache.Set(a.cacheKey(), token, ttl)
		}
	}

	return "Bearer " + token, nil
}

// authTransport sets the Authorization header unless the caller already
// did.
type authTransport struct {
	auth authenticator
	next http.RoundTripper
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(r)
	}

	value, err := t.auth.authorization()
	if err != nil {
		if r.Body != nil {
			_ = r.Body.Close()
		}
		return nil, err
	}

	r = r.Clone(r.Context())
	r.Header.Set("Authorization", value)
	return t.next.RoundTrip(r)
}
