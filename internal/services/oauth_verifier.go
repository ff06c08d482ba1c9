package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// OAuthProvider describes an OpenID issuer whose ID tokens we accept.
type OAuthProvider struct {
	Issuers   []string
	Audiences []string
	JWKSURL   string
	Methods   []string
	// Keyfunc overrides JWKS lookup; used for tests and static keys.
	Keyfunc jwt.Keyfunc
}

type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// OAuthVerifier validates provider ID tokens. JWKS are fetched on first use
// and refreshed in the background.
type OAuthVerifier struct {
	mu        sync.Mutex
	providers map[string]*OAuthProvider
}

func NewOAuthVerifier() *OAuthVerifier {
	return &OAuthVerifier{providers: make(map[string]*OAuthProvider)}
}

// NewDefaultOAuthVerifier registers Apple and Google for the given client
// IDs. A provider without client IDs is not registered.
func NewDefaultOAuthVerifier(appleClientIDs, googleClientIDs []string) *OAuthVerifier {
	v := NewOAuthVerifier()
	if len(appleClientIDs) > 0 {
		v.Register("apple", &OAuthProvider{
			Issuers:   []string{"https://appleid.apple.com"},
			Audiences: appleClientIDs,
			JWKSURL:   "https://appleid.apple.com/auth/keys",
		})
	}
	if len(googleClientIDs) > 0 {
		v.Register("google", &OAuthProvider{
			Issuers:   []string{"https://accounts.google.com", "accounts.google.com"},
			Audiences: googleClientIDs,
			JWKSURL:   "https://www.googleapis.com/oauth2/v3/certs",
		})
	}
	return v
}

func (v *OAuthVerifier) Register(name string, p *OAuthProvider) {
	if len(p.Methods) == 0 {
		p.Methods = []string{"RS256"}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.providers[name] = p
}

func (v *OAuthVerifier) Has(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.providers[name]
	return ok
}

func (v *OAuthVerifier) keyfuncFor(ctx context.Context, p *OAuthProvider) (jwt.Keyfunc, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p.Keyfunc != nil {
		return p.Keyfunc, nil
	}

	jwks, err := keyfunc.Get(p.JWKSURL, keyfunc.Options{
		Ctx:               context.Background(),
		RefreshInterval:   12 * time.Hour,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	p.Keyfunc = jwks.Keyfunc
	return p.Keyfunc, nil
}

// Verify checks signature, expiry, issuer and audience of an ID token.
func (v *OAuthVerifier) Verify(ctx context.Context, provider, rawToken string) (*IdentityClaims, error) {
	v.mu.Lock()
	p, ok := v.providers[provider]
	v.mu.Unlock()
	if !ok {
		return nil, ErrUnknownProvider
	}

	kf, err := v.keyfuncFor(ctx, p)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(rawToken, claims, kf,
		jwt.WithValidMethods(p.Methods),
		jwt.WithExpirationRequired(),
	); err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}

	iss, _ := claims.GetIssuer()
	if !containsString(p.Issuers, iss) {
		return nil, fmt.Errorf("invalid issuer: %s", iss)
	}

	aud, _ := claims.GetAudience()
	matched := false
	for _, a := range aud {
		if containsString(p.Audiences, a) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("invalid audience: %v", []string(aud))
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, errors.New("missing sub claim")
	}

	email, _ := claims["email"].(string)
	return &IdentityClaims{
		Subject:       sub,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		EmailVerified: truthy(claims["email_verified"]),
	}, nil
}

// truthy accepts both JSON booleans and Apple's "true" strings.
func truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}

func containsString(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
