package provider

import (
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	sessions "github.com/pulsefit/go-sessions"
)

// Identity is the mapped view of a validated provider ID token.
type Identity struct {
	Provider  string
	Subject   string
	Email     string
	Verified  bool
	FirstName string
	LastName  string
	ExpiresAt time.Time
}

// identityClaims is the raw OIDC payload we care about.
type identityClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// IDTokenValidator validates provider-issued ID tokens against the
// provider's published key set.
type IDTokenValidator struct {
	cfg   Config
	jwks  *keyfunc.JWKS
	keyFn jwt.Keyfunc
}

// NewIDTokenValidator fetches the provider key set and keeps it refreshed in
// the background.
func NewIDTokenValidator(cfg Config) (*IDTokenValidator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jwks, err := keyfunc.Get(cfg.jwksURL(), keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of provider key set: %s", err)
		},
		RefreshInterval:   cfg.refreshInterval(),
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to fetch provider key set").
			WithMetadata(map[string]any{"provider": cfg.Name})
	}

	return &IDTokenValidator{cfg: cfg, jwks: jwks, keyFn: jwks.Keyfunc}, nil
}

// Close stops the background key refresh.
func (v *IDTokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Validate checks the signature, issuer, audience, and lifetime of raw and
// returns the mapped identity.
func (v *IDTokenValidator) Validate(raw string) (*Identity, error) {
	claims := &identityClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience...),
	}

	token, err := jwt.ParseWithClaims(raw, claims, v.keyFn, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, sessions.ErrTokenExpired
		}
		return nil, sessions.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, sessions.ErrTokenInvalid
	}

	identity := &Identity{
		Provider:  v.cfg.Name,
		Subject:   claims.RegisteredClaims.Subject,
		Email:     claims.Email,
		Verified:  claims.EmailVerified,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}

	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}
