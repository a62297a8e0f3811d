package sessions

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenConfig is one signing configuration: access tokens and confirmation
// tokens each get their own secret and TTL.
type TokenConfig struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience jwt.ClaimStrings
}

// TokenCodec signs and verifies the two token kinds used by the subsystem:
// short-lived access tokens keyed by user id and longer-lived confirmation
// tokens keyed by email. Tokens are compact JWS strings, safe for URLs and
// Authorization headers.
type TokenCodec struct {
	access       TokenConfig
	confirmation TokenConfig
	logger       Logger
}

// NewTokenCodec creates a codec from the two signing configurations.
func NewTokenCodec(access, confirmation TokenConfig) *TokenCodec {
	return &TokenCodec{
		access:       access,
		confirmation: confirmation,
		logger:       defLogger{},
	}
}

// NewTokenCodecFromConfig builds a codec from a Config.
func NewTokenCodecFromConfig(cfg Config) *TokenCodec {
	return NewTokenCodec(
		TokenConfig{
			Secret:   []byte(cfg.GetAccessTokenSecret()),
			TTL:      cfg.GetAccessTokenTTL(),
			Issuer:   cfg.GetIssuer(),
			Audience: cfg.GetAudience(),
		},
		TokenConfig{
			Secret:   []byte(cfg.GetConfirmationTokenSecret()),
			TTL:      cfg.GetConfirmationTokenTTL(),
			Issuer:   cfg.GetIssuer(),
			Audience: cfg.GetAudience(),
		},
	)
}

func (tc *TokenCodec) WithLogger(logger Logger) *TokenCodec {
	if logger != nil {
		tc.logger = logger
	}
	return tc
}

// IssueAccessToken signs a fresh access token for the user.
func (tc *TokenCodec) IssueAccessToken(user *User) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tc.access.Issuer,
			Subject:   user.ID.String(),
			Audience:  tc.access.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.access.TTL)),
		},
		UID:      user.ID.String(),
		UserRole: string(user.Role),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return tc.sign(claims, tc.access.Secret)
}

// IssueConfirmationToken signs an email-confirmation token embedded in the
// confirmation link mailed to the user.
func (tc *TokenCodec) IssueConfirmationToken(email string) (string, error) {
	if email == "" {
		return "", errors.New("email must not be empty", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &ConfirmationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tc.confirmation.Issuer,
			Subject:   email,
			Audience:  tc.confirmation.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.confirmation.TTL)),
		},
		Email: email,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return tc.sign(claims, tc.confirmation.Secret)
}

// VerifyAccessToken validates a raw access token. Expired and malformed
// tokens fail with distinct errors so boundaries can message them apart.
func (tc *TokenCodec) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := tc.parse(raw, claims, tc.access); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyConfirmationToken validates a confirmation token and returns the
// email address it was issued for.
func (tc *TokenCodec) VerifyConfirmationToken(raw string) (string, error) {
	claims := &ConfirmationClaims{}
	if err := tc.parse(raw, claims, tc.confirmation); err != nil {
		return "", err
	}

	if claims.Email == "" {
		return "", ErrTokenInvalid
	}

	return claims.Email, nil
}

// Validate adapts access-token verification to the middleware validator
// surface.
func (tc *TokenCodec) Validate(raw string) (AuthClaims, error) {
	return tc.VerifyAccessToken(raw)
}

func (tc *TokenCodec) sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

func (tc *TokenCodec) parse(raw string, claims jwt.Claims, cfg TokenConfig) error {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if cfg.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(cfg.Audience...))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			tc.logger.Error("token parse encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return cfg.Secret, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
