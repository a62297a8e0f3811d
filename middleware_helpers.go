package sessions

import (
	"context"

	"github.com/pulsefit/go-sessions/middleware/tokenware"
)

// TokenwareValidator adapts a TokenCodec to the tokenware.TokenValidator
// interface.
func TokenwareValidator(codec *TokenCodec) tokenware.TokenValidator {
	return codecValidator{codec: codec}
}

type codecValidator struct {
	codec *TokenCodec
}

func (v codecValidator) Validate(tokenString string) (tokenware.AuthClaims, error) {
	claims, err := v.codec.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ContextEnricherAdapter adapts tokenware.AuthClaims back to AuthClaims and
// stores them in the standard context for downstream use.
func ContextEnricherAdapter(c context.Context, claims tokenware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}
