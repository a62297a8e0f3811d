package sessions

import (
	"crypto/rand"
	"math/big"

	"github.com/goliatone/go-errors"
)

// Verification codes are 6 digit one-time codes delivered by email for
// password-reset confirmation.
const (
	VerificationCodeMin = 100000
	VerificationCodeMax = 999999
)

var verificationCodeSpan = big.NewInt(int64(VerificationCodeMax - VerificationCodeMin + 1))

// GenerateVerificationCode returns a cryptographically sourced integer
// uniformly distributed in [VerificationCodeMin, VerificationCodeMax].
func GenerateVerificationCode() (int, error) {
	n, err := rand.Int(rand.Reader, verificationCodeSpan)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}

	return VerificationCodeMin + int(n.Int64()), nil
}

// IsValidVerificationCode reports whether code is inside the issued range.
func IsValidVerificationCode(code int) bool {
	return code >= VerificationCodeMin && code <= VerificationCodeMax
}
