package service

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/showsec/security-demo/internal/core/domain"
)

const totpSecretBytes = 20 // 160 bits of seed entropy

// TOTPChallenge generates shared secrets and verifies submitted one-time
// codes with a configurable step length and clock-skew tolerance.
type TOTPChallenge struct {
	issuer string
	step   uint
	skew   uint
}

// NewTOTPChallenge builds a verifier. step defaults to 30 seconds and skew to
// 1 adjacent step when zero.
func NewTOTPChallenge(issuer string, stepSeconds, skewSteps uint) *TOTPChallenge {
	if stepSeconds == 0 {
		stepSeconds = 30
	}
	if issuer == "" {
		issuer = "security-demo"
	}
	return &TOTPChallenge{issuer: issuer, step: stepSeconds, skew: skewSteps}
}

// GenerateSecret returns a fresh base32 secret and its otpauth enrollment URL.
func (t *TOTPChallenge) GenerateSecret(account string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
		Period:      t.step,
		SecretSize:  totpSecretBytes,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Verify checks code against secret at now, accepting the current time step
// and up to skew steps on either side. The matched step index is returned so
// callers can reject replays of an already-consumed code. An empty secret
// reports domain.ErrSecretNotProvisioned; an undecodable one simply never
// verifies.
func (t *TOTPChallenge) Verify(secret, code string, now time.Time) (bool, int64, error) {
	if strings.TrimSpace(secret) == "" {
		return false, 0, domain.ErrSecretNotProvisioned
	}

	code = strings.TrimSpace(code)
	if len(code) != otp.DigitsSix.Length() {
		return false, 0, nil
	}

	period := int64(t.step)
	for offset := -int64(t.skew); offset <= int64(t.skew); offset++ {
		at := now.Add(time.Duration(offset*period) * time.Second)
		want, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
			Period:    t.step,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			// malformed secret: fail closed
			return false, 0, nil
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true, at.Unix() / period, nil
		}
	}
	return false, 0, nil
}
