package licensecrypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the lifetime of every issued access token.
const TokenTTL = 7 * 24 * time.Hour

var (
	ErrEmptySecret     = errors.New("jwt secret cannot be empty")
	ErrInvalidKeySize  = errors.New("invalid ed25519 private key size")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenHasExpired = errors.New("token has expired")
)

// LicenseClaims asserts that AccountNumber may use LicenseKey from client EAVersion.
type LicenseClaims struct {
	LicenseKey    string `json:"license_key"`
	AccountNumber int64  `json:"account_number"`
	EAVersion     string `json:"ea_version,omitempty"`

	jwt.RegisteredClaims
}

// Issuer signs and verifies access tokens with one key.
type Issuer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	ttl       time.Duration
	now       func() time.Time
}

// NewHMACIssuer signs with HS256 using secret.
func NewHMACIssuer(secret []byte) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Issuer{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		ttl:       TokenTTL,
		now:       time.Now,
	}, nil
}

// NewEd25519Issuer signs with EdDSA; verification uses the matching public key.
func NewEd25519Issuer(priv ed25519.PrivateKey) (*Issuer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(priv))
	}
	return &Issuer{
		method:    jwt.SigningMethodEdDSA,
		signKey:   priv,
		verifyKey: priv.Public(),
		ttl:       TokenTTL,
		now:       time.Now,
	}, nil
}

// NewIssuer prefers an ed25519 key (base64 encoded) and falls back to the HMAC secret.
func NewIssuer(secret, privateKeyB64 string) (*Issuer, error) {
	if privateKeyB64 == "" {
		return NewHMACIssuer([]byte(secret))
	}
	b, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode jwt private key: %w", err)
	}
	return NewEd25519Issuer(ed25519.PrivateKey(b))
}

func (i *Issuer) Algorithm() string { return i.method.Alg() }

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// Issue signs a token for the triple. The returned claims are the ones embedded.
func (i *Issuer) Issue(licenseKey string, account int64, version string) (string, *LicenseClaims, error) {
	now := i.now().UTC()
	claims := &LicenseClaims{
		LicenseKey:    licenseKey,
		AccountNumber: account,
		EAVersion:     version,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.signKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, algorithm and time claims of a token from Issue.
func (i *Issuer) Parse(token string) (*LicenseClaims, error) {
	claims := &LicenseClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.verifyKey, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrTokenHasExpired, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}
