package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by an identity token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies identity tokens with a single ECDSA P-256 key.
type TokenIssuer struct {
	signingKey *ecdsa.PrivateKey
	issuer     string
	audience   string
	lifetime   time.Duration
	leeway     time.Duration
}

func NewTokenIssuer(
	signingKey *ecdsa.PrivateKey,
	issuer string,
	audience string,
	lifetime time.Duration,
) *TokenIssuer {
	return &TokenIssuer{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   audience,
		lifetime:   lifetime,
		leeway:     30 * time.Second,
	}
}

func (t *TokenIssuer) Issue(
	uid string,
	email string,
) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   uid,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(t.signingKey)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign identity token: %v", ErrInternal, err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience and lifetime and returns the
// token's claims.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(t.leeway),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return &t.signingKey.PublicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

// VerifyIDToken is Verify reduced to the subject and email.
func (t *TokenIssuer) VerifyIDToken(token string) (string, string, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Email, nil
}

// LoadSigningKey reads a DER encoded EC private key, in SEC 1 or PKCS #8 form.
func LoadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	der, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key '%s': %w", path, err)
	}

	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key '%s': %w", path, err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key '%s' is not an ECDSA key", path)
	}
	return key, nil
}

func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}
