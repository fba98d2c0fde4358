package auth

import (
	"fmt"
	"time"

	"chat-broker/errors"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier validates handshake credentials issued by the identity
// provider. It implements contract.IdentityVerifier for JWT bearer
// tokens signed with a shared HMAC secret.
type Verifier struct {
	key    []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{key: []byte(secret), issuer: issuer}
}

// Verify parses and validates the signature and expiration of a JWT
// credential and returns the stable user identity it carries.
func (v *Verifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", errors.ErrMissingCredential
	}

	token, err := jwt.ParseWithClaims(credential, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", errors.ErrInvalidCredential
	}
	return claims.UserID, nil
}

// GenerateToken creates a signed JWT for a specific user.
// Used by tests and the token tool; production tokens come from the
// external identity provider sharing the same secret.
func (v *Verifier) GenerateToken(userID string, roles []string, duration time.Duration) (string, error) {
	expirationTime := time.Now().Add(duration)

	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
		},
	}

	// HS256 (HMAC with SHA256), same algorithm on both sides.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}
