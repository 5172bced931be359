package room

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warmline/warmline/types"
)

// CredentialClaims is the signed join grant for one identity in one
// room. The media gateway validates the same claims on connect.
type CredentialClaims struct {
	jwt.RegisteredClaims
	Room        string            `json:"room"`
	DisplayName string            `json:"display_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MintCredential signs a join credential for identity in room, valid
// for ttl.
func MintCredential(apiKey, apiSecret, roomName, identity, displayName string, metadata map[string]string, ttl time.Duration) (string, error) {
	if apiSecret == "" {
		return "", fmt.Errorf("api secret is required to sign credentials")
	}
	now := time.Now().UTC()
	claims := CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Room:        roomName,
		DisplayName: displayName,
		Metadata:    metadata,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// VerifyCredential parses and validates a join credential.
func VerifyCredential(apiSecret, credential string) (*CredentialClaims, error) {
	claims := &CredentialClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(apiSecret), nil
	})
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "invalid credential").WithCause(err)
	}
	if !token.Valid {
		return nil, types.NewError(types.ErrInvalidRequest, "invalid credential")
	}
	return claims, nil
}
